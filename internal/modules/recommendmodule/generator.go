package recommendmodule

import (
	"context"
	"fmt"

	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/filmsearch/filmsearch/internal/events"
	"github.com/filmsearch/filmsearch/internal/logger"
	"gorm.io/gorm"
)

const (
	// Rating floor for a user's own ratings to count toward genre taste
	tasteRatingFloor = 8

	// Global average floor for a title to be recommendable by genre
	genreAverageFloor = 7.0

	// Minimum ratings for a title to appear in global leaderboard seeds
	leaderboardMinRatings = 3
)

// GenerateReport summarizes one generator run
type GenerateReport struct {
	UsersProcessed int `json:"users_processed"`
	Created        int `json:"created"`
}

// Generator produces recommendation rows from rating data
type Generator struct {
	db *gorm.DB
}

// NewGenerator creates a recommendation generator
func NewGenerator(db *gorm.DB) *Generator {
	return &Generator{db: db}
}

type genreTaste struct {
	GenreID uint
	Name    string
	Avg     float64
}

type scoredTitle struct {
	TitleID uint
	Avg     float64
}

// GenerateAll runs the taste-based generator for every active user. Inserts
// are get-or-create, so re-running never duplicates rows. Cancellation is
// checked between users; a partial run leaves valid data behind.
func (g *Generator) GenerateAll(ctx context.Context) (*GenerateReport, error) {
	var users []database.User
	if err := g.db.Where("is_active = ?", true).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	report := &GenerateReport{}
	for i := range users {
		if err := ctx.Err(); err != nil {
			logger.Warn("Recommendation run cancelled after %d users", report.UsersProcessed)
			return report, err
		}
		created, err := g.generateForUser(users[i].ID)
		if err != nil {
			return report, fmt.Errorf("failed to generate for user %d: %w", users[i].ID, err)
		}
		report.Created += created
		report.UsersProcessed++
	}

	event := events.NewEvent(events.EventRecommendationsRun, "Recommendations Generated", "")
	event.Data = map[string]interface{}{
		"users_processed": report.UsersProcessed,
		"created":         report.Created,
	}
	events.Publish(event)

	logger.Info("Recommendation run complete: %d rows for %d users", report.Created, report.UsersProcessed)
	return report, nil
}

// generateForUser finds the user's top genres and seeds titles from each
func (g *Generator) generateForUser(userID uint) (int, error) {
	var tastes []genreTaste
	err := g.db.Raw(`
		SELECT genres.id AS genre_id, genres.name AS name, AVG(ratings.value) AS avg
		FROM ratings
		JOIN title_genres ON title_genres.title_id = ratings.title_id
		JOIN genres ON genres.id = title_genres.genre_id
		WHERE ratings.user_id = ? AND ratings.value >= ?
		GROUP BY genres.id, genres.name
		ORDER BY avg DESC
		LIMIT 3`, userID, tasteRatingFloor).Scan(&tastes).Error
	if err != nil {
		return 0, err
	}

	created := 0
	for _, taste := range tastes {
		var candidates []scoredTitle
		err := g.db.Raw(`
			SELECT titles.id AS title_id, AVG(ratings.value) AS avg
			FROM titles
			JOIN title_genres ON title_genres.title_id = titles.id
			JOIN ratings ON ratings.title_id = titles.id
			WHERE title_genres.genre_id = ?
			  AND titles.id NOT IN (SELECT title_id FROM ratings WHERE user_id = ?)
			GROUP BY titles.id
			HAVING AVG(ratings.value) >= ?
			ORDER BY avg DESC
			LIMIT 2`, taste.GenreID, userID, genreAverageFloor).Scan(&candidates).Error
		if err != nil {
			return created, err
		}

		reason := fmt.Sprintf("genre_%s", taste.Name)
		for _, candidate := range candidates {
			wasCreated, err := g.getOrCreate(userID, candidate.TitleID, reason)
			if err != nil {
				return created, err
			}
			if wasCreated {
				created++
			}
		}
	}
	return created, nil
}

// GenerateSimple seeds every active user with the global top titles. Used by
// the admin bulk action when taste data is too thin to matter.
func (g *Generator) GenerateSimple(ctx context.Context) (*GenerateReport, error) {
	top, err := g.topTitles(3)
	if err != nil {
		return nil, err
	}

	var users []database.User
	if err := g.db.Where("is_active = ?", true).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	report := &GenerateReport{}
	for i := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		for _, candidate := range top {
			var rated int64
			g.db.Model(&database.Rating{}).
				Where("user_id = ? AND title_id = ?", users[i].ID, candidate.TitleID).
				Count(&rated)
			if rated > 0 {
				continue
			}
			wasCreated, err := g.getOrCreate(users[i].ID, candidate.TitleID, "admin_generated")
			if err != nil {
				return report, err
			}
			if wasCreated {
				report.Created++
			}
		}
		report.UsersProcessed++
	}
	return report, nil
}

// SeedOnDemand fills an empty recommendation list from the global top titles,
// tagging each row with the title's average at seed time.
func (g *Generator) SeedOnDemand(userID uint) (int, error) {
	top, err := g.topTitles(5)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, candidate := range top {
		reason := fmt.Sprintf("high_rating_%.1f", candidate.Avg)
		wasCreated, err := g.getOrCreate(userID, candidate.TitleID, reason)
		if err != nil {
			return created, err
		}
		if wasCreated {
			created++
		}
	}
	return created, nil
}

// topTitles returns the best-rated titles with enough ratings to trust
func (g *Generator) topTitles(limit int) ([]scoredTitle, error) {
	var rows []scoredTitle
	err := g.db.Raw(`
		SELECT title_id, AVG(value) AS avg
		FROM ratings
		GROUP BY title_id
		HAVING COUNT(*) >= ?
		ORDER BY avg DESC
		LIMIT ?`, leaderboardMinRatings, limit).Scan(&rows).Error
	return rows, err
}

// getOrCreate inserts a recommendation unless the (user, title) pair exists
func (g *Generator) getOrCreate(userID, titleID uint, reason string) (bool, error) {
	rec := database.Recommendation{}
	result := g.db.Where(database.Recommendation{UserID: userID, TitleID: titleID}).
		Attrs(database.Recommendation{ReasonCode: reason}).
		FirstOrCreate(&rec)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListForUser returns the user's recommendations with titles, newest first
func (g *Generator) ListForUser(userID uint) ([]database.Recommendation, error) {
	var recs []database.Recommendation
	err := g.db.Preload("Title").Preload("Title.Genres").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&recs).Error
	return recs, err
}
