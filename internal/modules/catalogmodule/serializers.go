package catalogmodule

import (
	"fmt"
	"strings"

	"github.com/filmsearch/filmsearch/internal/config"
	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/gin-gonic/gin"
)

// FormatDuration renders minutes as "2h 15m" ("45m" under an hour)
func FormatDuration(minutes *int) string {
	if minutes == nil || *minutes <= 0 {
		return ""
	}
	h := *minutes / 60
	m := *minutes % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

func genreNames(genres []database.Genre) []string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return names
}

// TitleSummary shapes a title for list payloads, enriched with aggregates
func TitleSummary(t *database.Title, stats TitleStats, highlights *config.HighlightList) gin.H {
	windowDays := config.Get().Catalog.NewReleaseWindowDays
	return gin.H{
		"id":                 t.ID,
		"name":               t.Name,
		"type":               t.Type,
		"release_date":       t.ReleaseDate,
		"release_year":       t.ReleaseDate.Year(),
		"poster_url":         t.PosterURL,
		"country":            t.Country,
		"age_restriction":    t.AgeRestriction,
		"genres":             genreNames(t.Genres),
		"formatted_duration": FormatDuration(t.Duration),
		"average_rating":     stats.AverageRating,
		"ratings_count":      stats.RatingsCount,
		"reviews_count":      stats.ReviewsCount,
		"is_new_release":     t.IsNewRelease(windowDays),
		"is_highlighted":     highlights.IsHighlighted(t.ID),
	}
}

// reviewPreview truncates review text for embedding in title detail
func reviewPreview(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}

// TitleDetail shapes a title for the detail payload with credits and reviews
func TitleDetail(t *database.Title, stats TitleStats, highlights *config.HighlightList, reviews []database.Review, userRating *int) gin.H {
	payload := TitleSummary(t, stats, highlights)
	payload["description"] = t.Description
	payload["status"] = t.Status
	payload["duration"] = t.Duration
	payload["seasons_count"] = t.SeasonsCount
	payload["episodes_count"] = t.EpisodesCount
	payload["end_date"] = t.EndDate
	payload["created_at"] = t.CreatedAt
	payload["updated_at"] = t.UpdatedAt

	credits := make([]gin.H, 0, len(t.Credits))
	for _, c := range t.Credits {
		credits = append(credits, gin.H{
			"person_id":      c.PersonID,
			"full_name":      c.Person.FullName,
			"role":           c.Role,
			"character_name": c.CharacterName,
		})
	}
	payload["credits"] = credits

	reviewPayloads := make([]gin.H, 0, len(reviews))
	for i := range reviews {
		r := &reviews[i]
		reviewPayloads = append(reviewPayloads, gin.H{
			"id":         r.ID,
			"user_id":    r.UserID,
			"username":   r.User.Username,
			"text":       reviewPreview(r.Text, 300),
			"created_at": r.CreatedAt,
		})
	}
	payload["reviews"] = reviewPayloads
	payload["user_rating"] = userRating

	return payload
}
