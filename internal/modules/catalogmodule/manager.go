package catalogmodule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/filmsearch/filmsearch/internal/logger"
	"gorm.io/gorm"
)

const (
	minReleaseYear    = 1888
	maxDurationMins   = 1000
	maxSeasons        = 100
	maxGenresPerTitle = 5
)

// TitleManager handles catalog title reads, writes, and aggregates
type TitleManager struct {
	db *gorm.DB
}

// NewTitleManager creates a title manager
func NewTitleManager(db *gorm.DB) *TitleManager {
	return &TitleManager{db: db}
}

// TitleFilter narrows and pages a title listing
type TitleFilter struct {
	Query     string
	GenreID   uint
	Type      string
	Year      int
	MinRating float64
	Page      int
	PageSize  int
}

// ValidateTitle checks a candidate title write without persisting anything.
// excludeID skips the duplicate check against the record being updated.
func (m *TitleManager) ValidateTitle(t *database.Title, genreIDs []uint, excludeID uint) database.ValidationResult {
	var result database.ValidationResult

	name := strings.TrimSpace(t.Name)
	if name == "" {
		result.Add("name", "name is required")
	} else if len(name) > 255 {
		result.Add("name", "name must be at most 255 characters")
	}

	if t.Type != database.TypeMovie && t.Type != database.TypeTVShow {
		result.Add("type", "type must be movie or tv_show")
	}

	if t.ReleaseDate.IsZero() {
		result.Add("release_date", "release date is required")
	} else if t.ReleaseDate.Year() < minReleaseYear {
		result.Add("release_date", fmt.Sprintf("release year must be %d or later", minReleaseYear))
	}

	switch t.Type {
	case database.TypeMovie:
		if t.Duration == nil {
			result.Add("duration", "movies require a duration")
		} else if *t.Duration < 1 || *t.Duration > maxDurationMins {
			result.Add("duration", fmt.Sprintf("duration must be between 1 and %d minutes", maxDurationMins))
		}
		if t.SeasonsCount != nil || t.EpisodesCount != nil {
			result.Add("seasons_count", "movies cannot carry season or episode counts")
		}
	case database.TypeTVShow:
		if t.Duration != nil {
			result.Add("duration", "tv shows cannot carry a duration")
		}
		if t.SeasonsCount == nil {
			result.Add("seasons_count", "tv shows require a seasons count")
		} else if *t.SeasonsCount < 1 || *t.SeasonsCount > maxSeasons {
			result.Add("seasons_count", fmt.Sprintf("seasons count must be between 1 and %d", maxSeasons))
		}
		if t.EpisodesCount != nil && t.SeasonsCount != nil && *t.EpisodesCount < *t.SeasonsCount {
			result.Add("episodes_count", "episodes count cannot be lower than seasons count")
		}
	}

	if t.EndDate != nil && !t.ReleaseDate.IsZero() && t.EndDate.Before(t.ReleaseDate) {
		result.Add("end_date", "end date cannot precede the release date")
	}

	if len(genreIDs) < 1 {
		result.Add("genres", "at least one genre is required")
	} else if len(genreIDs) > maxGenresPerTitle {
		result.Add("genres", fmt.Sprintf("at most %d genres are allowed", maxGenresPerTitle))
	}

	if name != "" && !t.ReleaseDate.IsZero() {
		yearStart := time.Date(t.ReleaseDate.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		yearEnd := yearStart.AddDate(1, 0, 0)
		query := m.db.Model(&database.Title{}).
			Where("LOWER(name) = ? AND release_date >= ? AND release_date < ?",
				strings.ToLower(name), yearStart, yearEnd)
		if excludeID != 0 {
			query = query.Where("id <> ?", excludeID)
		}
		var count int64
		query.Count(&count)
		if count > 0 {
			result.Add("name", "a title with this name already exists for that release year")
		}
	}

	return result
}

// CreateTitle persists a validated title and attaches its genres
func (m *TitleManager) CreateTitle(t *database.Title, genreIDs []uint) error {
	genres, err := m.resolveGenres(genreIDs)
	if err != nil {
		return err
	}
	t.Name = strings.TrimSpace(t.Name)
	t.Genres = genres
	if err := m.db.Create(t).Error; err != nil {
		return fmt.Errorf("failed to create title: %w", err)
	}
	logger.Info("Title created: %s (id=%d)", t.Name, t.ID)
	return nil
}

// UpdateTitle persists changes to an existing title and replaces its genres
func (m *TitleManager) UpdateTitle(t *database.Title, genreIDs []uint) error {
	genres, err := m.resolveGenres(genreIDs)
	if err != nil {
		return err
	}
	t.Name = strings.TrimSpace(t.Name)

	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(t).Select("*").Omit("id", "created_at").Updates(t).Error; err != nil {
			return fmt.Errorf("failed to update title: %w", err)
		}
		if err := tx.Model(t).Association("Genres").Replace(genres); err != nil {
			return fmt.Errorf("failed to update title genres: %w", err)
		}
		return nil
	})
}

// DeleteTitle removes a title; memberships and ratings cascade
func (m *TitleManager) DeleteTitle(id uint) error {
	result := m.db.Delete(&database.Title{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// GetTitle loads a title with genres and credits
func (m *TitleManager) GetTitle(id uint) (*database.Title, error) {
	var title database.Title
	err := m.db.Preload("Genres").Preload("Credits.Person").First(&title, id).Error
	if err != nil {
		return nil, err
	}
	return &title, nil
}

// ListTitles applies the filter and returns one page plus the total count
func (m *TitleManager) ListTitles(filter TitleFilter) ([]database.Title, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	query := m.db.Model(&database.Title{})

	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(country) LIKE ?",
			like, like, like,
		)
	}
	if filter.GenreID != 0 {
		query = query.Where(
			"id IN (SELECT title_id FROM title_genres WHERE genre_id = ?)", filter.GenreID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Year != 0 {
		yearStart := time.Date(filter.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		query = query.Where("release_date >= ? AND release_date < ?", yearStart, yearStart.AddDate(1, 0, 0))
	}
	if filter.MinRating > 0 {
		query = query.Where(
			"(SELECT AVG(value) FROM ratings WHERE ratings.title_id = titles.id) >= ?", filter.MinRating)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var titles []database.Title
	err := query.Preload("Genres").
		Order("release_date DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&titles).Error
	return titles, total, err
}

// SearchTitles matches q against names, descriptions, and genre names
func (m *TitleManager) SearchTitles(q string) ([]database.Title, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	like := "%" + strings.ToLower(q) + "%"

	var titles []database.Title
	err := m.db.Distinct("titles.*").
		Joins("LEFT JOIN title_genres ON title_genres.title_id = titles.id").
		Joins("LEFT JOIN genres ON genres.id = title_genres.genre_id").
		Where("LOWER(titles.name) LIKE ? OR LOWER(titles.description) LIKE ? OR LOWER(genres.name) LIKE ?",
			like, like, like).
		Order("titles.release_date DESC").
		Limit(20).
		Preload("Genres").
		Find(&titles).Error
	return titles, err
}

// TitleStats carries per-title rating and review aggregates
type TitleStats struct {
	TitleID       uint
	AverageRating float64
	RatingsCount  int64
	ReviewsCount  int64
}

// StatsFor computes aggregates for a set of titles in two grouped queries
func (m *TitleManager) StatsFor(titleIDs []uint) (map[uint]TitleStats, error) {
	stats := make(map[uint]TitleStats, len(titleIDs))
	if len(titleIDs) == 0 {
		return stats, nil
	}
	for _, id := range titleIDs {
		stats[id] = TitleStats{TitleID: id}
	}

	var ratingRows []struct {
		TitleID uint
		Avg     float64
		Count   int64
	}
	err := m.db.Model(&database.Rating{}).
		Select("title_id, AVG(value) as avg, COUNT(*) as count").
		Where("title_id IN ?", titleIDs).
		Group("title_id").
		Scan(&ratingRows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range ratingRows {
		s := stats[row.TitleID]
		s.AverageRating = row.Avg
		s.RatingsCount = row.Count
		stats[row.TitleID] = s
	}

	var reviewRows []struct {
		TitleID uint
		Count   int64
	}
	err = m.db.Model(&database.Review{}).
		Select("title_id, COUNT(*) as count").
		Where("title_id IN ? AND moderation_status = ?", titleIDs, database.ModerationApproved).
		Group("title_id").
		Scan(&reviewRows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range reviewRows {
		s := stats[row.TitleID]
		s.ReviewsCount = row.Count
		stats[row.TitleID] = s
	}

	return stats, nil
}

func (m *TitleManager) resolveGenres(genreIDs []uint) ([]database.Genre, error) {
	var genres []database.Genre
	if err := m.db.Where("id IN ?", genreIDs).Find(&genres).Error; err != nil {
		return nil, err
	}
	if len(genres) != len(genreIDs) {
		return nil, errors.New("unknown genre id")
	}
	return genres, nil
}
