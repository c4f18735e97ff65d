package communitymodule

import (
	"errors"
	"fmt"

	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/filmsearch/filmsearch/internal/events"
	"gorm.io/gorm"
)

// ErrInvalidRatingValue is returned when a rating is outside 1-10
var ErrInvalidRatingValue = errors.New("rating value must be between 1 and 10")

// RatingManager handles per-user title ratings and their aggregates
type RatingManager struct {
	db *gorm.DB
}

// NewRatingManager creates a rating manager
func NewRatingManager(db *gorm.DB) *RatingManager {
	return &RatingManager{db: db}
}

// AverageRating returns the arithmetic mean of a title's ratings, 0.0 when none
func (m *RatingManager) AverageRating(titleID uint) (float64, error) {
	var row struct {
		Avg   *float64
		Count int64
	}
	err := m.db.Model(&database.Rating{}).
		Select("AVG(value) as avg, COUNT(*) as count").
		Where("title_id = ?", titleID).
		Scan(&row).Error
	if err != nil {
		return 0, err
	}
	if row.Count == 0 || row.Avg == nil {
		return 0.0, nil
	}
	return *row.Avg, nil
}

// RateTitle records a user's rating for a title. A second submission for the
// same pair overwrites the first. Returns whether a new row was created.
func (m *RatingManager) RateTitle(userID, titleID uint, value int) (*database.Rating, bool, error) {
	if value < 1 || value > 10 {
		return nil, false, ErrInvalidRatingValue
	}

	var rating database.Rating
	err := m.db.Where("user_id = ? AND title_id = ?", userID, titleID).First(&rating).Error
	switch {
	case err == nil:
		rating.Value = value
		if err := m.db.Model(&rating).Update("value", value).Error; err != nil {
			return nil, false, fmt.Errorf("failed to update rating: %w", err)
		}
		m.publishRated(&rating, false)
		return &rating, false, nil

	case errors.Is(err, database.ErrNotFound):
		rating = database.Rating{UserID: userID, TitleID: titleID, Value: value}
		if err := m.db.Create(&rating).Error; err != nil {
			// Concurrent insert for the same pair; retry as an update
			var existing database.Rating
			if ferr := m.db.Where("user_id = ? AND title_id = ?", userID, titleID).First(&existing).Error; ferr == nil {
				existing.Value = value
				if uerr := m.db.Model(&existing).Update("value", value).Error; uerr != nil {
					return nil, false, fmt.Errorf("failed to update rating: %w", uerr)
				}
				m.publishRated(&existing, false)
				return &existing, false, nil
			}
			return nil, false, fmt.Errorf("failed to create rating: %w", err)
		}
		m.publishRated(&rating, true)
		return &rating, true, nil

	default:
		return nil, false, err
	}
}

// GetUserRating returns the user's rating for a title, or nil when absent
func (m *RatingManager) GetUserRating(userID, titleID uint) (*database.Rating, error) {
	var rating database.Rating
	err := m.db.Where("user_id = ? AND title_id = ?", userID, titleID).First(&rating).Error
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// DeleteRating removes a user's rating for a title
func (m *RatingManager) DeleteRating(userID, titleID uint) error {
	result := m.db.Where("user_id = ? AND title_id = ?", userID, titleID).Delete(&database.Rating{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// RatingsCount returns how many ratings a title has
func (m *RatingManager) RatingsCount(titleID uint) (int64, error) {
	var count int64
	err := m.db.Model(&database.Rating{}).Where("title_id = ?", titleID).Count(&count).Error
	return count, err
}

func (m *RatingManager) publishRated(rating *database.Rating, created bool) {
	event := events.NewEvent(events.EventRatingUpserted, "Title Rated", "")
	event.Data = map[string]interface{}{
		"user_id":  rating.UserID,
		"title_id": rating.TitleID,
		"value":    rating.Value,
		"created":  created,
	}
	events.Publish(event)
}
