package collectionmodule

import (
	"errors"
	"fmt"

	"github.com/filmsearch/filmsearch/internal/database"
	"gorm.io/gorm"
)

// WatchlistManager tracks per-user watch status for titles
type WatchlistManager struct {
	db *gorm.DB
}

// NewWatchlistManager creates a watchlist manager
func NewWatchlistManager(db *gorm.DB) *WatchlistManager {
	return &WatchlistManager{db: db}
}

func validWatchStatus(status string) bool {
	switch status {
	case database.WatchStatusToWatch, database.WatchStatusWatching, database.WatchStatusWatched:
		return true
	}
	return false
}

// SetStatus upserts the user's watchlist entry for a title
func (m *WatchlistManager) SetStatus(userID, titleID uint, status string, progress *int) (*database.WatchlistItem, bool, error) {
	if status == "" {
		status = database.WatchStatusToWatch
	}
	if !validWatchStatus(status) {
		return nil, false, errors.New("status must be to_watch, watching, or watched")
	}
	if progress != nil && *progress < 0 {
		return nil, false, errors.New("progress cannot be negative")
	}

	var item database.WatchlistItem
	err := m.db.Where("user_id = ? AND title_id = ?", userID, titleID).First(&item).Error
	switch {
	case err == nil:
		item.Status = status
		item.Progress = progress
		updateErr := m.db.Model(&item).Select("status", "progress").Updates(map[string]interface{}{
			"status":   status,
			"progress": progress,
		}).Error
		if updateErr != nil {
			return nil, false, fmt.Errorf("failed to update watchlist entry: %w", updateErr)
		}
		return &item, false, nil

	case errors.Is(err, database.ErrNotFound):
		item = database.WatchlistItem{UserID: userID, TitleID: titleID, Status: status, Progress: progress}
		if err := m.db.Create(&item).Error; err != nil {
			return nil, false, fmt.Errorf("failed to create watchlist entry: %w", err)
		}
		return &item, true, nil

	default:
		return nil, false, err
	}
}

// List returns the user's watchlist with embedded titles, newest first
func (m *WatchlistManager) List(userID uint) ([]database.WatchlistItem, error) {
	var items []database.WatchlistItem
	err := m.db.Preload("Title").Preload("Title.Genres").
		Where("user_id = ?", userID).
		Order("added_at DESC").
		Find(&items).Error
	return items, err
}

// Remove deletes the user's watchlist entry for a title
func (m *WatchlistManager) Remove(userID, titleID uint) error {
	result := m.db.Where("user_id = ? AND title_id = ?", userID, titleID).Delete(&database.WatchlistItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}
