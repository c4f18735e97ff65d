package catalogmodule

import (
	"strings"

	"github.com/filmsearch/filmsearch/internal/database"
	"gorm.io/gorm"
)

// GenreManager handles genre reads and privileged writes
type GenreManager struct {
	db *gorm.DB
}

// NewGenreManager creates a genre manager
func NewGenreManager(db *gorm.DB) *GenreManager {
	return &GenreManager{db: db}
}

// GenreWithCount pairs a genre with the number of titles carrying it
type GenreWithCount struct {
	database.Genre
	TitlesCount int64 `json:"titles_count"`
}

// ListWithCounts returns all genres with their title counts, most used first
func (m *GenreManager) ListWithCounts() ([]GenreWithCount, error) {
	var rows []GenreWithCount
	err := m.db.Model(&database.Genre{}).
		Select("genres.*, COUNT(title_genres.title_id) as titles_count").
		Joins("LEFT JOIN title_genres ON title_genres.genre_id = genres.id").
		Group("genres.id").
		Order("titles_count DESC, genres.name ASC").
		Scan(&rows).Error
	return rows, err
}

// Get fetches a genre by ID
func (m *GenreManager) Get(id uint) (*database.Genre, error) {
	var genre database.Genre
	if err := m.db.First(&genre, id).Error; err != nil {
		return nil, err
	}
	return &genre, nil
}

// ValidateGenre checks a candidate genre write; excludeID skips the record
// being updated in the uniqueness check.
func (m *GenreManager) ValidateGenre(name string, excludeID uint) database.ValidationResult {
	var result database.ValidationResult

	name = strings.TrimSpace(name)
	if len(name) < 2 || len(name) > 100 {
		result.Add("name", "genre name must be between 2 and 100 characters")
		return result
	}

	query := m.db.Model(&database.Genre{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	query.Count(&count)
	if count > 0 {
		result.Add("name", "a genre with this name already exists")
	}
	return result
}

// Create persists a validated genre
func (m *GenreManager) Create(name, description string) (*database.Genre, error) {
	genre := database.Genre{Name: strings.TrimSpace(name), Description: description}
	if err := m.db.Create(&genre).Error; err != nil {
		return nil, err
	}
	return &genre, nil
}

// Update persists changes to an existing genre
func (m *GenreManager) Update(genre *database.Genre, name, description string) error {
	genre.Name = strings.TrimSpace(name)
	genre.Description = description
	return m.db.Save(genre).Error
}

// Delete removes a genre and its title links
func (m *GenreManager) Delete(id uint) error {
	result := m.db.Delete(&database.Genre{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return m.db.Exec("DELETE FROM title_genres WHERE genre_id = ?", id).Error
}
