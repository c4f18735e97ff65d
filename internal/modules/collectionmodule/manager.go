package collectionmodule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/filmsearch/filmsearch/internal/events"
	"gorm.io/gorm"
)

// AddItemOutcome describes the result of a membership write. Duplicate adds
// and absent removes are warnings, not errors.
type AddItemOutcome struct {
	Added   bool
	Removed bool
	Warning string
}

// Manager handles collections and their memberships
type Manager struct {
	db *gorm.DB
}

// NewManager creates a collection manager
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// Normalize enforces the collection shape before any write: system
// collections are public and ownerless; user collections need an owner.
func Normalize(c *database.Collection) error {
	if c.IsSystem {
		c.IsPublic = true
		c.UserID = nil
		return nil
	}
	if c.UserID == nil {
		return errors.New("non-system collections require an owner")
	}
	return nil
}

// ValidateCollection checks a candidate collection write
func (m *Manager) ValidateCollection(c *database.Collection) database.ValidationResult {
	var result database.ValidationResult
	if len(strings.TrimSpace(c.Title)) < 3 {
		result.Add("title", "collection title must be at least 3 characters")
	}
	if len(c.Title) > 255 {
		result.Add("title", "collection title must be at most 255 characters")
	}
	return result
}

// Create persists a normalized collection
func (m *Manager) Create(c *database.Collection) error {
	if err := Normalize(c); err != nil {
		return err
	}
	c.Title = strings.TrimSpace(c.Title)
	if err := m.db.Create(c).Error; err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	m.publishChanged(c, "created")
	return nil
}

// Update persists changes to a normalized collection
func (m *Manager) Update(c *database.Collection) error {
	if err := Normalize(c); err != nil {
		return err
	}
	c.Title = strings.TrimSpace(c.Title)
	err := m.db.Model(c).Select("title", "description", "is_system", "is_public", "user_id").
		Updates(map[string]interface{}{
			"title":       c.Title,
			"description": c.Description,
			"is_system":   c.IsSystem,
			"is_public":   c.IsPublic,
			"user_id":     c.UserID,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update collection: %w", err)
	}
	m.publishChanged(c, "updated")
	return nil
}

// Delete removes a collection and its items
func (m *Manager) Delete(id uint) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection_id = ?", id).Delete(&database.CollectionItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&database.Collection{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return database.ErrNotFound
		}
		return nil
	})
}

// Get loads a collection with its items and their titles
func (m *Manager) Get(id uint) (*database.Collection, error) {
	var collection database.Collection
	err := m.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("added_at DESC")
	}).Preload("Items.Title").Preload("Items.Title.Genres").First(&collection, id).Error
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// CollectionWithCount pairs a collection with its item count
type CollectionWithCount struct {
	database.Collection
	ItemsCount int64 `json:"items_count"`
}

// ListVisible returns public collections plus the viewer's own when set
func (m *Manager) ListVisible(viewerID *uint) ([]CollectionWithCount, error) {
	query := m.db.Model(&database.Collection{}).
		Select("collections.*, COUNT(collection_items.id) as items_count").
		Joins("LEFT JOIN collection_items ON collection_items.collection_id = collections.id").
		Group("collections.id")

	if viewerID != nil {
		query = query.Where("collections.is_public = ? OR collections.user_id = ?", true, *viewerID)
	} else {
		query = query.Where("collections.is_public = ?", true)
	}

	var rows []CollectionWithCount
	err := query.Order("collections.is_system DESC, collections.updated_at DESC").Scan(&rows).Error
	return rows, err
}

// CanView reports whether the viewer may see a collection
func CanView(c *database.Collection, viewer *database.User, privileged bool) bool {
	if c.IsPublic {
		return true
	}
	if viewer == nil {
		return false
	}
	if privileged {
		return true
	}
	return c.UserID != nil && *c.UserID == viewer.ID
}

// CanEdit reports whether the actor may modify a collection
func CanEdit(c *database.Collection, actor *database.User, privileged bool) bool {
	if actor == nil {
		return false
	}
	if privileged {
		return true
	}
	return c.UserID != nil && *c.UserID == actor.ID
}

// AddItem adds a title to a collection. Adding a title that is already a
// member is a warning outcome, not an error.
func (m *Manager) AddItem(collectionID, titleID uint) (AddItemOutcome, error) {
	var count int64
	m.db.Model(&database.CollectionItem{}).
		Where("collection_id = ? AND title_id = ?", collectionID, titleID).
		Count(&count)
	if count > 0 {
		return AddItemOutcome{Warning: "title is already in this collection"}, nil
	}

	item := database.CollectionItem{CollectionID: collectionID, TitleID: titleID}
	if err := m.db.Create(&item).Error; err != nil {
		// Concurrent duplicate insert resolves to the same warning
		m.db.Model(&database.CollectionItem{}).
			Where("collection_id = ? AND title_id = ?", collectionID, titleID).
			Count(&count)
		if count > 0 {
			return AddItemOutcome{Warning: "title is already in this collection"}, nil
		}
		return AddItemOutcome{}, fmt.Errorf("failed to add collection item: %w", err)
	}
	return AddItemOutcome{Added: true}, nil
}

// RemoveItem removes a title from a collection. Removing a non-member is a
// warning outcome, not an error.
func (m *Manager) RemoveItem(collectionID, titleID uint) (AddItemOutcome, error) {
	result := m.db.Where("collection_id = ? AND title_id = ?", collectionID, titleID).
		Delete(&database.CollectionItem{})
	if result.Error != nil {
		return AddItemOutcome{}, result.Error
	}
	if result.RowsAffected == 0 {
		return AddItemOutcome{Warning: "title is not in this collection"}, nil
	}
	return AddItemOutcome{Removed: true}, nil
}

func (m *Manager) publishChanged(c *database.Collection, action string) {
	event := events.NewEvent(events.EventCollectionChanged, "Collection "+action, c.Title)
	event.Data = map[string]interface{}{"collection_id": c.ID, "action": action}
	events.Publish(event)
}
