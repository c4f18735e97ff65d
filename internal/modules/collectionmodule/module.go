package collectionmodule

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/filmsearch/filmsearch/internal/apiroutes"
	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/filmsearch/filmsearch/internal/logger"
	"github.com/filmsearch/filmsearch/internal/modules/authmodule"
	"github.com/filmsearch/filmsearch/internal/modules/modulemanager"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Auto-register the module when imported
func init() {
	Register()
}

const (
	// ModuleID is the unique identifier for the collection module
	ModuleID = "system.collections"

	// ModuleName is the display name for the collection module
	ModuleName = "Collections"
)

// Module implements curated collections and the watchlist
type Module struct {
	db          *gorm.DB
	collections *Manager
	watchlist   *WatchlistManager
	initialized bool
}

// Register registers the collection module with the module system
func Register() {
	modulemanager.Register(&Module{})
}

// ID returns the unique module identifier
func (m *Module) ID() string {
	return ModuleID
}

// Name returns the module display name
func (m *Module) Name() string {
	return ModuleName
}

// Core returns whether this is a core module
func (m *Module) Core() bool {
	return false
}

// Migrate performs database migrations
func (m *Module) Migrate(db *gorm.DB) error {
	logger.Info("Migrating collection database schema")
	if err := db.AutoMigrate(
		&database.Collection{},
		&database.CollectionItem{},
		&database.WatchlistItem{},
	); err != nil {
		return fmt.Errorf("failed to migrate collection models: %w", err)
	}
	return nil
}

// Init initializes the collection module
func (m *Module) Init() error {
	logger.Info("Initializing collection module")

	if m.db == nil {
		m.db = database.GetDB()
	}
	m.collections = NewManager(m.db)
	m.watchlist = NewWatchlistManager(m.db)
	m.initialized = true
	return nil
}

// GetManager returns the global collection manager instance
func GetManager() *Manager {
	if module, exists := modulemanager.GetModule(ModuleID); exists {
		if collectionModule, ok := module.(*Module); ok && collectionModule.initialized {
			return collectionModule.collections
		}
	}
	return nil
}

// RegisterRoutes registers HTTP routes
func (m *Module) RegisterRoutes(router *gin.Engine) {
	logger.Info("Registering collection module routes")

	collections := router.Group("/api/v1/collections")
	{
		collections.GET("", authmodule.OptionalAuth(), m.listCollections)
		collections.GET("/:id", authmodule.OptionalAuth(), m.getCollection)
		collections.GET("/:id/viewmodel", authmodule.RequireAuth(), authmodule.RequirePrivileged(), m.getViewModel)
		collections.POST("", authmodule.RequireAuth(), m.createCollection)
		collections.PUT("/:id", authmodule.RequireAuth(), m.updateCollection)
		collections.DELETE("/:id", authmodule.RequireAuth(), m.deleteCollection)
		collections.POST("/:id/items", authmodule.RequireAuth(), m.addItem)
		collections.DELETE("/:id/items/:title_id", authmodule.RequireAuth(), m.removeItem)
	}

	watchlist := router.Group("/api/v1/watchlist", authmodule.RequireAuth())
	{
		watchlist.GET("", m.listWatchlist)
		watchlist.PUT("/:title_id", m.setWatchStatus)
		watchlist.DELETE("/:title_id", m.removeWatchItem)
	}

	apiroutes.Register("/api/v1/collections", "GET", "Curated title collections and memberships.")
	apiroutes.Register("/api/v1/watchlist", "GET", "Per-user watchlist with watch status.")
}

func (m *Module) listCollections(c *gin.Context) {
	var viewerID *uint
	if user, ok := authmodule.CurrentUser(c); ok {
		viewerID = &user.ID
	}
	rows, err := m.collections.ListVisible(viewerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list collections"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "collections": rows, "total": len(rows)})
}

func (m *Module) getCollection(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid collection ID"})
		return
	}

	collection, err := m.collections.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Collection not found"})
		return
	}

	viewer, _ := authmodule.CurrentUser(c)
	// Private collections are indistinguishable from missing ones to outsiders
	if !CanView(collection, viewer, authmodule.IsPrivileged(viewer)) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Collection not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "collection": collection})
}

func (m *Module) getViewModel(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid collection ID"})
		return
	}
	collection, err := m.collections.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Collection not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "viewmodel": BuildViewModel(collection)})
}

func (m *Module) createCollection(c *gin.Context) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		IsPublic    *bool  `json:"is_public"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}

	user, _ := authmodule.CurrentUser(c)
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	collection := database.Collection{
		UserID:      &user.ID,
		Title:       req.Title,
		Description: req.Description,
		IsSystem:    false,
		IsPublic:    isPublic,
	}

	if result := m.collections.ValidateCollection(&collection); !result.OK() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": result.ErrorMap()})
		return
	}
	if err := m.collections.Create(&collection); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create collection"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "collection": collection})
}

func (m *Module) loadCollectionForWrite(c *gin.Context) (*database.Collection, bool) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid collection ID"})
		return nil, false
	}
	collection, err := m.collections.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Collection not found"})
		return nil, false
	}
	actor, _ := authmodule.CurrentUser(c)
	if !CanEdit(collection, actor, authmodule.IsPrivileged(actor)) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "not your collection"})
		return nil, false
	}
	return collection, true
}

func (m *Module) updateCollection(c *gin.Context) {
	collection, ok := m.loadCollectionForWrite(c)
	if !ok {
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		IsPublic    *bool  `json:"is_public"`
		IsSystem    *bool  `json:"is_system"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}

	// Only privileged actors may flip the system flag
	if req.IsSystem != nil {
		actor, _ := authmodule.CurrentUser(c)
		if !authmodule.IsPrivileged(actor) {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "moderator access required"})
			return
		}
		collection.IsSystem = *req.IsSystem
	}

	collection.Title = req.Title
	collection.Description = req.Description
	if req.IsPublic != nil {
		collection.IsPublic = *req.IsPublic
	}

	if result := m.collections.ValidateCollection(collection); !result.OK() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": result.ErrorMap()})
		return
	}
	if err := m.collections.Update(collection); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update collection"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "collection": collection})
}

func (m *Module) deleteCollection(c *gin.Context) {
	collection, ok := m.loadCollectionForWrite(c)
	if !ok {
		return
	}
	if err := m.collections.Delete(collection.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete collection"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Collection deleted"})
}

func (m *Module) addItem(c *gin.Context) {
	collection, ok := m.loadCollectionForWrite(c)
	if !ok {
		return
	}

	var req struct {
		TitleID uint `json:"title_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TitleID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing title_id"})
		return
	}

	var count int64
	m.db.Model(&database.Title{}).Where("id = ?", req.TitleID).Count(&count)
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Title not found"})
		return
	}

	outcome, err := m.collections.AddItem(collection.ID, req.TitleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to add title"})
		return
	}
	if outcome.Warning != "" {
		c.JSON(http.StatusOK, gin.H{"success": true, "warning": outcome.Warning})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Title added to collection"})
}

func (m *Module) removeItem(c *gin.Context) {
	collection, ok := m.loadCollectionForWrite(c)
	if !ok {
		return
	}
	titleID, err := parseUintParam(c, "title_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid title ID"})
		return
	}

	outcome, err := m.collections.RemoveItem(collection.ID, titleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to remove title"})
		return
	}
	if outcome.Warning != "" {
		c.JSON(http.StatusOK, gin.H{"success": true, "warning": outcome.Warning})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Title removed from collection"})
}

func (m *Module) listWatchlist(c *gin.Context) {
	user, _ := authmodule.CurrentUser(c)
	items, err := m.watchlist.List(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list watchlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "watchlist": items, "total": len(items)})
}

func (m *Module) setWatchStatus(c *gin.Context) {
	titleID, err := parseUintParam(c, "title_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid title ID"})
		return
	}

	var count int64
	m.db.Model(&database.Title{}).Where("id = ?", titleID).Count(&count)
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Title not found"})
		return
	}

	var req struct {
		Status   string `json:"status"`
		Progress *int   `json:"progress"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}

	user, _ := authmodule.CurrentUser(c)
	item, created, err := m.watchlist.SetStatus(user.ID, titleID, req.Status, req.Progress)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"success": true, "item": item, "created": created})
}

func (m *Module) removeWatchItem(c *gin.Context) {
	titleID, err := parseUintParam(c, "title_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid title ID"})
		return
	}
	user, _ := authmodule.CurrentUser(c)
	if err := m.watchlist.Remove(user.ID, titleID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Watchlist entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to remove watchlist entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Removed from watchlist"})
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}
