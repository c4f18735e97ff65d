package catalogmodule

import (
	"fmt"

	"github.com/filmsearch/filmsearch/internal/config"
	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/filmsearch/filmsearch/internal/logger"
	"github.com/filmsearch/filmsearch/internal/modules/modulemanager"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Auto-register the module when imported
func init() {
	Register()
}

const (
	// ModuleID is the unique identifier for the catalog module
	ModuleID = "system.catalog"

	// ModuleName is the display name for the catalog module
	ModuleName = "Catalog"
)

// Module implements the title/genre/person catalog
type Module struct {
	db          *gorm.DB
	titles      *TitleManager
	genres      *GenreManager
	people      *PersonManager
	highlights  *config.HighlightList
	initialized bool
}

// Register registers the catalog module with the module system
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
	return true
}

// Migrate performs database migrations
func (m *Module) Migrate(db *gorm.DB) error {
	logger.Info("Migrating catalog database schema")
	if err := db.AutoMigrate(
		&database.Genre{},
		&database.Person{},
		&database.Title{},
		&database.TitleCredit{},
	); err != nil {
		return fmt.Errorf("failed to migrate catalog models: %w", err)
	}
	return nil
}

// Init initializes the catalog module
func (m *Module) Init() error {
	logger.Info("Initializing catalog module")

	if m.db == nil {
		m.db = database.GetDB()
	}
	m.titles = NewTitleManager(m.db)
	m.genres = NewGenreManager(m.db)
	m.people = NewPersonManager(m.db)

	m.highlights = config.NewHighlightList()
	highlightsPath := config.Get().Catalog.HighlightsFile
	if highlightsPath != "" {
		if err := m.highlights.LoadFromFile(highlightsPath); err != nil {
			logger.Warn("Failed to load highlights file: %v", err)
		}
		if err := m.highlights.Watch(highlightsPath); err != nil {
			logger.Warn("Highlights hot reload unavailable: %v", err)
		}
	}

	m.initialized = true
	return nil
}

// GetTitleManager returns the global title manager instance
func GetTitleManager() *TitleManager {
	if module, exists := modulemanager.GetModule(ModuleID); exists {
		if catalogModule, ok := module.(*Module); ok && catalogModule.initialized {
			return catalogModule.titles
		}
	}
	return nil
}

// GetHighlights returns the global highlight list instance
func GetHighlights() *config.HighlightList {
	if module, exists := modulemanager.GetModule(ModuleID); exists {
		if catalogModule, ok := module.(*Module); ok && catalogModule.initialized {
			return catalogModule.highlights
		}
	}
	return nil
}

// RegisterRoutes registers HTTP routes
func (m *Module) RegisterRoutes(router *gin.Engine) {
	logger.Info("Registering catalog module routes")
	registerCatalogRoutes(router, m)
}

var _ modulemanager.RouteRegistrar = (*Module)(nil)
