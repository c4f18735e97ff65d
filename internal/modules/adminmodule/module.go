package adminmodule

import (
	"net/http"
	"strconv"

	"github.com/filmsearch/filmsearch/internal/apiroutes"
	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/filmsearch/filmsearch/internal/events"
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
	// ModuleID is the unique identifier for the admin module
	ModuleID = "system.admin"

	// ModuleName is the display name for the admin module
	ModuleName = "Admin"
)

// Module implements the moderator/admin surface
type Module struct {
	db          *gorm.DB
	dashboard   *DashboardManager
	initialized bool
}

// Register registers the admin module with the module system
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

// Migrate performs database migrations. The admin module reads models other
// modules own and migrates nothing of its own.
func (m *Module) Migrate(db *gorm.DB) error {
	return nil
}

// Init initializes the admin module
func (m *Module) Init() error {
	logger.Info("Initializing admin module")

	if m.db == nil {
		m.db = database.GetDB()
	}
	m.dashboard = NewDashboardManager(m.db)
	m.initialized = true
	return nil
}

// RegisterRoutes registers HTTP routes
func (m *Module) RegisterRoutes(router *gin.Engine) {
	logger.Info("Registering admin module routes")

	admin := router.Group("/api/v1/admin", authmodule.RequireAuth(), authmodule.RequirePrivileged())
	{
		admin.GET("/dashboard", m.getDashboard)
		admin.GET("/events", m.listEvents)
	}

	apiroutes.Register("/api/v1/admin/dashboard", "GET", "Admin dashboard with totals, activity, and host stats.")
}

func (m *Module) getDashboard(c *gin.Context) {
	dash, err := m.dashboard.Build(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to build dashboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "dashboard": dash})
}

func (m *Module) listEvents(c *gin.Context) {
	limit := 50
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && v > 0 && v <= 500 {
		limit = v
	}

	storage := events.NewDatabaseEventStorage(m.db)
	records, err := storage.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "events": records, "total": len(records)})
}
