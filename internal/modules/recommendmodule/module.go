package recommendmodule

import (
	"context"
	"fmt"
	"net/http"

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
	// ModuleID is the unique identifier for the recommendation module
	ModuleID = "system.recommend"

	// ModuleName is the display name for the recommendation module
	ModuleName = "Recommendations"
)

// Module implements recommendation generation and delivery
type Module struct {
	db          *gorm.DB
	generator   *Generator
	initialized bool
}

// Register registers the recommendation module with the module system
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
	logger.Info("Migrating recommendation database schema")
	if err := db.AutoMigrate(&database.Recommendation{}); err != nil {
		return fmt.Errorf("failed to migrate recommendation models: %w", err)
	}
	return nil
}

// Init initializes the recommendation module
func (m *Module) Init() error {
	logger.Info("Initializing recommendation module")

	if m.db == nil {
		m.db = database.GetDB()
	}
	m.generator = NewGenerator(m.db)
	m.initialized = true
	return nil
}

// GetGenerator returns the global recommendation generator instance
func GetGenerator() *Generator {
	if module, exists := modulemanager.GetModule(ModuleID); exists {
		if recommendModule, ok := module.(*Module); ok && recommendModule.initialized {
			return recommendModule.generator
		}
	}
	return nil
}

// RegisterRoutes registers HTTP routes
func (m *Module) RegisterRoutes(router *gin.Engine) {
	logger.Info("Registering recommendation module routes")

	recs := router.Group("/api/v1/recommendations")
	{
		recs.GET("", authmodule.RequireAuth(), m.listRecommendations)
		recs.POST("/generate", authmodule.RequireAuth(), authmodule.RequirePrivileged(), m.generate)
		recs.POST("/generate-simple", authmodule.RequireAuth(), authmodule.RequirePrivileged(), m.generateSimple)
	}

	apiroutes.Register("/api/v1/recommendations", "GET", "Personal title recommendations.")
}

func (m *Module) listRecommendations(c *gin.Context) {
	user, _ := authmodule.CurrentUser(c)

	recs, err := m.generator.ListForUser(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load recommendations"})
		return
	}

	// First visit with no rows gets seeded from the global leaderboard
	seeded := false
	if len(recs) == 0 {
		created, err := m.generator.SeedOnDemand(user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to seed recommendations"})
			return
		}
		if created > 0 {
			seeded = true
			recs, err = m.generator.ListForUser(user.ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load recommendations"})
				return
			}
		}
	}

	payload := make([]gin.H, 0, len(recs))
	for i := range recs {
		r := &recs[i]
		payload = append(payload, gin.H{
			"id":          r.ID,
			"reason_code": r.ReasonCode,
			"created_at":  r.CreatedAt,
			"title": gin.H{
				"id":           r.Title.ID,
				"name":         r.Title.Name,
				"type":         r.Title.Type,
				"release_date": r.Title.ReleaseDate,
				"poster_url":   r.Title.PosterURL,
				"genres":       r.Title.Genres,
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"recommendations": payload,
		"total":           len(payload),
		"seeded":          seeded,
	})
}

func (m *Module) generate(c *gin.Context) {
	report, err := m.generator.GenerateAll(c.Request.Context())
	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Generation failed", "report": report})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

func (m *Module) generateSimple(c *gin.Context) {
	report, err := m.generator.GenerateSimple(c.Request.Context())
	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Generation failed", "report": report})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}
