// Package server assembles the HTTP router and boots the module system.
package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/filmsearch/filmsearch/internal/apiroutes"
	"github.com/filmsearch/filmsearch/internal/config"
	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/filmsearch/filmsearch/internal/events"
	"github.com/filmsearch/filmsearch/internal/logger"
	"github.com/filmsearch/filmsearch/internal/modules/modulemanager"

	// Import all modules to trigger their registration
	_ "github.com/filmsearch/filmsearch/internal/modules/adminmodule"
	_ "github.com/filmsearch/filmsearch/internal/modules/authmodule"
	_ "github.com/filmsearch/filmsearch/internal/modules/catalogmodule"
	_ "github.com/filmsearch/filmsearch/internal/modules/collectionmodule"
	_ "github.com/filmsearch/filmsearch/internal/modules/communitymodule"
	_ "github.com/filmsearch/filmsearch/internal/modules/recommendmodule"
)

var (
	systemEventBus    events.EventBus
	moduleInitialized bool
)

// SetupRouter configures and returns the main router
func SetupRouter() *gin.Engine {
	r := gin.Default()

	r.Use(requestIDMiddleware())
	if config.Get().Server.EnableCORS {
		r.Use(corsMiddleware())
	}

	if err := initializeEventBus(); err != nil {
		logger.Error("Failed to initialize event bus: %v", err)
	}

	if err := initializeModules(); err != nil {
		logger.Error("Failed to initialize modules: %v", err)
	}

	apiroutes.Register("/api", "GET", "Lists all available API endpoints.")

	setupRoutes(r)

	return r
}

// requestIDMiddleware tags every request and response with an X-Request-ID
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// corsMiddleware allows cross-origin access for browser clients
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// initializeModules sets up the module system and loads all modules
func initializeModules() error {
	if moduleInitialized {
		return nil
	}

	db := database.GetDB()

	events.SetGlobalEventBus(systemEventBus)

	if err := modulemanager.LoadAll(db); err != nil {
		return err
	}

	moduleInitialized = true
	logModuleStatus()
	return nil
}

// initializeEventBus sets up the system-wide event bus
func initializeEventBus() error {
	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized before event bus")
	}

	storage := events.NewDatabaseEventStorage(db)
	if err := storage.Migrate(); err != nil {
		return err
	}

	busConfig := events.DefaultConfig()
	busConfig.BufferSize = 1000

	systemEventBus = events.NewEventBus(busConfig, storage)
	if err := systemEventBus.Start(context.Background()); err != nil {
		return err
	}

	logger.Info("✅ System event bus initialized and started")
	return nil
}

// GetEventBus returns the system event bus instance
func GetEventBus() events.EventBus {
	return systemEventBus
}

// ShutdownEventBus gracefully shuts down the event bus
func ShutdownEventBus(ctx context.Context) error {
	if systemEventBus == nil {
		return nil
	}
	logger.Info("Shutting down event bus...")
	return systemEventBus.Stop(ctx)
}

// logModuleStatus logs the loaded modules
func logModuleStatus() {
	modules := modulemanager.ListModules()

	logger.Info("✅ Module system initialized with %d modules", len(modules))
	for _, module := range modules {
		core := "No"
		if module.Core() {
			core = "Yes"
		}
		logger.Info("  %-25s %-20s core=%s", module.ID(), module.Name(), core)
	}
}
