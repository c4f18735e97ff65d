package server

import (
	"github.com/gin-gonic/gin"

	"github.com/filmsearch/filmsearch/internal/apiroutes"
	"github.com/filmsearch/filmsearch/internal/modules/modulemanager"
	"github.com/filmsearch/filmsearch/internal/server/handlers"
)

// setupRoutes wires core endpoints and hands the router to every module
func setupRoutes(r *gin.Engine) {
	r.GET("/health", handlers.HandleHealthCheck)
	r.GET("/api", handlers.ApiRootHandler)

	api := r.Group("/api")
	{
		api.GET("/health/db", handlers.HandleDBStatus)
		api.GET("/health/database", handlers.HandleDatabaseHealth)
	}
	apiroutes.Register("/api/health/db", "GET", "Database connectivity check.")
	apiroutes.Register("/api/health/database", "GET", "Database health with pool metrics.")

	modulemanager.RegisterRoutes(r)
}
