// Package handlers contains HTTP request handlers for the server core.
package handlers

import (
	"net/http"

	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/gin-gonic/gin"
)

// HandleHealthCheck returns the basic health status of the service
func HandleHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "filmsearch",
	})
}

// HandleDBStatus checks and returns the database connection status
func HandleDBStatus(c *gin.Context) {
	db := database.GetDB()
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "Failed to get database instance: " + err.Error(),
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "Database ping failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "connected",
		"database": "ready",
	})
}

// HandleDatabaseHealth performs a database health check with pool metrics
func HandleDatabaseHealth(c *gin.Context) {
	if err := database.HealthCheck(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	stats, err := database.GetConnectionStats()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "Failed to get connection stats: " + err.Error(),
		})
		return
	}

	healthStatus := "healthy"
	healthIssues := []string{}

	if stats.WaitCount > 0 {
		healthIssues = append(healthIssues, "connection_waits_detected")
	}
	if stats.OpenConnections == 0 {
		healthStatus = "critical"
		healthIssues = append(healthIssues, "no_open_connections")
	}

	var utilization float64
	if stats.MaxOpenConnections > 0 {
		utilization = float64(stats.OpenConnections) / float64(stats.MaxOpenConnections) * 100
	}
	if utilization > 90 {
		healthStatus = "warning"
		healthIssues = append(healthIssues, "high_connection_utilization")
	}

	response := gin.H{
		"status":              healthStatus,
		"open_connections":    stats.OpenConnections,
		"max_connections":     stats.MaxOpenConnections,
		"utilization_percent": utilization,
		"wait_count":          stats.WaitCount,
	}
	if len(healthIssues) > 0 {
		response["issues"] = healthIssues
	}

	statusCode := http.StatusOK
	if healthStatus == "critical" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}
