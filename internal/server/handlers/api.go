package handlers

import (
	"net/http"
	"strings"

	"github.com/filmsearch/filmsearch/internal/apiroutes"
	"github.com/gin-gonic/gin"
)

// ApiRootHandler serves the main /api endpoint, listing available routes.
func ApiRootHandler(c *gin.Context) {
	registeredRoutes := apiroutes.Get()

	endpointsMap := make(map[string]string)
	for _, route := range registeredRoutes {
		segments := strings.Split(strings.TrimPrefix(route.Path, "/api/"), "/")
		if len(segments) == 0 {
			continue
		}
		key := segments[0]
		if key == "v1" && len(segments) > 1 {
			key = segments[1]
		}
		if _, exists := endpointsMap[key]; !exists {
			endpointsMap[key] = route.Path
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"endpoints":         endpointsMap,
		"version":           "v1",
		"status":            "OK",
		"registered_routes": registeredRoutes,
	})
}
