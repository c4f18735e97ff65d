package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/filmsearch/filmsearch/internal/apiroutes"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApiRootHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	apiroutes.ClearForTesting()
	apiroutes.Register("/api/v1/titles", "GET", "List catalog titles.")
	apiroutes.Register("/api/v1/titles/search", "GET", "Search titles.")
	apiroutes.Register("/api/health/db", "GET", "Database connectivity check.")

	router := gin.New()
	router.GET("/api", ApiRootHandler)

	req, _ := http.NewRequest(http.MethodGet, "/api", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Endpoints        map[string]string    `json:"endpoints"`
		Version          string               `json:"version"`
		Status           string               `json:"status"`
		RegisteredRoutes []apiroutes.APIRoute `json:"registered_routes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, "v1", body.Version)
	assert.Equal(t, "OK", body.Status)
	assert.Len(t, body.RegisteredRoutes, 3)

	// First registration wins for each endpoint group
	assert.Equal(t, "/api/v1/titles", body.Endpoints["titles"])
	assert.Equal(t, "/api/health/db", body.Endpoints["health"])
}

func TestHandleHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", HandleHealthCheck)

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
