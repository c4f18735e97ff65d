package communitymodule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/filmsearch/filmsearch/internal/config"
	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/filmsearch/filmsearch/internal/modules/authmodule"
	"github.com/filmsearch/filmsearch/internal/modules/modulemanager"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	httpOnce   sync.Once
	httpRouter *gin.Engine
	httpDB     *gorm.DB
)

// setupHTTP boots the registered modules once against a shared in-memory
// database and returns the assembled router.
func setupHTTP(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	httpOnce.Do(func() {
		gin.SetMode(gin.TestMode)
		config.SetForTesting(config.Default())

		db, err := gorm.Open(sqlite.Open("file:community_http?mode=memory&cache=shared"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			t.Fatalf("failed to open test database: %v", err)
		}
		if err := db.AutoMigrate(
			&database.User{},
			&database.UserProfile{},
			&database.Genre{},
			&database.Title{},
			&database.Rating{},
			&database.Review{},
			&database.ReviewVote{},
		); err != nil {
			t.Fatalf("failed to migrate: %v", err)
		}

		database.SetDBForTesting(db)
		modulemanager.ResetForTesting()
		if err := modulemanager.LoadAll(db); err != nil {
			t.Fatalf("failed to load modules: %v", err)
		}

		router := gin.New()
		modulemanager.RegisterRoutes(router)

		httpRouter = router
		httpDB = db
	})
	return httpRouter, httpDB
}

func registerAndLogin(t *testing.T, username string, staff bool) string {
	t.Helper()
	manager := authmodule.GetManager()
	require.NotNil(t, manager)

	user, err := manager.RegisterUser(authmodule.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "pass1234!",
	})
	require.NoError(t, err)

	if staff {
		require.NoError(t, manager.SetStaff(user.ID, true))
		user.IsStaff = true
	}

	token, err := manager.IssueToken(user)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(data)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req, _ := http.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

func seedHTTPTitle(t *testing.T, db *gorm.DB, name string) *database.Title {
	t.Helper()
	duration := 100
	title := &database.Title{
		Name:        name,
		Type:        database.TypeMovie,
		ReleaseDate: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
		Duration:    &duration,
	}
	require.NoError(t, db.Create(title).Error)
	return title
}

func TestRatingRequiresAuth(t *testing.T) {
	router, db := setupHTTP(t)
	title := seedHTTPTitle(t, db, "AuthRequired")

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/titles/%d/rating", title.ID), "", gin.H{"value": 8})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestRatingEndpointUpsert(t *testing.T) {
	router, db := setupHTTP(t)
	title := seedHTTPTitle(t, db, "UpsertHTTP")
	token := registerAndLogin(t, "rater", false)

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/titles/%d/rating", title.ID), token, gin.H{"value": 9})
	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["created"])
	assert.InDelta(t, 9.0, body["average_rating"].(float64), 0.001)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/titles/%d/rating", title.ID), token, gin.H{"value": 3})
	assert.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, false, body["created"])
	assert.InDelta(t, 3.0, body["average_rating"].(float64), 0.001)
}

func TestRatingUnknownTitle(t *testing.T) {
	router, _ := setupHTTP(t)
	token := registerAndLogin(t, "ghostrater", false)

	w := doJSON(t, router, http.MethodPost, "/api/v1/titles/999999/rating", token, gin.H{"value": 5})
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
}

func TestReviewLifecycleOverHTTP(t *testing.T) {
	router, db := setupHTTP(t)
	title := seedHTTPTitle(t, db, "ReviewHTTP")
	authorToken := registerAndLogin(t, "reviewer", false)
	modToken := registerAndLogin(t, "modhttp", true)

	// Create
	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/titles/%d/reviews", title.ID), authorToken,
		gin.H{"text": "Surprisingly heartfelt for a blockbuster."})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	review := body["review"].(map[string]interface{})
	assert.Equal(t, "pending", review["moderation_status"])
	reviewID := int(review["id"].(float64))

	// Duplicate review is a conflict
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/titles/%d/reviews", title.ID), authorToken,
		gin.H{"text": "Trying to sneak in a second one."})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Moderation needs privileges
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/reviews/%d/approve", reviewID), authorToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Staff can approve
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/reviews/%d/approve", reviewID), modToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decodeBody(t, w)
	review = body["review"].(map[string]interface{})
	assert.Equal(t, "approved", review["moderation_status"])

	// Approved reviews show up on the public list
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/titles/%d/reviews", title.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, float64(1), body["total"])
}

func TestReviewValidationErrorsOverHTTP(t *testing.T) {
	router, db := setupHTTP(t)
	title := seedHTTPTitle(t, db, "ShortReview")
	token := registerAndLogin(t, "terse", false)

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/titles/%d/reviews", title.ID), token,
		gin.H{"text": "meh"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	errs := body["errors"].(map[string]interface{})
	assert.Contains(t, errs, "text")
}
