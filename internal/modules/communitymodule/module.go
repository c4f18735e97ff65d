package communitymodule

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
	// ModuleID is the unique identifier for the community module
	ModuleID = "system.community"

	// ModuleName is the display name for the community module
	ModuleName = "Community"
)

// Module implements ratings, reviews, and moderation
type Module struct {
	db          *gorm.DB
	ratings     *RatingManager
	reviews     *ReviewManager
	initialized bool
}

// Register registers the community module with the module system
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
	logger.Info("Migrating community database schema")
	if err := db.AutoMigrate(
		&database.Rating{},
		&database.Review{},
		&database.ReviewVote{},
	); err != nil {
		return fmt.Errorf("failed to migrate community models: %w", err)
	}
	return nil
}

// Init initializes the community module
func (m *Module) Init() error {
	logger.Info("Initializing community module")

	if m.db == nil {
		m.db = database.GetDB()
	}
	m.ratings = NewRatingManager(m.db)
	m.reviews = NewReviewManager(m.db)
	m.initialized = true
	return nil
}

// GetRatingManager returns the global rating manager instance
func GetRatingManager() *RatingManager {
	if module, exists := modulemanager.GetModule(ModuleID); exists {
		if communityModule, ok := module.(*Module); ok && communityModule.initialized {
			return communityModule.ratings
		}
	}
	return nil
}

// GetReviewManager returns the global review manager instance
func GetReviewManager() *ReviewManager {
	if module, exists := modulemanager.GetModule(ModuleID); exists {
		if communityModule, ok := module.(*Module); ok && communityModule.initialized {
			return communityModule.reviews
		}
	}
	return nil
}

// RegisterRoutes registers HTTP routes
func (m *Module) RegisterRoutes(router *gin.Engine) {
	logger.Info("Registering community module routes")

	titles := router.Group("/api/v1/titles")
	{
		titles.POST("/:id/rating", authmodule.RequireAuth(), m.rateTitle)
		titles.DELETE("/:id/rating", authmodule.RequireAuth(), m.deleteRating)
		titles.GET("/:id/reviews", authmodule.OptionalAuth(), m.listReviews)
		titles.POST("/:id/reviews", authmodule.RequireAuth(), m.createReview)
	}

	reviews := router.Group("/api/v1/reviews")
	{
		reviews.GET("/pending", authmodule.RequireAuth(), authmodule.RequirePrivileged(), m.listPending)
		reviews.PUT("/:id", authmodule.RequireAuth(), m.updateReview)
		reviews.DELETE("/:id", authmodule.RequireAuth(), m.deleteReview)
		reviews.POST("/:id/vote", authmodule.RequireAuth(), m.voteReview)
		reviews.POST("/:id/approve", authmodule.RequireAuth(), authmodule.RequirePrivileged(), m.approveReview)
		reviews.POST("/:id/reject", authmodule.RequireAuth(), authmodule.RequirePrivileged(), m.rejectReview)
	}

	apiroutes.Register("/api/v1/reviews", "GET", "Reviews, votes, and the moderation queue.")
}

// reviewResponse shapes a review for API payloads
func reviewResponse(r *database.Review) gin.H {
	payload := gin.H{
		"id":                r.ID,
		"user_id":           r.UserID,
		"username":          r.User.Username,
		"title_id":          r.TitleID,
		"text":              r.Text,
		"moderation_status": r.ModerationStatus,
		"likes_count":       r.LikesCount,
		"dislikes_count":    r.DislikesCount,
		"like_percentage":   LikePercentage(r),
		"is_fresh":          r.IsFresh(),
		"created_at":        r.CreatedAt,
	}
	if r.ModerationStatus == database.ModerationRejected {
		payload["rejection_reason"] = r.RejectionReason
	}
	if r.ModeratedAt != nil {
		payload["moderated_at"] = r.ModeratedAt
		payload["moderated_by_id"] = r.ModeratedByID
	}
	return payload
}

func (m *Module) rateTitle(c *gin.Context) {
	titleID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid title ID"})
		return
	}
	if !m.titleExists(titleID) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Title not found"})
		return
	}

	var req struct {
		Value int `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}

	user, _ := authmodule.CurrentUser(c)
	rating, created, err := m.ratings.RateTitle(user.ID, titleID, req.Value)
	if err != nil {
		if errors.Is(err, ErrInvalidRatingValue) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to save rating"})
		return
	}

	average, err := m.ratings.AverageRating(titleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to compute average"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"success":        true,
		"rating":         rating,
		"created":        created,
		"average_rating": average,
	})
}

func (m *Module) deleteRating(c *gin.Context) {
	titleID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid title ID"})
		return
	}
	user, _ := authmodule.CurrentUser(c)
	if err := m.ratings.DeleteRating(user.ID, titleID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Rating not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete rating"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Rating removed"})
}

func (m *Module) listReviews(c *gin.Context) {
	titleID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid title ID"})
		return
	}

	// Only privileged actors may ask for non-approved reviews
	status := database.ModerationApproved
	if requested := c.Query("status"); requested != "" {
		user, ok := authmodule.CurrentUser(c)
		if !ok || !authmodule.IsPrivileged(user) {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "moderator access required"})
			return
		}
		status = requested
	}

	reviews, err := m.reviews.ListForTitle(titleID, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list reviews"})
		return
	}
	payload := make([]gin.H, 0, len(reviews))
	for i := range reviews {
		payload = append(payload, reviewResponse(&reviews[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reviews": payload, "total": len(payload)})
}

func (m *Module) createReview(c *gin.Context) {
	titleID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid title ID"})
		return
	}
	if !m.titleExists(titleID) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Title not found"})
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}
	if result := m.reviews.ValidateReviewText(req.Text); !result.OK() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": result.ErrorMap()})
		return
	}

	user, _ := authmodule.CurrentUser(c)
	review, err := m.reviews.CreateReview(user.ID, titleID, req.Text)
	if err != nil {
		if errors.Is(err, ErrDuplicateReview) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": ErrDuplicateReview.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create review"})
		return
	}
	review.User = *user
	c.JSON(http.StatusCreated, gin.H{"success": true, "review": reviewResponse(review)})
}

func (m *Module) loadReviewForWrite(c *gin.Context) (*database.Review, *database.User, bool) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid review ID"})
		return nil, nil, false
	}
	review, err := m.reviews.GetReview(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Review not found"})
		return nil, nil, false
	}
	user, _ := authmodule.CurrentUser(c)
	if review.UserID != user.ID && !authmodule.IsPrivileged(user) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "not your review"})
		return nil, nil, false
	}
	return review, user, true
}

func (m *Module) updateReview(c *gin.Context) {
	review, _, ok := m.loadReviewForWrite(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}
	if result := m.reviews.ValidateReviewText(req.Text); !result.OK() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": result.ErrorMap()})
		return
	}

	if err := m.reviews.UpdateText(review, req.Text); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update review"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "review": reviewResponse(review)})
}

func (m *Module) deleteReview(c *gin.Context) {
	review, _, ok := m.loadReviewForWrite(c)
	if !ok {
		return
	}
	if err := m.reviews.DeleteReview(review.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete review"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Review deleted"})
}

func (m *Module) voteReview(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid review ID"})
		return
	}
	if _, err := m.reviews.GetReview(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Review not found"})
		return
	}

	var req struct {
		VoteType string `json:"vote_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}

	user, _ := authmodule.CurrentUser(c)
	review, err := m.reviews.Vote(user.ID, id, req.VoteType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "review": reviewResponse(review)})
}

func (m *Module) listPending(c *gin.Context) {
	reviews, err := m.reviews.ListPending()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list pending reviews"})
		return
	}
	payload := make([]gin.H, 0, len(reviews))
	for i := range reviews {
		r := &reviews[i]
		entry := reviewResponse(r)
		entry["title_name"] = r.Title.Name
		payload = append(payload, entry)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reviews": payload, "total": len(payload)})
}

func (m *Module) approveReview(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid review ID"})
		return
	}
	review, err := m.reviews.GetReview(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Review not found"})
		return
	}

	moderator, _ := authmodule.CurrentUser(c)
	if err := m.reviews.Approve(review, moderator); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to approve review"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "review": reviewResponse(review)})
}

func (m *Module) rejectReview(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid review ID"})
		return
	}
	review, err := m.reviews.GetReview(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Review not found"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional; rejection falls back to the default reason
	_ = c.ShouldBindJSON(&req)

	moderator, _ := authmodule.CurrentUser(c)
	if err := m.reviews.Reject(review, moderator, req.Reason); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to reject review"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "review": reviewResponse(review)})
}

func (m *Module) titleExists(id uint) bool {
	var count int64
	m.db.Model(&database.Title{}).Where("id = ?", id).Count(&count)
	return count > 0
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}
