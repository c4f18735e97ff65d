package communitymodule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/filmsearch/filmsearch/internal/events"
	"github.com/filmsearch/filmsearch/internal/logger"
	"gorm.io/gorm"
)

const (
	minReviewLength = 10
	maxReviewLength = 5000

	// DefaultRejectionReason is applied when a moderator rejects without one
	DefaultRejectionReason = "community guidelines violation"
)

// ErrDuplicateReview is returned when a user already reviewed the title
var ErrDuplicateReview = errors.New("user has already reviewed this title")

// ReviewManager handles reviews, moderation transitions, and votes
type ReviewManager struct {
	db *gorm.DB
}

// NewReviewManager creates a review manager
func NewReviewManager(db *gorm.DB) *ReviewManager {
	return &ReviewManager{db: db}
}

// ValidateReviewText checks the review body without touching the database
func (m *ReviewManager) ValidateReviewText(text string) database.ValidationResult {
	var result database.ValidationResult
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minReviewLength {
		result.Add("text", fmt.Sprintf("review must be at least %d characters", minReviewLength))
	}
	if len(trimmed) > maxReviewLength {
		result.Add("text", fmt.Sprintf("review must be at most %d characters", maxReviewLength))
	}
	distinct := make(map[rune]bool)
	for _, r := range trimmed {
		distinct[r] = true
	}
	if len(trimmed) >= minReviewLength && len(distinct) < 3 {
		result.Add("text", "review must contain at least 3 distinct characters")
	}
	return result
}

// CreateReview stores a new review in the pending state. One review per
// (user, title); a second attempt returns ErrDuplicateReview.
func (m *ReviewManager) CreateReview(userID, titleID uint, text string) (*database.Review, error) {
	var count int64
	m.db.Model(&database.Review{}).Where("user_id = ? AND title_id = ?", userID, titleID).Count(&count)
	if count > 0 {
		return nil, ErrDuplicateReview
	}

	review := database.Review{
		UserID:           userID,
		TitleID:          titleID,
		Text:             strings.TrimSpace(text),
		ModerationStatus: database.ModerationPending,
	}
	if err := m.db.Create(&review).Error; err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	event := events.NewEvent(events.EventReviewCreated, "Review Submitted", "")
	event.Data = map[string]interface{}{"review_id": review.ID, "title_id": titleID, "user_id": userID}
	events.Publish(event)

	return &review, nil
}

// GetReview loads a review with its author
func (m *ReviewManager) GetReview(id uint) (*database.Review, error) {
	var review database.Review
	if err := m.db.Preload("User").First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// UpdateText replaces the review body and resets it to pending for re-moderation
func (m *ReviewManager) UpdateText(review *database.Review, text string) error {
	review.Text = strings.TrimSpace(text)
	review.ModerationStatus = database.ModerationPending
	review.ModeratedByID = nil
	review.ModeratedAt = nil
	review.RejectionReason = ""
	return m.db.Model(review).Select(
		"text", "moderation_status", "moderated_by_id", "moderated_at", "rejection_reason",
	).Updates(review).Error
}

// DeleteReview removes a review and its votes
func (m *ReviewManager) DeleteReview(id uint) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id = ?", id).Delete(&database.ReviewVote{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&database.Review{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return database.ErrNotFound
		}
		return nil
	})
}

// Approve transitions a review to approved from any state, recording the
// moderator and clearing any rejection reason. Re-approving is harmless.
func (m *ReviewManager) Approve(review *database.Review, moderator *database.User) error {
	now := time.Now()
	review.ModerationStatus = database.ModerationApproved
	review.ModeratedByID = &moderator.ID
	review.ModeratedAt = &now
	review.RejectionReason = ""

	err := m.db.Model(review).Select(
		"moderation_status", "moderated_by_id", "moderated_at", "rejection_reason",
	).Updates(map[string]interface{}{
		"moderation_status": database.ModerationApproved,
		"moderated_by_id":   moderator.ID,
		"moderated_at":      now,
		"rejection_reason":  "",
	}).Error
	if err != nil {
		return fmt.Errorf("failed to approve review: %w", err)
	}

	m.publishModerated(review, moderator)
	logger.Info("Review %d approved by %s", review.ID, moderator.Username)
	return nil
}

// Reject transitions a review to rejected from any state, recording the
// moderator and a reason. An empty reason gets the default.
func (m *ReviewManager) Reject(review *database.Review, moderator *database.User, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}

	now := time.Now()
	review.ModerationStatus = database.ModerationRejected
	review.ModeratedByID = &moderator.ID
	review.ModeratedAt = &now
	review.RejectionReason = reason

	err := m.db.Model(review).Select(
		"moderation_status", "moderated_by_id", "moderated_at", "rejection_reason",
	).Updates(map[string]interface{}{
		"moderation_status": database.ModerationRejected,
		"moderated_by_id":   moderator.ID,
		"moderated_at":      now,
		"rejection_reason":  reason,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to reject review: %w", err)
	}

	m.publishModerated(review, moderator)
	logger.Info("Review %d rejected by %s: %s", review.ID, moderator.Username, reason)
	return nil
}

// ListPending returns reviews awaiting moderation, newest first
func (m *ReviewManager) ListPending() ([]database.Review, error) {
	var reviews []database.Review
	err := m.db.Preload("User").Preload("Title").
		Where("moderation_status = ?", database.ModerationPending).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

// ListForTitle returns a title's reviews filtered by moderation status
func (m *ReviewManager) ListForTitle(titleID uint, status string) ([]database.Review, error) {
	query := m.db.Preload("User").Where("title_id = ?", titleID)
	if status != "" {
		query = query.Where("moderation_status = ?", status)
	}
	var reviews []database.Review
	err := query.Order("created_at DESC").Find(&reviews).Error
	return reviews, err
}

// Vote records a like/dislike on a review, overwriting the user's previous
// vote, then refreshes the review's derived counters.
func (m *ReviewManager) Vote(userID, reviewID uint, voteType string) (*database.Review, error) {
	if voteType != database.VoteLike && voteType != database.VoteDislike {
		return nil, errors.New("vote type must be like or dislike")
	}

	var vote database.ReviewVote
	err := m.db.Where("review_id = ? AND user_id = ?", reviewID, userID).First(&vote).Error
	switch {
	case err == nil:
		if err := m.db.Model(&vote).Update("vote_type", voteType).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, database.ErrNotFound):
		vote = database.ReviewVote{ReviewID: reviewID, UserID: userID, VoteType: voteType}
		if err := m.db.Create(&vote).Error; err != nil {
			return nil, fmt.Errorf("failed to record vote: %w", err)
		}
	default:
		return nil, err
	}

	if err := m.refreshVoteCounts(reviewID); err != nil {
		return nil, err
	}
	return m.GetReview(reviewID)
}

func (m *ReviewManager) refreshVoteCounts(reviewID uint) error {
	var likes, dislikes int64
	if err := m.db.Model(&database.ReviewVote{}).
		Where("review_id = ? AND vote_type = ?", reviewID, database.VoteLike).
		Count(&likes).Error; err != nil {
		return err
	}
	if err := m.db.Model(&database.ReviewVote{}).
		Where("review_id = ? AND vote_type = ?", reviewID, database.VoteDislike).
		Count(&dislikes).Error; err != nil {
		return err
	}
	return m.db.Model(&database.Review{}).Where("id = ?", reviewID).Updates(map[string]interface{}{
		"likes_count":    likes,
		"dislikes_count": dislikes,
	}).Error
}

// LikePercentage returns the share of likes among all votes, 0 when unvoted
func LikePercentage(review *database.Review) float64 {
	total := review.LikesCount + review.DislikesCount
	if total == 0 {
		return 0
	}
	return float64(review.LikesCount) / float64(total) * 100
}

func (m *ReviewManager) publishModerated(review *database.Review, moderator *database.User) {
	event := events.NewEvent(events.EventReviewModerated, "Review Moderated", "")
	event.Data = map[string]interface{}{
		"review_id": review.ID,
		"status":    review.ModerationStatus,
		"moderator": moderator.Username,
	}
	events.Publish(event)
}
