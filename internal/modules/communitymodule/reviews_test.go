package communitymodule

import (
	"strings"
	"testing"

	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReviewStartsPending(t *testing.T) {
	db := openTestDB(t)
	manager := NewReviewManager(db)
	title := seedTitle(t, db, "Pending")
	alice := seedUser(t, db, "alice")

	review, err := manager.CreateReview(alice.ID, title.ID, "A slow burn that rewards patience.")
	require.NoError(t, err)
	assert.Equal(t, database.ModerationPending, review.ModerationStatus)
	assert.True(t, review.IsPending())
	assert.False(t, review.IsApproved())
	assert.Nil(t, review.ModeratedByID)
	assert.Empty(t, review.RejectionReason)
}

func TestCreateReviewDuplicate(t *testing.T) {
	db := openTestDB(t)
	manager := NewReviewManager(db)
	title := seedTitle(t, db, "Dup")
	alice := seedUser(t, db, "alice")

	_, err := manager.CreateReview(alice.ID, title.ID, "First impressions were strong.")
	require.NoError(t, err)

	_, err = manager.CreateReview(alice.ID, title.ID, "Changed my mind on a rewatch.")
	assert.ErrorIs(t, err, ErrDuplicateReview)
}

func TestValidateReviewText(t *testing.T) {
	manager := NewReviewManager(nil)

	assert.False(t, manager.ValidateReviewText("short").OK())
	assert.False(t, manager.ValidateReviewText(strings.Repeat("x", 5001)).OK())
	// Long enough but only two distinct characters
	assert.False(t, manager.ValidateReviewText("ababababababab").OK())
	assert.True(t, manager.ValidateReviewText("Genuinely worth watching.").OK())
	// Surrounding whitespace does not count toward length
	assert.False(t, manager.ValidateReviewText("   hi    ").OK())
}

func TestApproveFromPending(t *testing.T) {
	db := openTestDB(t)
	manager := NewReviewManager(db)
	title := seedTitle(t, db, "Approve")
	alice := seedUser(t, db, "alice")
	mod := seedUser(t, db, "moderator")
	mod.IsStaff = true
	require.NoError(t, db.Save(mod).Error)

	review, err := manager.CreateReview(alice.ID, title.ID, "The ensemble cast carries it.")
	require.NoError(t, err)

	require.NoError(t, manager.Approve(review, mod))
	assert.Equal(t, database.ModerationApproved, review.ModerationStatus)
	assert.Equal(t, mod.ID, *review.ModeratedByID)
	assert.NotNil(t, review.ModeratedAt)
	assert.Empty(t, review.RejectionReason)

	var stored database.Review
	require.NoError(t, db.First(&stored, review.ID).Error)
	assert.Equal(t, database.ModerationApproved, stored.ModerationStatus)
}

func TestRejectDefaultReason(t *testing.T) {
	db := openTestDB(t)
	manager := NewReviewManager(db)
	title := seedTitle(t, db, "RejectDefault")
	alice := seedUser(t, db, "alice")
	mod := seedUser(t, db, "moderator")

	review, err := manager.CreateReview(alice.ID, title.ID, "Spam spam spam spam spam.")
	require.NoError(t, err)

	require.NoError(t, manager.Reject(review, mod, "  "))
	assert.Equal(t, database.ModerationRejected, review.ModerationStatus)
	assert.Equal(t, DefaultRejectionReason, review.RejectionReason)
	assert.Equal(t, mod.ID, *review.ModeratedByID)
	assert.NotNil(t, review.ModeratedAt)
}

// Approving a rejected review clears the stored rejection reason
func TestApproveAfterRejectClearsReason(t *testing.T) {
	db := openTestDB(t)
	manager := NewReviewManager(db)
	title := seedTitle(t, db, "Flip")
	alice := seedUser(t, db, "alice")
	mod := seedUser(t, db, "moderator")

	review, err := manager.CreateReview(alice.ID, title.ID, "Hot take: the remake is better.")
	require.NoError(t, err)

	require.NoError(t, manager.Reject(review, mod, "inflammatory"))
	assert.Equal(t, "inflammatory", review.RejectionReason)

	require.NoError(t, manager.Approve(review, mod))
	assert.Equal(t, database.ModerationApproved, review.ModerationStatus)
	assert.Empty(t, review.RejectionReason)

	var stored database.Review
	require.NoError(t, db.First(&stored, review.ID).Error)
	assert.Empty(t, stored.RejectionReason)
	assert.Equal(t, database.ModerationApproved, stored.ModerationStatus)
}

func TestUpdateTextResetsModeration(t *testing.T) {
	db := openTestDB(t)
	manager := NewReviewManager(db)
	title := seedTitle(t, db, "Reset")
	alice := seedUser(t, db, "alice")
	mod := seedUser(t, db, "moderator")

	review, err := manager.CreateReview(alice.ID, title.ID, "Original text before edits.")
	require.NoError(t, err)
	require.NoError(t, manager.Approve(review, mod))

	require.NoError(t, manager.UpdateText(review, "Edited text awaiting another look."))
	assert.Equal(t, database.ModerationPending, review.ModerationStatus)
	assert.Nil(t, review.ModeratedByID)
	assert.Empty(t, review.RejectionReason)
}

func TestVoteCountsAndPercentage(t *testing.T) {
	db := openTestDB(t)
	manager := NewReviewManager(db)
	title := seedTitle(t, db, "Votes")
	author := seedUser(t, db, "author")
	u1 := seedUser(t, db, "u1")
	u2 := seedUser(t, db, "u2")
	u3 := seedUser(t, db, "u3")

	review, err := manager.CreateReview(author.ID, title.ID, "Votes will pile up on this one.")
	require.NoError(t, err)

	_, err = manager.Vote(u1.ID, review.ID, database.VoteLike)
	require.NoError(t, err)
	_, err = manager.Vote(u2.ID, review.ID, database.VoteLike)
	require.NoError(t, err)
	updated, err := manager.Vote(u3.ID, review.ID, database.VoteDislike)
	require.NoError(t, err)

	assert.Equal(t, 2, updated.LikesCount)
	assert.Equal(t, 1, updated.DislikesCount)
	assert.InDelta(t, 66.66, LikePercentage(updated), 0.1)

	// Changing a vote moves it between buckets instead of double counting
	updated, err = manager.Vote(u1.ID, review.ID, database.VoteDislike)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.LikesCount)
	assert.Equal(t, 2, updated.DislikesCount)

	_, err = manager.Vote(u1.ID, review.ID, "meh")
	assert.Error(t, err)
}

func TestListPendingNewestFirst(t *testing.T) {
	db := openTestDB(t)
	manager := NewReviewManager(db)
	titleA := seedTitle(t, db, "QueueA")
	titleB := seedTitle(t, db, "QueueB")
	alice := seedUser(t, db, "alice")
	mod := seedUser(t, db, "moderator")

	first, err := manager.CreateReview(alice.ID, titleA.ID, "First in the queue today.")
	require.NoError(t, err)
	_, err = manager.CreateReview(alice.ID, titleB.ID, "Second in the queue today.")
	require.NoError(t, err)

	require.NoError(t, manager.Approve(first, mod))

	pending, err := manager.ListPending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, titleB.ID, pending[0].TitleID)
}
