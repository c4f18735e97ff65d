package communitymodule

import (
	"fmt"
	"testing"
	"time"

	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&database.User{},
		&database.Genre{},
		&database.Person{},
		&database.Title{},
		&database.TitleCredit{},
		&database.Rating{},
		&database.Review{},
		&database.ReviewVote{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *database.User {
	t.Helper()
	user := &database.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedTitle(t *testing.T, db *gorm.DB, name string) *database.Title {
	t.Helper()
	duration := 120
	title := &database.Title{
		Name:        name,
		Type:        database.TypeMovie,
		ReleaseDate: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
		Duration:    &duration,
	}
	require.NoError(t, db.Create(title).Error)
	return title
}

func TestAverageRatingNoRatings(t *testing.T) {
	db := openTestDB(t)
	manager := NewRatingManager(db)
	title := seedTitle(t, db, "Unrated")

	avg, err := manager.AverageRating(title.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)
}

func TestAverageRatingMean(t *testing.T) {
	db := openTestDB(t)
	manager := NewRatingManager(db)
	title := seedTitle(t, db, "Rated")
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	_, _, err := manager.RateTitle(alice.ID, title.ID, 9)
	require.NoError(t, err)
	_, _, err = manager.RateTitle(bob.ID, title.ID, 2)
	require.NoError(t, err)

	avg, err := manager.AverageRating(title.ID)
	require.NoError(t, err)
	assert.InDelta(t, 5.5, avg, 0.001)
}

func TestRateTitleValueRange(t *testing.T) {
	db := openTestDB(t)
	manager := NewRatingManager(db)
	title := seedTitle(t, db, "Range")
	alice := seedUser(t, db, "alice")

	_, _, err := manager.RateTitle(alice.ID, title.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidRatingValue)
	_, _, err = manager.RateTitle(alice.ID, title.ID, 11)
	assert.ErrorIs(t, err, ErrInvalidRatingValue)
}

func TestRateTitleUpsert(t *testing.T) {
	db := openTestDB(t)
	manager := NewRatingManager(db)
	title := seedTitle(t, db, "Upsert")
	alice := seedUser(t, db, "alice")

	first, created, err := manager.RateTitle(alice.ID, title.ID, 9)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 9, first.Value)

	second, created, err := manager.RateTitle(alice.ID, title.ID, 3)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 3, second.Value)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&database.Rating{}).Where("user_id = ? AND title_id = ?", alice.ID, title.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

// A re-rating replaces the old value in every aggregate immediately
func TestAverageReflectsRerating(t *testing.T) {
	db := openTestDB(t)
	manager := NewRatingManager(db)
	title := seedTitle(t, db, "Scenario")
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	_, _, err := manager.RateTitle(alice.ID, title.ID, 9)
	require.NoError(t, err)
	_, _, err = manager.RateTitle(bob.ID, title.ID, 2)
	require.NoError(t, err)

	avg, err := manager.AverageRating(title.ID)
	require.NoError(t, err)
	assert.InDelta(t, 5.5, avg, 0.001)

	_, _, err = manager.RateTitle(bob.ID, title.ID, 7)
	require.NoError(t, err)

	avg, err = manager.AverageRating(title.ID)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, avg, 0.001)

	count, err := manager.RatingsCount(title.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestDeleteRating(t *testing.T) {
	db := openTestDB(t)
	manager := NewRatingManager(db)
	title := seedTitle(t, db, "Delete")
	alice := seedUser(t, db, "alice")

	assert.ErrorIs(t, manager.DeleteRating(alice.ID, title.ID), database.ErrNotFound)

	_, _, err := manager.RateTitle(alice.ID, title.ID, 6)
	require.NoError(t, err)
	require.NoError(t, manager.DeleteRating(alice.ID, title.ID))

	rating, err := manager.GetUserRating(alice.ID, title.ID)
	require.NoError(t, err)
	assert.Nil(t, rating)
}
