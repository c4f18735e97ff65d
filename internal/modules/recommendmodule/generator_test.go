package recommendmodule

import (
	"context"
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
		&database.Title{},
		&database.Rating{},
		&database.Recommendation{},
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

func seedTitle(t *testing.T, db *gorm.DB, name string, genres ...database.Genre) *database.Title {
	t.Helper()
	duration := 100
	title := &database.Title{
		Name:        name,
		Type:        database.TypeMovie,
		ReleaseDate: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		Duration:    &duration,
		Genres:      genres,
	}
	require.NoError(t, db.Create(title).Error)
	return title
}

func rate(t *testing.T, db *gorm.DB, userID, titleID uint, value int) {
	t.Helper()
	require.NoError(t, db.Create(&database.Rating{UserID: userID, TitleID: titleID, Value: value}).Error)
}

func TestGenerateAllSeedsFromTasteGenres(t *testing.T) {
	db := openTestDB(t)
	gen := NewGenerator(db)

	drama := database.Genre{Name: "Drama"}
	require.NoError(t, db.Create(&drama).Error)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	loved := seedTitle(t, db, "Loved Drama", drama)
	candidate := seedTitle(t, db, "Unseen Drama", drama)
	weak := seedTitle(t, db, "Weak Drama", drama)

	// Alice loves drama; the candidate carries a strong community average.
	// Bob's own ratings stay below the taste floor so only Alice is seeded.
	rate(t, db, alice.ID, loved.ID, 9)
	rate(t, db, bob.ID, candidate.ID, 7)
	rate(t, db, bob.ID, weak.ID, 4)

	report, err := gen.GenerateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.UsersProcessed)
	assert.Equal(t, 1, report.Created)

	recs, err := gen.ListForUser(alice.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, candidate.ID, recs[0].TitleID)
	assert.Equal(t, "genre_Drama", recs[0].ReasonCode)
}

func TestGenerateAllSkipsRatedAndWeakTitles(t *testing.T) {
	db := openTestDB(t)
	gen := NewGenerator(db)

	drama := database.Genre{Name: "Drama"}
	require.NoError(t, db.Create(&drama).Error)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	rated := seedTitle(t, db, "Already Rated", drama)
	weak := seedTitle(t, db, "Below Floor", drama)

	rate(t, db, alice.ID, rated.ID, 9)
	rate(t, db, bob.ID, rated.ID, 10)
	// Community average of 6 misses the floor
	rate(t, db, bob.ID, weak.ID, 6)

	report, err := gen.GenerateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
}

func TestGenerateAllLowRatingsCarryNoTaste(t *testing.T) {
	db := openTestDB(t)
	gen := NewGenerator(db)

	drama := database.Genre{Name: "Drama"}
	require.NoError(t, db.Create(&drama).Error)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	disliked := seedTitle(t, db, "Disliked", drama)
	candidate := seedTitle(t, db, "Strong Candidate", drama)

	// A rating of 7 stays below the taste floor
	rate(t, db, alice.ID, disliked.ID, 7)
	rate(t, db, bob.ID, candidate.ID, 9)

	report, err := gen.GenerateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
}

func TestGenerateAllIdempotent(t *testing.T) {
	db := openTestDB(t)
	gen := NewGenerator(db)

	drama := database.Genre{Name: "Drama"}
	require.NoError(t, db.Create(&drama).Error)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	loved := seedTitle(t, db, "Loved", drama)
	candidate := seedTitle(t, db, "Candidate", drama)
	rate(t, db, alice.ID, loved.ID, 10)
	rate(t, db, bob.ID, candidate.ID, 7)

	first, err := gen.GenerateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := gen.GenerateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)

	var count int64
	db.Model(&database.Recommendation{}).Where("user_id = ?", alice.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGenerateAllCancelled(t *testing.T) {
	db := openTestDB(t)
	gen := NewGenerator(db)
	seedUser(t, db, "alice")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := gen.GenerateAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.UsersProcessed)
}

func TestGenerateSimpleSkipsRated(t *testing.T) {
	db := openTestDB(t)
	gen := NewGenerator(db)

	alice := seedUser(t, db, "alice")
	u1 := seedUser(t, db, "u1")
	u2 := seedUser(t, db, "u2")
	u3 := seedUser(t, db, "u3")

	popular := seedTitle(t, db, "Popular")
	seen := seedTitle(t, db, "Seen By Alice")

	for _, u := range []*database.User{u1, u2, u3} {
		rate(t, db, u.ID, popular.ID, 9)
		rate(t, db, u.ID, seen.ID, 8)
	}
	rate(t, db, alice.ID, seen.ID, 8)

	report, err := gen.GenerateSimple(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.UsersProcessed)

	recs, err := gen.ListForUser(alice.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, popular.ID, recs[0].TitleID)
	assert.Equal(t, "admin_generated", recs[0].ReasonCode)
}

func TestSeedOnDemandReasonFormat(t *testing.T) {
	db := openTestDB(t)
	gen := NewGenerator(db)

	alice := seedUser(t, db, "alice")
	u1 := seedUser(t, db, "u1")
	u2 := seedUser(t, db, "u2")
	u3 := seedUser(t, db, "u3")

	popular := seedTitle(t, db, "Popular")
	for _, u := range []*database.User{u1, u2, u3} {
		rate(t, db, u.ID, popular.ID, 8)
	}
	// Too few ratings to make the leaderboard
	sparse := seedTitle(t, db, "Sparse")
	rate(t, db, u1.ID, sparse.ID, 10)

	created, err := gen.SeedOnDemand(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	recs, err := gen.ListForUser(alice.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "high_rating_8.0", recs[0].ReasonCode)

	// Seeding again creates nothing new
	created, err = gen.SeedOnDemand(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}
