package catalogmodule

import (
	"fmt"
	"testing"
	"time"

	"github.com/filmsearch/filmsearch/internal/config"
	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	config.SetForTesting(config.Default())
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
	))
	return db
}

func seedGenre(t *testing.T, db *gorm.DB, name string) *database.Genre {
	t.Helper()
	genre := &database.Genre{Name: name}
	require.NoError(t, db.Create(genre).Error)
	return genre
}

func seedMovie(t *testing.T, db *gorm.DB, name string, released time.Time, genres ...database.Genre) *database.Title {
	t.Helper()
	duration := 110
	title := &database.Title{
		Name:        name,
		Type:        database.TypeMovie,
		ReleaseDate: released,
		Duration:    &duration,
		Genres:      genres,
	}
	require.NoError(t, db.Create(title).Error)
	return title
}

func seedRating(t *testing.T, db *gorm.DB, userID, titleID uint, value int) {
	t.Helper()
	require.NoError(t, db.Create(&database.Rating{UserID: userID, TitleID: titleID, Value: value}).Error)
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

func intPtr(v int) *int { return &v }

func TestValidateTitleMovieShape(t *testing.T) {
	db := openTestDB(t)
	manager := NewTitleManager(db)
	genre := seedGenre(t, db, "Drama")

	seasons := 2
	title := &database.Title{
		Name:         "Bad Movie",
		Type:         database.TypeMovie,
		ReleaseDate:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		SeasonsCount: &seasons,
	}
	result := manager.ValidateTitle(title, []uint{genre.ID}, 0)
	errs := result.ErrorMap()
	assert.Contains(t, errs, "duration")
	assert.Contains(t, errs, "seasons_count")
}

func TestValidateTitleShowShape(t *testing.T) {
	db := openTestDB(t)
	manager := NewTitleManager(db)
	genre := seedGenre(t, db, "Drama")

	title := &database.Title{
		Name:          "Short Show",
		Type:          database.TypeTVShow,
		ReleaseDate:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Duration:      intPtr(40),
		SeasonsCount:  intPtr(5),
		EpisodesCount: intPtr(3),
	}
	result := manager.ValidateTitle(title, []uint{genre.ID}, 0)
	errs := result.ErrorMap()
	assert.Contains(t, errs, "duration")
	assert.Contains(t, errs, "episodes_count")
}

func TestValidateTitleReleaseYearFloor(t *testing.T) {
	db := openTestDB(t)
	manager := NewTitleManager(db)
	genre := seedGenre(t, db, "History")

	title := &database.Title{
		Name:        "Too Early",
		Type:        database.TypeMovie,
		ReleaseDate: time.Date(1887, 12, 31, 0, 0, 0, 0, time.UTC),
		Duration:    intPtr(60),
	}
	result := manager.ValidateTitle(title, []uint{genre.ID}, 0)
	assert.Contains(t, result.ErrorMap(), "release_date")

	title.ReleaseDate = time.Date(1888, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, manager.ValidateTitle(title, []uint{genre.ID}, 0).OK())
}

func TestValidateTitleDuplicateNameAndYear(t *testing.T) {
	db := openTestDB(t)
	manager := NewTitleManager(db)
	genre := seedGenre(t, db, "Action")
	existing := seedMovie(t, db, "Heat", time.Date(1995, 12, 15, 0, 0, 0, 0, time.UTC), *genre)

	candidate := &database.Title{
		Name:        "heat",
		Type:        database.TypeMovie,
		ReleaseDate: time.Date(1995, 3, 1, 0, 0, 0, 0, time.UTC),
		Duration:    intPtr(170),
	}
	result := manager.ValidateTitle(candidate, []uint{genre.ID}, 0)
	assert.Contains(t, result.ErrorMap(), "name")

	// Same name in another year is fine
	candidate.ReleaseDate = time.Date(2001, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, manager.ValidateTitle(candidate, []uint{genre.ID}, 0).OK())

	// The record being updated does not collide with itself
	result = manager.ValidateTitle(existing, []uint{genre.ID}, existing.ID)
	assert.True(t, result.OK())
}

func TestValidateTitleGenreBounds(t *testing.T) {
	db := openTestDB(t)
	manager := NewTitleManager(db)

	title := &database.Title{
		Name:        "Genreless",
		Type:        database.TypeMovie,
		ReleaseDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Duration:    intPtr(90),
	}
	assert.Contains(t, manager.ValidateTitle(title, nil, 0).ErrorMap(), "genres")
	assert.Contains(t, manager.ValidateTitle(title, []uint{1, 2, 3, 4, 5, 6}, 0).ErrorMap(), "genres")
}

func TestCreateAndGetTitle(t *testing.T) {
	db := openTestDB(t)
	manager := NewTitleManager(db)
	drama := seedGenre(t, db, "Drama")
	crime := seedGenre(t, db, "Crime")

	title := &database.Title{
		Name:        "  The Long Con  ",
		Type:        database.TypeMovie,
		ReleaseDate: time.Date(2019, 5, 10, 0, 0, 0, 0, time.UTC),
		Duration:    intPtr(125),
	}
	require.NoError(t, manager.CreateTitle(title, []uint{drama.ID, crime.ID}))

	loaded, err := manager.GetTitle(title.ID)
	require.NoError(t, err)
	assert.Equal(t, "The Long Con", loaded.Name)
	assert.Len(t, loaded.Genres, 2)
}

func TestCreateTitleUnknownGenre(t *testing.T) {
	db := openTestDB(t)
	manager := NewTitleManager(db)

	title := &database.Title{
		Name:        "Orphan",
		Type:        database.TypeMovie,
		ReleaseDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Duration:    intPtr(90),
	}
	assert.Error(t, manager.CreateTitle(title, []uint{12345}))
}

func TestListTitlesFilters(t *testing.T) {
	db := openTestDB(t)
	manager := NewTitleManager(db)
	drama := seedGenre(t, db, "Drama")
	comedy := seedGenre(t, db, "Comedy")

	seedMovie(t, db, "Older Drama", time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), *drama)
	newer := seedMovie(t, db, "Newer Drama", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), *drama)
	seedMovie(t, db, "A Comedy", time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC), *comedy)

	titles, total, err := manager.ListTitles(TitleFilter{GenreID: drama.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, titles, 2)
	// Newest release first
	assert.Equal(t, newer.ID, titles[0].ID)

	titles, total, err = manager.ListTitles(TitleFilter{Year: 2022})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = manager.ListTitles(TitleFilter{Query: "comedy"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestListTitlesMinRating(t *testing.T) {
	db := openTestDB(t)
	manager := NewTitleManager(db)
	drama := seedGenre(t, db, "Drama")
	good := seedMovie(t, db, "Good One", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), *drama)
	bad := seedMovie(t, db, "Bad One", time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC), *drama)
	alice := seedUser(t, db, "alice")
	seedRating(t, db, alice.ID, good.ID, 9)
	seedRating(t, db, alice.ID, bad.ID, 3)

	titles, total, err := manager.ListTitles(TitleFilter{MinRating: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, titles, 1)
	assert.Equal(t, good.ID, titles[0].ID)
}

func TestSearchTitlesByGenreName(t *testing.T) {
	db := openTestDB(t)
	manager := NewTitleManager(db)
	thriller := seedGenre(t, db, "Thriller")
	drama := seedGenre(t, db, "Drama")
	match := seedMovie(t, db, "Quiet Streets", time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), *thriller)
	seedMovie(t, db, "Loud Rooms", time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC), *drama)

	results, err := manager.SearchTitles("thrill")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, match.ID, results[0].ID)

	results, err = manager.SearchTitles("   ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStatsForCountsApprovedReviewsOnly(t *testing.T) {
	db := openTestDB(t)
	manager := NewTitleManager(db)
	drama := seedGenre(t, db, "Drama")
	title := seedMovie(t, db, "Stats", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), *drama)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	seedRating(t, db, alice.ID, title.ID, 8)
	seedRating(t, db, bob.ID, title.ID, 4)

	require.NoError(t, db.Create(&database.Review{
		UserID: alice.ID, TitleID: title.ID,
		Text: "Approved review text.", ModerationStatus: database.ModerationApproved,
	}).Error)
	require.NoError(t, db.Create(&database.Review{
		UserID: bob.ID, TitleID: title.ID,
		Text: "Pending review text.", ModerationStatus: database.ModerationPending,
	}).Error)

	stats, err := manager.StatsFor([]uint{title.ID})
	require.NoError(t, err)
	s := stats[title.ID]
	assert.InDelta(t, 6.0, s.AverageRating, 0.001)
	assert.Equal(t, int64(2), s.RatingsCount)
	assert.Equal(t, int64(1), s.ReviewsCount)
}

func TestDeleteTitleNotFound(t *testing.T) {
	db := openTestDB(t)
	manager := NewTitleManager(db)
	assert.ErrorIs(t, manager.DeleteTitle(999), database.ErrNotFound)
}

func TestValidateGenreUniqueness(t *testing.T) {
	db := openTestDB(t)
	manager := NewGenreManager(db)
	existing := seedGenre(t, db, "Horror")

	assert.False(t, manager.ValidateGenre("h", 0).OK())
	assert.False(t, manager.ValidateGenre("HORROR", 0).OK())
	assert.True(t, manager.ValidateGenre("Horror", existing.ID).OK())
	assert.True(t, manager.ValidateGenre("Western", 0).OK())
}

func TestGenreListWithCounts(t *testing.T) {
	db := openTestDB(t)
	manager := NewGenreManager(db)
	busy := seedGenre(t, db, "Busy")
	idle := seedGenre(t, db, "Idle")
	seedMovie(t, db, "One", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), *busy)
	seedMovie(t, db, "Two", time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), *busy)

	rows, err := manager.ListWithCounts()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, busy.ID, rows[0].ID)
	assert.Equal(t, int64(2), rows[0].TitlesCount)
	assert.Equal(t, idle.ID, rows[1].ID)
	assert.Equal(t, int64(0), rows[1].TitlesCount)
}

func TestBuildHomepagePadsNewReleases(t *testing.T) {
	db := openTestDB(t)
	manager := NewTitleManager(db)
	drama := seedGenre(t, db, "Drama")

	// One genuinely recent release, the rest are old catalog entries
	recent := seedMovie(t, db, "Fresh", time.Now().AddDate(0, 0, -3), *drama)
	for i := 0; i < 5; i++ {
		seedMovie(t, db, fmt.Sprintf("Old %d", i), time.Date(2000+i, 1, 1, 0, 0, 0, 0, time.UTC), *drama)
	}

	page, err := manager.BuildHomepage()
	require.NoError(t, err)
	require.NotEmpty(t, page.NewReleases)
	assert.Equal(t, recent.ID, page.NewReleases[0].ID)
	// Sparse window gets padded with the latest catalog entries
	assert.Equal(t, 6, len(page.NewReleases))

	seen := make(map[uint]bool)
	for _, title := range page.NewReleases {
		assert.False(t, seen[title.ID], "duplicate title in new releases")
		seen[title.ID] = true
	}
}

func TestBuildStatistics(t *testing.T) {
	db := openTestDB(t)
	manager := NewTitleManager(db)
	drama := seedGenre(t, db, "Drama")
	title := seedMovie(t, db, "Counted", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), *drama)

	u1 := seedUser(t, db, "u1")
	u2 := seedUser(t, db, "u2")
	u3 := seedUser(t, db, "u3")
	seedRating(t, db, u1.ID, title.ID, 9)
	seedRating(t, db, u2.ID, title.ID, 8)
	seedRating(t, db, u3.ID, title.ID, 10)

	stats, err := manager.BuildStatistics()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalTitles)
	assert.Equal(t, int64(1), stats.TotalMovies)
	assert.Equal(t, int64(0), stats.TotalShows)
	assert.Equal(t, int64(3), stats.TotalRatings)
	require.Len(t, stats.TopRatedTitles, 1)
	assert.Equal(t, title.ID, stats.TopRatedTitles[0].ID)
	assert.InDelta(t, 9.0, stats.TopRatedTitles[0].AverageRating, 0.001)
}

func TestBuildStatisticsLeaderboardFloor(t *testing.T) {
	db := openTestDB(t)
	manager := NewTitleManager(db)
	drama := seedGenre(t, db, "Drama")
	title := seedMovie(t, db, "TooFew", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), *drama)
	u1 := seedUser(t, db, "u1")
	u2 := seedUser(t, db, "u2")
	seedRating(t, db, u1.ID, title.ID, 10)
	seedRating(t, db, u2.ID, title.ID, 10)

	stats, err := manager.BuildStatistics()
	require.NoError(t, err)
	// Two ratings stay below the leaderboard floor
	assert.Empty(t, stats.TopRatedTitles)
}
