package catalogmodule

import (
	"time"

	"github.com/filmsearch/filmsearch/internal/config"
	"github.com/filmsearch/filmsearch/internal/database"
)

// PopularGenre is a genre block on the homepage
type PopularGenre struct {
	Genre       database.Genre   `json:"genre"`
	TitlesCount int64            `json:"titles_count"`
	Examples    []database.Title `json:"examples"`
}

// Homepage holds the landing-page aggregates
type Homepage struct {
	TopRated      []database.Title `json:"top_rated"`
	PopularGenres []PopularGenre   `json:"popular_genres"`
	NewReleases   []database.Title `json:"new_releases"`
}

// BuildHomepage assembles the landing-page aggregates in one call
func (m *TitleManager) BuildHomepage() (*Homepage, error) {
	page := &Homepage{}

	// Top rated: titles with at least one rating, best average first
	var topIDs []uint
	err := m.db.Model(&database.Rating{}).
		Select("title_id").
		Group("title_id").
		Order("AVG(value) DESC").
		Limit(8).
		Scan(&topIDs).Error
	if err != nil {
		return nil, err
	}
	if len(topIDs) > 0 {
		var topTitles []database.Title
		if err := m.db.Preload("Genres").Where("id IN ?", topIDs).Find(&topTitles).Error; err != nil {
			return nil, err
		}
		byID := make(map[uint]database.Title, len(topTitles))
		for _, t := range topTitles {
			byID[t.ID] = t
		}
		for _, id := range topIDs {
			if t, ok := byID[id]; ok {
				page.TopRated = append(page.TopRated, t)
			}
		}
	}

	// Popular genres: six most used, each with a few recent examples
	var genreRows []struct {
		database.Genre
		TitlesCount int64
	}
	err = m.db.Model(&database.Genre{}).
		Select("genres.*, COUNT(title_genres.title_id) as titles_count").
		Joins("JOIN title_genres ON title_genres.genre_id = genres.id").
		Group("genres.id").
		Order("titles_count DESC").
		Limit(6).
		Scan(&genreRows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range genreRows {
		var examples []database.Title
		err := m.db.
			Where("id IN (SELECT title_id FROM title_genres WHERE genre_id = ?)", row.Genre.ID).
			Order("release_date DESC").
			Limit(3).
			Find(&examples).Error
		if err != nil {
			return nil, err
		}
		page.PopularGenres = append(page.PopularGenres, PopularGenre{
			Genre:       row.Genre,
			TitlesCount: row.TitlesCount,
			Examples:    examples,
		})
	}

	// New releases within the window, padded with latest titles when sparse
	windowDays := config.Get().Catalog.NewReleaseWindowDays
	cutoff := time.Now().AddDate(0, 0, -windowDays)
	var releases []database.Title
	err = m.db.Preload("Genres").
		Where("release_date >= ? AND release_date <= ?", cutoff, time.Now()).
		Order("release_date DESC").
		Limit(6).
		Find(&releases).Error
	if err != nil {
		return nil, err
	}
	if len(releases) < 4 {
		seen := make(map[uint]bool, len(releases))
		for _, t := range releases {
			seen[t.ID] = true
		}
		var latest []database.Title
		err = m.db.Preload("Genres").
			Order("release_date DESC").
			Limit(6 + len(releases)).
			Find(&latest).Error
		if err != nil {
			return nil, err
		}
		for _, t := range latest {
			if len(releases) >= 6 {
				break
			}
			if !seen[t.ID] {
				releases = append(releases, t)
				seen[t.ID] = true
			}
		}
	}
	page.NewReleases = releases

	return page, nil
}

// GenreCount is one row of the statistics genre leaderboard
type GenreCount struct {
	Name        string `json:"name"`
	TitlesCount int64  `json:"titles_count"`
}

// RatedTitle is one row of the statistics rating leaderboard
type RatedTitle struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	AverageRating float64 `json:"average_rating"`
	RatingsCount  int64   `json:"ratings_count"`
}

// Statistics holds the catalog-wide aggregate report
type Statistics struct {
	TotalTitles    int64        `json:"total_titles"`
	TotalMovies    int64        `json:"total_movies"`
	TotalShows     int64        `json:"total_shows"`
	TotalGenres    int64        `json:"total_genres"`
	TotalPeople    int64        `json:"total_people"`
	TotalRatings   int64        `json:"total_ratings"`
	TotalReviews   int64        `json:"total_reviews"`
	TopGenres      []GenreCount `json:"top_genres"`
	TopRatedTitles []RatedTitle `json:"top_rated_titles"`
}

// BuildStatistics computes the catalog-wide aggregate report
func (m *TitleManager) BuildStatistics() (*Statistics, error) {
	stats := &Statistics{}

	counts := []struct {
		model interface{}
		dest  *int64
		where []interface{}
	}{
		{&database.Title{}, &stats.TotalTitles, nil},
		{&database.Title{}, &stats.TotalMovies, []interface{}{"type = ?", database.TypeMovie}},
		{&database.Title{}, &stats.TotalShows, []interface{}{"type = ?", database.TypeTVShow}},
		{&database.Genre{}, &stats.TotalGenres, nil},
		{&database.Person{}, &stats.TotalPeople, nil},
		{&database.Rating{}, &stats.TotalRatings, nil},
		{&database.Review{}, &stats.TotalReviews, nil},
	}
	for _, c := range counts {
		query := m.db.Model(c.model)
		if c.where != nil {
			query = query.Where(c.where[0], c.where[1:]...)
		}
		if err := query.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	err := m.db.Model(&database.Genre{}).
		Select("genres.name, COUNT(title_genres.title_id) as titles_count").
		Joins("JOIN title_genres ON title_genres.genre_id = genres.id").
		Group("genres.id, genres.name").
		Order("titles_count DESC").
		Limit(10).
		Scan(&stats.TopGenres).Error
	if err != nil {
		return nil, err
	}

	err = m.db.Model(&database.Rating{}).
		Select("titles.id, titles.name, AVG(ratings.value) as average_rating, COUNT(ratings.id) as ratings_count").
		Joins("JOIN titles ON titles.id = ratings.title_id").
		Group("titles.id, titles.name").
		Having("COUNT(ratings.id) >= ?", 3).
		Order("average_rating DESC").
		Limit(10).
		Scan(&stats.TopRatedTitles).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}
