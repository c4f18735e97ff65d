package catalogmodule

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/filmsearch/filmsearch/internal/apiroutes"
	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/filmsearch/filmsearch/internal/modules/authmodule"
	"github.com/gin-gonic/gin"
)

func registerCatalogRoutes(router *gin.Engine, m *Module) {
	titles := router.Group("/api/v1/titles")
	{
		titles.GET("", m.listTitles)
		titles.GET("/search", m.searchTitles)
		titles.GET("/:id", authmodule.OptionalAuth(), m.getTitle)
		titles.POST("", authmodule.RequireAuth(), authmodule.RequirePrivileged(), m.createTitle)
		titles.PUT("/:id", authmodule.RequireAuth(), authmodule.RequirePrivileged(), m.updateTitle)
		titles.DELETE("/:id", authmodule.RequireAuth(), authmodule.RequirePrivileged(), m.deleteTitle)
		titles.POST("/:id/credits", authmodule.RequireAuth(), authmodule.RequirePrivileged(), m.addCredit)
	}

	genres := router.Group("/api/v1/genres")
	{
		genres.GET("", m.listGenres)
		genres.POST("", authmodule.RequireAuth(), authmodule.RequirePrivileged(), m.createGenre)
		genres.PUT("/:id", authmodule.RequireAuth(), authmodule.RequirePrivileged(), m.updateGenre)
		genres.DELETE("/:id", authmodule.RequireAuth(), authmodule.RequirePrivileged(), m.deleteGenre)
	}

	people := router.Group("/api/v1/people")
	{
		people.GET("", m.listPeople)
		people.GET("/:id", m.getPerson)
		people.POST("", authmodule.RequireAuth(), authmodule.RequirePrivileged(), m.createPerson)
	}

	router.GET("/api/v1/homepage", m.homepage)
	router.GET("/api/v1/statistics", m.statistics)

	apiroutes.Register("/api/v1/titles", "GET", "Movie and TV show catalog with search and filters.")
	apiroutes.Register("/api/v1/genres", "GET", "Genre list with title counts.")
	apiroutes.Register("/api/v1/people", "GET", "Actors and directors with filmographies.")
	apiroutes.Register("/api/v1/homepage", "GET", "Landing page aggregates.")
	apiroutes.Register("/api/v1/statistics", "GET", "Catalog-wide statistics.")
}

// TitleRequest carries a title create/update payload
type TitleRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Type           string `json:"type"`
	ReleaseDate    string `json:"release_date"`
	Duration       *int   `json:"duration"`
	SeasonsCount   *int   `json:"seasons_count"`
	EpisodesCount  *int   `json:"episodes_count"`
	EndDate        string `json:"end_date"`
	Status         string `json:"status"`
	AgeRestriction string `json:"age_restriction"`
	PosterURL      string `json:"poster_url"`
	Country        string `json:"country"`
	GenreIDs       []uint `json:"genre_ids"`
}

func (r *TitleRequest) toTitle() (*database.Title, database.ValidationResult) {
	var result database.ValidationResult
	title := &database.Title{
		Name:           r.Name,
		Description:    r.Description,
		Type:           r.Type,
		Duration:       r.Duration,
		SeasonsCount:   r.SeasonsCount,
		EpisodesCount:  r.EpisodesCount,
		Status:         r.Status,
		AgeRestriction: r.AgeRestriction,
		PosterURL:      r.PosterURL,
		Country:        r.Country,
	}
	if r.ReleaseDate != "" {
		parsed, err := time.Parse("2006-01-02", r.ReleaseDate)
		if err != nil {
			result.Add("release_date", "release date must use YYYY-MM-DD format")
		} else {
			title.ReleaseDate = parsed
		}
	}
	if r.EndDate != "" {
		parsed, err := time.Parse("2006-01-02", r.EndDate)
		if err != nil {
			result.Add("end_date", "end date must use YYYY-MM-DD format")
		} else {
			title.EndDate = &parsed
		}
	}
	return title, result
}

func (m *Module) listTitles(c *gin.Context) {
	filter := TitleFilter{
		Query: c.Query("q"),
		Type:  c.Query("type"),
	}
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = v
	}
	if v, err := strconv.ParseUint(c.Query("genre_id"), 10, 32); err == nil {
		filter.GenreID = uint(v)
	}
	if v, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = v
	}
	if v, err := strconv.ParseFloat(c.Query("min_rating"), 64); err == nil {
		filter.MinRating = v
	}

	titles, total, err := m.titles.ListTitles(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list titles"})
		return
	}

	payload, err := m.summarize(titles)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to compute title aggregates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"titles":    payload,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (m *Module) summarize(titles []database.Title) ([]gin.H, error) {
	ids := make([]uint, 0, len(titles))
	for _, t := range titles {
		ids = append(ids, t.ID)
	}
	stats, err := m.titles.StatsFor(ids)
	if err != nil {
		return nil, err
	}
	payload := make([]gin.H, 0, len(titles))
	for i := range titles {
		t := &titles[i]
		payload = append(payload, TitleSummary(t, stats[t.ID], m.highlights))
	}
	return payload, nil
}

func (m *Module) searchTitles(c *gin.Context) {
	titles, err := m.titles.SearchTitles(c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Search failed"})
		return
	}
	payload, err := m.summarize(titles)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to compute title aggregates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "titles": payload, "total": len(payload)})
}

func (m *Module) getTitle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid title ID"})
		return
	}

	title, err := m.titles.GetTitle(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Title not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load title"})
		return
	}

	stats, err := m.titles.StatsFor([]uint{title.ID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to compute title aggregates"})
		return
	}

	var reviews []database.Review
	err = m.db.Preload("User").
		Where("title_id = ? AND moderation_status = ?", title.ID, database.ModerationApproved).
		Order("created_at DESC").
		Limit(5).
		Find(&reviews).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load reviews"})
		return
	}

	var userRating *int
	if user, ok := authmodule.CurrentUser(c); ok {
		var rating database.Rating
		if err := m.db.Where("user_id = ? AND title_id = ?", user.ID, title.ID).First(&rating).Error; err == nil {
			userRating = &rating.Value
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"title":   TitleDetail(title, stats[title.ID], m.highlights, reviews, userRating),
	})
}

func (m *Module) createTitle(c *gin.Context) {
	var req TitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}

	title, result := req.toTitle()
	for _, fe := range m.titles.ValidateTitle(title, req.GenreIDs, 0).Errors {
		result.Add(fe.Field, fe.Message)
	}
	if !result.OK() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": result.ErrorMap()})
		return
	}

	if err := m.titles.CreateTitle(title, req.GenreIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create title"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "title": title})
}

func (m *Module) updateTitle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid title ID"})
		return
	}
	existing, err := m.titles.GetTitle(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Title not found"})
		return
	}

	var req TitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}

	title, result := req.toTitle()
	title.ID = existing.ID
	title.CreatedAt = existing.CreatedAt
	for _, fe := range m.titles.ValidateTitle(title, req.GenreIDs, existing.ID).Errors {
		result.Add(fe.Field, fe.Message)
	}
	if !result.OK() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": result.ErrorMap()})
		return
	}

	if err := m.titles.UpdateTitle(title, req.GenreIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update title"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "title": title})
}

func (m *Module) deleteTitle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid title ID"})
		return
	}
	if err := m.titles.DeleteTitle(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Title not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete title"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Title deleted"})
}

func (m *Module) addCredit(c *gin.Context) {
	titleID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid title ID"})
		return
	}

	var req struct {
		PersonID      uint   `json:"person_id"`
		Role          string `json:"role"`
		CharacterName string `json:"character_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}
	if req.Role != database.RoleActor && req.Role != database.RoleDirector {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Role must be actor or director"})
		return
	}

	credit := database.TitleCredit{
		TitleID:       titleID,
		PersonID:      req.PersonID,
		Role:          req.Role,
		CharacterName: req.CharacterName,
	}
	if err := m.people.AddCredit(&credit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Failed to add credit (duplicate or unknown person)"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "credit": credit})
}

func (m *Module) listGenres(c *gin.Context) {
	genres, err := m.genres.ListWithCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list genres"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "genres": genres, "total": len(genres)})
}

func (m *Module) createGenre(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}
	if result := m.genres.ValidateGenre(req.Name, 0); !result.OK() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": result.ErrorMap()})
		return
	}
	genre, err := m.genres.Create(req.Name, req.Description)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create genre"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "genre": genre})
}

func (m *Module) updateGenre(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid genre ID"})
		return
	}
	genre, err := m.genres.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Genre not found"})
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}
	if result := m.genres.ValidateGenre(req.Name, genre.ID); !result.OK() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": result.ErrorMap()})
		return
	}
	if err := m.genres.Update(genre, req.Name, req.Description); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update genre"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "genre": genre})
}

func (m *Module) deleteGenre(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid genre ID"})
		return
	}
	if err := m.genres.Delete(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Genre not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete genre"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Genre deleted"})
}

func (m *Module) listPeople(c *gin.Context) {
	people, err := m.people.ListWithCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list people"})
		return
	}
	payload := make([]gin.H, 0, len(people))
	for i := range people {
		p := &people[i]
		payload = append(payload, gin.H{
			"id":           p.ID,
			"full_name":    p.FullName,
			"birth_date":   p.BirthDate,
			"age":          p.Age(),
			"photo_url":    p.PhotoURL,
			"titles_count": p.TitlesCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "people": payload, "total": len(payload)})
}

func (m *Module) getPerson(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid person ID"})
		return
	}
	person, filmography, err := m.people.GetWithFilmography(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Person not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load person"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"person":      person,
		"age":         person.Age(),
		"filmography": filmography,
	})
}

func (m *Module) createPerson(c *gin.Context) {
	var req struct {
		FullName  string `json:"full_name"`
		BirthDate string `json:"birth_date"`
		Biography string `json:"biography"`
		PhotoURL  string `json:"photo_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}
	if req.FullName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": gin.H{"full_name": []string{"full name is required"}}})
		return
	}

	person := database.Person{
		FullName:  req.FullName,
		Biography: req.Biography,
		PhotoURL:  req.PhotoURL,
	}
	if req.BirthDate != "" {
		parsed, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": gin.H{"birth_date": []string{"birth date must use YYYY-MM-DD format"}}})
			return
		}
		person.BirthDate = &parsed
	}

	if err := m.people.Create(&person); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create person"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "person": person})
}

func (m *Module) homepage(c *gin.Context) {
	page, err := m.titles.BuildHomepage()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to build homepage"})
		return
	}

	topRated, err := m.summarize(page.TopRated)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to compute title aggregates"})
		return
	}
	newReleases, err := m.summarize(page.NewReleases)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to compute title aggregates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"top_rated":      topRated,
		"popular_genres": page.PopularGenres,
		"new_releases":   newReleases,
	})
}

func (m *Module) statistics(c *gin.Context) {
	stats, err := m.titles.BuildStatistics()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to build statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "statistics": stats})
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}
