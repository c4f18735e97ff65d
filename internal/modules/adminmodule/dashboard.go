package adminmodule

import (
	"context"
	"time"

	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/filmsearch/filmsearch/internal/logger"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"gorm.io/gorm"
)

// DashboardManager assembles the admin dashboard payload
type DashboardManager struct {
	db *gorm.DB
}

// NewDashboardManager creates a dashboard manager
func NewDashboardManager(db *gorm.DB) *DashboardManager {
	return &DashboardManager{db: db}
}

// EntityTotals counts every major entity in one block
type EntityTotals struct {
	Users           int64 `json:"users"`
	Titles          int64 `json:"titles"`
	Genres          int64 `json:"genres"`
	People          int64 `json:"people"`
	Ratings         int64 `json:"ratings"`
	Reviews         int64 `json:"reviews"`
	PendingReviews  int64 `json:"pending_reviews"`
	Collections     int64 `json:"collections"`
	Recommendations int64 `json:"recommendations"`
}

// ActiveUser is one row of the contributor leaderboard
type ActiveUser struct {
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	RatingsCount int64  `json:"ratings_count"`
	ReviewsCount int64  `json:"reviews_count"`
}

// ReviewPreview is a truncated review for the dashboard feed
type ReviewPreview struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	TitleName string    `json:"title_name"`
	Status    string    `json:"status"`
	Preview   string    `json:"preview"`
	CreatedAt time.Time `json:"created_at"`
}

// Dashboard is the full admin dashboard payload
type Dashboard struct {
	Totals        EntityTotals     `json:"totals"`
	RecentTitles  []database.Title `json:"recent_titles"`
	RecentReviews []ReviewPreview  `json:"recent_reviews"`
	TopUsers      []ActiveUser     `json:"top_users"`
	System        SystemStats      `json:"system"`
}

// SystemStats carries host health readings for the dashboard
type SystemStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
}

// Build assembles the dashboard in one call
func (m *DashboardManager) Build(ctx context.Context) (*Dashboard, error) {
	dash := &Dashboard{}

	counts := []struct {
		model interface{}
		dest  *int64
		where []interface{}
	}{
		{&database.User{}, &dash.Totals.Users, nil},
		{&database.Title{}, &dash.Totals.Titles, nil},
		{&database.Genre{}, &dash.Totals.Genres, nil},
		{&database.Person{}, &dash.Totals.People, nil},
		{&database.Rating{}, &dash.Totals.Ratings, nil},
		{&database.Review{}, &dash.Totals.Reviews, nil},
		{&database.Review{}, &dash.Totals.PendingReviews, []interface{}{"moderation_status = ?", database.ModerationPending}},
		{&database.Collection{}, &dash.Totals.Collections, nil},
		{&database.Recommendation{}, &dash.Totals.Recommendations, nil},
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

	if err := m.db.Order("created_at DESC").Limit(5).Find(&dash.RecentTitles).Error; err != nil {
		return nil, err
	}

	var reviews []database.Review
	err := m.db.Preload("User").Preload("Title").
		Order("created_at DESC").Limit(5).Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	for i := range reviews {
		r := &reviews[i]
		preview := r.Text
		if len(preview) > 120 {
			preview = preview[:120] + "..."
		}
		dash.RecentReviews = append(dash.RecentReviews, ReviewPreview{
			ID:        r.ID,
			Username:  r.User.Username,
			TitleName: r.Title.Name,
			Status:    r.ModerationStatus,
			Preview:   preview,
			CreatedAt: r.CreatedAt,
		})
	}

	err = m.db.Raw(`
		SELECT users.id, users.username,
		       (SELECT COUNT(*) FROM ratings WHERE ratings.user_id = users.id) AS ratings_count,
		       (SELECT COUNT(*) FROM reviews WHERE reviews.user_id = users.id) AS reviews_count
		FROM users
		ORDER BY ratings_count + reviews_count DESC
		LIMIT 5`).Scan(&dash.TopUsers).Error
	if err != nil {
		return nil, err
	}

	dash.System = m.systemStats(ctx)
	return dash, nil
}

// systemStats reads host CPU and memory. Failures degrade to zeros rather
// than failing the dashboard.
func (m *DashboardManager) systemStats(ctx context.Context) SystemStats {
	stats := SystemStats{}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	} else if err != nil {
		logger.Debug("CPU stats unavailable: %v", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemoryPercent = vm.UsedPercent
		stats.MemoryUsedMB = vm.Used / 1024 / 1024
		stats.MemoryTotalMB = vm.Total / 1024 / 1024
	} else {
		logger.Debug("Memory stats unavailable: %v", err)
	}

	return stats
}
