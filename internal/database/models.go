package database

import (
	"time"
)

// Title type discriminators
const (
	TypeMovie  = "movie"
	TypeTVShow = "tv_show"
)

// TV show lifecycle statuses
const (
	StatusOngoing   = "ongoing"
	StatusFinished  = "finished"
	StatusCancelled = "cancelled"
)

// Review moderation statuses
const (
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

// Credit roles
const (
	RoleActor    = "actor"
	RoleDirector = "director"
)

// Review vote types
const (
	VoteLike    = "like"
	VoteDislike = "dislike"
)

// Watchlist statuses
const (
	WatchStatusToWatch  = "to_watch"
	WatchStatusWatching = "watching"
	WatchStatusWatched  = "watched"
)

// User represents an account in the system
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:30;not null" json:"username"`
	Email        string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	FirstName    string     `gorm:"size:30" json:"first_name"`
	LastName     string     `gorm:"size:30" json:"last_name"`
	IsStaff      bool       `json:"is_staff"`
	IsSuperuser  bool       `json:"is_superuser"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	DateJoined   time.Time  `gorm:"autoCreateTime" json:"date_joined"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// UserProfile extends a user account with catalog preferences
type UserProfile struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User            User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	PreferredGenres []Genre   `gorm:"many2many:user_preferred_genres" json:"preferred_genres"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Genre is a catalog genre
type Genre struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;not null;index" json:"name"`
	Description string `json:"description"`
}

// Person is an actor or director
type Person struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	FullName  string     `gorm:"size:255;not null;index" json:"full_name"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Biography string     `json:"biography"`
	PhotoURL  string     `json:"photo_url"`
}

// Age computes the person's age as of today, or nil when the birth date is unknown
func (p *Person) Age() *int {
	if p.BirthDate == nil {
		return nil
	}
	now := time.Now()
	age := now.Year() - p.BirthDate.Year()
	if now.YearDay() < p.BirthDate.YearDay() {
		age--
	}
	return &age
}

// Title is a movie or TV show catalog entry.
// Movie titles carry a duration and no season data; show titles carry season
// data and no duration. ValidateTitle enforces the shape before writes.
type Title struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	Name           string        `gorm:"size:255;not null;index" json:"name"`
	Description    string        `json:"description"`
	Type           string        `gorm:"size:10;not null;index" json:"type"`
	ReleaseDate    time.Time     `gorm:"not null;index" json:"release_date"`
	Duration       *int          `json:"duration,omitempty"`
	SeasonsCount   *int          `json:"seasons_count,omitempty"`
	EpisodesCount  *int          `json:"episodes_count,omitempty"`
	EndDate        *time.Time    `json:"end_date,omitempty"`
	Status         string        `gorm:"size:20" json:"status,omitempty"`
	AgeRestriction string        `gorm:"size:10" json:"age_restriction"`
	PosterURL      string        `json:"poster_url"`
	Country        string        `gorm:"size:100" json:"country"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	Genres         []Genre       `gorm:"many2many:title_genres" json:"genres,omitempty"`
	Credits        []TitleCredit `json:"credits,omitempty"`
}

// DaysSinceRelease returns the number of days since the release date
func (t *Title) DaysSinceRelease() int {
	return int(time.Since(t.ReleaseDate).Hours() / 24)
}

// IsNewRelease reports whether the title was released within the window
func (t *Title) IsNewRelease(windowDays int) bool {
	days := t.DaysSinceRelease()
	return days >= 0 && days <= windowDays
}

// TitleCredit links a person to a title with a role tag
type TitleCredit struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	TitleID       uint   `gorm:"not null;uniqueIndex:idx_title_person_role" json:"title_id"`
	PersonID      uint   `gorm:"not null;uniqueIndex:idx_title_person_role" json:"person_id"`
	Person        Person `gorm:"foreignKey:PersonID;constraint:OnDelete:CASCADE" json:"person"`
	Role          string `gorm:"size:10;not null;uniqueIndex:idx_title_person_role" json:"role"`
	CharacterName string `gorm:"size:255" json:"character_name,omitempty"`
}

// Rating is a single user's 1-10 score for a title, unique per (user, title)
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_rating_user_title" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TitleID   uint      `gorm:"not null;uniqueIndex:idx_rating_user_title" json:"title_id"`
	Title     Title     `gorm:"foreignKey:TitleID;constraint:OnDelete:CASCADE" json:"-"`
	Value     int       `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Review is a user's text review of a title with its moderation lifecycle.
// New reviews start pending and move to approved/rejected only through
// explicit moderator actions.
type Review struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"not null;uniqueIndex:idx_review_user_title" json:"user_id"`
	User             User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TitleID          uint       `gorm:"not null;uniqueIndex:idx_review_user_title" json:"title_id"`
	Title            Title      `gorm:"foreignKey:TitleID;constraint:OnDelete:CASCADE" json:"-"`
	Text             string     `gorm:"not null" json:"text"`
	ModerationStatus string     `gorm:"size:20;not null;default:pending;index" json:"moderation_status"`
	ModeratedByID    *uint      `json:"moderated_by_id,omitempty"`
	ModeratedBy      *User      `gorm:"foreignKey:ModeratedByID" json:"-"`
	ModeratedAt      *time.Time `json:"moderated_at,omitempty"`
	RejectionReason  string     `json:"rejection_reason"`
	LikesCount       int        `json:"likes_count"`
	DislikesCount    int        `json:"dislikes_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsApproved reports whether the review passed moderation
func (r *Review) IsApproved() bool {
	return r.ModerationStatus == ModerationApproved
}

// IsPending reports whether the review awaits moderation
func (r *Review) IsPending() bool {
	return r.ModerationStatus == ModerationPending
}

// IsFresh reports whether the review was posted within the last 7 days
func (r *Review) IsFresh() bool {
	return time.Since(r.CreatedAt) < 7*24*time.Hour
}

// ReviewVote is a user's like/dislike on a review, unique per (review, user)
type ReviewVote struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	ReviewID uint      `gorm:"not null;uniqueIndex:idx_vote_review_user" json:"review_id"`
	Review   Review    `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE" json:"-"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_vote_review_user" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	VoteType string    `gorm:"size:10;not null" json:"vote_type"`
	VotedAt  time.Time `gorm:"autoCreateTime" json:"voted_at"`
}

// Collection is a named list of titles, owned by a user or by the system.
// System collections are always public and ownerless; Normalize enforces it.
type Collection struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      *uint            `json:"user_id,omitempty"`
	User        *User            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Description string           `json:"description"`
	IsSystem    bool             `json:"is_system"`
	IsPublic    bool             `gorm:"default:true" json:"is_public"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Items       []CollectionItem `json:"items,omitempty"`
}

// CollectionItem is a title's membership in a collection, unique per pair
type CollectionItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CollectionID uint      `gorm:"not null;uniqueIndex:idx_collection_title" json:"collection_id"`
	TitleID      uint      `gorm:"not null;uniqueIndex:idx_collection_title" json:"title_id"`
	Title        Title     `gorm:"foreignKey:TitleID;constraint:OnDelete:CASCADE" json:"title"`
	AddedAt      time.Time `gorm:"autoCreateTime" json:"added_at"`
}

// Recommendation is a system-generated suggestion, unique per (user, title).
// Rows are produced only by the recommendation generator, never user-authored.
type Recommendation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_rec_user_title" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TitleID    uint      `gorm:"not null;uniqueIndex:idx_rec_user_title" json:"title_id"`
	Title      Title     `gorm:"foreignKey:TitleID;constraint:OnDelete:CASCADE" json:"-"`
	ReasonCode string    `gorm:"size:50" json:"reason_code"`
	CreatedAt  time.Time `json:"created_at"`
}

// WatchlistItem tracks a user's watch status for a title, unique per pair
type WatchlistItem struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_watch_user_title" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TitleID  uint      `gorm:"not null;uniqueIndex:idx_watch_user_title" json:"title_id"`
	Title    Title     `gorm:"foreignKey:TitleID;constraint:OnDelete:CASCADE" json:"title"`
	Status   string    `gorm:"size:20;not null;default:to_watch" json:"status"`
	Progress *int      `json:"progress,omitempty"`
	AddedAt  time.Time `gorm:"autoCreateTime" json:"added_at"`
}
