package events

import (
	"time"

	"github.com/filmsearch/filmsearch/internal/utils"
)

// Event types published by the system and domain modules
const (
	EventSystemStarted = "system.started"
	EventSystemStopped = "system.stopped"

	EventRatingUpserted     = "rating.upserted"
	EventReviewCreated      = "review.created"
	EventReviewModerated    = "review.moderated"
	EventCollectionChanged  = "collection.changed"
	EventRecommendationsRun = "recommendations.generated"
)

// Event is a single occurrence flowing through the event bus
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent creates an event with a fresh ID and timestamp
func NewEvent(eventType, title, message string) Event {
	return Event{
		ID:        utils.GenerateUUID(),
		Type:      eventType,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Handler processes a delivered event
type Handler func(Event)
