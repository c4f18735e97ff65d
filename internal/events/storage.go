package events

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// EventRecord is the persisted form of an event
type EventRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   string    `gorm:"size:36;uniqueIndex" json:"event_id"`
	Type      string    `gorm:"size:100;not null;index" json:"type"`
	Title     string    `gorm:"size:255" json:"title"`
	Message   string    `json:"message"`
	Data      string    `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DatabaseEventStorage persists events as rows
type DatabaseEventStorage struct {
	db *gorm.DB
}

// NewDatabaseEventStorage creates event storage backed by the given database
func NewDatabaseEventStorage(db *gorm.DB) *DatabaseEventStorage {
	return &DatabaseEventStorage{db: db}
}

// Migrate creates the event log schema
func (s *DatabaseEventStorage) Migrate() error {
	if err := s.db.AutoMigrate(&EventRecord{}); err != nil {
		return fmt.Errorf("failed to migrate event storage: %w", err)
	}
	return nil
}

// Save persists a single event
func (s *DatabaseEventStorage) Save(event Event) error {
	record := EventRecord{
		EventID:   event.ID,
		Type:      event.Type,
		Title:     event.Title,
		Message:   event.Message,
		CreatedAt: event.Timestamp,
	}
	if len(event.Data) > 0 {
		data, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("failed to encode event data: %w", err)
		}
		record.Data = string(data)
	}
	return s.db.Create(&record).Error
}

// Recent returns the most recent persisted events, newest first
func (s *DatabaseEventStorage) Recent(limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []EventRecord
	err := s.db.Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}
