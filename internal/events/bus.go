package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/filmsearch/filmsearch/internal/logger"
)

// EventBus delivers events to subscribers and persists them to storage
type EventBus interface {
	PublishAsync(event Event) error
	Subscribe(eventType string, handler Handler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Config controls event bus buffering
type Config struct {
	BufferSize int
}

// DefaultConfig returns the default event bus configuration
func DefaultConfig() Config {
	return Config{BufferSize: 256}
}

type bus struct {
	cfg      Config
	storage  *DatabaseEventStorage
	mu       sync.RWMutex
	handlers map[string][]Handler
	queue    chan Event
	done     chan struct{}
	started  bool
}

// NewEventBus creates an event bus. Storage may be nil to disable persistence.
func NewEventBus(cfg Config, storage *DatabaseEventStorage) EventBus {
	return &bus{
		cfg:      cfg,
		storage:  storage,
		handlers: make(map[string][]Handler),
	}
}

func (b *bus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return nil
	}
	b.queue = make(chan Event, b.cfg.BufferSize)
	b.done = make(chan struct{})
	b.started = true
	go b.dispatch()
	return nil
}

func (b *bus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = false
	close(b.queue)
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *bus) PublishAsync(event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.started {
		return fmt.Errorf("event bus not started")
	}
	select {
	case b.queue <- event:
		return nil
	default:
		return fmt.Errorf("event bus queue full, dropping event %s", event.Type)
	}
}

func (b *bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

func (b *bus) dispatch() {
	defer close(b.done)
	for event := range b.queue {
		if b.storage != nil {
			if err := b.storage.Save(event); err != nil {
				logger.Warn("Failed to persist event %s: %v", event.Type, err)
			}
		}

		b.mu.RLock()
		handlers := append([]Handler{}, b.handlers[event.Type]...)
		handlers = append(handlers, b.handlers["*"]...)
		b.mu.RUnlock()

		for _, h := range handlers {
			h(event)
		}
	}
}

var (
	globalBus EventBus
	globalMu  sync.RWMutex
)

// SetGlobalEventBus registers the system-wide event bus
func SetGlobalEventBus(eb EventBus) {
	globalMu.Lock()
	globalBus = eb
	globalMu.Unlock()
}

// GetGlobalEventBus returns the system-wide event bus, which may be nil
func GetGlobalEventBus() EventBus {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalBus
}

// Publish sends an event through the global bus when one is registered.
// Publishing is best effort; domain writes never fail on event errors.
func Publish(event Event) {
	eb := GetGlobalEventBus()
	if eb == nil {
		return
	}
	if err := eb.PublishAsync(event); err != nil {
		logger.Debug("Event not published: %v", err)
	}
}
