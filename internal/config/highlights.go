package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/filmsearch/filmsearch/internal/logger"
)

// HighlightList is the allow-list of title IDs that serializers mark as
// highlighted. It is reloaded from disk whenever the backing file changes.
type HighlightList struct {
	mu  sync.RWMutex
	ids map[uint]bool
}

type highlightsFile struct {
	HighlightedTitles []uint `yaml:"highlighted_titles"`
}

// NewHighlightList returns an empty highlight list
func NewHighlightList() *HighlightList {
	return &HighlightList{ids: make(map[uint]bool)}
}

// IsHighlighted reports whether a title ID is on the allow-list
func (h *HighlightList) IsHighlighted(id uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ids[id]
}

// Set replaces the allow-list contents
func (h *HighlightList) Set(ids []uint) {
	next := make(map[uint]bool, len(ids))
	for _, id := range ids {
		next[id] = true
	}
	h.mu.Lock()
	h.ids = next
	h.mu.Unlock()
}

// IDs returns a copy of the current allow-list
func (h *HighlightList) IDs() []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]uint, 0, len(h.ids))
	for id := range h.ids {
		ids = append(ids, id)
	}
	return ids
}

// LoadFromFile replaces the allow-list with the contents of a YAML file.
// A missing file leaves the list empty rather than failing startup.
func (h *HighlightList) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			h.Set(nil)
			return nil
		}
		return fmt.Errorf("failed to read highlights file: %w", err)
	}

	var parsed highlightsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse highlights file: %w", err)
	}

	h.Set(parsed.HighlightedTitles)
	return nil
}

// Watch reloads the allow-list whenever the backing file is written. The
// watcher runs until the process exits; watch errors are logged, not fatal.
func (h *HighlightList) Watch(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create highlights watcher: %w", err)
	}

	// Watch the directory so the watch survives editors that replace the file.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to create highlights directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch highlights directory: %w", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := h.LoadFromFile(path); err != nil {
					logger.Warn("Failed to reload highlights file: %v", err)
					continue
				}
				logger.Info("Reloaded highlighted titles from %s (%d entries)", path, len(h.IDs()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Highlights watcher error: %v", err)
			}
		}
	}()

	return nil
}
