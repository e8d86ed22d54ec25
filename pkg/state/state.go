// Package state persists the last-seen profile picture URL per username
// between runs, so a picture is only downloaded again when it actually
// changed. The original single-profile job kept one bare URL in a text
// file; this store generalizes it to a versioned JSON map.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"igwatcher/pkg/logger"
)

const currentVersion = 1

// Entry records what was last seen for one username.
type Entry struct {
	PictureURL string    `json:"picture_url"`
	RecordedAt time.Time `json:"recorded_at"`
}

// File is the in-memory form of the state file. It is safe for concurrent
// use: profile checks read it while the result consumer updates it.
type File struct {
	Version   int              `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
	Profiles  map[string]Entry `json:"profiles"`

	mu sync.RWMutex
}

// Get returns the last recorded normalized picture URL for a username.
func (f *File) Get(username string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entry, ok := f.Profiles[username]
	return entry.PictureURL, ok
}

// Set records a new normalized picture URL for a username.
func (f *File) Set(username, pictureURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Profiles[username] = Entry{
		PictureURL: pictureURL,
		RecordedAt: time.Now(),
	}
}

// Len returns the number of tracked profiles.
func (f *File) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.Profiles)
}

// Store loads and saves the state file.
type Store struct {
	path   string
	logger logger.Logger
}

// NewStore creates a store for the given path.
func NewStore(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{path: path, logger: log}
}

// Load reads the state file. A missing file is a first run and yields an
// empty state, not an error.
func (s *Store) Load() (*File, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.DebugWithFields("no state file, starting fresh", map[string]interface{}{
				"path": s.path,
			})
			return emptyFile(), nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if f.Profiles == nil {
		f.Profiles = make(map[string]Entry)
	}

	s.logger.DebugWithFields("state loaded", map[string]interface{}{
		"path":     s.path,
		"profiles": len(f.Profiles),
	})

	return &f, nil
}

// Save writes the state file atomically: the content goes to a temp file
// that is renamed over the old one, so a crash never leaves a truncated
// state file behind.
func (s *Store) Save(f *File) error {
	f.mu.Lock()
	f.Version = currentVersion
	f.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(f, "", "  ")
	f.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary state file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	s.logger.DebugWithFields("state saved", map[string]interface{}{
		"path": s.path,
	})

	return nil
}

// Exists reports whether a state file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func emptyFile() *File {
	return &File{
		Version:  currentVersion,
		Profiles: make(map[string]Entry),
	}
}
