package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager owns the pictures directory. The directory is created on
// construction so it exists after every run even when no picture changed,
// which the artifact upload step depends on.
type Manager struct {
	dir   string
	mu    sync.RWMutex
	files map[string]bool
}

// NewManager creates the pictures directory if needed and indexes any
// pictures already present from earlier runs.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create pictures directory: %w", err)
	}

	m := &Manager{
		dir:   dir,
		files: make(map[string]bool),
	}

	if err := m.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing pictures: %w", err)
	}

	return m, nil
}

func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".jpg" {
			m.files[entry.Name()] = true
		}
	}

	return nil
}

// SavePicture writes picture data under the given filename. The data goes
// to a temp file first and is renamed into place so a crash mid-write never
// leaves a partial image. Returns the full path of the saved file.
func (m *Manager) SavePicture(r io.Reader, filename string) (string, error) {
	path := filepath.Join(m.dir, filename)

	tempPath := path + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to save picture data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.files[filename] = true
	m.mu.Unlock()

	return path, nil
}

// Exists reports whether a picture with the given filename is present.
func (m *Manager) Exists(filename string) bool {
	m.mu.RLock()
	if m.files[filename] {
		m.mu.RUnlock()
		return true
	}
	m.mu.RUnlock()

	path := filepath.Join(m.dir, filename)
	if _, err := os.Stat(path); err == nil {
		m.mu.Lock()
		m.files[filename] = true
		m.mu.Unlock()
		return true
	}

	return false
}

// Dir returns the pictures directory path.
func (m *Manager) Dir() string {
	return m.dir
}

// Count returns the number of stored pictures.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// CountFor returns the number of stored pictures for a username, based on
// the timestamped filename convention.
func (m *Manager) CountFor(username string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	marker := "_" + username + "_profile.jpg"
	count := 0
	for name := range m.files {
		if strings.HasSuffix(name, marker) {
			count++
		}
	}
	return count
}
