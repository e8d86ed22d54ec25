// Package auth stores the Instagram session used to fetch profiles when
// the anonymous endpoint hits the login wall. Sessions are kept under a
// label rather than per watched username, since one logged-in session
// serves all profile checks.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// DefaultLabel names the session used when none is specified.
const DefaultLabel = "default"

// Session holds the cookies Instagram issues after login.
type Session struct {
	Label        string    `json:"label"`
	SessionID    string    `json:"session_id"`
	CSRFToken    string    `json:"csrf_token"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// SessionStore is the interface for storing and retrieving sessions.
type SessionStore interface {
	// Store saves a session under its label.
	Store(session *Session) error

	// Retrieve gets the session with the given label.
	Retrieve(label string) (*Session, error)

	// List returns all stored sessions.
	List() ([]*Session, error)

	// Delete removes the session with the given label.
	Delete(label string) error

	// Exists checks if a session exists for a label.
	Exists(label string) bool
}

// Manager handles session storage with fallback mechanisms: system
// keychain first, then an encrypted file, then environment variables.
type Manager struct {
	stores []SessionStore
}

// NewManager creates a session manager with the available backends.
func NewManager() (*Manager, error) {
	var stores []SessionStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "sessions.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves a session using the first store that accepts it.
func (m *Manager) Store(session *Session) error {
	if session.SessionID == "" {
		return errors.New("session ID is required")
	}
	if session.CSRFToken == "" {
		return errors.New("CSRF token is required")
	}
	if session.Label == "" {
		session.Label = DefaultLabel
	}

	session.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(session); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store session: %w", lastErr)
	}
	return errors.New("no available session stores")
}

// Retrieve gets a session from the first store that has it.
func (m *Manager) Retrieve(label string) (*Session, error) {
	if label == "" {
		label = DefaultLabel
	}

	for _, store := range m.stores {
		if session, err := store.Retrieve(label); err == nil && session != nil {
			return session, nil
		}
	}
	return nil, fmt.Errorf("session not found: %s", label)
}

// RetrieveDefault gets the default session, preferring environment
// variables so CI secrets always win over locally stored sessions.
func (m *Manager) RetrieveDefault() (*Session, error) {
	if envStore, ok := m.stores[len(m.stores)-1].(*EnvironmentStore); ok {
		if session, err := envStore.Retrieve(DefaultLabel); err == nil && session != nil {
			return session, nil
		}
	}

	if session, err := m.Retrieve(DefaultLabel); err == nil {
		return session, nil
	}

	sessions, err := m.List()
	if err == nil && len(sessions) > 0 {
		return sessions[0], nil
	}

	return nil, ErrSessionNotFound
}

// List returns all stored sessions across stores, most recent wins per
// label.
func (m *Manager) List() ([]*Session, error) {
	sessionMap := make(map[string]*Session)

	for _, store := range m.stores {
		sessions, err := store.List()
		if err != nil {
			continue
		}
		for _, session := range sessions {
			if existing, ok := sessionMap[session.Label]; !ok || session.LastModified.After(existing.LastModified) {
				sessionMap[session.Label] = session
			}
		}
	}

	var result []*Session
	for _, session := range sessionMap {
		result = append(result, session)
	}

	return result, nil
}

// Delete removes a session from all stores.
func (m *Manager) Delete(label string) error {
	if label == "" {
		label = DefaultLabel
	}

	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(label); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete session: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("session not found: %s", label)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "igwatcher")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "igwatcher")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "igwatcher")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "igwatcher")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeSession creates a copy with the secret values masked, safe for
// logs and terminal output.
func SanitizeSession(session *Session) *Session {
	if session == nil {
		return nil
	}

	return &Session{
		Label:        session.Label,
		SessionID:    maskString(session.SessionID),
		CSRFToken:    maskString(session.CSRFToken),
		UserAgent:    session.UserAgent,
		LastModified: session.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters.
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSession   = errors.New("invalid session")
	ErrStoreUnavailable = errors.New("session store unavailable")
)
