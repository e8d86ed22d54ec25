package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements SessionStore over environment variables.
// This is the path CI uses: the workflow injects repository secrets as
// IGWATCHER_SESSION_ID and IGWATCHER_CSRF_TOKEN.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-based session store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables.
func (e *EnvironmentStore) Store(session *Session) error {
	return ErrStoreUnavailable
}

// Retrieve gets a session from environment variables.
func (e *EnvironmentStore) Retrieve(label string) (*Session, error) {
	sessionID := os.Getenv("IGWATCHER_SESSION_ID")
	csrfToken := os.Getenv("IGWATCHER_CSRF_TOKEN")
	userAgent := os.Getenv("IGWATCHER_USER_AGENT")

	if sessionID == "" || csrfToken == "" {
		return nil, ErrSessionNotFound
	}

	if label == "" {
		label = DefaultLabel
	}

	return &Session{
		Label:        label,
		SessionID:    sessionID,
		CSRFToken:    csrfToken,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}, nil
}

// List returns a single session if environment variables are set.
func (e *EnvironmentStore) List() ([]*Session, error) {
	session, err := e.Retrieve(DefaultLabel)
	if err != nil {
		return []*Session{}, nil
	}
	return []*Session{session}, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete(label string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials are present.
func (e *EnvironmentStore) Exists(label string) bool {
	return os.Getenv("IGWATCHER_SESSION_ID") != "" && os.Getenv("IGWATCHER_CSRF_TOKEN") != ""
}
