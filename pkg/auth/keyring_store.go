package auth

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "igwatcher"
	keyringPrefix  = "session_"
)

// KeyringStore implements SessionStore using the system keychain.
type KeyringStore struct{}

// NewKeyringStore creates a keyring-based session store. It probes the
// keychain with a throwaway entry since headless CI runners usually have
// no keyring daemon.
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves a session to the system keychain.
func (k *KeyringStore) Store(session *Session) error {
	if session == nil || session.Label == "" {
		return ErrInvalidSession
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := keyring.Set(keyringService, keyringPrefix+session.Label, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	return nil
}

// Retrieve gets a session from the system keychain.
func (k *KeyringStore) Retrieve(label string) (*Session, error) {
	if label == "" {
		return nil, ErrInvalidSession
	}

	data, err := keyring.Get(keyringService, keyringPrefix+label)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// List returns stored sessions. The keyring API cannot enumerate keys, so
// only the default label is probed.
func (k *KeyringStore) List() ([]*Session, error) {
	session, err := k.Retrieve(DefaultLabel)
	if err != nil {
		return []*Session{}, nil
	}
	return []*Session{session}, nil
}

// Delete removes a session from the system keychain.
func (k *KeyringStore) Delete(label string) error {
	if label == "" {
		return ErrInvalidSession
	}

	if err := keyring.Delete(keyringService, keyringPrefix+label); err != nil {
		if err == keyring.ErrNotFound {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}

	return nil
}

// Exists checks if a session exists in the keychain.
func (k *KeyringStore) Exists(label string) bool {
	if label == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+label)
	return err == nil
}
