package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// EncryptedFileStore implements SessionStore using an AES-GCM encrypted
// file. The key is derived from a passphrase with PBKDF2.
type EncryptedFileStore struct {
	filepath   string
	passphrase string
	mu         sync.RWMutex
}

// NewEncryptedFileStore creates an encrypted file-based session store.
func NewEncryptedFileStore(filePath string) (*EncryptedFileStore, error) {
	dir := filepath.Dir(filePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	store := &EncryptedFileStore{filepath: filePath}

	passphrase, err := store.getPassphrase()
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	store.passphrase = passphrase

	return store, nil
}

// Store saves a session to the encrypted file.
func (e *EncryptedFileStore) Store(session *Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if session == nil || session.Label == "" {
		return ErrInvalidSession
	}

	sessions, salt, err := e.loadSessions()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load existing sessions: %w", err)
	}
	if sessions == nil {
		sessions = make(map[string]Session)
	}

	sessions[session.Label] = *session

	return e.saveSessions(sessions, salt)
}

// Retrieve gets a session from the encrypted file.
func (e *EncryptedFileStore) Retrieve(label string) (*Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if label == "" {
		return nil, ErrInvalidSession
	}

	sessions, _, err := e.loadSessions()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	session, exists := sessions[label]
	if !exists {
		return nil, ErrSessionNotFound
	}

	return &session, nil
}

// List returns all stored sessions.
func (e *EncryptedFileStore) List() ([]*Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sessions, _, err := e.loadSessions()
	if err != nil {
		if os.IsNotExist(err) {
			return []*Session{}, nil
		}
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	var result []*Session
	for _, session := range sessions {
		s := session
		result = append(result, &s)
	}

	return result, nil
}

// Delete removes a session from the encrypted file.
func (e *EncryptedFileStore) Delete(label string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if label == "" {
		return ErrInvalidSession
	}

	sessions, salt, err := e.loadSessions()
	if err != nil {
		if os.IsNotExist(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	if _, exists := sessions[label]; !exists {
		return ErrSessionNotFound
	}

	delete(sessions, label)

	if len(sessions) == 0 {
		return os.Remove(e.filepath)
	}

	return e.saveSessions(sessions, salt)
}

// Exists checks if a session exists.
func (e *EncryptedFileStore) Exists(label string) bool {
	session, err := e.Retrieve(label)
	return err == nil && session != nil
}

// loadSessions reads and decrypts the session file, returning the stored
// salt so saves reuse it.
func (e *EncryptedFileStore) loadSessions() (map[string]Session, string, error) {
	content, err := os.ReadFile(e.filepath)
	if err != nil {
		return nil, "", err
	}

	var fileData struct {
		Salt      string `json:"salt"`
		Encrypted string `json:"encrypted"`
	}
	if err := json.Unmarshal(content, &fileData); err != nil {
		return nil, "", fmt.Errorf("failed to parse file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(fileData.Salt)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode salt: %w", err)
	}

	encryptedBytes, err := base64.StdEncoding.DecodeString(fileData.Encrypted)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode encrypted data: %w", err)
	}

	key := pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)

	decrypted, err := decrypt(encryptedBytes, key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decrypt data: %w", err)
	}

	var sessions map[string]Session
	if err := json.Unmarshal(decrypted, &sessions); err != nil {
		return nil, "", fmt.Errorf("failed to parse sessions: %w", err)
	}

	return sessions, fileData.Salt, nil
}

// saveSessions encrypts and writes the session file atomically.
func (e *EncryptedFileStore) saveSessions(sessions map[string]Session, encodedSalt string) error {
	var salt []byte
	if encodedSalt == "" {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
		encodedSalt = base64.StdEncoding.EncodeToString(salt)
	} else {
		var err error
		salt, err = base64.StdEncoding.DecodeString(encodedSalt)
		if err != nil {
			return fmt.Errorf("failed to decode salt: %w", err)
		}
	}

	key := pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)

	sessionsJSON, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	encrypted, err := encrypt(sessionsJSON, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt data: %w", err)
	}

	fileData := struct {
		Salt      string    `json:"salt"`
		Encrypted string    `json:"encrypted"`
		Version   int       `json:"version"`
		Modified  time.Time `json:"modified"`
	}{
		Salt:      encodedSalt,
		Encrypted: base64.StdEncoding.EncodeToString(encrypted),
		Version:   1,
		Modified:  time.Now(),
	}

	content, err := json.MarshalIndent(fileData, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal file data: %w", err)
	}

	tempFile := e.filepath + ".tmp"
	if err := os.WriteFile(tempFile, content, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return os.Rename(tempFile, e.filepath)
}

// getPassphrase retrieves or generates the encryption passphrase. The
// IGWATCHER_VAULT_KEY variable wins so CI can supply it as a secret.
func (e *EncryptedFileStore) getPassphrase() (string, error) {
	if pass := os.Getenv("IGWATCHER_VAULT_KEY"); pass != "" {
		return pass, nil
	}

	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}

	passphraseFile := filepath.Join(configDir, ".vault_key")

	if content, err := os.ReadFile(passphraseFile); err == nil && len(content) > 0 {
		return string(content), nil
	}

	passphrase := generatePassphrase()

	if err := os.WriteFile(passphraseFile, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}

	return passphrase, nil
}

// generatePassphrase generates a random passphrase.
func generatePassphrase() string {
	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

// encrypt seals data with AES-GCM, nonce prefixed.
func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt opens AES-GCM sealed data.
func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
