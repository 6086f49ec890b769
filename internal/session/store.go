package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Sentinel errors
var (
	// ErrNoSession is returned when no token is stored.
	ErrNoSession = errors.New("no active session")
)

const sessionFileName = "session.json"

// sessionFile is the on-disk envelope for the raw token.
type sessionFile struct {
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists the current session token on the local filesystem.
// It is the single shared mutable resource between the session manager
// and the request pipeline; both converge on the cleared state on
// logout or server denial, so last-writer-wins is safe.
type Store struct {
	baseDir string
}

// NewStore creates a new session store.
// If baseDir is empty, uses ~/.traderdesk/
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".traderdesk")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("session store initialized")

	return &Store{baseDir: baseDir}, nil
}

// Token returns the stored token.
// Returns ErrNoSession when nothing is stored.
func (s *Store) Token() (string, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("failed to read session: %w", err)
	}

	var sf sessionFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return "", fmt.Errorf("failed to parse session: %w", err)
	}

	if sf.Token == "" {
		return "", ErrNoSession
	}

	return sf.Token, nil
}

// SetToken writes the token atomically.
func (s *Store) SetToken(token string) error {
	data, err := json.MarshalIndent(sessionFile{
		Token:     token,
		UpdatedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write to temp file first
	tempPath := s.path() + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, s.path()); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save session: %w", err)
	}

	log.Debug().Str("path", s.path()).Msg("session token stored")

	return nil
}

// Clear removes the stored token. Idempotent.
func (s *Store) Clear() error {
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *Store) path() string {
	return filepath.Join(s.baseDir, sessionFileName)
}
