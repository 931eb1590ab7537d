// Package localstore is the durable local storage collaborator: a small set
// of named keys (session token, user record, search history, UI preference
// blobs) persisted between runs. Every caller treats it as best-effort -
// storage failures are logged and swallowed, never fatal.
package localstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Named keys. The set is small and fixed; arbitrary keys go through
// Set/Get/Remove directly.
const (
	KeyToken         = "auth_token"
	KeyUser          = "user"
	KeySearchHistory = "search_history"
	KeyUIPrefs       = "ui_prefs"
)

const schema = `
CREATE TABLE IF NOT EXISTS local_store (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Store provides key/value persistence over the local store database.
// Values are msgpack-encoded.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// New creates the store and ensures its table exists.
func New(db *sql.DB, log zerolog.Logger) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create local_store table: %w", err)
	}
	return &Store{
		db:  db,
		log: log.With().Str("component", "localstore").Logger(),
	}, nil
}

// Set stores value under key, replacing any prior value.
func (s *Store) Set(key string, value interface{}) error {
	encoded, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO local_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, encoded, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// Get decodes the value stored under key into out. Returns false if the key
// doesn't exist (not an error).
func (s *Store) Get(key string, out interface{}) (bool, error) {
	var encoded []byte
	err := s.db.QueryRow("SELECT value FROM local_store WHERE key = ?", key).Scan(&encoded)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	if err := msgpack.Unmarshal(encoded, out); err != nil {
		return false, fmt.Errorf("failed to decode value for %s: %w", key, err)
	}
	return true, nil
}

// Remove deletes the value stored under key. Removing a missing key is a
// no-op.
func (s *Store) Remove(key string) error {
	if _, err := s.db.Exec("DELETE FROM local_store WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// SetToken persists the session bearer token.
func (s *Store) SetToken(token string) error {
	return s.Set(KeyToken, token)
}

// Token returns the persisted bearer token, or "" when absent.
func (s *Store) Token() (string, error) {
	var token string
	found, err := s.Get(KeyToken, &token)
	if err != nil || !found {
		return "", err
	}
	return token, nil
}

// ClearSession removes the token and user record at logout. Best-effort:
// the first failure is returned but both removals are attempted.
func (s *Store) ClearSession() error {
	tokenErr := s.Remove(KeyToken)
	userErr := s.Remove(KeyUser)
	if tokenErr != nil {
		return tokenErr
	}
	return userErr
}

// SaveSearchHistory persists the recency list maintained by the state
// store. Implements state.HistoryPersister.
func (s *Store) SaveSearchHistory(symbols []string) error {
	return s.Set(KeySearchHistory, symbols)
}

// LoadSearchHistory restores the recency list. A missing key yields an
// empty history.
func (s *Store) LoadSearchHistory() ([]string, error) {
	var symbols []string
	found, err := s.Get(KeySearchHistory, &symbols)
	if err != nil || !found {
		return nil, err
	}
	return symbols, nil
}
