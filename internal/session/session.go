// Package session manages the authenticated session: the bearer token, its
// persistence, and the forced logout on authentication failure.
package session

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/marketlens/marketlens/internal/localstore"
	"github.com/marketlens/marketlens/internal/state"
)

// Manager holds the session token and coordinates logout across the local
// store and the state store.
type Manager struct {
	local *localstore.Store
	store *state.Store
	log   zerolog.Logger

	mu    sync.RWMutex
	token string
}

// NewManager creates a session manager. Call Init to restore a persisted
// token.
func NewManager(local *localstore.Store, store *state.Store, log zerolog.Logger) *Manager {
	return &Manager{
		local: local,
		store: store,
		log:   log.With().Str("component", "session").Logger(),
	}
}

// Init restores the persisted token, if any. Storage failures mean
// logged-out, never fatal.
func (m *Manager) Init() {
	token, err := m.local.Token()
	if err != nil {
		m.log.Debug().Err(err).Msg("Failed to restore session token, starting logged out")
		return
	}
	if token != "" {
		m.mu.Lock()
		m.token = token
		m.mu.Unlock()
		m.log.Info().Msg("Session restored from local store")
	}
}

// Token returns the current bearer token, or "" when logged out.
// Satisfies api.TokenFunc.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// LoggedIn reports whether a token is present.
func (m *Manager) LoggedIn() bool {
	return m.Token() != ""
}

// SetToken stores a new token (after login) and persists it best-effort.
func (m *Manager) SetToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	if err := m.local.SetToken(token); err != nil {
		m.log.Debug().Err(err).Msg("Failed to persist session token")
	}
}

// Logout clears the token, the persisted session keys and the per-user
// state store fields. Storage failures are swallowed - the in-memory
// session is gone regardless.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()

	if err := m.local.ClearSession(); err != nil {
		m.log.Debug().Err(err).Msg("Failed to clear persisted session")
	}
	m.store.Reset()
	m.log.Info().Msg("Logged out")
}

// HandleAuthFailure performs the forced logout after the backend rejects
// the token (401). The caller signals the UI to redirect to login.
func (m *Manager) HandleAuthFailure() {
	m.log.Warn().Msg("Authentication failure, clearing session")
	m.Logout()
}
