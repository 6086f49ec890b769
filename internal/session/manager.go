package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrInvalidToken is returned when a token decodes but carries no user
// identifier, or cannot be decoded at all during login.
var ErrInvalidToken = errors.New("invalid session token")

// Session is a snapshot of the current authentication state.
// Loading is true only between construction and Initialize returning;
// consumers must not read the other fields while it is set.
type Session struct {
	Token         string
	UserID        string
	Authenticated bool
	Loading       bool
}

// Manager owns the authentication state machine. It initializes from the
// store at startup, validates expiry locally, and notifies observers once
// per transition out of the authenticated state.
//
// The request pipeline invalidates the session through Invalidate when the
// server denies a request; Manager is the single mandated consumer of that
// signal.
type Manager struct {
	store *Store

	mu        sync.Mutex
	session   Session
	observers []func()
}

// NewManager creates a manager in the initializing state.
func NewManager(store *Store) *Manager {
	return &Manager{
		store:   store,
		session: Session{Loading: true},
	}
}

// Initialize reads the stored token and settles into Authenticated or
// Unauthenticated. Invalid or expired tokens are cleared from storage.
// Must complete before dependent components read session state.
func (m *Manager) Initialize() {
	token, err := m.store.Token()
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			log.Warn().Err(err).Msg("failed to read stored session, clearing")
			m.clearStore()
		}
		m.settle(Session{})
		return
	}

	claims, err := DecodeToken(token)
	if err != nil {
		log.Warn().Err(err).Msg("stored token is malformed, clearing session")
		m.clearStore()
		m.settle(Session{})
		return
	}

	if claims.Expired(time.Now()) {
		log.Info().Str("userID", claims.UserID()).Msg("stored token expired, clearing session")
		m.clearStore()
		m.settle(Session{})
		return
	}

	userID := claims.UserID()
	if userID == "" {
		log.Warn().Msg("stored token carries no user identifier, clearing session")
		m.clearStore()
		m.settle(Session{})
		return
	}

	log.Debug().Str("userID", userID).Msg("session restored from storage")
	m.settle(Session{Token: token, UserID: userID, Authenticated: true})
}

// Login decodes and stores the token and transitions to Authenticated.
// On any failure the manager performs a full logout; the caller must not
// assume partial state.
func (m *Manager) Login(token string) error {
	claims, err := DecodeToken(token)
	if err != nil {
		m.Logout()
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID := claims.UserID()
	if userID == "" {
		m.Logout()
		return fmt.Errorf("%w: token carries no user identifier", ErrInvalidToken)
	}

	if err := m.store.SetToken(token); err != nil {
		m.Logout()
		return fmt.Errorf("failed to store session token: %w", err)
	}

	m.mu.Lock()
	m.session = Session{Token: token, UserID: userID, Authenticated: true}
	m.mu.Unlock()

	log.Info().Str("userID", userID).Msg("logged in")

	return nil
}

// Logout clears storage and transitions to Unauthenticated. Idempotent.
func (m *Manager) Logout() {
	m.clearStore()
	m.transitionToUnauthenticated()
}

// Invalidate is the invalidation signal entry point, called by the request
// pipeline when the server denies a request. Observers fire at most once
// per actual Authenticated -> Unauthenticated transition, so repeated
// raises for one denial are harmless.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	wasAuthenticated := m.session.Authenticated
	m.mu.Unlock()

	if wasAuthenticated {
		log.Warn().Msg("session invalidated by server")
	}
	m.Logout()
}

// Subscribe registers an observer invoked after each transition out of the
// authenticated state. Observers are held for the lifetime of the manager.
func (m *Manager) Subscribe(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Session returns a snapshot of the current state.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Authenticated reports whether a valid session is active.
func (m *Manager) Authenticated() bool {
	return m.Session().Authenticated
}

// UserID returns the current user identifier, empty when unauthenticated.
func (m *Manager) UserID() string {
	return m.Session().UserID
}

// settle leaves the initializing state for one of the two steady states.
func (m *Manager) settle(s Session) {
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
}

func (m *Manager) clearStore() {
	if err := m.store.Clear(); err != nil {
		log.Error().Err(err).Msg("failed to clear session storage")
	}
}

// transitionToUnauthenticated resets the session and notifies observers,
// but only when the state actually changes.
func (m *Manager) transitionToUnauthenticated() {
	m.mu.Lock()
	wasAuthenticated := m.session.Authenticated
	m.session = Session{}
	observers := make([]func(), len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	if !wasAuthenticated {
		return
	}

	log.Info().Msg("logged out")

	// Observers run outside the lock so they can call back into the manager.
	for _, fn := range observers {
		fn()
	}
}
