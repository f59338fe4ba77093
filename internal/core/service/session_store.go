package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/resumeforge/tailor-client/internal/core/domain"
	"github.com/resumeforge/tailor-client/internal/core/ports"
)

// Durable storage keys of the two session entries.
const (
	KeyCredential = "token"
	KeyIdentity   = "username"
)

// SessionEvent is published whenever the authentication state changes.
type SessionEvent struct {
	State    domain.AuthState `json:"state"`
	Identity string           `json:"username,omitempty"`
	Seq      uint64           `json:"seq"`
}

func (e SessionEvent) Sequence() uint64 { return e.Seq }

// SessionStore owns the signed-in session. The in-memory copy and the two
// durable entries always agree: both present or both absent.
type SessionStore struct {
	api   ports.AuthAPI
	store ports.KeyValueStore
	log   zerolog.Logger

	mu      sync.RWMutex
	state   domain.AuthState
	session domain.Session

	changes Broadcaster[SessionEvent]
}

var _ ports.CredentialSource = (*SessionStore)(nil)

// NewSessionStore returns a store in the AuthUnknown state. Call Rehydrate
// before any protected call.
func NewSessionStore(api ports.AuthAPI, store ports.KeyValueStore, log zerolog.Logger) *SessionStore {
	return &SessionStore{
		api:   api,
		store: store,
		log:   log.With().Str("component", "session").Logger(),
		state: domain.AuthUnknown,
	}
}

// Rehydrate restores the session persisted by a previous run. Storage holding
// only one of the two entries is cleared.
func (s *SessionStore) Rehydrate(ctx context.Context) error {
	values, err := s.store.Get(ctx, KeyCredential, KeyIdentity)
	if err != nil {
		s.apply(domain.Session{})
		return fmt.Errorf("rehydrate session: %w", err)
	}

	token, identity := values[KeyCredential], values[KeyIdentity]
	switch {
	case token != "" && identity != "":
		s.apply(domain.Session{
			Credential: token,
			Identity:   identity,
			TokenType:  "bearer",
			ExpiresAt:  tokenExpiry(token),
		})
		s.log.Info().Str("username", identity).Msg("session restored")
		return nil
	case token != "" || identity != "":
		s.log.Warn().Msg("partial session in storage, clearing")
		if err := s.store.Delete(ctx, KeyCredential, KeyIdentity); err != nil {
			s.log.Warn().Err(err).Msg("failed to clear partial session")
		}
	}
	s.apply(domain.Session{})
	return nil
}

// Login signs in with the remote service and persists the session.
func (s *SessionStore) Login(ctx context.Context, username, password string) (domain.Session, error) {
	grant, err := s.api.Login(ctx, username, password)
	if err != nil {
		return domain.Session{}, fmt.Errorf("login: %w", err)
	}
	return s.establish(ctx, grant)
}

// Signup creates an account and persists the resulting session.
func (s *SessionStore) Signup(ctx context.Context, username, password string) (domain.Session, error) {
	grant, err := s.api.Signup(ctx, username, password)
	if err != nil {
		return domain.Session{}, fmt.Errorf("signup: %w", err)
	}
	return s.establish(ctx, grant)
}

func (s *SessionStore) establish(ctx context.Context, grant *domain.AuthGrant) (domain.Session, error) {
	session := domain.Session{
		Credential: grant.AccessToken,
		Identity:   grant.Username,
		TokenType:  strings.ToLower(grant.TokenType),
		ExpiresAt:  tokenExpiry(grant.AccessToken),
	}
	if !session.Valid() {
		return domain.Session{}, domain.ErrAuthentication
	}

	err := s.store.Set(ctx, map[string]string{
		KeyCredential: session.Credential,
		KeyIdentity:   session.Identity,
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("persist session: %w", err)
	}

	s.apply(session)
	s.log.Info().Str("username", session.Identity).Msg("signed in")
	return session, nil
}

// Logout clears the in-memory session unconditionally, then the durable
// entries. It is idempotent; the returned error only reports storage trouble.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.apply(domain.Session{})
	if err := s.store.Delete(ctx, KeyCredential, KeyIdentity); err != nil {
		s.log.Warn().Err(err).Msg("failed to clear persisted session")
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Current returns the in-memory session without any I/O.
func (s *SessionStore) Current() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.session.Valid()
}

// Event returns the current authentication state as it was last published.
func (s *SessionStore) Event() SessionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionEvent{State: s.state, Identity: s.session.Identity, Seq: s.changes.Seq()}
}

func (s *SessionStore) State() domain.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *SessionStore) Credential() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Credential, s.session.Valid()
}

// Subscribe registers fn for authentication changes and returns its
// unsubscribe function.
func (s *SessionStore) Subscribe(fn func(SessionEvent)) func() {
	return s.changes.Subscribe(fn)
}

func (s *SessionStore) apply(session domain.Session) {
	s.mu.Lock()
	prev := s.state
	s.session = session
	if session.Valid() {
		s.state = domain.AuthAuthenticated
	} else {
		s.session = domain.Session{}
		s.state = domain.AuthUnauthenticated
	}
	event := SessionEvent{State: s.state, Identity: s.session.Identity, Seq: s.changes.Stamp()}
	s.mu.Unlock()

	if prev != event.State || event.State == domain.AuthAuthenticated {
		s.changes.Publish(event)
	}
}

// tokenExpiry reads the exp claim of a JWT without verifying it. Opaque
// credentials yield the zero time.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.UTC()
}

// IsSessionRejected reports whether err means the remote service no longer
// accepts the current credential.
func IsSessionRejected(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}
