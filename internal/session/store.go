package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// TokenKey is the persisted name of the upstream session token.
const TokenKey = "token"

// Store holds the authentication state of one browser session. Token presence
// is treated as validity until the upstream rejects it.
type Store struct {
	sid       string
	persister Persister
	logger    *slog.Logger

	mu    sync.RWMutex
	state domain.Session
}

// NewStore creates a logged-out store for the browser session sid.
func NewStore(sid string, persister Persister, logger *slog.Logger) *Store {
	return &Store{sid: sid, persister: persister, logger: logger}
}

// SID returns the browser session id.
func (s *Store) SID() string { return s.sid }

// Open loads a previously persisted token.
func (s *Store) Open(ctx context.Context) error {
	_, err := s.Refresh(ctx)
	return err
}

// Refresh re-reads the persisted token and reports whether it differs from
// the one held in memory. A token written by another instance is picked up
// here.
func (s *Store) Refresh(ctx context.Context) (bool, error) {
	token, err := s.persister.Load(ctx, s.sid, TokenKey)
	if err != nil {
		return false, fmt.Errorf("load session token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token == s.state.Token {
		return false, nil
	}
	s.state = s.sessionFor(token)
	return true, nil
}

// Login persists token and activates the session.
func (s *Store) Login(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.InvalidInput("empty session token")
	}
	if err := s.persister.Save(ctx, s.sid, TokenKey, token); err != nil {
		return fmt.Errorf("persist session token: %w", err)
	}

	s.mu.Lock()
	s.state = s.sessionFor(token)
	s.mu.Unlock()
	return nil
}

// Logout clears the persisted token and deactivates the session. The
// in-memory state is cleared even when the persister fails.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.state = domain.Session{}
	s.mu.Unlock()

	if err := s.persister.Delete(ctx, s.sid, TokenKey); err != nil {
		return fmt.Errorf("delete session token: %w", err)
	}
	return nil
}

// Guard inspects err returned by an upstream call made with token. An upstream
// 401 for the active token ends the session and is reported as
// SESSION_EXPIRED. A 401 for a token a newer sign-in already replaced leaves
// the session alone and is reported as SESSION_CHANGED. Any other error is
// returned unchanged.
func (s *Store) Guard(ctx context.Context, token string, err error) error {
	if err == nil || !errors.Is(err, apperrors.ErrUnauthorized) {
		return err
	}

	s.mu.Lock()
	current := s.state.Token
	if current == token {
		s.state = domain.Session{}
	}
	s.mu.Unlock()

	switch {
	case current == token && token != "":
		s.logger.InfoContext(ctx, "upstream rejected session token, session ended")
		if delErr := s.persister.Delete(ctx, s.sid, TokenKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete expired token",
				slog.String("error", delErr.Error()),
			)
		}
	case current != "" && current != token:
		s.logger.DebugContext(ctx, "upstream rejected a replaced session token")
		return apperrors.SessionChanged()
	}
	return apperrors.SessionExpired()
}

// Token returns the active token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// LoggedIn reports whether a token is held.
func (s *Store) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LoggedIn
}

// Snapshot returns a copy of the current session state.
func (s *Store) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) sessionFor(token string) domain.Session {
	if token == "" {
		return domain.Session{}
	}
	sess := domain.Session{Token: token, LoggedIn: true}
	claims, err := ParseClaims(token)
	if err != nil {
		s.logger.Debug("session token carries no readable claims",
			slog.String("sid", s.sid),
			slog.String("error", err.Error()),
		)
		return sess
	}
	sess.UserID = claims.ID
	sess.UserName = claims.Name
	return sess
}
