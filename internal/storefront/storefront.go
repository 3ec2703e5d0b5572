package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/checkout"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/internal/upstream"
	"github.com/utafrali/storefront/internal/wishlist"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// Authenticator exchanges credentials for an upstream session token.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*upstream.AuthResult, error)
	SignUp(ctx context.Context, in upstream.SignUpRequest) (*upstream.AuthResult, error)
	ResetPassword(ctx context.Context, email, newPassword string) (string, error)
}

// Upstream is everything a storefront needs from the upstream API.
type Upstream interface {
	Authenticator
	cart.Upstream
	catalog.ProductSource
	checkout.Upstream
	wishlist.Upstream
}

// Credentials is the sign-in form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the sign-up form.
type Registration struct {
	Name       string `json:"name" validate:"required,min=3,max=50"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	RePassword string `json:"rePassword" validate:"required,eqfield=Password"`
	Phone      string `json:"phone" validate:"required,numeric,min=6,max=20"`
}

// PasswordReset is the reset-password form.
type PasswordReset struct {
	Email       string `json:"email" validate:"required,email"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// Storefront is the state of one browser: its session and the cart,
// wishlist, listing and checkout built on top of it.
type Storefront struct {
	sid       string
	returnURL string
	auth      Authenticator
	events    *event.Emitter
	logger    *slog.Logger

	Session  *session.Store
	Cart     *cart.Synchronizer
	Wishlist *wishlist.Synchronizer
	Listing  *catalog.Listing
	Checkout *checkout.Flow

	openMu   sync.Mutex
	opened   bool
	lastSeen atomic.Int64
}

// Open loads the persisted session and, when signed in, the cart and
// wishlist. It runs once per storefront.
func (s *Storefront) Open(ctx context.Context) error {
	s.openMu.Lock()
	defer s.openMu.Unlock()
	if s.opened {
		return nil
	}
	if err := s.Session.Open(ctx); err != nil {
		return fmt.Errorf("open storefront %s: %w", s.sid, err)
	}
	s.opened = true
	if s.Session.LoggedIn() {
		s.loadUserData(ctx)
	}
	return nil
}

// Sync picks up a token changed by another instance since the last request.
// A different token resets every user-owned mirror.
func (s *Storefront) Sync(ctx context.Context) error {
	changed, err := s.Session.Refresh(ctx)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	s.logger.InfoContext(ctx, "session changed elsewhere, reloading",
		slog.Bool("logged_in", s.Session.LoggedIn()),
	)
	s.resetUserData()
	if s.Session.LoggedIn() {
		s.loadUserData(ctx)
	}
	return nil
}

// SID returns the browser session id.
func (s *Storefront) SID() string { return s.sid }

// ReturnURL is where the hosted payment page sends the browser back to.
func (s *Storefront) ReturnURL() string { return s.returnURL }

func (s *Storefront) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

func (s *Storefront) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// SignIn validates the form, exchanges it for a token and loads the user's
// cart and wishlist.
func (s *Storefront) SignIn(ctx context.Context, in Credentials) (domain.Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validator.Validate(in); err != nil {
		return s.Session.Snapshot(), err
	}
	res, err := s.auth.SignIn(ctx, in.Email, in.Password)
	if err != nil {
		return s.Session.Snapshot(), err
	}
	return s.startSession(ctx, res.Token, "sign_in")
}

// SignUp registers an account and signs it in.
func (s *Storefront) SignUp(ctx context.Context, in Registration) (domain.Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validator.Validate(in); err != nil {
		return s.Session.Snapshot(), err
	}
	res, err := s.auth.SignUp(ctx, upstream.SignUpRequest{
		Name:       in.Name,
		Email:      in.Email,
		Password:   in.Password,
		RePassword: in.RePassword,
		Phone:      in.Phone,
	})
	if err != nil {
		return s.Session.Snapshot(), err
	}
	return s.startSession(ctx, res.Token, "sign_up")
}

// ResetPassword sets a new password. The upstream answers with a fresh
// token, which signs the user in.
func (s *Storefront) ResetPassword(ctx context.Context, in PasswordReset) (domain.Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validator.Validate(in); err != nil {
		return s.Session.Snapshot(), err
	}
	token, err := s.auth.ResetPassword(ctx, in.Email, in.NewPassword)
	if err != nil {
		return s.Session.Snapshot(), err
	}
	return s.startSession(ctx, token, "password_reset")
}

// Logout ends the session and clears every user-owned mirror.
func (s *Storefront) Logout(ctx context.Context) error {
	userID := s.Session.Snapshot().UserID
	err := s.Session.Logout(ctx)
	s.resetUserData()
	s.events.SessionChanged(ctx, userID, false, "sign_out")
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *Storefront) startSession(ctx context.Context, token, reason string) (domain.Session, error) {
	if err := s.Session.Login(ctx, token); err != nil {
		return s.Session.Snapshot(), err
	}
	s.resetUserData()
	s.loadUserData(ctx)

	snap := s.Session.Snapshot()
	s.events.SessionChanged(ctx, snap.UserID, true, reason)
	s.logger.InfoContext(ctx, "session started",
		slog.String("reason", reason),
		slog.String("user_id", snap.UserID),
	)
	return snap, nil
}

// loadUserData fetches the cart and wishlist. Failures leave the mirrors nil
// and are only logged.
func (s *Storefront) loadUserData(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := s.Cart.Fetch(ctx); err != nil {
			s.logger.WarnContext(ctx, "initial cart fetch failed", slog.String("error", err.Error()))
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := s.Wishlist.Fetch(ctx); err != nil {
			s.logger.WarnContext(ctx, "initial wishlist fetch failed", slog.String("error", err.Error()))
		}
	}()
	wg.Wait()

	if !s.Session.LoggedIn() {
		s.resetUserData()
	}
}

func (s *Storefront) resetUserData() {
	s.Cart.Reset()
	s.Wishlist.Reset()
	s.Checkout.Reset()
}

// settle resets every user-owned mirror once an upstream 401 has ended the
// session, so no component keeps serving the previous user's data.
func (s *Storefront) settle(ctx context.Context, err error) error {
	if err != nil && errors.Is(err, apperrors.ErrUnauthorized) && !s.Session.LoggedIn() {
		s.resetUserData()
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == "SESSION_EXPIRED" {
			s.events.SessionChanged(ctx, "", false, "expired")
		}
	}
	return err
}
