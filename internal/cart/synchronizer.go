package cart

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Session is the part of the session store the synchronizer depends on.
type Session interface {
	Token() string
	Guard(ctx context.Context, token string, err error) error
}

// Upstream is the cart resource of the upstream API.
type Upstream interface {
	GetCart(ctx context.Context, token string) (*domain.Cart, error)
	AddToCart(ctx context.Context, token, productID string) (*domain.Cart, error)
	UpdateCartItem(ctx context.Context, token, productID string, count int) (*domain.Cart, error)
	RemoveCartItem(ctx context.Context, token, productID string) (*domain.Cart, error)
}

// Events receives a notification after every successful mutation.
type Events interface {
	CartSynced(ctx context.Context, action string, cart *domain.Cart)
}

// Snapshot is the cart mirror as seen by the presentation layer.
type Snapshot struct {
	Cart    *domain.Cart `json:"cart"`
	Loading bool         `json:"loading"`
}

// Synchronizer mirrors the signed-in user's remote cart. Every mutation is a
// full round trip and the local copy is replaced by the server's answer.
// Round trips are serialized, so answers are applied in the order the
// requests were sent.
type Synchronizer struct {
	session  Session
	upstream Upstream
	events   Events
	logger   *slog.Logger

	opMu sync.Mutex

	mu      sync.RWMutex
	cart    *domain.Cart
	loading bool
}

// NewSynchronizer creates a Synchronizer with an empty mirror.
func NewSynchronizer(session Session, upstream Upstream, events Events, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		session:  session,
		upstream: upstream,
		events:   events,
		logger:   logger,
	}
}

// Fetch reloads the cart. Without a session the mirror is cleared and nil is
// returned. A user without a cart yet gets a nil cart. Any other failure also
// leaves the mirror nil and is returned.
func (s *Synchronizer) Fetch(ctx context.Context) (*domain.Cart, error) {
	token := s.session.Token()
	if token == "" {
		s.Reset()
		return nil, nil
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.setLoading(true)
	defer s.setLoading(false)

	cart, err := s.upstream.GetCart(ctx, token)
	if err != nil {
		s.replace(nil)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		s.logger.WarnContext(ctx, "cart fetch failed", slog.String("error", err.Error()))
		return nil, s.session.Guard(ctx, token, err)
	}

	if !s.commit(token, func() { s.cart = cart }) {
		return nil, apperrors.SessionRequired()
	}
	return cart.Clone(), nil
}

// Add adds one unit of productID.
func (s *Synchronizer) Add(ctx context.Context, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, "add", productID, func(token string) (*domain.Cart, error) {
		return s.upstream.AddToCart(ctx, token, productID)
	})
}

// Remove deletes the line holding productID.
func (s *Synchronizer) Remove(ctx context.Context, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, "remove", productID, func(token string) (*domain.Cart, error) {
		return s.upstream.RemoveCartItem(ctx, token, productID)
	})
}

// SetQuantity sets the quantity of productID. A count below 1 is rejected
// without a network call; lines are removed with Remove.
func (s *Synchronizer) SetQuantity(ctx context.Context, productID string, count int) (*domain.Cart, error) {
	if count < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1, use remove to delete the line")
	}
	return s.mutate(ctx, "set_quantity", productID, func(token string) (*domain.Cart, error) {
		return s.upstream.UpdateCartItem(ctx, token, productID, count)
	})
}

func (s *Synchronizer) mutate(ctx context.Context, action, productID string, call func(token string) (*domain.Cart, error)) (*domain.Cart, error) {
	token := s.session.Token()
	if token == "" {
		return nil, apperrors.SessionRequired()
	}
	if strings.TrimSpace(productID) == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.setLoading(true)
	defer s.setLoading(false)

	next, err := call(token)
	if err != nil {
		err = s.session.Guard(ctx, token, err)
		if errors.Is(err, apperrors.ErrUnauthorized) {
			s.replace(nil)
		}
		s.logger.WarnContext(ctx, "cart mutation failed",
			slog.String("action", action),
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	// A logout during the round trip must not resurrect the old user's cart.
	stored := s.commit(token, func() {
		next.FillProductDetails(s.cart)
		s.cart = next
	})
	if !stored {
		return nil, apperrors.SessionRequired()
	}

	s.events.CartSynced(ctx, action, next)
	return next.Clone(), nil
}

// Reset clears the mirror. Called on logout and session expiry.
func (s *Synchronizer) Reset() {
	s.replace(nil)
}

// Cart returns a copy of the mirrored cart.
func (s *Synchronizer) Cart() *domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// Snapshot returns the mirror and whether a round trip is in progress.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Cart: s.cart.Clone(), Loading: s.loading}
}

// commit runs apply under the mirror lock unless the session no longer holds
// token. Logout clears the token before Reset takes the lock, so a cleared
// mirror is never overwritten by an answer for the previous session.
func (s *Synchronizer) commit(token string, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Token() != token {
		return false
	}
	apply()
	return true
}

func (s *Synchronizer) replace(c *domain.Cart) {
	s.mu.Lock()
	s.cart = c
	s.mu.Unlock()
}

func (s *Synchronizer) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
