package wishlist

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

// Upstream is the wishlist resource of the upstream API.
type Upstream interface {
	GetWishlist(ctx context.Context, token string) (*domain.Wishlist, error)
	AddToWishlist(ctx context.Context, token, productID string) (*domain.Wishlist, error)
	RemoveFromWishlist(ctx context.Context, token, productID string) (*domain.Wishlist, error)
}

// Events receives a notification after every successful mutation.
type Events interface {
	WishlistSynced(ctx context.Context, action string, list *domain.Wishlist)
}

// Snapshot is the wishlist mirror as seen by the presentation layer.
type Snapshot struct {
	Wishlist *domain.Wishlist `json:"wishlist"`
	Loading  bool             `json:"loading"`
}

// Synchronizer mirrors the signed-in user's wishlist. The answer to a
// mutation is the new state; no follow-up fetch is made.
type Synchronizer struct {
	session  Session
	upstream Upstream
	events   Events
	logger   *slog.Logger

	opMu sync.Mutex

	mu      sync.RWMutex
	list    *domain.Wishlist
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

// Fetch reloads the wishlist. Without a session the mirror is cleared and nil
// is returned. A failed fetch leaves the mirror nil.
func (s *Synchronizer) Fetch(ctx context.Context) (*domain.Wishlist, error) {
	token := s.session.Token()
	if token == "" {
		s.Reset()
		return nil, nil
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.setLoading(true)
	defer s.setLoading(false)

	list, err := s.upstream.GetWishlist(ctx, token)
	if err != nil {
		s.replace(nil)
		s.logger.WarnContext(ctx, "wishlist fetch failed", slog.String("error", err.Error()))
		return nil, s.session.Guard(ctx, token, err)
	}
	if !s.commit(token, func() { s.list = list }) {
		return nil, apperrors.SessionRequired()
	}
	return list.Clone(), nil
}

// Add saves productID. Adding a product already on the list is passed to the
// server and its answer is mirrored.
func (s *Synchronizer) Add(ctx context.Context, productID string) (*domain.Wishlist, error) {
	return s.mutate(ctx, "add", productID, func(token string) (*domain.Wishlist, error) {
		return s.upstream.AddToWishlist(ctx, token, productID)
	})
}

// Remove drops productID. Removing an absent product is passed to the server
// and its answer is mirrored.
func (s *Synchronizer) Remove(ctx context.Context, productID string) (*domain.Wishlist, error) {
	return s.mutate(ctx, "remove", productID, func(token string) (*domain.Wishlist, error) {
		return s.upstream.RemoveFromWishlist(ctx, token, productID)
	})
}

// Toggle removes productID when the mirror holds it and adds it otherwise.
// The decision is made under the operation lock.
func (s *Synchronizer) Toggle(ctx context.Context, productID string) (*domain.Wishlist, error) {
	token, err := s.precheck(productID)
	if err != nil {
		return nil, err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.Contains(productID) {
		return s.mutateLocked(ctx, token, "remove", productID, func(token string) (*domain.Wishlist, error) {
			return s.upstream.RemoveFromWishlist(ctx, token, productID)
		})
	}
	return s.mutateLocked(ctx, token, "add", productID, func(token string) (*domain.Wishlist, error) {
		return s.upstream.AddToWishlist(ctx, token, productID)
	})
}

// Contains reports whether the mirror holds productID.
func (s *Synchronizer) Contains(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list.Contains(productID)
}

func (s *Synchronizer) precheck(productID string) (string, error) {
	token := s.session.Token()
	if token == "" {
		return "", apperrors.SessionRequired()
	}
	if strings.TrimSpace(productID) == "" {
		return "", apperrors.InvalidInput("product id is required")
	}
	return token, nil
}

func (s *Synchronizer) mutate(ctx context.Context, action, productID string, call func(token string) (*domain.Wishlist, error)) (*domain.Wishlist, error) {
	token, err := s.precheck(productID)
	if err != nil {
		return nil, err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.mutateLocked(ctx, token, action, productID, call)
}

// mutateLocked performs one round trip. The caller holds opMu.
func (s *Synchronizer) mutateLocked(ctx context.Context, token, action, productID string, call func(token string) (*domain.Wishlist, error)) (*domain.Wishlist, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	next, err := call(token)
	if err != nil {
		err = s.session.Guard(ctx, token, err)
		if errors.Is(err, apperrors.ErrUnauthorized) {
			s.replace(nil)
		}
		s.logger.WarnContext(ctx, "wishlist mutation failed",
			slog.String("action", action),
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	stored := s.commit(token, func() {
		next.FillProductDetails(s.list)
		s.list = next
	})
	if !stored {
		return nil, apperrors.SessionRequired()
	}

	s.events.WishlistSynced(ctx, action, next)
	return next.Clone(), nil
}

// Reset clears the mirror.
func (s *Synchronizer) Reset() {
	s.replace(nil)
}

// Wishlist returns a copy of the mirrored wishlist.
func (s *Synchronizer) Wishlist() *domain.Wishlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list.Clone()
}

// Snapshot returns the mirror and whether a round trip is in progress.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Wishlist: s.list.Clone(), Loading: s.loading}
}

// commit runs apply under the mirror lock unless the session no longer holds
// token, so an answer for a signed-out session never refills a reset mirror.
func (s *Synchronizer) commit(token string, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Token() != token {
		return false
	}
	apply()
	return true
}

func (s *Synchronizer) replace(l *domain.Wishlist) {
	s.mu.Lock()
	s.list = l
	s.mu.Unlock()
}

func (s *Synchronizer) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
