package wishlist

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/session"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

type mockUpstream struct {
	mock.Mock
}

func listResult(args mock.Arguments) (*domain.Wishlist, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wishlist), args.Error(1)
}

func (m *mockUpstream) GetWishlist(ctx context.Context, token string) (*domain.Wishlist, error) {
	return listResult(m.Called(ctx, token))
}

func (m *mockUpstream) AddToWishlist(ctx context.Context, token, productID string) (*domain.Wishlist, error) {
	return listResult(m.Called(ctx, token, productID))
}

func (m *mockUpstream) RemoveFromWishlist(ctx context.Context, token, productID string) (*domain.Wishlist, error) {
	return listResult(m.Called(ctx, token, productID))
}

type nopEvents struct{ count int }

func (n *nopEvents) WishlistSynced(context.Context, string, *domain.Wishlist) { n.count++ }

func setup(t *testing.T, token string) (*Synchronizer, *mockUpstream, *session.Store, *nopEvents) {
	t.Helper()
	store := session.NewStore("sid-1", session.NewMemoryPersister(), logger.Discard())
	if token != "" {
		require.NoError(t, store.Login(context.Background(), token))
	}
	up := &mockUpstream{}
	ev := &nopEvents{}
	return NewSynchronizer(store, up, ev, logger.Discard()), up, store, ev
}

func ids(products ...string) *domain.Wishlist {
	l := &domain.Wishlist{}
	for _, id := range products {
		l.Products = append(l.Products, domain.WishlistProduct{ID: id})
	}
	return l
}

func TestWishlist_UnauthenticatedAddRejectedLocally(t *testing.T) {
	s, up, _, _ := setup(t, "")

	_, err := s.Add(context.Background(), "p1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = s.Toggle(context.Background(), "p1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Empty(t, up.Calls)
}

func TestWishlist_MutationAnswerIsAuthoritative(t *testing.T) {
	s, up, _, ev := setup(t, "tok")
	full := &domain.Wishlist{Products: []domain.WishlistProduct{{ID: "p1", Title: "Shirt", Price: 10}}}
	up.On("GetWishlist", mock.Anything, "tok").Return(full, nil).Once()
	up.On("AddToWishlist", mock.Anything, "tok", "p2").Return(ids("p1", "p2"), nil)

	_, err := s.Fetch(context.Background())
	require.NoError(t, err)
	got, err := s.Add(context.Background(), "p2")
	require.NoError(t, err)

	require.Len(t, got.Products, 2)
	assert.Equal(t, "Shirt", got.Products[0].Title)
	assert.Equal(t, "p2", got.Products[1].ID)
	assert.True(t, s.Contains("p2"))
	assert.Equal(t, 1, ev.count)
	up.AssertNumberOfCalls(t, "GetWishlist", 1)
}

func TestWishlist_AddExistingAndRemoveAbsent(t *testing.T) {
	s, up, _, _ := setup(t, "tok")
	up.On("AddToWishlist", mock.Anything, "tok", "p1").Return(ids("p1"), nil)
	up.On("RemoveFromWishlist", mock.Anything, "tok", "p9").Return(ids("p1"), nil)

	for i := 0; i < 2; i++ {
		got, err := s.Add(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, ids("p1"), got)
	}

	got, err := s.Remove(context.Background(), "p9")
	require.NoError(t, err)
	assert.Equal(t, ids("p1"), got)
	assert.Equal(t, ids("p1"), s.Wishlist())
}

func TestWishlist_Toggle(t *testing.T) {
	s, up, _, _ := setup(t, "tok")
	up.On("AddToWishlist", mock.Anything, "tok", "p1").Return(ids("p1"), nil)
	up.On("RemoveFromWishlist", mock.Anything, "tok", "p1").Return(ids(), nil)

	got, err := s.Toggle(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, got.Contains("p1"))

	got, err = s.Toggle(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, got.Contains("p1"))
	up.AssertExpectations(t)
}

func TestWishlist_FetchFailureSetsNil(t *testing.T) {
	s, up, _, _ := setup(t, "tok")
	up.On("GetWishlist", mock.Anything, "tok").Return(ids("p1"), nil).Once()
	up.On("GetWishlist", mock.Anything, "tok").Return(nil, apperrors.ServiceUnavailable("down")).Once()

	_, err := s.Fetch(context.Background())
	require.NoError(t, err)
	_, err = s.Fetch(context.Background())
	assert.Error(t, err)
	assert.Nil(t, s.Wishlist())
}

func TestWishlist_UnauthorizedEndsSession(t *testing.T) {
	s, up, store, _ := setup(t, "tok")
	up.On("GetWishlist", mock.Anything, "tok").Return(nil, apperrors.Unauthorized("expired"))

	_, err := s.Fetch(context.Background())
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SESSION_EXPIRED", appErr.Code)
	assert.False(t, store.LoggedIn())
}

func TestWishlist_Reset(t *testing.T) {
	s, up, _, _ := setup(t, "tok")
	up.On("GetWishlist", mock.Anything, "tok").Return(ids("p1"), nil)
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	s.Reset()
	assert.Nil(t, s.Snapshot().Wishlist)
	assert.False(t, s.Contains("p1"))
}

// serverWishlist keeps the saved set like the upstream does and answers with
// bare ids after a short delay.
type serverWishlist struct {
	mu    sync.Mutex
	saved map[string]bool
	delay time.Duration
}

func (w *serverWishlist) answer() *domain.Wishlist {
	keys := make([]string, 0, len(w.saved))
	for id := range w.saved {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return ids(keys...)
}

func (w *serverWishlist) GetWishlist(context.Context, string) (*domain.Wishlist, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.answer(), nil
}

func (w *serverWishlist) AddToWishlist(_ context.Context, _, productID string) (*domain.Wishlist, error) {
	time.Sleep(w.delay)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.saved[productID] = true
	return w.answer(), nil
}

func (w *serverWishlist) RemoveFromWishlist(_ context.Context, _, productID string) (*domain.Wishlist, error) {
	time.Sleep(w.delay)
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.saved, productID)
	return w.answer(), nil
}

func TestWishlist_ConcurrentTogglesAlternate(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore("sid-1", session.NewMemoryPersister(), logger.Discard())
	require.NoError(t, store.Login(ctx, "tok"))
	server := &serverWishlist{saved: map[string]bool{}, delay: 20 * time.Millisecond}
	s := NewSynchronizer(store, server, &nopEvents{}, logger.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Toggle(ctx, "p1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, server.saved["p1"])
	assert.False(t, s.Contains("p1"))
}

// logoutOnCheck signs out the first time the token is read once armed, and
// runs the mirror reset concurrently the way Storefront.Logout does.
type logoutOnCheck struct {
	*session.Store
	armed atomic.Bool
	reset func()
	done  chan struct{}
}

func (l *logoutOnCheck) Token() string {
	tok := l.Store.Token()
	if !l.armed.CompareAndSwap(true, false) {
		return tok
	}
	_ = l.Store.Logout(context.Background())
	go func() {
		l.reset()
		close(l.done)
	}()
	select {
	case <-l.done:
	case <-time.After(50 * time.Millisecond):
	}
	return tok
}

func TestWishlist_LogoutRacingCommitLeavesMirrorEmpty(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore("sid-1", session.NewMemoryPersister(), logger.Discard())
	require.NoError(t, store.Login(ctx, "tok"))

	sess := &logoutOnCheck{Store: store, done: make(chan struct{})}
	up := &mockUpstream{}
	s := NewSynchronizer(sess, up, &nopEvents{}, logger.Discard())
	sess.reset = s.Reset

	up.On("AddToWishlist", mock.Anything, "tok", "p1").
		Run(func(mock.Arguments) { sess.armed.Store(true) }).
		Return(ids("p1"), nil)

	_, _ = s.Add(ctx, "p1")
	<-sess.done

	assert.Empty(t, store.Token())
	assert.Nil(t, s.Wishlist())
}
