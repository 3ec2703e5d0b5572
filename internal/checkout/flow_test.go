package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/internal/upstream"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

// --- Mock Upstream ---

type mockUpstream struct {
	mock.Mock
}

func (m *mockUpstream) ListAddresses(ctx context.Context, token string) ([]domain.Address, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Address), args.Error(1)
}

func (m *mockUpstream) AddAddress(ctx context.Context, token string, addr domain.Address) (*upstream.AddressResult, error) {
	args := m.Called(ctx, token, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upstream.AddressResult), args.Error(1)
}

func (m *mockUpstream) UpdateAddress(ctx context.Context, token string, addr domain.Address) (*upstream.AddressResult, error) {
	args := m.Called(ctx, token, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upstream.AddressResult), args.Error(1)
}

func (m *mockUpstream) RemoveAddress(ctx context.Context, token, id string) ([]domain.Address, error) {
	args := m.Called(ctx, token, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Address), args.Error(1)
}

func (m *mockUpstream) CreateCashOrder(ctx context.Context, token, cartID string, addr domain.Address) (*domain.Order, error) {
	args := m.Called(ctx, token, cartID, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockUpstream) CreateCheckoutSession(ctx context.Context, token, cartID string, addr domain.Address, returnURL string) (*domain.CheckoutRedirect, error) {
	args := m.Called(ctx, token, cartID, addr, returnURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutRedirect), args.Error(1)
}

type recordedOrders struct {
	mu    sync.Mutex
	confs []domain.Confirmation
}

func (r *recordedOrders) OrderPlaced(_ context.Context, c domain.Confirmation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confs = append(r.confs, c)
}

var (
	home = domain.Address{ID: "a1", Name: "Home", Details: "1 Main St", Phone: "01000000000", City: "Cairo"}
	work = domain.Address{ID: "a2", Name: "Work", Details: "2 Side St", Phone: "01000000001", City: "Giza"}
	cart = &domain.Cart{ID: "c1", Items: []domain.CartItem{{Product: domain.ProductRef{ID: "p1"}, Quantity: 1, LinePrice: 10}}, TotalPrice: 10}
)

func newFlow(t *testing.T) (*Flow, *mockUpstream, *recordedOrders, *session.Store) {
	t.Helper()
	store := session.NewStore("sid-1", session.NewMemoryPersister(), logger.Discard())
	require.NoError(t, store.Login(context.Background(), "tok"))
	up := &mockUpstream{}
	ev := &recordedOrders{}
	f := NewFlow(store, up, ev, logger.Discard())
	f.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return f, up, ev, store
}

func loaded(t *testing.T, addresses ...domain.Address) (*Flow, *mockUpstream, *recordedOrders, *session.Store) {
	t.Helper()
	f, up, ev, store := newFlow(t)
	up.On("ListAddresses", mock.Anything, "tok").Return(addresses, nil).Once()
	_, err := f.Load(context.Background())
	require.NoError(t, err)
	return f, up, ev, store
}

func TestLoad_NoAddressesShowsForm(t *testing.T) {
	f, _, _, _ := loaded(t)
	st := f.State()
	assert.Equal(t, ModeForm, st.Mode)
	assert.Empty(t, st.SelectedID)
}

func TestLoad_SelectsFirst(t *testing.T) {
	f, _, _, _ := loaded(t, home, work)
	st := f.State()
	assert.Equal(t, ModeSelect, st.Mode)
	assert.Equal(t, "a1", st.SelectedID)
	assert.Len(t, st.Addresses, 2)
}

func TestLoad_FailureShowsForm(t *testing.T) {
	f, up, _, _ := newFlow(t)
	up.On("ListAddresses", mock.Anything, "tok").Return(nil, apperrors.ServiceUnavailable("down"))

	st, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeForm, st.Mode)
}

func TestLoad_UnauthorizedEndsSession(t *testing.T) {
	f, up, _, store := newFlow(t)
	up.On("ListAddresses", mock.Anything, "tok").Return(nil, apperrors.Unauthorized("expired"))

	_, err := f.Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.False(t, store.LoggedIn())
}

func TestLoad_RequiresSession(t *testing.T) {
	store := session.NewStore("sid-1", session.NewMemoryPersister(), logger.Discard())
	up := &mockUpstream{}
	f := NewFlow(store, up, &recordedOrders{}, logger.Discard())

	_, err := f.Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Empty(t, up.Calls)
}

func TestStartNewAddressThenSave(t *testing.T) {
	f, up, _, _ := loaded(t, home)
	assert.Equal(t, ModeForm, f.StartNewAddress().Mode)

	input := domain.Address{Name: " Work ", Details: "2 Side St", Phone: "01000000001", City: "Giza"}
	trimmed := input
	trimmed.Name = "Work"
	up.On("AddAddress", mock.Anything, "tok", trimmed).
		Return(&upstream.AddressResult{Saved: work, List: []domain.Address{home, work}}, nil)

	st, err := f.SaveAddress(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, ModeSelect, st.Mode)
	assert.Equal(t, "a2", st.SelectedID)
	assert.Equal(t, []domain.Address{home, work}, st.Addresses)
}

func TestSaveAddress_EditMergesSingleObject(t *testing.T) {
	f, up, _, _ := loaded(t, home, work)
	edited := home
	edited.Details = "9 New St"
	up.On("UpdateAddress", mock.Anything, "tok", edited).Return(&upstream.AddressResult{Saved: edited}, nil)

	st, err := f.SaveAddress(context.Background(), edited)
	require.NoError(t, err)
	assert.Equal(t, []domain.Address{edited, work}, st.Addresses)
	assert.Equal(t, "a1", st.SelectedID)
}

func TestSaveAddress_Validation(t *testing.T) {
	f, up, _, _ := loaded(t)

	_, err := f.SaveAddress(context.Background(), domain.Address{Name: "Home", Phone: "abc"})
	var valErr *validator.ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "details")
	assert.Contains(t, fields, "city")
	assert.Contains(t, fields, "phone")
	up.AssertNotCalled(t, "AddAddress", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteAddress(t *testing.T) {
	f, up, _, _ := loaded(t, home, work)
	up.On("RemoveAddress", mock.Anything, "tok", "a1").Return([]domain.Address{work}, nil)
	up.On("RemoveAddress", mock.Anything, "tok", "a2").Return([]domain.Address{}, nil)

	st, err := f.DeleteAddress(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "a2", st.SelectedID)
	assert.Equal(t, ModeSelect, st.Mode)

	st, err = f.DeleteAddress(context.Background(), "a2")
	require.NoError(t, err)
	assert.Equal(t, ModeForm, st.Mode)
	assert.Empty(t, st.SelectedID)
}

func TestSelect(t *testing.T) {
	f, _, _, _ := loaded(t, home, work)

	st, err := f.Select("a2")
	require.NoError(t, err)
	assert.Equal(t, "a2", st.SelectedID)

	_, err = f.Select("a9")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, "a2", f.State().SelectedID)
}

func TestPlaceCashOrder(t *testing.T) {
	f, up, ev, _ := loaded(t, home)
	order := &domain.Order{ID: "o1", CartID: "c1", PaymentMethod: domain.PaymentCash, TotalPrice: 10}
	up.On("CreateCashOrder", mock.Anything, "tok", "c1", home).Return(order, nil)

	conf, err := f.PlaceCashOrder(context.Background(), cart)
	require.NoError(t, err)
	assert.Equal(t, order, conf.Order)
	assert.Equal(t, home, conf.Address)
	assert.Equal(t, "c1", conf.Cart.ID)
	assert.False(t, f.State().Submitting)

	stored, ok := f.Confirmation()
	require.True(t, ok)
	assert.Equal(t, *conf, stored)
	assert.Len(t, ev.confs, 1)
}

func TestPlaceOrder_Preconditions(t *testing.T) {
	f, up, _, _ := loaded(t)

	_, err := f.PlaceCashOrder(context.Background(), cart)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "no address selected")

	f, up, _, _ = loaded(t, home)
	_, err = f.PlaceCashOrder(context.Background(), &domain.Cart{ID: "c1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "empty cart")
	_, err = f.PlaceCashOrder(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "nil cart")

	_, err = f.StartOnlinePayment(context.Background(), cart, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "missing return url")
	up.AssertNotCalled(t, "CreateCashOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmission_InFlightGuard(t *testing.T) {
	f, up, ev, _ := loaded(t, home)
	release := make(chan time.Time)
	up.On("CreateCashOrder", mock.Anything, "tok", "c1", home).WaitUntil(release).
		Return(&domain.Order{ID: "o1"}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := f.PlaceCashOrder(context.Background(), cart)
		done <- err
	}()
	require.Eventually(t, func() bool { return f.State().Submitting }, time.Second, time.Millisecond)

	_, err := f.StartOnlinePayment(context.Background(), cart, "http://localhost:3000/done")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	_, err = f.PlaceCashOrder(context.Background(), cart)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, f.State().Submitting)
	assert.Len(t, ev.confs, 1)
	up.AssertNumberOfCalls(t, "CreateCashOrder", 1)
}

func TestStartOnlinePayment(t *testing.T) {
	f, up, _, _ := loaded(t, home)
	up.On("CreateCheckoutSession", mock.Anything, "tok", "c1", home, "http://localhost:3000/done").
		Return(&domain.CheckoutRedirect{URL: "https://pay.example.com/s/1"}, nil)

	redirect, err := f.StartOnlinePayment(context.Background(), cart, "http://localhost:3000/done")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/s/1", redirect.URL)

	conf, ok := f.Confirmation()
	require.True(t, ok)
	assert.Equal(t, domain.PaymentCard, conf.PaymentMethod)
	assert.Equal(t, redirect.URL, conf.RedirectURL)
}

func TestSubmissionFailureReleasesFlag(t *testing.T) {
	f, up, _, _ := loaded(t, home)
	up.On("CreateCashOrder", mock.Anything, "tok", "c1", home).Return(nil, apperrors.InvalidInput("cart changed")).Once()
	up.On("CreateCashOrder", mock.Anything, "tok", "c1", home).Return(&domain.Order{ID: "o2"}, nil).Once()

	_, err := f.PlaceCashOrder(context.Background(), cart)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, ok := f.Confirmation()
	assert.False(t, ok)

	conf, err := f.PlaceCashOrder(context.Background(), cart)
	require.NoError(t, err)
	assert.Equal(t, "o2", conf.Order.ID)
}

func TestReset(t *testing.T) {
	f, _, _, _ := loaded(t, home)
	f.Reset()
	st := f.State()
	assert.Equal(t, ModeForm, st.Mode)
	assert.Empty(t, st.Addresses)
	_, ok := f.Confirmation()
	assert.False(t, ok)
}

func TestLoad_LogoutDuringRoundTripDropsAnswer(t *testing.T) {
	f, up, _, store := newFlow(t)
	started := make(chan struct{})
	release := make(chan struct{})
	up.On("ListAddresses", mock.Anything, "tok").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]domain.Address{home}, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := f.Load(context.Background())
		errc <- err
	}()
	<-started

	require.NoError(t, store.Logout(context.Background()))
	f.Reset()
	close(release)

	assert.ErrorIs(t, <-errc, apperrors.ErrUnauthorized)
	st := f.State()
	assert.Empty(t, st.Addresses)
	assert.Empty(t, st.SelectedID)
}
