package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/upstream"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// Mode is the address step the checkout view shows.
type Mode string

const (
	// ModeForm shows the address creation form.
	ModeForm Mode = "form"
	// ModeSelect shows the saved addresses with one selected.
	ModeSelect Mode = "select"
)

// Session is the part of the session store the flow depends on.
type Session interface {
	Token() string
	Guard(ctx context.Context, token string, err error) error
}

// Upstream is the address and order surface of the upstream API.
type Upstream interface {
	ListAddresses(ctx context.Context, token string) ([]domain.Address, error)
	AddAddress(ctx context.Context, token string, addr domain.Address) (*upstream.AddressResult, error)
	UpdateAddress(ctx context.Context, token string, addr domain.Address) (*upstream.AddressResult, error)
	RemoveAddress(ctx context.Context, token, id string) ([]domain.Address, error)
	CreateCashOrder(ctx context.Context, token, cartID string, addr domain.Address) (*domain.Order, error)
	CreateCheckoutSession(ctx context.Context, token, cartID string, addr domain.Address, returnURL string) (*domain.CheckoutRedirect, error)
}

// Events receives successful submissions.
type Events interface {
	OrderPlaced(ctx context.Context, c domain.Confirmation)
}

// State is the checkout view state.
type State struct {
	Mode       Mode             `json:"mode"`
	Addresses  []domain.Address `json:"addresses"`
	SelectedID string           `json:"selectedId,omitempty"`
	Submitting bool             `json:"submitting"`
}

// Flow drives address selection and order submission for one storefront.
type Flow struct {
	session  Session
	upstream Upstream
	events   Events
	logger   *slog.Logger
	now      func() time.Time

	mu           sync.Mutex
	mode         Mode
	addresses    []domain.Address
	selectedID   string
	submitting   bool
	confirmation *domain.Confirmation
}

// NewFlow creates a Flow in form mode with no addresses.
func NewFlow(session Session, up Upstream, events Events, logger *slog.Logger) *Flow {
	return &Flow{
		session:  session,
		upstream: up,
		events:   events,
		logger:   logger,
		now:      time.Now,
		mode:     ModeForm,
	}
}

func (f *Flow) token() (string, error) {
	token := f.session.Token()
	if token == "" {
		return "", apperrors.SessionRequired()
	}
	return token, nil
}

// Load fetches the saved addresses. With none, or when the load fails, the
// flow shows the form; otherwise the first address is selected. Only an
// ended session is reported as an error.
func (f *Flow) Load(ctx context.Context) (State, error) {
	token, err := f.token()
	if err != nil {
		return f.State(), err
	}

	list, err := f.upstream.ListAddresses(ctx, token)
	if err != nil {
		err = f.session.Guard(ctx, token, err)
		f.mu.Lock()
		f.addresses = nil
		f.selectedID = ""
		f.mode = ModeForm
		f.mu.Unlock()
		if errors.Is(err, apperrors.ErrUnauthorized) {
			return f.State(), err
		}
		f.logger.WarnContext(ctx, "address load failed, showing form",
			slog.String("error", err.Error()),
		)
		return f.State(), nil
	}

	err = f.commit(token, func() {
		f.addresses = list
		f.reselectLocked()
	})
	return f.State(), err
}

// StartNewAddress switches to the creation form.
func (f *Flow) StartNewAddress() State {
	f.mu.Lock()
	f.mode = ModeForm
	f.mu.Unlock()
	return f.State()
}

// SaveAddress creates addr, or updates it when addr.ID is set, then selects
// it and returns to the selection list.
func (f *Flow) SaveAddress(ctx context.Context, addr domain.Address) (State, error) {
	addr.Name = strings.TrimSpace(addr.Name)
	addr.Details = strings.TrimSpace(addr.Details)
	addr.Phone = strings.TrimSpace(addr.Phone)
	addr.City = strings.TrimSpace(addr.City)
	if err := validator.Validate(addr); err != nil {
		return f.State(), err
	}
	token, err := f.token()
	if err != nil {
		return f.State(), err
	}

	var res *upstream.AddressResult
	if addr.ID != "" {
		res, err = f.upstream.UpdateAddress(ctx, token, addr)
	} else {
		res, err = f.upstream.AddAddress(ctx, token, addr)
	}
	if err != nil {
		return f.State(), f.session.Guard(ctx, token, err)
	}

	err = f.commit(token, func() {
		if res.List != nil {
			f.addresses = res.List
		} else {
			f.addresses = upsert(f.addresses, res.Saved)
		}
		f.selectedID = res.Saved.ID
		f.mode = ModeSelect
	})
	return f.State(), err
}

// DeleteAddress removes an address. The remaining list returned by the
// server replaces the local one.
func (f *Flow) DeleteAddress(ctx context.Context, id string) (State, error) {
	if strings.TrimSpace(id) == "" {
		return f.State(), apperrors.InvalidInput("address id is required")
	}
	token, err := f.token()
	if err != nil {
		return f.State(), err
	}

	list, err := f.upstream.RemoveAddress(ctx, token, id)
	if err != nil {
		return f.State(), f.session.Guard(ctx, token, err)
	}

	err = f.commit(token, func() {
		f.addresses = list
		f.reselectLocked()
	})
	return f.State(), err
}

// Select marks a saved address as the shipping address.
func (f *Flow) Select(id string) (State, error) {
	f.mu.Lock()
	if _, ok := findAddress(f.addresses, id); !ok {
		f.mu.Unlock()
		return f.State(), apperrors.NotFound("address", id)
	}
	f.selectedID = id
	f.mode = ModeSelect
	f.mu.Unlock()
	return f.State(), nil
}

// PlaceCashOrder submits a cash-on-delivery order for cart.
func (f *Flow) PlaceCashOrder(ctx context.Context, cart *domain.Cart) (*domain.Confirmation, error) {
	token, addr, err := f.begin(cart)
	if err != nil {
		return nil, err
	}
	defer f.end()

	order, err := f.upstream.CreateCashOrder(ctx, token, cart.ID, addr)
	if err != nil {
		return nil, f.session.Guard(ctx, token, err)
	}

	conf := domain.Confirmation{
		PaymentMethod: domain.PaymentCash,
		Cart:          *cart.Clone(),
		Address:       addr,
		Order:         order,
		SubmittedAt:   f.now().UTC(),
	}
	f.record(ctx, token, conf)
	return &conf, nil
}

// StartOnlinePayment opens a hosted payment session for cart. The browser is
// sent to the returned URL and comes back to returnURL.
func (f *Flow) StartOnlinePayment(ctx context.Context, cart *domain.Cart, returnURL string) (*domain.CheckoutRedirect, error) {
	if strings.TrimSpace(returnURL) == "" {
		return nil, apperrors.InvalidInput("return url is required")
	}
	token, addr, err := f.begin(cart)
	if err != nil {
		return nil, err
	}
	defer f.end()

	redirect, err := f.upstream.CreateCheckoutSession(ctx, token, cart.ID, addr, returnURL)
	if err != nil {
		return nil, f.session.Guard(ctx, token, err)
	}

	f.record(ctx, token, domain.Confirmation{
		PaymentMethod: domain.PaymentCard,
		Cart:          *cart.Clone(),
		Address:       addr,
		RedirectURL:   redirect.URL,
		SubmittedAt:   f.now().UTC(),
	})
	return redirect, nil
}

// begin takes the in-flight flag. Only one submission of either kind may run
// at a time.
func (f *Flow) begin(cart *domain.Cart) (string, domain.Address, error) {
	token, err := f.token()
	if err != nil {
		return "", domain.Address{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return "", domain.Address{}, apperrors.Conflict("an order is already being submitted")
	}
	addr, ok := findAddress(f.addresses, f.selectedID)
	if !ok {
		return "", domain.Address{}, apperrors.InvalidInput("select a shipping address first")
	}
	if cart.Empty() || cart.ID == "" {
		return "", domain.Address{}, apperrors.InvalidInput("cart is empty")
	}
	f.submitting = true
	return token, addr, nil
}

func (f *Flow) end() {
	f.mu.Lock()
	f.submitting = false
	f.mu.Unlock()
}

// record keeps conf for the confirmation page. The order is placed either way;
// it is only kept when the session that placed it is still active.
func (f *Flow) record(ctx context.Context, token string, conf domain.Confirmation) {
	if err := f.commit(token, func() { f.confirmation = &conf }); err != nil {
		f.logger.InfoContext(ctx, "session ended during checkout, confirmation not kept")
	}
	f.events.OrderPlaced(ctx, conf)
	f.logger.InfoContext(ctx, "checkout submitted",
		slog.String("payment_method", string(conf.PaymentMethod)),
		slog.String("cart_id", conf.Cart.ID),
	)
}

// commit applies an answer received for token under the flow lock, unless the
// session has moved on since the request was sent.
func (f *Flow) commit(token string, apply func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session.Token() != token {
		return apperrors.SessionRequired()
	}
	apply()
	return nil
}

// Confirmation returns the last successful submission.
func (f *Flow) Confirmation() (domain.Confirmation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmation == nil {
		return domain.Confirmation{}, false
	}
	return *f.confirmation, true
}

// Reset forgets addresses, selection and confirmation.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = ModeForm
	f.addresses = nil
	f.selectedID = ""
	f.confirmation = nil
}

// State returns the current checkout view state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	addresses := make([]domain.Address, len(f.addresses))
	copy(addresses, f.addresses)
	return State{
		Mode:       f.mode,
		Addresses:  addresses,
		SelectedID: f.selectedID,
		Submitting: f.submitting,
	}
}

// reselectLocked keeps the current selection when it survived, falls back to
// the first address otherwise, and shows the form when the list is empty.
func (f *Flow) reselectLocked() {
	if len(f.addresses) == 0 {
		f.selectedID = ""
		f.mode = ModeForm
		return
	}
	if _, ok := findAddress(f.addresses, f.selectedID); !ok {
		f.selectedID = f.addresses[0].ID
	}
	f.mode = ModeSelect
}

func findAddress(list []domain.Address, id string) (domain.Address, bool) {
	if id == "" {
		return domain.Address{}, false
	}
	for _, a := range list {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Address{}, false
}

func upsert(list []domain.Address, addr domain.Address) []domain.Address {
	out := make([]domain.Address, 0, len(list)+1)
	replaced := false
	for _, a := range list {
		if a.ID == addr.ID {
			out = append(out, addr)
			replaced = true
			continue
		}
		out = append(out, a)
	}
	if !replaced {
		out = append(out, addr)
	}
	return out
}
