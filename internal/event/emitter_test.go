package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{topic: topic, event: e})
	return nil
}

func TestEmitter_CartSynced(t *testing.T) {
	pub := &recordingPublisher{}
	e := NewEmitter(pub, logger.Discard())

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	ctx = logger.WithSessionID(ctx, "sid-1")
	e.CartSynced(ctx, "add", &domain.Cart{
		ID:         "c1",
		OwnerID:    "u1",
		Items:      []domain.CartItem{{Product: domain.ProductRef{ID: "p1"}, Quantity: 2, LinePrice: 20}},
		TotalPrice: 40,
		ItemCount:  1,
	})

	require.Len(t, pub.sent, 1)
	got := pub.sent[0]
	assert.Equal(t, "storefront.cart.synced", got.topic)
	assert.Equal(t, "c1", got.event.AggregateID)
	assert.Equal(t, "corr-1", got.event.CorrelationID)
	assert.Equal(t, "sid-1", got.event.SessionID)

	var data CartSyncedData
	require.NoError(t, got.event.UnmarshalData(&data))
	assert.Equal(t, "add", data.Action)
	assert.Equal(t, []CartItemData{{ProductID: "p1", Quantity: 2, LinePrice: 20}}, data.Items)
}

func TestEmitter_NilCartIsSkipped(t *testing.T) {
	pub := &recordingPublisher{}
	NewEmitter(pub, logger.Discard()).CartSynced(context.Background(), "fetch", nil)
	assert.Empty(t, pub.sent)
}

func TestEmitter_WishlistKeyFallsBackToSession(t *testing.T) {
	pub := &recordingPublisher{}
	ctx := logger.WithSessionID(context.Background(), "sid-9")
	NewEmitter(pub, logger.Discard()).WishlistSynced(ctx, "toggle", &domain.Wishlist{
		Products: []domain.WishlistProduct{{ID: "p1"}, {ID: "p2"}},
	})

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "sid-9", pub.sent[0].event.AggregateID)

	var data WishlistSyncedData
	require.NoError(t, pub.sent[0].event.UnmarshalData(&data))
	assert.Equal(t, []string{"p1", "p2"}, data.ProductIDs)
}

func TestEmitter_OrderPlacedPrefersOrderTotal(t *testing.T) {
	pub := &recordingPublisher{}
	NewEmitter(pub, logger.Discard()).OrderPlaced(context.Background(), domain.Confirmation{
		PaymentMethod: domain.PaymentCash,
		Cart:          domain.Cart{ID: "c1", TotalPrice: 100},
		Address:       domain.Address{City: "Cairo"},
		Order:         &domain.Order{ID: "o1", TotalPrice: 110},
	})

	require.Len(t, pub.sent, 1)
	var data OrderPlacedData
	require.NoError(t, pub.sent[0].event.UnmarshalData(&data))
	assert.Equal(t, "o1", data.OrderID)
	assert.Equal(t, float64(110), data.TotalPrice)
	assert.Equal(t, "cash", data.PaymentMethod)
}

func TestEmitter_PublishFailureIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	e := NewEmitter(pub, logger.Discard())

	assert.NotPanics(t, func() {
		e.SessionChanged(context.Background(), "u1", true, "sign_in")
	})
}

func TestEmitter_NilPublisher(t *testing.T) {
	e := NewEmitter(nil, logger.Discard())
	assert.NotPanics(t, func() {
		e.SessionChanged(context.Background(), "", false, "sign_out")
	})
}
