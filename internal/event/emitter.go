package event

import (
	"context"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topics for storefront activity.
var (
	TopicCartSynced     = pkgkafka.Topic("cart", "synced")
	TopicWishlistSynced = pkgkafka.Topic("wishlist", "synced")
	TopicOrderPlaced    = pkgkafka.Topic("order", "placed")
	TopicSessionChanged = pkgkafka.Topic("session", "changed")
)

// Aggregate types.
const (
	AggregateTypeCart     = "cart"
	AggregateTypeWishlist = "wishlist"
	AggregateTypeOrder    = "order"
	AggregateTypeSession  = "session"
)

// SourceStorefront identifies events originating from the BFF.
const SourceStorefront = "storefront-bff"

// CartSyncedData is the payload for a cart.synced event.
type CartSyncedData struct {
	Action     string         `json:"action"`
	CartID     string         `json:"cart_id"`
	UserID     string         `json:"user_id,omitempty"`
	Items      []CartItemData `json:"items"`
	ItemCount  int            `json:"item_count"`
	TotalPrice float64        `json:"total_price"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	LinePrice float64 `json:"line_price"`
}

// WishlistSyncedData is the payload for a wishlist.synced event.
type WishlistSyncedData struct {
	Action     string   `json:"action"`
	UserID     string   `json:"user_id,omitempty"`
	ProductIDs []string `json:"product_ids"`
}

// OrderPlacedData is the payload for an order.placed event.
type OrderPlacedData struct {
	OrderID       string  `json:"order_id,omitempty"`
	CartID        string  `json:"cart_id"`
	UserID        string  `json:"user_id,omitempty"`
	PaymentMethod string  `json:"payment_method"`
	TotalPrice    float64 `json:"total_price"`
	City          string  `json:"city"`
}

// SessionChangedData is the payload for a session.changed event.
type SessionChangedData struct {
	UserID   string `json:"user_id,omitempty"`
	SignedIn bool   `json:"signed_in"`
	Reason   string `json:"reason"`
}

// Publisher sends one event to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// NopPublisher drops every event. Used when event publishing is disabled.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// Emitter publishes storefront activity events. Publishing is best-effort:
// failures are logged and never reach the caller.
type Emitter struct {
	pub    Publisher
	logger *slog.Logger
}

// NewEmitter creates an Emitter. A nil pub disables publishing.
func NewEmitter(pub Publisher, logger *slog.Logger) *Emitter {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Emitter{pub: pub, logger: logger}
}

func (e *Emitter) emit(ctx context.Context, topic, aggregateID, aggregateType string, data any) {
	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		e.logger.ErrorContext(ctx, "build event failed",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
		return
	}
	evt.WithCorrelationID(logger.CorrelationIDFromContext(ctx)).
		WithSessionID(logger.SessionIDFromContext(ctx))

	if err := e.pub.Publish(ctx, topic, evt); err != nil {
		e.logger.WarnContext(ctx, "event dropped",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
	}
}

// CartSynced records that the cart mirror was replaced after action.
func (e *Emitter) CartSynced(ctx context.Context, action string, cart *domain.Cart) {
	if cart == nil {
		return
	}
	items := make([]CartItemData, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = CartItemData{ProductID: item.Product.ID, Quantity: item.Quantity, LinePrice: item.LinePrice}
	}
	e.emit(ctx, TopicCartSynced, cart.ID, AggregateTypeCart, CartSyncedData{
		Action:     action,
		CartID:     cart.ID,
		UserID:     cart.OwnerID,
		Items:      items,
		ItemCount:  cart.ItemCount,
		TotalPrice: cart.TotalPrice,
	})
}

// WishlistSynced records that the wishlist mirror was replaced after action.
func (e *Emitter) WishlistSynced(ctx context.Context, action string, list *domain.Wishlist) {
	if list == nil {
		return
	}
	ids := make([]string, len(list.Products))
	for i, p := range list.Products {
		ids[i] = p.ID
	}
	userID := logger.UserIDFromContext(ctx)
	e.emit(ctx, TopicWishlistSynced, aggregateKey(ctx, userID), AggregateTypeWishlist, WishlistSyncedData{
		Action:     action,
		UserID:     userID,
		ProductIDs: ids,
	})
}

// OrderPlaced records a successful checkout submission.
func (e *Emitter) OrderPlaced(ctx context.Context, c domain.Confirmation) {
	data := OrderPlacedData{
		CartID:        c.Cart.ID,
		UserID:        c.Cart.OwnerID,
		PaymentMethod: string(c.PaymentMethod),
		TotalPrice:    c.Cart.TotalPrice,
		City:          c.Address.City,
	}
	if c.Order != nil {
		data.OrderID = c.Order.ID
		data.TotalPrice = c.Order.TotalPrice
	}
	e.emit(ctx, TopicOrderPlaced, c.Cart.ID, AggregateTypeOrder, data)
}

// SessionChanged records a sign-in, sign-out or expiry.
func (e *Emitter) SessionChanged(ctx context.Context, userID string, signedIn bool, reason string) {
	e.emit(ctx, TopicSessionChanged, aggregateKey(ctx, userID), AggregateTypeSession, SessionChangedData{
		UserID:   userID,
		SignedIn: signedIn,
		Reason:   reason,
	})
}

// aggregateKey prefers the user id and falls back to the browser session id.
func aggregateKey(ctx context.Context, userID string) string {
	if userID != "" {
		return userID
	}
	return logger.SessionIDFromContext(ctx)
}
