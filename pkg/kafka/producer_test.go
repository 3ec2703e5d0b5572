package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront/pkg/logger"
)

type cartSynced struct {
	CartID    string  `json:"cartId"`
	ItemCount int     `json:"numOfCartItems"`
	Total     float64 `json:"totalCartPrice"`
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "storefront.cart.synced", Topic("cart", "synced"))
	assert.Equal(t, "storefront.order.placed", Topic("order", "placed"))
}

func TestNewEvent_Fields(t *testing.T) {
	event, err := NewEvent("cart.synced", "sid-1", "session", "storefront", cartSynced{CartID: "c1", ItemCount: 2})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "cart.synced", event.EventType)
	assert.Equal(t, "sid-1", event.AggregateID)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now(), event.Timestamp, time.Minute)

	var data cartSynced
	require.NoError(t, event.UnmarshalData(&data))
	assert.Equal(t, "c1", data.CartID)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("x", "a", "b", "c", make(chan int))
	assert.Error(t, err)
}

func TestEvent_Builders(t *testing.T) {
	event, err := NewEvent("order.placed", "sid-1", "session", "storefront", map[string]string{})
	require.NoError(t, err)

	event.WithCorrelationID("req-1").WithSessionID("sid-1").WithMetadata("payment", "cash")

	raw, err := event.Marshal()
	require.NoError(t, err)
	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "req-1", decoded.CorrelationID)
	assert.Equal(t, "sid-1", decoded.SessionID)
	assert.Equal(t, "cash", decoded.Metadata["payment"])
}

func TestUnmarshalEvent_InvalidJSON(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{"))
	assert.Error(t, err)
}

func TestMessage_HeadersAndKey(t *testing.T) {
	event, err := NewEvent("cart.synced", "sid-7", "session", "storefront", cartSynced{})
	require.NoError(t, err)
	event.WithCorrelationID("req-9")

	msg, err := Message(context.Background(), Topic("cart", "synced"), event)
	require.NoError(t, err)

	assert.Equal(t, "storefront.cart.synced", msg.Topic)
	assert.Equal(t, []byte("sid-7"), msg.Key)
	carrier := NewHeaderCarrier(&msg)
	assert.Equal(t, "cart.synced", carrier.Get("event_type"))
	assert.Equal(t, "req-9", carrier.Get("correlation_id"))
}

func TestMessage_InjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	event, err := NewEvent("order.placed", "sid-1", "session", "storefront", nil)
	require.NoError(t, err)
	msg, err := Message(ctx, "t", event)
	require.NoError(t, err)

	assert.Contains(t, NewHeaderCarrier(&msg).Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"localhost:9092"})
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.False(t, cfg.Async)
}

func TestNewProducer_CreatesInstance(t *testing.T) {
	p := NewProducer(DefaultProducerConfig([]string{"localhost:9092"}), logger.Discard())
	require.NotNil(t, p)
	assert.NoError(t, p.Close())
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers configured")
}
