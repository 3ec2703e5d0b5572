package tracing

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), DefaultConfig("storefront"))
	if err != nil {
		t.Fatalf("InitTracer(disabled) returned error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown(disabled) returned error: %v", err)
	}
}

func TestInitTracer_Enabled(t *testing.T) {
	cfg := DefaultConfig("storefront")
	cfg.Enabled = true
	cfg.OTLPEndpoint = "127.0.0.1:0"

	shutdown, err := InitTracer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("InitTracer(enabled) returned error: %v", err)
	}

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Errorf("expected *sdktrace.TracerProvider, got %T", otel.GetTracerProvider())
	}

	if err := shutdown(context.Background()); err != nil {
		t.Logf("shutdown returned (unreachable endpoint): %v", err)
	}
}

func TestSampler(t *testing.T) {
	cases := map[float64]string{
		1.0:  "AlwaysOnSampler",
		2.0:  "AlwaysOnSampler",
		0.0:  "AlwaysOffSampler",
		-1:   "AlwaysOffSampler",
		0.25: "TraceIDRatioBased{0.25}",
	}
	for rate, want := range cases {
		desc := Sampler(rate).Description()
		if !strings.HasPrefix(desc, "ParentBased{root:"+want) {
			t.Errorf("Sampler(%v) = %q, want root %q", rate, desc, want)
		}
	}
}

func TestTracer(t *testing.T) {
	if Tracer("storefront") == nil {
		t.Fatal("Tracer returned nil")
	}
}
