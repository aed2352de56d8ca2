package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupTracing_None(t *testing.T) {
	prev := otel.GetTracerProvider()
	shutdown, err := SetupTracing(context.Background(), "none", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if otel.GetTracerProvider() != prev {
		t.Errorf("none must not replace the global provider")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetupTracing_Stdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := SetupTracing(context.Background(), "stdout", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "op")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetupTracing_Unknown(t *testing.T) {
	if _, err := SetupTracing(context.Background(), "zipkin", "test"); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}
