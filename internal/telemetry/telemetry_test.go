package telemetry_test

import (
	"context"
	"testing"

	"github.com/babar-raza/tbcv/internal/config"
	"github.com/babar-raza/tbcv/internal/telemetry"
)

func TestInitDisabledReturnsNoopShutdown(t *testing.T) {
	shutdown, err := telemetry.Init(config.TelemetryConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if shutdown == nil {
		t.Fatal("Init() returned a nil shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v, want nil for the disabled no-op", err)
	}
}

func TestInitWithoutEndpointIsANoop(t *testing.T) {
	shutdown, err := telemetry.Init(config.TelemetryConfig{Enabled: true, OTLPEndpoint: ""})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestTracerReturnsNonNilTracer(t *testing.T) {
	tr := telemetry.Tracer("tbcv/test")
	if tr == nil {
		t.Fatal("Tracer() returned nil")
	}
}
