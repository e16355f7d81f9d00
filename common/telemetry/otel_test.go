// common/telemetry/otel_test.go
package telemetry

import (
	"context"
	"testing"

	"github.com/YaganovValera/storefront-auth/common/logger"
)

func TestApplyDefaultsAndValidate(t *testing.T) {
	cfg := Config{Endpoint: "collector:4317", ServiceName: "authgate", ServiceVersion: "v1", SamplerRatio: 7}
	applyDefaults(&cfg)
	if cfg.SamplerRatio != 1 {
		t.Errorf("SamplerRatio = %v; want 1", cfg.SamplerRatio)
	}
	if cfg.Timeout == 0 || cfg.ReconnectPeriod == 0 {
		t.Error("timeouts must be defaulted")
	}
	if err := validateConfig(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	for _, bad := range []Config{
		{ServiceName: "a", ServiceVersion: "b"},
		{Endpoint: "x", ServiceVersion: "b"},
		{Endpoint: "x", ServiceName: "a"},
	} {
		if err := validateConfig(bad); err == nil {
			t.Errorf("expected error for %+v", bad)
		}
	}
}

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{}, logger.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
