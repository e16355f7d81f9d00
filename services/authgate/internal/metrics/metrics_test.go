package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/YaganovValera/storefront-auth/services/authgate/internal/metrics"
)

func TestRegister_Idempotent(t *testing.T) {
	metrics.Register(nil)
	metrics.Register(nil)

	before := testutil.ToFloat64(metrics.Rotations.WithLabelValues("ok"))
	metrics.Rotations.WithLabelValues("ok").Inc()
	if got := testutil.ToFloat64(metrics.Rotations.WithLabelValues("ok")); got != before+1 {
		t.Fatalf("rotations ok = %v; want %v", got, before+1)
	}
}
