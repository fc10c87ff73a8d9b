package obs

import (
	"context"
	"testing"
)

func TestNoopMetricsSafeToCallEverything(t *testing.T) {
	m := NoopMetrics()
	if m.Enabled() {
		t.Fatal("expected noop metrics to report disabled")
	}

	ctx := context.Background()
	m.RecordReceived(ctx, "ping")
	m.ObserveBatchSize("svc-a", 3)
	m.RecordSent("svc-a", 3)
	m.RecordFailed("svc-a", 1)
	m.RecordDropped("svc-a", 1)
	m.RecordLoopOvertime(ctx, "dispatcher")
	m.SetPoolSizes(1, 2, 3)

	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("expected noop shutdown to succeed, got %v", err)
	}
}

func TestNewMetricsDisabledByDefault(t *testing.T) {
	m, err := NewMetrics(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Enabled() {
		t.Fatal("expected default config to be disabled")
	}
}

func TestGetGlobalMetricsDefaultsToNoop(t *testing.T) {
	SetGlobalMetrics(nil)
	m := GetGlobalMetrics()
	if m == nil || m.Enabled() {
		t.Fatal("expected a disabled noop instance")
	}
}
