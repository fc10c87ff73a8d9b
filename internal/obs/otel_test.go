package obs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNoopTracerDoesNotPanic(t *testing.T) {
	tr := NoopTracer()
	if tr.Enabled() {
		t.Fatal("expected noop tracer to report disabled")
	}

	ctx, span := tr.StartDispatchSpan(context.Background(), DispatchSpanOptions{
		Destination: "svc-a", EventType: "ping", BatchSize: 2,
	})
	span.End()
	if ctx == nil {
		t.Fatal("expected non-nil context from StartDispatchSpan")
	}
}

func TestGetGlobalTracerDefaultsToNoop(t *testing.T) {
	SetGlobalTracer(nil)
	tr := GetGlobalTracer()
	if tr == nil || tr.Enabled() {
		t.Fatal("expected a disabled noop tracer")
	}
}

func TestMiddlewarePassesThroughWhenTracerDisabled(t *testing.T) {
	called := false
	handler := Middleware(NoopTracer())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/statusz", nil)
	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, req)

	if !called {
		t.Fatal("expected inner handler to be called")
	}
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
}

func TestRecordErrorAndRetryDoNotPanicOnNilSpan(t *testing.T) {
	RecordError(nil, nil, "", false)
	RecordRetry(nil, 1, "backoff")
}
