package events

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestGetGlobalDiagnosticLoggerFallsBackToNoop(t *testing.T) {
	SetGlobalDiagnosticLogger(nil)

	l := GetGlobalDiagnosticLogger()
	if l == nil {
		t.Fatal("expected non-nil noop logger")
	}
	// Must not panic or write anywhere observable.
	l.LogPoolOverflow("incoming", "drop_oldest", 10, 10)
}

func TestLogPoolOverflowEmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewDiagnosticLoggerWithWriter("node-1", &buf)

	l.LogPoolOverflow("outgoing", "drop_newest", 64, 64)

	line := strings.TrimSpace(buf.String())
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		t.Fatalf("expected valid JSON log line, got %q: %v", line, err)
	}
	if fields["msg"] != "pool_overflow" {
		t.Fatalf("expected msg=pool_overflow, got %v", fields["msg"])
	}
	if fields["node_id"] != "node-1" {
		t.Fatalf("expected node_id=node-1, got %v", fields["node_id"])
	}
	if fields["pool"] != "outgoing" || fields["policy"] != "drop_newest" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestLogRetryExhaustedEmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewDiagnosticLoggerWithWriter("node-1", &buf)

	l.LogRetryExhausted("svc-b", "ping", 5)

	var fields map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &fields); err != nil {
		t.Fatalf("expected valid JSON log line: %v", err)
	}
	if fields["msg"] != "retry_exhausted" || fields["retry_count"] != float64(5) {
		t.Fatalf("unexpected fields: %v", fields)
	}
}
