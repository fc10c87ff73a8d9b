package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/avena-commons/eventcore/internal/eventmodel"
	"github.com/avena-commons/eventcore/internal/eventpool"
)

func newOutgoingWithEvent(t *testing.T, server *httptest.Server) *eventpool.Pool {
	t.Helper()
	p := eventpool.NewOutgoing(0, eventpool.OverflowUnlimited, nil)

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}

	e := &eventmodel.Event{
		Source: "node-a", Destination: "node-b",
		DestinationAddress: u.Hostname(), DestinationPort: port,
		EventType: "ping", Timestamp: time.Now(),
	}
	p.AppendWithRetry(e, 0)
	return p
}

func TestDispatcherSendsAndDrainsOnSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	outgoing := newOutgoingWithEvent(t, server)
	d := New(outgoing, NewSender(server.Client()), Config{MaxRetries: 3}, nil, nil)

	d.Tick(context.Background())

	if outgoing.Len() != 0 {
		t.Fatalf("expected outgoing pool drained on success, len=%d", outgoing.Len())
	}
}

func TestDispatcherRequeuesOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	outgoing := newOutgoingWithEvent(t, server)
	d := New(outgoing, NewSender(server.Client()), Config{MaxRetries: 3}, nil, nil)

	d.Tick(context.Background())

	if outgoing.Len() != 1 {
		t.Fatalf("expected event requeued after failure, len=%d", outgoing.Len())
	}
	m := outgoing.PeekOldest()
	if m.RetryCount != 1 {
		t.Fatalf("expected retry_count 1 after first failure, got %d", m.RetryCount)
	}
}

// TestDispatcherSendsSingleEventObjectNotArray guards against regressing
// to a JSON-array wire body: the receiving /event handler only ever
// decodes a single Event object (spec.md §6.1), so each dispatched event
// must be POSTed on its own, even when several share a destination.
func TestDispatcherSendsSingleEventObjectNotArray(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	outgoing := newOutgoingWithEvent(t, server)
	u, _ := url.Parse(server.URL)
	port, _ := strconv.Atoi(u.Port())
	second := &eventmodel.Event{
		Source: "node-a", Destination: "node-b",
		DestinationAddress: u.Hostname(), DestinationPort: port,
		EventType: "pong", Timestamp: time.Now().Add(time.Millisecond),
	}
	outgoing.AppendWithRetry(second, 0)

	d := New(outgoing, NewSender(server.Client()), Config{MaxRetries: 3}, nil, nil)
	d.Tick(context.Background())

	var decoded map[string]interface{}
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("expected the last POST body to decode as a single JSON object, got %q: %v", gotBody, err)
	}
	if _, isArray := decoded["event_type"]; !isArray {
		t.Fatalf("expected a single Event object with an event_type field, got %q", gotBody)
	}
}

func TestDispatcherDropsAfterMaxRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	outgoing := newOutgoingWithEvent(t, server)
	d := New(outgoing, NewSender(server.Client()), Config{MaxRetries: 1}, nil, nil)

	d.Tick(context.Background())

	if outgoing.Len() != 0 {
		t.Fatalf("expected event dropped once retry_count reaches max_retries, len=%d", outgoing.Len())
	}
}
