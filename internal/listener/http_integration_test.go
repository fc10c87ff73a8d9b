package listener

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/avena-commons/eventcore/internal/eventmodel"
	"github.com/avena-commons/eventcore/internal/httpapi"
)

// TestEchoRoundTripOverHTTP exercises the S1 scenario end-to-end over a
// real HTTP connection: POST /event with to_be_processed=true lands on
// the incoming pool, the analyzer loop hands it to a hook that replies
// immediately, and the reply appears on the outgoing pool addressed back
// to the sender (spec.md §8's echo-round-trip testable property).
func TestEchoRoundTripOverHTTP(t *testing.T) {
	hooks := Hooks{
		AnalyzeEvent: func(l *Listener, e *eventmodel.Event) bool {
			if !e.ToBeProcessed {
				return true
			}
			e.Result = eventmodel.NewResult(eventmodel.ResultSuccess)
			_ = l.Reply(e)
			return true
		},
	}
	l := New(testConfig(t), hooks, nil)

	srv := httpapi.New(httpapi.Config{Addr: "127.0.0.1:0"}, l.httpHandlers(), nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start http server: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	id := 42
	sent := &eventmodel.Event{
		Source: "peer", SourceAddress: "10.0.0.2", SourcePort: 9002,
		Destination: "test-node", DestinationAddress: "127.0.0.1", DestinationPort: 0,
		EventType: "echo", Timestamp: time.Now(), ID: &id,
		Data: map[string]interface{}{"hello": "world"}, ToBeProcessed: true,
	}
	body, err := json.Marshal(sent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	resp, err := http.Post("http://"+srv.Addr()+"/event", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post /event: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /event, got %d", resp.StatusCode)
	}

	if l.Incoming.Len() != 1 {
		t.Fatalf("expected 1 incoming entry after POST, got %d", l.Incoming.Len())
	}
	if l.ReceivedEvents() != 1 {
		t.Fatalf("expected received_events counter to be 1, got %d", l.ReceivedEvents())
	}

	l.analyzerTick(context.Background())

	if l.Incoming.Len() != 0 {
		t.Fatalf("expected the echoed event to be claimed off incoming, got len %d", l.Incoming.Len())
	}
	if l.Outgoing.Len() != 1 {
		t.Fatalf("expected 1 reply on outgoing, got %d", l.Outgoing.Len())
	}

	m := l.Outgoing.PopOldest()
	if m.Event.Destination != "peer" || m.Event.Source != "test-node" {
		t.Fatalf("expected reply addressed back to sender, got source=%s destination=%s", m.Event.Source, m.Event.Destination)
	}
	if m.Event.Result == nil || m.Event.Result.Result == nil || *m.Event.Result.Result != eventmodel.ResultSuccess {
		t.Fatalf("expected a success result on the reply, got %+v", m.Event.Result)
	}
}

// TestStatuszAndMetricszReflectReceivedEvents checks the two supplemented
// read endpoints agree with the listener's own counters after a POST.
func TestStatuszAndMetricszReflectReceivedEvents(t *testing.T) {
	l := New(testConfig(t), Hooks{}, nil)
	srv := httpapi.New(httpapi.Config{Addr: "127.0.0.1:0"}, l.httpHandlers(), nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start http server: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	e := &eventmodel.Event{Source: "peer", Destination: "test-node", EventType: "ping", Timestamp: time.Now()}
	body, _ := json.Marshal(e)
	resp, err := http.Post("http://"+srv.Addr()+"/event", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post /event: %v", err)
	}
	resp.Body.Close()

	statuszResp, err := http.Get("http://" + srv.Addr() + "/statusz")
	if err != nil {
		t.Fatalf("get /statusz: %v", err)
	}
	defer statuszResp.Body.Close()
	var status Status
	if err := json.NewDecoder(statuszResp.Body).Decode(&status); err != nil {
		t.Fatalf("decode /statusz: %v", err)
	}
	if status.ReceivedEvents != 1 {
		t.Fatalf("expected /statusz received_events 1, got %d", status.ReceivedEvents)
	}

	metricsResp, err := http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("get /metrics: %v", err)
	}
	defer metricsResp.Body.Close()
	var snap MetricsSnapshot
	if err := json.NewDecoder(metricsResp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode /metrics: %v", err)
	}
	if snap.ReceivedEvents != 1 {
		t.Fatalf("expected /metrics received_events 1, got %d", snap.ReceivedEvents)
	}
	if snap.IncomingSize != 1 {
		t.Fatalf("expected /metrics incoming_size 1, got %d", snap.IncomingSize)
	}
}
