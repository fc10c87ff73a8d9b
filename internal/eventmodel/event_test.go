package eventmodel

import (
	"encoding/json"
	"testing"
	"time"
)

func sampleEvent() *Event {
	id := 42
	mpt := 5.0
	return &Event{
		Source:                "a",
		SourceAddress:         "10.0.0.1",
		SourcePort:            9001,
		Destination:           "b",
		DestinationAddress:    "10.0.0.2",
		DestinationPort:       9002,
		EventType:             "ping",
		Timestamp:             time.Date(2026, 1, 2, 3, 4, 5, 123456000, time.UTC),
		Data:                  map[string]interface{}{"k": "v"},
		Payload:               1,
		ID:                    &id,
		ToBeProcessed:         true,
		MaximumProcessingTime: &mpt,
	}
}

func TestEventRoundTrip(t *testing.T) {
	e := sampleEvent()
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Event
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.Source != e.Source || got.Destination != e.Destination || got.EventType != e.EventType {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, e)
	}
	if !got.Timestamp.Equal(e.Timestamp) {
		t.Fatalf("timestamp mismatch: %v vs %v", got.Timestamp, e.Timestamp)
	}
	if got.ID == nil || *got.ID != *e.ID {
		t.Fatalf("id mismatch: %v", got.ID)
	}
}

func TestEventUnmarshalRejectsUnknownFields(t *testing.T) {
	raw := `{
		"source": "a", "source_address": "10.0.0.1", "source_port": 1,
		"destination": "b", "destination_address": "10.0.0.2", "destination_port": 2,
		"event_type": "ping", "timestamp": "2026-01-01T00:00:00Z", "data": {},
		"payload": 1, "id": null, "result": null, "to_be_processed": false,
		"is_processing": false, "is_cumulative": false, "maximum_processing_time": null,
		"bogus_field": "nope"
	}`

	var e Event
	if err := json.Unmarshal([]byte(raw), &e); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestEventPayloadDefaultsToOne(t *testing.T) {
	raw := `{
		"source": "a", "source_address": "10.0.0.1", "source_port": 1,
		"destination": "b", "destination_address": "10.0.0.2", "destination_port": 2,
		"event_type": "ping", "timestamp": "2026-01-01T00:00:00Z", "data": {},
		"id": null, "result": null, "to_be_processed": false,
		"is_processing": false, "is_cumulative": false, "maximum_processing_time": null
	}`

	var e Event
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Payload != 1 {
		t.Fatalf("expected default payload 1, got %d", e.Payload)
	}
}

func TestSwapSourceAndDestination(t *testing.T) {
	e := sampleEvent()
	orig := *e
	e.SwapSourceAndDestination()

	if e.Source != orig.Destination || e.Destination != orig.Source {
		t.Fatalf("names not swapped: %+v", e)
	}
	if e.SourceAddress != orig.DestinationAddress || e.DestinationAddress != orig.SourceAddress {
		t.Fatalf("addresses not swapped: %+v", e)
	}
	if e.SourcePort != orig.DestinationPort || e.DestinationPort != orig.SourcePort {
		t.Fatalf("ports not swapped: %+v", e)
	}
}

func TestMaxProcessingTimeOrDefault(t *testing.T) {
	e := &Event{}
	if got := e.MaxProcessingTimeOrDefault(); got != DefaultMaximumProcessingTime {
		t.Fatalf("expected default %v, got %v", DefaultMaximumProcessingTime, got)
	}
	mpt := 1.5
	e.MaximumProcessingTime = &mpt
	if got := e.MaxProcessingTimeOrDefault(); got != 1.5 {
		t.Fatalf("expected 1.5, got %v", got)
	}
}

func TestKeyUsesNanosecondPrecisionTimestamp(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 1000, time.UTC)
	t2 := time.Date(2026, 1, 1, 0, 0, 0, 2000, time.UTC)
	e1 := &Event{Timestamp: t1}
	e2 := &Event{Timestamp: t2}
	if e1.Key() == e2.Key() {
		t.Fatalf("expected distinct keys for distinct sub-second timestamps")
	}
}
