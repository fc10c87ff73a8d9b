// Package eventmodel defines the wire representation shared by every node:
// the Event that flows between the incoming, processing, and outgoing
// pools, and the Result attached to a reply.
package eventmodel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Result is attached to an Event before it is sent back as a reply.
type Result struct {
	Result       *string `json:"result"`
	ErrorCode    *int    `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
}

// Common result tags. The core treats Result.Result as a free-form string;
// these are the values the reference hooks use.
const (
	ResultSuccess    = "success"
	ResultFailure    = "failure"
	ResultTestFailed = "test_failed"
	ResultError      = "error"
)

// NewResult builds a Result with the given tag and no error detail.
func NewResult(tag string) *Result {
	return &Result{Result: &tag}
}

// NewErrorResult builds a Result carrying an error code and message.
func NewErrorResult(tag string, code int, message string) *Result {
	return &Result{Result: &tag, ErrorCode: &code, ErrorMessage: &message}
}

// Event is the unit of communication between nodes. See SPEC_FULL.md §3.
//
// Identity fields (Source, Destination, Timestamp, ID) are set once at
// construction and must not be rewritten by anyone but the node that owns
// the event; Result and IsProcessing are the only fields the core mutates
// on a caller's behalf (via Reply and AddToProcessing).
type Event struct {
	Source                string                 `json:"source"`
	SourceAddress         string                 `json:"source_address"`
	SourcePort            int                    `json:"source_port"`
	Destination           string                 `json:"destination"`
	DestinationAddress    string                 `json:"destination_address"`
	DestinationPort       int                    `json:"destination_port"`
	EventType             string                 `json:"event_type"`
	Timestamp             time.Time              `json:"timestamp"`
	Data                  map[string]interface{} `json:"data"`
	Payload               int                    `json:"payload"`
	ID                    *int                   `json:"id"`
	Result                *Result                `json:"result"`
	ToBeProcessed         bool                   `json:"to_be_processed"`
	IsProcessing          bool                   `json:"is_processing"`
	IsCumulative          bool                   `json:"is_cumulative"`
	MaximumProcessingTime *float64               `json:"maximum_processing_time"`
}

// DefaultMaximumProcessingTime is used when a caller of Emit does not
// specify one (spec.md §3: "default when unset is implementation-defined
// (≈20 s)").
const DefaultMaximumProcessingTime = 20.0

// Key returns the pool key for this event: the ISO-8601, sub-second
// precision timestamp. Two events that collide at this precision cannot
// both live in the same pool (spec.md §3, key uniqueness invariant).
func (e *Event) Key() string {
	return e.Timestamp.Format(time.RFC3339Nano)
}

// MaxProcessingTimeOrDefault returns MaximumProcessingTime, falling back to
// DefaultMaximumProcessingTime when unset.
func (e *Event) MaxProcessingTimeOrDefault() float64 {
	if e.MaximumProcessingTime == nil {
		return DefaultMaximumProcessingTime
	}
	return *e.MaximumProcessingTime
}

// Clone returns a shallow copy of the event. Data is not deep-copied: the
// core treats it as an opaque, caller-owned map once attached to an event.
func (e *Event) Clone() *Event {
	c := *e
	return &c
}

// SwapSourceAndDestination exchanges the source/destination identity triples
// in place. Used by Reply to build the outbound response event.
func (e *Event) SwapSourceAndDestination() {
	e.Source, e.Destination = e.Destination, e.Source
	e.SourceAddress, e.DestinationAddress = e.DestinationAddress, e.SourceAddress
	e.SourcePort, e.DestinationPort = e.DestinationPort, e.SourcePort
}

// wireEvent mirrors Event's JSON shape exactly. Decoding through this type
// (with DisallowUnknownFields) is what lets the HTTP ingress reject unknown
// fields with 422, per SPEC_FULL.md §6.1.
type wireEvent struct {
	Source                string                 `json:"source"`
	SourceAddress         string                 `json:"source_address"`
	SourcePort            int                    `json:"source_port"`
	Destination           string                 `json:"destination"`
	DestinationAddress    string                 `json:"destination_address"`
	DestinationPort       int                    `json:"destination_port"`
	EventType             string                 `json:"event_type"`
	Timestamp             time.Time              `json:"timestamp"`
	Data                  map[string]interface{} `json:"data"`
	Payload               int                    `json:"payload"`
	ID                    *int                   `json:"id"`
	Result                *Result                `json:"result"`
	ToBeProcessed         bool                   `json:"to_be_processed"`
	IsProcessing          bool                   `json:"is_processing"`
	IsCumulative          bool                   `json:"is_cumulative"`
	MaximumProcessingTime *float64               `json:"maximum_processing_time"`
}

// MarshalJSON produces the canonical wire form.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent(e)
	if w.Data == nil {
		w.Data = map[string]interface{}{}
	}
	if w.Payload == 0 {
		w.Payload = 1
	}
	return json.Marshal(w)
}

// UnmarshalJSON rejects unknown fields and applies the Payload≥1 default.
func (e *Event) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w wireEvent
	if err := dec.Decode(&w); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if w.Payload == 0 {
		w.Payload = 1
	}
	*e = Event(w)
	return nil
}
