package eventpool

import (
	"testing"
	"time"

	"github.com/avena-commons/eventcore/internal/eventmodel"
)

func processingEvent(id int, eventType string, mpt float64, ts time.Time) *eventmodel.Event {
	return &eventmodel.Event{
		Source: "a", Destination: "b", EventType: eventType, ID: &id,
		Timestamp: ts, MaximumProcessingTime: &mpt, ToBeProcessed: true,
	}
}

func TestFindAndRemoveMatch(t *testing.T) {
	p := NewProcessing(0, OverflowUnlimited, nil)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := processingEvent(7, "ping", 20, ts)
	p.Append(e, 0, 0, nil)

	if got := p.FindAndRemoveMatch("ping", intPtr(99), e.Key()); got != nil {
		t.Fatal("expected no match for wrong id")
	}
	if p.Len() != 1 {
		t.Fatal("non-matching lookup must not remove entry")
	}

	got := p.FindAndRemoveMatch("ping", intPtr(7), e.Key())
	if got == nil {
		t.Fatal("expected a match")
	}
	if p.Len() != 0 {
		t.Fatalf("expected matched entry removed, len=%d", p.Len())
	}
}

// TestFindAndRemoveMatchNilIDIsWildcard covers spec.md §4.4: a nil id on
// the caller's side means "don't care," even when the stored event does
// carry an id.
func TestFindAndRemoveMatchNilIDIsWildcard(t *testing.T) {
	p := NewProcessing(0, OverflowUnlimited, nil)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := processingEvent(7, "ping", 20, ts)
	p.Append(e, 0, 0, nil)

	got := p.FindAndRemoveMatch("ping", nil, e.Key())
	if got == nil {
		t.Fatal("expected nil id to match an event that does carry an id")
	}
}

// TestFindAndRemoveMatchEmptyTimestampIsWildcard covers spec.md §4.4: an
// empty timestamp means "don't care," matching on event_type (and id, if
// given) alone.
func TestFindAndRemoveMatchEmptyTimestampIsWildcard(t *testing.T) {
	p := NewProcessing(0, OverflowUnlimited, nil)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := processingEvent(7, "ping", 20, ts)
	p.Append(e, 0, 0, nil)

	got := p.FindAndRemoveMatch("ping", intPtr(7), "")
	if got == nil {
		t.Fatal("expected empty timestamp to match regardless of the stored key")
	}
}

func TestCleanupTimedOut(t *testing.T) {
	p := NewProcessing(0, OverflowUnlimited, nil)
	past := time.Now().Add(-time.Hour)
	e := processingEvent(1, "slow", 0.001, past)
	p.Append(e, 0, 0, nil)

	fresh := processingEvent(2, "fast", 60, time.Now())
	p.Append(fresh, 0, 0, nil)

	// Age counts from when an entry was appended, not from its Timestamp,
	// so let the slow event's 1ms deadline pass.
	time.Sleep(5 * time.Millisecond)

	timedOut := p.CleanupTimedOut()
	if len(timedOut) != 1 || timedOut[0].Event.EventType != "slow" {
		t.Fatalf("expected exactly the slow event to time out, got %+v", timedOut)
	}
	if p.Len() != 1 {
		t.Fatalf("expected only the fresh event left, len=%d", p.Len())
	}
}

func intPtr(v int) *int { return &v }
