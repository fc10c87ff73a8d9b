package eventpool

import (
	"testing"
	"time"
)

func TestIncrementRetryRequeuesUntilMax(t *testing.T) {
	p := NewOutgoing(0, OverflowUnlimited, nil)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := evt(ts)
	p.AppendWithRetry(e, 0)
	key := e.Key()

	m := p.IncrementRetry(key, 3)
	if m == nil || m.RetryCount != 1 {
		t.Fatalf("expected retry_count 1, got %+v", m)
	}

	m = p.IncrementRetry(key, 3)
	if m == nil || m.RetryCount != 2 {
		t.Fatalf("expected retry_count 2, got %+v", m)
	}

	// Third increment reaches max_retries=3 and must drop instead of requeue.
	m = p.IncrementRetry(key, 3)
	if m != nil {
		t.Fatalf("expected entry dropped at max retries, got %+v", m)
	}
	if p.Len() != 0 {
		t.Fatalf("expected pool empty after exhausting retries, len=%d", p.Len())
	}
}

func TestPopBatchGroupedByDestination(t *testing.T) {
	p := NewOutgoing(0, OverflowUnlimited, nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a1 := evt(base)
	a1.Destination = "svc-a"
	b1 := evt(base.Add(time.Millisecond))
	b1.Destination = "svc-b"
	a2 := evt(base.Add(2 * time.Millisecond))
	a2.Destination = "svc-a"

	p.Append(a1, 0, 0, nil)
	p.Append(b1, 0, 0, nil)
	p.Append(a2, 0, 0, nil)

	batches := p.PopBatchGrouped(10)
	if len(batches) != 2 {
		t.Fatalf("expected 2 destination groups, got %d", len(batches))
	}

	var svcA, svcB *DestinationBatch
	for i := range batches {
		switch batches[i].Destination {
		case "svc-a":
			svcA = &batches[i]
		case "svc-b":
			svcB = &batches[i]
		}
	}
	if svcA == nil || len(svcA.Entries) != 2 {
		t.Fatalf("expected svc-a to have 2 entries, got %+v", svcA)
	}
	if svcB == nil || len(svcB.Entries) != 1 {
		t.Fatalf("expected svc-b to have 1 entry, got %+v", svcB)
	}
	if p.Len() != 0 {
		t.Fatalf("expected pool drained, len=%d", p.Len())
	}
}
