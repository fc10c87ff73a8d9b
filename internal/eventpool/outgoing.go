package eventpool

import (
	"log/slog"

	"github.com/avena-commons/eventcore/internal/eventmodel"
)

// NewOutgoing builds the pool the dispatcher drains. Entries carry a
// retry_count in their Metadata, incremented each time a send attempt
// fails, per spec.md §4.3.
func NewOutgoing(maxSize int, policy OverflowPolicy, log *slog.Logger) *Pool {
	return New(Config{
		Name:           "outgoing",
		MaxSize:        maxSize,
		OverflowPolicy: policy,
	}, log)
}

// AppendWithRetry adds an event with an explicit starting retry_count, used
// when the dispatcher requeues a failed send rather than filing a brand new
// reply.
func (p *Pool) AppendWithRetry(event *eventmodel.Event, retryCount int) bool {
	return p.Append(event, retryCount, 0, nil)
}

// IncrementRetry removes the entry at key, re-adds it with retry_count+1,
// and returns the new metadata. Returns nil if the key is not present or
// the new retry_count meets or exceeds maxRetries, in which case the entry
// is dropped rather than re-queued (spec.md §4.3, "drop with diagnostic
// after max_retries").
func (p *Pool) IncrementRetry(key string, maxRetries int) *Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, ok := p.index[key]
	if !ok {
		return nil
	}
	m := el.Value.(*Metadata)
	p.order.Remove(el)
	delete(p.index, key)
	p.totalRemoved++

	next := m.RetryCount + 1
	if maxRetries > 0 && next >= maxRetries {
		p.totalDropped++
		p.log.Warn("outgoing pool: dropping event after exhausting retries",
			"event_type", m.Event.EventType, "retry_count", next, "max_retries", maxRetries)
		return nil
	}

	nel := p.order.PushBack(&Metadata{
		Event:      m.Event,
		AddedAt:    m.AddedAt,
		RetryCount: next,
		Priority:   m.Priority,
		Meta:       m.Meta,
	})
	p.index[key] = nel
	p.totalAdded++
	return nel.Value.(*Metadata)
}

// DestinationBatch groups outgoing entries bound for a single destination.
type DestinationBatch struct {
	Destination string
	Entries     []*Metadata
}

// PopBatchGrouped pops up to n oldest entries and groups them by
// Event.Destination, preserving the relative FIFO order of entries within
// each group. The dispatcher uses the groups for its per-destination
// backoff bookkeeping; it still sends one HTTP request per event.
func (p *Pool) PopBatchGrouped(n int) []DestinationBatch {
	p.mu.Lock()
	entries := p.popBatchLocked(n)
	p.mu.Unlock()

	order := make([]string, 0)
	groups := make(map[string][]*Metadata)
	for _, m := range entries {
		dest := m.Event.Destination
		if _, seen := groups[dest]; !seen {
			order = append(order, dest)
		}
		groups[dest] = append(groups[dest], m)
	}

	batches := make([]DestinationBatch, 0, len(order))
	for _, dest := range order {
		batches = append(batches, DestinationBatch{Destination: dest, Entries: groups[dest]})
	}
	return batches
}
