package eventpool

import "log/slog"

// NewProcessing builds the pool that tracks events awaiting a reply: a hook
// moves an event here with Listener.AddToProcessing, and it is removed
// either by a matching reply (FindAndRemoveMatch) or by CleanupTimedOut
// once its MaximumProcessingTime elapses (spec.md §4.4).
func NewProcessing(maxSize int, policy OverflowPolicy, log *slog.Logger) *Pool {
	return New(Config{
		Name:           "processing",
		MaxSize:        maxSize,
		OverflowPolicy: policy,
	}, log)
}

// FindAndRemoveMatch locates the processing entry whose event matches
// eventType and, where provided, id and timestamp, removes it, and returns
// it. This mirrors the original _find_and_remove_processing_event scan:
// reply correlation is keyed on value equality of those fields, not on the
// pool's own timestamp key, since the reply that arrives over the wire
// carries the original request's identity fields rather than the key the
// request was filed under.
//
// Per spec.md §4.4, id and timestamp are optional constraints: a nil id
// means "match any id," and an empty timestamp means "match any
// timestamp" — only a non-nil/non-empty value actually restricts the
// search, mirroring the Python original's `if id is not None and
// event.id != id: continue`.
func (p *Pool) FindAndRemoveMatch(eventType string, id *int, timestamp string) *Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()

	for el := p.order.Front(); el != nil; el = el.Next() {
		m := el.Value.(*Metadata)
		e := m.Event
		if e.EventType != eventType {
			continue
		}
		if id != nil && !idsEqual(e.ID, id) {
			continue
		}
		if timestamp != "" && e.Key() != timestamp {
			continue
		}
		p.order.Remove(el)
		delete(p.index, e.Key())
		p.totalRemoved++
		return m
	}
	return nil
}

// idsEqual compares two *int identity fields where both are known to be
// non-nil constraints (the "caller didn't supply one" case is handled by
// the nil check in FindAndRemoveMatch before this is called).
func idsEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// TimedOut returns every processing entry whose MaximumProcessingTime has
// elapsed since it was added, without removing them.
func (p *Pool) TimedOut() []*Metadata {
	return p.Filter(func(m *Metadata) bool {
		return m.Age().Seconds() > m.Event.MaxProcessingTimeOrDefault()
	})
}

// CleanupTimedOut removes every entry whose MaximumProcessingTime has
// elapsed and returns them, so the caller can emit a diagnostic or a
// synthetic timeout reply for each.
func (p *Pool) CleanupTimedOut() []*Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()

	var timedOut []*Metadata
	for el := p.order.Front(); el != nil; {
		next := el.Next()
		m := el.Value.(*Metadata)
		if m.Age().Seconds() > m.Event.MaxProcessingTimeOrDefault() {
			p.order.Remove(el)
			delete(p.index, m.Event.Key())
			p.totalRemoved++
			timedOut = append(timedOut, m)
		}
		el = next
	}
	return timedOut
}
