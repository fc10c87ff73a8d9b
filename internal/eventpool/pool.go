// Package eventpool implements the three event pools shared by every node
// (incoming, processing, outgoing) described in SPEC_FULL.md §3/§4.2.
//
// The Python source keys an OrderedDict by the event's ISO-8601 timestamp.
// The idiomatic Go shape for "insertion-ordered map with O(1) lookup and
// O(1) FIFO pop" is a doubly linked list plus an index map from key to
// list element — the same structure the teacher's session pool
// (internal/session/pool.go, container/list.List + map[string]*SessionInfo)
// uses for its own ordered pool of sessions. Event pools use sync.Mutex
// rather than the Python RLock: append/extend never call each other while
// already holding the lock on this side (extend iterates and calls an
// unexported, lock-assumed appendLocked instead of reacquiring), so plain
// mutual exclusion is sufficient and avoids the reentrant-lock code smell.
package eventpool

import (
	"container/list"
	"log/slog"
	"sync"
	"time"

	"github.com/avena-commons/eventcore/internal/eventmodel"
)

// OverflowPolicy controls what append does when the pool is at max_size.
type OverflowPolicy string

const (
	OverflowDropOldest OverflowPolicy = "drop_oldest"
	OverflowDropNewest OverflowPolicy = "drop_newest"
	OverflowRaiseError OverflowPolicy = "raise_error"
	OverflowUnlimited  OverflowPolicy = "unlimited"
)

// Metadata wraps an Event with pool bookkeeping.
type Metadata struct {
	Event      *eventmodel.Event
	AddedAt    time.Time
	RetryCount int
	Priority   int
	Meta       map[string]interface{}
}

// Age returns how long this entry has been in the pool.
func (m *Metadata) Age() time.Duration {
	return time.Since(m.AddedAt)
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	Name           string
	Size           int
	MaxSize        int // 0 means unlimited
	OverflowPolicy OverflowPolicy
	Oldest         *time.Time
	Newest         *time.Time
	AvgAgeSeconds  float64
	TotalAdded     int64
	TotalRemoved   int64
	TotalDropped   int64
}

// Config configures a Pool instance. MaxSize of 0 means unlimited.
type Config struct {
	Name           string
	MaxSize        int
	OverflowPolicy OverflowPolicy
	MaxAge         time.Duration // 0 disables age-based GC
}

// Pool is a thread-safe, insertion-ordered collection of events keyed by
// Event.Key() (the ISO-8601 timestamp). See the package doc for the
// concurrency rationale.
type Pool struct {
	cfg Config
	log *slog.Logger

	mu    sync.Mutex
	order *list.List               // of *Metadata, oldest first
	index map[string]*list.Element // key -> element in order

	totalAdded   int64
	totalRemoved int64
	totalDropped int64
}

// New constructs an empty Pool. A nil logger is replaced with a discard
// logger.
func New(cfg Config, log *slog.Logger) *Pool {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if cfg.OverflowPolicy == "" {
		cfg.OverflowPolicy = OverflowUnlimited
	}
	return &Pool{
		cfg:   cfg,
		log:   log,
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

// Name returns the pool's configured name (for logging/metrics).
func (p *Pool) Name() string { return p.cfg.Name }

// Len returns the current size of the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order.Len()
}

// Append adds an event to the pool. See SPEC_FULL.md §4.2 for the overflow
// and duplicate-key semantics.
func (p *Pool) Append(event *eventmodel.Event, retryCount, priority int, meta map[string]interface{}) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.appendLocked(event, retryCount, priority, meta)
}

func (p *Pool) appendLocked(event *eventmodel.Event, retryCount, priority int, meta map[string]interface{}) bool {
	p.cleanupOldLocked()

	if !p.handleOverflowLocked() {
		return false
	}

	key := event.Key()
	if _, exists := p.index[key]; exists {
		p.log.Debug("event pool: duplicate key, rejecting append", "pool", p.cfg.Name, "key", key)
		return false
	}

	if meta == nil {
		meta = map[string]interface{}{}
	}
	el := p.order.PushBack(&Metadata{
		Event:      event,
		AddedAt:    time.Now(),
		RetryCount: retryCount,
		Priority:   priority,
		Meta:       meta,
	})
	p.index[key] = el
	p.totalAdded++
	return true
}

// Extend adds multiple events atomically (single lock acquisition) and
// returns how many were actually added.
func (p *Pool) Extend(events []*eventmodel.Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	added := 0
	for _, e := range events {
		if p.appendLocked(e, 0, 0, nil) {
			added++
		} else if p.cfg.OverflowPolicy == OverflowDropNewest {
			break
		}
	}
	return added
}

// cleanupOldLocked removes entries older than cfg.MaxAge. Must hold mu.
func (p *Pool) cleanupOldLocked() int {
	if p.cfg.MaxAge <= 0 {
		return 0
	}

	removed := 0
	for el := p.order.Front(); el != nil; {
		next := el.Next()
		m := el.Value.(*Metadata)
		if m.Age() > p.cfg.MaxAge {
			p.order.Remove(el)
			delete(p.index, m.Event.Key())
			p.totalRemoved++
			removed++
		}
		el = next
	}
	if removed > 0 {
		p.log.Debug("event pool: cleaned up aged entries", "pool", p.cfg.Name, "count", removed)
	}
	return removed
}

// handleOverflowLocked applies the overflow policy; returns whether the
// caller may proceed to insert. Must hold mu.
func (p *Pool) handleOverflowLocked() bool {
	if p.cfg.MaxSize <= 0 || p.order.Len() < p.cfg.MaxSize {
		return true
	}

	switch p.cfg.OverflowPolicy {
	case OverflowDropOldest:
		if front := p.order.Front(); front != nil {
			m := front.Value.(*Metadata)
			p.order.Remove(front)
			delete(p.index, m.Event.Key())
			p.totalDropped++
			p.log.Debug("event pool: dropped oldest on overflow", "pool", p.cfg.Name)
		}
		return true

	case OverflowDropNewest:
		p.totalDropped++
		p.log.Warn("event pool: dropped newest on overflow", "pool", p.cfg.Name)
		return false

	case OverflowRaiseError:
		// The core never panics for recoverable conditions; callers that
		// want raise_error semantics observe the false return the same way
		// drop_newest callers do and may check Stats for the reason. We
		// still log at error level so the distinction from drop_newest is
		// visible in the diagnostics stream.
		p.totalDropped++
		p.log.Error("event pool: overflow with raise_error policy", "pool", p.cfg.Name, "max_size", p.cfg.MaxSize)
		return false

	default: // OverflowUnlimited
		return true
	}
}

// PopOldest removes and returns the oldest entry (FIFO).
func (p *Pool) PopOldest() *Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.popOldestLocked()
}

func (p *Pool) popOldestLocked() *Metadata {
	front := p.order.Front()
	if front == nil {
		return nil
	}
	m := front.Value.(*Metadata)
	p.order.Remove(front)
	delete(p.index, m.Event.Key())
	p.totalRemoved++
	return m
}

// PopByKey removes and returns the entry with the given key, if present.
func (p *Pool) PopByKey(key string) *Metadata {
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
	return m
}

// PeekOldest returns the oldest entry without removing it.
func (p *Pool) PeekOldest() *Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()
	front := p.order.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*Metadata)
}

// GetByKey returns the entry with the given key without removing it.
func (p *Pool) GetByKey(key string) *Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.index[key]
	if !ok {
		return nil
	}
	return el.Value.(*Metadata)
}

// Filter returns a snapshot slice of entries matching predicate, in
// insertion order.
func (p *Pool) Filter(predicate func(*Metadata) bool) []*Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []*Metadata
	for el := p.order.Front(); el != nil; el = el.Next() {
		m := el.Value.(*Metadata)
		if predicate(m) {
			out = append(out, m)
		}
	}
	return out
}

// RemoveIf removes every entry matching predicate and returns the count
// removed.
func (p *Pool) RemoveIf(predicate func(*Metadata) bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for el := p.order.Front(); el != nil; {
		next := el.Next()
		m := el.Value.(*Metadata)
		if predicate(m) {
			p.order.Remove(el)
			delete(p.index, m.Event.Key())
			p.totalRemoved++
			removed++
		}
		el = next
	}
	return removed
}

// Snapshot returns every entry currently in the pool, in insertion order.
// Safe to iterate without holding the pool's lock.
func (p *Pool) Snapshot() []*Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*Metadata, 0, p.order.Len())
	for el := p.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*Metadata))
	}
	return out
}

// Clear empties the pool and returns how many entries were removed.
func (p *Pool) Clear() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.order.Len()
	p.order.Init()
	p.index = make(map[string]*list.Element)
	p.totalRemoved += int64(n)
	return n
}

// Stats returns a point-in-time snapshot of pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Name:           p.cfg.Name,
		Size:           p.order.Len(),
		MaxSize:        p.cfg.MaxSize,
		OverflowPolicy: p.cfg.OverflowPolicy,
		TotalAdded:     p.totalAdded,
		TotalRemoved:   p.totalRemoved,
		TotalDropped:   p.totalDropped,
	}

	if p.order.Len() == 0 {
		return s
	}

	var totalAge float64
	for el := p.order.Front(); el != nil; el = el.Next() {
		m := el.Value.(*Metadata)
		totalAge += m.Age().Seconds()
	}
	s.AvgAgeSeconds = totalAge / float64(p.order.Len())

	oldest := p.order.Front().Value.(*Metadata).AddedAt
	newest := p.order.Back().Value.(*Metadata).AddedAt
	s.Oldest = &oldest
	s.Newest = &newest
	return s
}

// popBatchLocked pops up to n oldest entries. Must hold mu.
func (p *Pool) popBatchLocked(n int) []*Metadata {
	batch := make([]*Metadata, 0, n)
	for i := 0; i < n; i++ {
		m := p.popOldestLocked()
		if m == nil {
			break
		}
		batch = append(batch, m)
	}
	return batch
}
