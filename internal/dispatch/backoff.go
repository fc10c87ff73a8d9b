package dispatch

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// backoffGate enriches the dispatcher beyond spec.md's literal description.
// The original Python send loop has a comment on its retry path reading
// "# FIXME: no delay between retries, will hammer a down destination" —
// SPEC_FULL.md §4.3 calls for closing that gap with per-destination
// spacing. cenkalti/backoff/v4 (already a teacher dependency, used
// elsewhere in the corpus for client retry loops) is reused here not for
// its retry-loop driver but for its ExponentialBackOff clock: each
// destination gets its own backoff state, advanced on failure and reset on
// success, so a destination that is down does not get hammered every
// dispatcher tick.
type backoffGate struct {
	mu    sync.Mutex
	gates map[string]*backoff.ExponentialBackOff
	until map[string]time.Time
}

func newBackoffGate() *backoffGate {
	return &backoffGate{
		gates: make(map[string]*backoff.ExponentialBackOff),
		until: make(map[string]time.Time),
	}
}

func (g *backoffGate) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0 // never give up; the caller decides when to stop trying
	return b
}

// Allowed reports whether destination may be attempted right now.
func (g *backoffGate) Allowed(destination string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	until, ok := g.until[destination]
	if !ok {
		return true
	}
	return !time.Now().Before(until)
}

// RecordFailure advances destination's backoff clock past its next
// interval.
func (g *backoffGate) RecordFailure(destination string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.gates[destination]
	if !ok {
		b = g.newBackoff()
		g.gates[destination] = b
	}
	g.until[destination] = time.Now().Add(b.NextBackOff())
}

// RecordSuccess clears destination's backoff state so its next failure
// starts again from InitialInterval.
func (g *backoffGate) RecordSuccess(destination string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.gates, destination)
	delete(g.until, destination)
}
