package eventpool

import "log/slog"

// NewIncoming builds the pool that holds events just received over HTTP,
// not yet handed to a hook for processing. spec.md §4.1 calls this the
// "incoming" pool; it is drained strictly FIFO by the listener's main loop.
func NewIncoming(maxSize int, policy OverflowPolicy, log *slog.Logger) *Pool {
	return New(Config{
		Name:           "incoming",
		MaxSize:        maxSize,
		OverflowPolicy: policy,
	}, log)
}

// PopBatch removes and returns up to n oldest entries, FIFO. Used by the
// listener's main loop to drain a bounded slice of incoming events per
// iteration rather than draining the whole pool in one lock hold.
func (p *Pool) PopBatch(n int) []*Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.popBatchLocked(n)
}
