package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avena-commons/eventcore/internal/eventpool"
)

// Instrumentation lets the caller observe dispatcher activity without this
// package importing the metrics stack directly (internal/obs implements
// this interface; see SPEC_FULL.md's DOMAIN STACK section).
type Instrumentation interface {
	ObserveBatchSize(destination string, n int)
	RecordSent(destination string, n int)
	RecordFailed(destination string, n int)
	RecordDropped(destination string, n int)
}

type noopInstrumentation struct{}

func (noopInstrumentation) ObserveBatchSize(string, int) {}
func (noopInstrumentation) RecordSent(string, int)       {}
func (noopInstrumentation) RecordFailed(string, int)     {}
func (noopInstrumentation) RecordDropped(string, int)    {}

// Dispatcher drains the outgoing pool on each control-loop tick, batches by
// destination, and sends. Failures are requeued through the pool's own
// retry bookkeeping rather than retried in-process (spec.md §4.3).
type Dispatcher struct {
	outgoing   *eventpool.Pool
	sender     *Sender
	gate       *backoffGate
	maxRetries int
	batchSize  int
	log        *slog.Logger
	instr      Instrumentation
}

// Config configures a Dispatcher.
type Config struct {
	MaxRetries int // 0 disables the cap (retries forever)
	BatchSize  int // max entries popped per tick; 0 defaults to 64
}

// New builds a Dispatcher bound to outgoing. A nil Instrumentation is
// replaced with a no-op implementation.
func New(outgoing *eventpool.Pool, sender *Sender, cfg Config, log *slog.Logger, instr Instrumentation) *Dispatcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if instr == nil {
		instr = noopInstrumentation{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	return &Dispatcher{
		outgoing:   outgoing,
		sender:     sender,
		gate:       newBackoffGate(),
		maxRetries: cfg.MaxRetries,
		batchSize:  cfg.BatchSize,
		log:        log,
		instr:      instr,
	}
}

// SetInstrumentation swaps the dispatcher's Instrumentation sink, letting a
// caller attach real metrics after construction (the listener builds its
// obs.Metrics during Start, which runs after New). A nil instr is replaced
// with a no-op.
func (d *Dispatcher) SetInstrumentation(instr Instrumentation) {
	if instr == nil {
		instr = noopInstrumentation{}
	}
	d.instr = instr
}

// Tick pops up to one batch's worth of outgoing events, grouped by
// destination, and attempts to send each group. It is meant to be wired
// directly as a controlloop.Loop's tick function.
func (d *Dispatcher) Tick(ctx context.Context) {
	groups := d.outgoing.PopBatchGrouped(d.batchSize)
	for _, g := range groups {
		d.sendGroup(ctx, g)
	}
}

// sendGroup issues one POST per event in g, each carrying a single Event
// object as its body (spec.md §4.3 step 2, §6.1: the wire body is always a
// single Event, never an array). The per-destination grouping is used only
// for backoff-gate and FIFO bookkeeping, not to batch the wire call itself.
func (d *Dispatcher) sendGroup(ctx context.Context, g eventpool.DestinationBatch) {
	d.instr.ObserveBatchSize(g.Destination, len(g.Entries))

	if !d.gate.Allowed(g.Destination) {
		d.requeueAll(g, "destination in backoff window")
		return
	}

	sent, failed, dropped := 0, 0, 0
	for _, m := range g.Entries {
		event := m.Event
		url := fmt.Sprintf("http://%s:%d/event", event.DestinationAddress, event.DestinationPort)

		resp, body, err := d.sender.Post(ctx, url, event)
		if err != nil || resp.StatusCode >= 300 {
			reason := "send error"
			if err == nil {
				reason = fmt.Sprintf("destination returned status %d", resp.StatusCode)
			}
			d.log.Warn("dispatch event failed",
				"destination", g.Destination, "event_type", event.EventType, "reason", reason, "error", err, "body", string(body))
			failed++
			// Tick already popped this entry; put it back so IncrementRetry
			// can bump its retry_count or drop it at the cap.
			d.outgoing.AppendWithRetry(event, m.RetryCount)
			if requeued := d.outgoing.IncrementRetry(event.Key(), d.maxRetries); requeued == nil {
				dropped++
			}
			continue
		}
		sent++
	}

	if failed > 0 {
		d.gate.RecordFailure(g.Destination)
	} else {
		d.gate.RecordSuccess(g.Destination)
	}
	if sent > 0 {
		d.instr.RecordSent(g.Destination, sent)
	}
	if failed > 0 {
		d.instr.RecordFailed(g.Destination, failed)
	}
	if dropped > 0 {
		d.log.Error("dispatch exhausted retries, events dropped",
			"destination", g.Destination, "dropped", dropped)
		d.instr.RecordDropped(g.Destination, dropped)
	}
}

// requeueAll puts every entry of g back on the outgoing pool with its
// retry_count unchanged: the destination was not attempted, so no retry is
// charged.
func (d *Dispatcher) requeueAll(g eventpool.DestinationBatch, reason string) {
	dropped := 0
	for _, m := range g.Entries {
		if !d.outgoing.Append(m.Event, m.RetryCount, m.Priority, m.Meta) {
			dropped++
		}
	}
	d.instr.RecordFailed(g.Destination, len(g.Entries))
	if dropped > 0 {
		d.log.Error("dispatch batch could not be requeued, events dropped",
			"destination", g.Destination, "dropped", dropped, "reason", reason)
		d.instr.RecordDropped(g.Destination, dropped)
	}
}
