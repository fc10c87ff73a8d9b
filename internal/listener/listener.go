// Package listener implements the Event Listener Core: the listener
// runtime, its pools, dispatcher, control loops, and lifecycle, per
// spec.md §4.1–§4.6. Everything else in this module (eventpool, dispatch,
// controlloop, persistence, httpapi) is assembled here into the single
// long-running node type a caller constructs and starts.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avena-commons/eventcore/internal/controlloop"
	"github.com/avena-commons/eventcore/internal/dispatch"
	"github.com/avena-commons/eventcore/internal/events"
	"github.com/avena-commons/eventcore/internal/eventmodel"
	"github.com/avena-commons/eventcore/internal/eventpool"
	"github.com/avena-commons/eventcore/internal/httpapi"
	"github.com/avena-commons/eventcore/internal/listenererr"
	"github.com/avena-commons/eventcore/internal/obs"
)

// State is the listener's lifecycle flag (spec.md §4.1).
type State int32

const (
	StateIdle State = iota
	StateInitialized
	StateRunning
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateInitialized:
		return "INITIALIZED"
	case StateRunning:
		return "RUNNING"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Listener is a single Event Listener Core node: three pools, a dispatcher,
// three (or four, with discovery) control loops, an HTTP ingress, and
// crash-safe persistence.
type Listener struct {
	cfg   Config
	hooks Hooks
	log   *slog.Logger
	diag  *events.DiagnosticLogger

	Incoming   *eventpool.Pool
	Processing *eventpool.Pool
	Outgoing   *eventpool.Pool

	sender     *dispatch.Sender
	dispatcher *dispatch.Dispatcher
	httpServer *httpapi.Server

	metrics *obs.Metrics
	tracer  *obs.Tracer

	stateMu sync.RWMutex
	state   map[string]interface{}

	appConfigMu sync.RWMutex
	appConfig   map[string]interface{}

	receivedEvents atomic.Int64
	sentEvents     atomic.Int64

	lifecycle atomic.Int32

	shutdownRequested atomic.Bool
	systemReadyOnce   sync.Once
	systemReady       chan struct{}
	shutdownOnce      sync.Once

	analyzerLoop  *controlloop.Loop
	localDataLoop *controlloop.Loop
	dispatchLoop  *controlloop.Loop
	discoveryLoop *controlloop.Loop

	loopCtx    context.Context
	loopCancel context.CancelFunc
}

// New constructs a Listener and transitions it to INITIALIZED. It does not
// bind the HTTP server or start the control loops; call Start for that.
func New(cfg Config, hooks Hooks, log *slog.Logger) *Listener {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	hooks = hooks.fillDefaults()

	l := &Listener{
		cfg:         cfg,
		hooks:       hooks,
		log:         log,
		diag:        events.NewDiagnosticLogger(cfg.Name),
		state:       make(map[string]interface{}),
		appConfig:   make(map[string]interface{}),
		systemReady: make(chan struct{}),
	}

	l.Incoming = eventpool.New(eventpool.Config{
		Name: "incoming", MaxSize: cfg.IncomingMaxSize,
		OverflowPolicy: cfg.IncomingOverflowPolicy, MaxAge: cfg.IncomingMaxAge,
	}, log)
	l.Processing = eventpool.New(eventpool.Config{
		Name: "processing", MaxSize: cfg.ProcessingMaxSize,
		OverflowPolicy: cfg.ProcessingOverflowPolicy, MaxAge: cfg.ProcessingMaxAge,
	}, log)
	l.Outgoing = eventpool.New(eventpool.Config{
		Name: "outgoing", MaxSize: cfg.OutgoingMaxSize,
		OverflowPolicy: cfg.OutgoingOverflowPolicy, MaxAge: cfg.OutgoingMaxAge,
	}, log)

	l.sender = dispatch.NewSender(nil)
	l.dispatcher = dispatch.New(l.Outgoing, l.sender, dispatch.Config{
		MaxRetries: cfg.OutgoingMaxRetries,
		BatchSize:  cfg.DispatchBatchSize,
	}, log, nil)

	l.metrics = obs.NoopMetrics()
	l.tracer = obs.NoopTracer()

	l.lifecycle.Store(int32(StateInitialized))
	return l
}

// State returns the listener's current lifecycle state.
func (l *Listener) State() State {
	return State(l.lifecycle.Load())
}

// ReceivedEvents returns the count of events accepted over HTTP ingress.
func (l *Listener) ReceivedEvents() int64 { return l.receivedEvents.Load() }

// SentEvents returns the count of events successfully dispatched.
func (l *Listener) SentEvents() int64 { return l.sentEvents.Load() }

// IncrementReceived bumps the received-events counter, the same counter
// the HTTP ingress bumps when it accepts an event.
func (l *Listener) IncrementReceived() { l.receivedEvents.Add(1) }

// SetState sets a key in the listener's persisted application state map.
func (l *Listener) SetState(key string, value interface{}) {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	l.state[key] = value
}

// GetState reads a key from the listener's persisted application state
// map.
func (l *Listener) GetState(key string) (interface{}, bool) {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	v, ok := l.state[key]
	return v, ok
}

// StateSnapshot returns a copy of the full application state map, for
// persistence.
func (l *Listener) StateSnapshot() map[string]interface{} {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	out := make(map[string]interface{}, len(l.state))
	for k, v := range l.state {
		out[k] = v
	}
	return out
}

// RestoreState replaces the application state map wholesale, used when
// rehydrating from a snapshot at startup.
func (l *Listener) RestoreState(state map[string]interface{}) {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	if state == nil {
		state = make(map[string]interface{})
	}
	l.state = state
}

// Emit constructs an Event from the listener's own identity and enqueues
// it on the outgoing pool with retry_count=0 (spec.md §4.1).
func (l *Listener) Emit(destination, address string, port int, eventType string, id *int, data map[string]interface{}, toBeProcessed bool, maxProcessingTime *float64) (*eventmodel.Event, error) {
	if destination == "" || eventType == "" {
		return nil, fmt.Errorf("emit: %w: destination and event_type are required", listenererr.ErrInvalidArgument)
	}
	if data == nil {
		data = map[string]interface{}{}
	}

	e := &eventmodel.Event{
		Source:                l.cfg.Name,
		SourceAddress:         l.cfg.Address,
		SourcePort:            l.cfg.Port,
		Destination:           destination,
		DestinationAddress:    address,
		DestinationPort:       port,
		EventType:             eventType,
		Timestamp:             time.Now(),
		Data:                  data,
		Payload:               1,
		ID:                    id,
		ToBeProcessed:         toBeProcessed,
		MaximumProcessingTime: maxProcessingTime,
	}

	l.Outgoing.AppendWithRetry(e, 0)
	return e, nil
}

// AddToProcessing marks event as in flight and moves it into the
// processing pool (spec.md §4.1/§4.4).
func (l *Listener) AddToProcessing(event *eventmodel.Event) bool {
	event.IsProcessing = true
	return l.Processing.Append(event, 0, 0, nil)
}

// FindAndRemoveProcessingEvent searches the processing pool for an event
// matching eventType (and, if non-nil/non-empty, id/timestamp), removes
// and returns it. An OVERTIME diagnostic is emitted if the event's
// maximum_processing_time has elapsed (spec.md §4.4).
func (l *Listener) FindAndRemoveProcessingEvent(eventType string, id *int, timestamp string) *eventmodel.Event {
	m := l.Processing.FindAndRemoveMatch(eventType, id, timestamp)
	if m == nil {
		return nil
	}

	elapsed := m.Age().Seconds()
	if elapsed > m.Event.MaxProcessingTimeOrDefault() {
		l.log.Error("OVERTIME: processing event exceeded maximum_processing_time",
			"event_type", m.Event.EventType, "id", m.Event.ID, "elapsed_seconds", elapsed)
		l.diag.LogProcessingTimeout(m.Event.EventType, m.Event.ID, elapsed)
	}
	return m.Event
}

// Reply copies event, swaps source and destination, and enqueues it to the
// outgoing pool. event.Result must already be set (spec.md §4.1).
func (l *Listener) Reply(event *eventmodel.Event) error {
	if event.Result == nil {
		return fmt.Errorf("reply: %w: event.Result must be set before replying", listenererr.ErrInvalidArgument)
	}

	reply := event.Clone()
	reply.SwapSourceAndDestination()
	reply.Timestamp = time.Now()
	reply.IsProcessing = false

	l.Outgoing.AppendWithRetry(reply, 0)
	return nil
}

// CumulativeReply applies Reply to every event in events, continuing past
// individual failures and returning the first error encountered, if any.
func (l *Listener) CumulativeReply(evts []*eventmodel.Event) error {
	var firstErr error
	for _, e := range evts {
		if err := l.Reply(e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Dispatcher exposes the listener's dispatcher for wiring a custom
// Instrumentation before Start.
func (l *Listener) Dispatcher() *dispatch.Dispatcher { return l.dispatcher }
