package listener

import (
	"github.com/avena-commons/eventcore/internal/controlloop"
	"github.com/avena-commons/eventcore/internal/eventpool"
)

// LoopStatus is a point-in-time snapshot of one control loop, for
// GET /statusz.
type LoopStatus struct {
	Name      string  `json:"name"`
	Ticks     int64   `json:"ticks"`
	Overtimes int64   `json:"overtimes"`
	AvgMs     float64 `json:"avg_ms"`
	MaxMs     float64 `json:"max_ms"`
}


// Status is the full status snapshot served at GET /statusz, a
// supplement to the spec's literal surface (spec.md §6.1 only requires
// POST /event, /state, /discovery; the health/readiness/status trio is
// the Go-idiomatic ambient surface every teacher-style service exposes).
type Status struct {
	Name           string          `json:"name"`
	State          string          `json:"state"`
	ReceivedEvents int64           `json:"received_events"`
	SentEvents     int64           `json:"sent_events"`
	Incoming       eventpool.Stats `json:"incoming"`
	Processing     eventpool.Stats `json:"processing"`
	Outgoing       eventpool.Stats `json:"outgoing"`
	Loops          []LoopStatus    `json:"loops"`
}

func loopStatus(name string, l *controlloop.Loop) LoopStatus {
	if l == nil {
		return LoopStatus{Name: name}
	}
	s := l.Stats()
	return LoopStatus{
		Name:      name,
		Ticks:     s.TickCount,
		Overtimes: s.OvertimeCount,
		AvgMs:     s.AvgDuration.Seconds() * 1000,
		MaxMs:     s.MaxDuration.Seconds() * 1000,
	}
}

// MetricsSnapshot is the small JSON counter snapshot served at GET
// /metrics: the same counts also emitted via OTel, for a caller that wants
// them without standing up a collector (SPEC_FULL.md's SUPPLEMENTED
// FEATURES section). It deliberately does not carry the per-loop timing
// detail StatusSnapshot does — /statusz is the operator's full picture,
// /metrics is the cheap poll.
type MetricsSnapshot struct {
	ReceivedEvents int64 `json:"received_events"`
	SentEvents     int64 `json:"sent_events"`
	IncomingSize   int   `json:"incoming_size"`
	ProcessingSize int   `json:"processing_size"`
	OutgoingSize   int   `json:"outgoing_size"`
}

// MetricsSnapshot builds the current counter snapshot.
func (l *Listener) MetricsSnapshot() MetricsSnapshot {
	return MetricsSnapshot{
		ReceivedEvents: l.ReceivedEvents(),
		SentEvents:     l.SentEvents(),
		IncomingSize:   l.Incoming.Len(),
		ProcessingSize: l.Processing.Len(),
		OutgoingSize:   l.Outgoing.Len(),
	}
}

// StatusSnapshot builds a Status for the current moment.
func (l *Listener) StatusSnapshot() Status {
	loops := []LoopStatus{
		loopStatus("analyzer", l.analyzerLoop),
		loopStatus("local_data", l.localDataLoop),
		loopStatus("dispatch", l.dispatchLoop),
	}
	if l.cfg.DiscoveryNeighbours {
		loops = append(loops, loopStatus("discovery", l.discoveryLoop))
	}

	return Status{
		Name:           l.cfg.Name,
		State:          l.State().String(),
		ReceivedEvents: l.ReceivedEvents(),
		SentEvents:     l.SentEvents(),
		Incoming:       l.Incoming.Stats(),
		Processing:     l.Processing.Stats(),
		Outgoing:       l.Outgoing.Stats(),
		Loops:          loops,
	}
}
