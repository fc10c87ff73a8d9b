package listener

import "github.com/avena-commons/eventcore/internal/eventmodel"

// Hooks is the listener's narrow extension point, replacing the Python
// source's class-inheritance model (spec.md §9: "Inheritance as extension
// point... prefer composition + function values over deep class
// hierarchies"). A caller that needs only some of the three hooks may
// leave the others nil; DefaultHooks fills in no-op stand-ins.
type Hooks struct {
	// AnalyzeEvent is called once per incoming event, under the analyzer
	// loop. Returning true drops the event from the incoming pool;
	// returning false retains it for reconsideration on a later tick
	// (spec.md §9 flags this path as a potential wedge if the hook never
	// flips its answer — that risk is inherent to the contract, not a bug
	// to paper over here).
	AnalyzeEvent func(l *Listener, event *eventmodel.Event) bool

	// CheckLocalData is called once per local-data tick. Hooks typically
	// poll domain state, call FindAndRemoveProcessingEvent for completed
	// requests, and call Reply to answer them.
	CheckLocalData func(l *Listener)

	// BeforeShutdown runs once during Shutdown, after the loops have
	// stopped and the queue snapshot and config have been written, and
	// before the HTTP server is stopped (spec.md §4.6 steps 3-7).
	// Best-effort: its error, if any, is logged but never blocks shutdown.
	BeforeShutdown func(l *Listener) error
}

// DefaultHooks returns a Hooks value where every unset field is a no-op:
// AnalyzeEvent always drops the event, CheckLocalData and BeforeShutdown do
// nothing.
func DefaultHooks() Hooks {
	return Hooks{
		AnalyzeEvent:   func(l *Listener, event *eventmodel.Event) bool { return true },
		CheckLocalData: func(l *Listener) {},
		BeforeShutdown: func(l *Listener) error { return nil },
	}
}

func (h Hooks) fillDefaults() Hooks {
	d := DefaultHooks()
	if h.AnalyzeEvent == nil {
		h.AnalyzeEvent = d.AnalyzeEvent
	}
	if h.CheckLocalData == nil {
		h.CheckLocalData = d.CheckLocalData
	}
	if h.BeforeShutdown == nil {
		h.BeforeShutdown = d.BeforeShutdown
	}
	return h
}
