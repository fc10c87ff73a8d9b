// Package config centralizes the default values for the listener runtime,
// the same role the teacher's internal/config/defaults.go played for
// session/telemetry buffer sizing — rewritten here for the event-listener's
// own knobs (loop frequencies, dispatcher batch size/retry cap, HTTP
// ingress timeouts) per SPEC_FULL.md §6.4.
//
// Pool sizing/overflow-policy defaults are not duplicated here: spec.md §3
// gives each of the three pools its own specialised default (incoming
// drop_oldest, processing unlimited, outgoing drop_oldest with a 50k cap),
// so they live directly in listener.DefaultConfig next to the typed
// eventpool.OverflowPolicy values they're paired with, rather than as
// untyped string constants in a package those values didn't match.
package config

import "time"

// Control-loop periods, derived from the frequencies spec.md §4.5 assigns
// to each loop (analyzer/local-data ~100Hz, dispatcher ~50Hz, discovery
// ~1Hz).
const (
	DefaultAnalyzerPeriod  = 10 * time.Millisecond
	DefaultLocalDataPeriod = 10 * time.Millisecond
	DefaultDispatchPeriod  = 20 * time.Millisecond
	DefaultDiscoveryPeriod = time.Second
)

// Dispatcher defaults. DefaultMaxRetries matches spec.md §4.3 step 3's
// "default 10" before a dropped-event diagnostic fires; the per-send
// timeout itself lives in dispatch.DefaultTimeout, next to the Sender that
// uses it.
const (
	DefaultMaxRetries = 10
	DefaultBatchSize  = 64
)

// HTTP ingress defaults, wired into httpapi.New's Config zero-value
// handling and the listener's shutdown grace period for draining
// in-flight requests (spec.md §4.6 step 7).
const (
	DefaultReadTimeout   = 5 * time.Second
	DefaultWriteTimeout  = 5 * time.Second
	DefaultShutdownGrace = 10 * time.Second
)
