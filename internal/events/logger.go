// Package events provides structured diagnostic logging for the listener
// core, adapted from the teacher's EventLogger
// (internal/events/logger.go): same slog.JSONHandler-over-stdout shape and
// global-logger accessor pair, with the mcpdrill-specific event names
// (LogReconnect, LogStallTrigger, ...) replaced by the diagnostics
// spec.md §7 and §4.5 call for — pool overflow, retry exhaustion, loop
// overtime, and the rest of the listener's own event vocabulary.
package events

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// DiagnosticLogger emits structured, named diagnostic events for the
// listener core, distinct from general-purpose slog.Logger use elsewhere
// (the HTTP layer, the dispatcher) in that every method here corresponds to
// one of the named conditions spec.md calls out as worth a dedicated log
// line.
type DiagnosticLogger struct {
	logger *slog.Logger
	nodeID string
}

// NewDiagnosticLogger creates a logger with JSON output to stdout, tagged
// with nodeID (the listener passes its node name).
func NewDiagnosticLogger(nodeID string) *DiagnosticLogger {
	return NewDiagnosticLoggerWithWriter(nodeID, os.Stdout)
}

// NewDiagnosticLoggerWithWriter creates a logger writing JSON to w, for
// tests or alternate output destinations.
func NewDiagnosticLoggerWithWriter(nodeID string, w io.Writer) *DiagnosticLogger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(handler).With("node_id", nodeID)
	return &DiagnosticLogger{logger: logger, nodeID: nodeID}
}

// LogPoolOverflow logs an event dropped by a pool's overflow policy.
// event: "pool_overflow"
func (dl *DiagnosticLogger) LogPoolOverflow(pool, policy string, size, maxSize int) {
	dl.logger.Warn("pool_overflow",
		"pool", pool, "policy", policy, "size", size, "max_size", maxSize,
	)
}

// LogDuplicateKey logs an append rejected because its timestamp key
// already exists in the target pool.
// event: "duplicate_key"
func (dl *DiagnosticLogger) LogDuplicateKey(pool, eventType, key string) {
	dl.logger.Debug("duplicate_key",
		"pool", pool, "event_type", eventType, "key", key,
	)
}

// LogRetryExhausted logs an outgoing event dropped after exceeding
// max_retries.
// event: "retry_exhausted"
func (dl *DiagnosticLogger) LogRetryExhausted(destination, eventType string, retryCount int) {
	dl.logger.Error("retry_exhausted",
		"destination", destination, "event_type", eventType, "retry_count", retryCount,
	)
}

// LogLoopOvertime logs a control-loop tick that exceeded its period.
// event: "loop_overtime"
func (dl *DiagnosticLogger) LogLoopOvertime(loop string, periodMs, elapsedMs float64) {
	dl.logger.Warn("loop_overtime",
		"loop", loop, "period_ms", periodMs, "elapsed_ms", elapsedMs,
	)
}

// LogProcessingTimeout logs a processing-pool entry whose
// maximum_processing_time had already elapsed when it was removed.
// event: "processing_timeout"
func (dl *DiagnosticLogger) LogProcessingTimeout(eventType string, id *int, elapsedSeconds float64) {
	dl.logger.Warn("processing_timeout",
		"event_type", eventType, "id", id, "elapsed_seconds", elapsedSeconds,
	)
}

// LogHandlerException logs a hook function (AnalyzeEvent, CheckLocalData,
// BeforeShutdown) returning an error.
// event: "handler_exception"
func (dl *DiagnosticLogger) LogHandlerException(hook, eventType string, err error) {
	dl.logger.Error("handler_exception",
		"hook", hook, "event_type", eventType, "error", err,
	)
}

// LogSerializationFailure logs a snapshot save/load failure.
// event: "serialization_failure"
func (dl *DiagnosticLogger) LogSerializationFailure(op, path string, err error) {
	dl.logger.Error("serialization_failure",
		"op", op, "path", path, "error", err,
	)
}

// LogLifecycleTransition logs a listener state change.
// event: "lifecycle_transition"
func (dl *DiagnosticLogger) LogLifecycleTransition(from, to, reason string) {
	dl.logger.Info("lifecycle_transition",
		"from", from, "to", to, "reason", reason,
	)
}

var (
	globalLogger *DiagnosticLogger
	globalMu     sync.RWMutex
)

// SetGlobalDiagnosticLogger sets the process-wide diagnostic logger.
func SetGlobalDiagnosticLogger(l *DiagnosticLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// GetGlobalDiagnosticLogger returns the process-wide diagnostic logger, or
// a no-op logger if none has been set.
func GetGlobalDiagnosticLogger() *DiagnosticLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger
	}
	return NoopDiagnosticLogger()
}

// NoopDiagnosticLogger returns a logger that discards everything it is
// given, for tests and for components run before a node id is known.
func NoopDiagnosticLogger() *DiagnosticLogger {
	handler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &DiagnosticLogger{logger: slog.New(handler)}
}
