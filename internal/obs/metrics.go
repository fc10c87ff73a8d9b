// Package obs wires the listener core's OpenTelemetry metrics and tracing.
// Adapted from the teacher's internal/otel package: same
// enabled-flag/exporter-type/meter-provider shape, with the mcpdrill
// instrument set (operation latency, active sessions, reconnects, stalls)
// replaced by the listener's own counters (events received/sent/dropped,
// retries, loop overtime, dispatcher batch size) per SPEC_FULL.md's DOMAIN
// STACK section.
package obs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// MetricsConfig holds configuration for the OpenTelemetry metrics.
type MetricsConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	ExporterType   ExporterType
	OTLPEndpoint   string
	OTLPInsecure   bool
	Attributes     map[string]string
}

// DefaultMetricsConfig returns a default configuration with metrics
// disabled.
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Enabled:      false,
		ServiceName:  "eventnode",
		ExporterType: ExporterNone,
	}
}

// Metrics wraps OpenTelemetry metrics functionality with the listener
// core's own instruments, satisfying dispatch.Instrumentation.
type Metrics struct {
	config        *MetricsConfig
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	shutdown      func(context.Context) error
	mu            sync.RWMutex

	eventsReceived metric.Int64Counter
	eventsSent     metric.Int64Counter
	eventsDropped  metric.Int64Counter
	eventsRetried  metric.Int64Counter
	poolSize       metric.Int64ObservableGauge
	poolSizeReg    metric.Registration
	loopOvertime   metric.Int64Counter
	dispatchBatch  metric.Int64Histogram
	incomingSize   atomic.Int64
	processingSize atomic.Int64
	outgoingSize   atomic.Int64
}

var (
	globalMetrics   *Metrics
	globalMetricsMu sync.RWMutex
)

// NewMetrics creates a new Metrics instance with the given configuration.
func NewMetrics(ctx context.Context, cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil {
		cfg = DefaultMetricsConfig()
	}

	m := &Metrics{config: cfg}

	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		m.meterProvider = sdkmetric.NewMeterProvider()
		m.meter = m.meterProvider.Meter(cfg.ServiceName)
		m.shutdown = func(context.Context) error { return nil }
		return m, nil
	}

	exporter, err := m.createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metrics exporter: %w", err)
	}

	res, err := m.createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("create metrics resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	m.meterProvider = mp
	m.meter = mp.Meter(cfg.ServiceName)
	m.shutdown = mp.Shutdown

	if err := m.registerInstruments(); err != nil {
		return nil, fmt.Errorf("register metric instruments: %w", err)
	}
	return m, nil
}

func (m *Metrics) createExporter(ctx context.Context, cfg *MetricsConfig) (sdkmetric.Exporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		return stdoutmetric.New()
	case ExporterOTLPGRPC:
		opts := []otlpmetricgrpc.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	case ExporterOTLPHTTP:
		opts := []otlpmetrichttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.ExporterType)
	}
}

func (m *Metrics) createResource(cfg *MetricsConfig) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{attribute.String("service.name", cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.ServiceVersion))
	}
	for k, v := range cfg.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	return resource.Merge(resource.Default(), resource.NewWithAttributes("", attrs...))
}

func (m *Metrics) registerInstruments() error {
	var err error

	m.eventsReceived, err = m.meter.Int64Counter(
		"eventnode.events.received",
		metric.WithDescription("Events accepted over HTTP ingress"),
	)
	if err != nil {
		return fmt.Errorf("create events received counter: %w", err)
	}

	m.eventsSent, err = m.meter.Int64Counter(
		"eventnode.events.sent",
		metric.WithDescription("Events successfully dispatched to a destination"),
	)
	if err != nil {
		return fmt.Errorf("create events sent counter: %w", err)
	}

	m.eventsDropped, err = m.meter.Int64Counter(
		"eventnode.events.dropped",
		metric.WithDescription("Events dropped by pool overflow or retry exhaustion"),
	)
	if err != nil {
		return fmt.Errorf("create events dropped counter: %w", err)
	}

	m.eventsRetried, err = m.meter.Int64Counter(
		"eventnode.events.retried",
		metric.WithDescription("Outgoing send attempts requeued after failure"),
	)
	if err != nil {
		return fmt.Errorf("create events retried counter: %w", err)
	}

	m.loopOvertime, err = m.meter.Int64Counter(
		"eventnode.loop.overtime",
		metric.WithDescription("Control loop ticks exceeding their configured period"),
	)
	if err != nil {
		return fmt.Errorf("create loop overtime counter: %w", err)
	}

	m.dispatchBatch, err = m.meter.Int64Histogram(
		"eventnode.dispatch.batch_size",
		metric.WithDescription("Number of events sent per destination batch"),
	)
	if err != nil {
		return fmt.Errorf("create dispatch batch histogram: %w", err)
	}

	m.poolSize, err = m.meter.Int64ObservableGauge(
		"eventnode.pool.size",
		metric.WithDescription("Current size of each event pool"),
	)
	if err != nil {
		return fmt.Errorf("create pool size gauge: %w", err)
	}

	m.poolSizeReg, err = m.meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(m.poolSize, m.incomingSize.Load(), metric.WithAttributes(attribute.String("pool", "incoming")))
			o.ObserveInt64(m.poolSize, m.processingSize.Load(), metric.WithAttributes(attribute.String("pool", "processing")))
			o.ObserveInt64(m.poolSize, m.outgoingSize.Load(), metric.WithAttributes(attribute.String("pool", "outgoing")))
			return nil
		},
		m.poolSize,
	)
	if err != nil {
		return fmt.Errorf("register pool size callback: %w", err)
	}
	return nil
}

// RecordReceived increments the events-received counter.
func (m *Metrics) RecordReceived(ctx context.Context, eventType string) {
	if m.eventsReceived == nil {
		return
	}
	m.eventsReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

// ObserveBatchSize records a dispatcher batch size, implementing
// dispatch.Instrumentation.
func (m *Metrics) ObserveBatchSize(destination string, n int) {
	if m.dispatchBatch == nil {
		return
	}
	m.dispatchBatch.Record(context.Background(), int64(n), metric.WithAttributes(attribute.String("destination", destination)))
}

// RecordSent implements dispatch.Instrumentation.
func (m *Metrics) RecordSent(destination string, n int) {
	if m.eventsSent == nil {
		return
	}
	m.eventsSent.Add(context.Background(), int64(n), metric.WithAttributes(attribute.String("destination", destination)))
}

// RecordFailed implements dispatch.Instrumentation.
func (m *Metrics) RecordFailed(destination string, n int) {
	if m.eventsRetried == nil {
		return
	}
	m.eventsRetried.Add(context.Background(), int64(n), metric.WithAttributes(attribute.String("destination", destination)))
}

// RecordDropped implements dispatch.Instrumentation.
func (m *Metrics) RecordDropped(destination string, n int) {
	if m.eventsDropped == nil {
		return
	}
	m.eventsDropped.Add(context.Background(), int64(n), metric.WithAttributes(attribute.String("destination", destination), attribute.String("reason", "retry_exhausted")))
}

// RecordLoopOvertime increments the loop-overtime counter.
func (m *Metrics) RecordLoopOvertime(ctx context.Context, loop string) {
	if m.loopOvertime == nil {
		return
	}
	m.loopOvertime.Add(ctx, 1, metric.WithAttributes(attribute.String("loop", loop)))
}

// SetPoolSizes updates the observable pool-size gauges.
func (m *Metrics) SetPoolSizes(incoming, processing, outgoing int) {
	m.incomingSize.Store(int64(incoming))
	m.processingSize.Store(int64(processing))
	m.outgoingSize.Store(int64(outgoing))
}

// Shutdown gracefully shuts down the metrics provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.poolSizeReg != nil {
		if err := m.poolSizeReg.Unregister(); err != nil {
			return fmt.Errorf("unregister pool size callback: %w", err)
		}
	}
	if m.shutdown != nil {
		return m.shutdown(ctx)
	}
	return nil
}

// Enabled returns whether metrics collection is enabled.
func (m *Metrics) Enabled() bool {
	return m.config.Enabled && m.config.ExporterType != ExporterNone
}

// MeterProvider returns the underlying meter provider.
func (m *Metrics) MeterProvider() *sdkmetric.MeterProvider {
	return m.meterProvider
}

// SetGlobalMetrics sets the global metrics instance.
func SetGlobalMetrics(m *Metrics) {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	globalMetrics = m
	if m != nil && m.Enabled() {
		otel.SetMeterProvider(m.meterProvider)
	}
}

// GetGlobalMetrics returns the global metrics instance, or a no-op instance
// if none has been set.
func GetGlobalMetrics() *Metrics {
	globalMetricsMu.RLock()
	defer globalMetricsMu.RUnlock()
	if globalMetrics == nil {
		return NoopMetrics()
	}
	return globalMetrics
}

// NoopMetrics returns a metrics instance that does nothing.
func NoopMetrics() *Metrics {
	cfg := DefaultMetricsConfig()
	mp := sdkmetric.NewMeterProvider()
	return &Metrics{
		config:        cfg,
		meterProvider: mp,
		meter:         mp.Meter(cfg.ServiceName),
		shutdown:      func(context.Context) error { return nil },
	}
}
