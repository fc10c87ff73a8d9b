package listener

import (
	"time"

	cfgdefaults "github.com/avena-commons/eventcore/internal/config"
	"github.com/avena-commons/eventcore/internal/eventpool"
	"github.com/avena-commons/eventcore/internal/obs"
)

// Config carries every process-level knob spec.md §6.4 enumerates.
// DefaultConfig supplies the defaults; New uses the values as given and
// does not replace zero values with defaults.
type Config struct {
	Name    string
	Address string
	Port    int

	DoNotLoadState      bool
	DiscoveryNeighbours bool
	ReportOvertime      bool

	AnalyzerPeriod  time.Duration
	LocalDataPeriod time.Duration
	DispatchPeriod  time.Duration
	DiscoveryPeriod time.Duration

	IncomingMaxSize    int
	ProcessingMaxSize  int
	OutgoingMaxSize    int
	OutgoingMaxRetries int
	DispatchBatchSize  int

	DefaultMaxProcessingTime time.Duration

	IncomingOverflowPolicy   eventpool.OverflowPolicy
	ProcessingOverflowPolicy eventpool.OverflowPolicy
	OutgoingOverflowPolicy   eventpool.OverflowPolicy

	IncomingMaxAge   time.Duration
	ProcessingMaxAge time.Duration
	OutgoingMaxAge   time.Duration

	SnapshotDir string // directory for <name>_state.json
	ConfigDir   string // directory for <name>_config.json

	// Metrics and Tracing are nil-safe: a nil value (the default) leaves
	// observability disabled, matching the teacher's "enabled: false by
	// default" posture for internal/otel.
	Metrics *obs.MetricsConfig
	Tracing *obs.Config
}

// DefaultConfig returns a Config with every knob set to its spec.md §4.2 /
// §4.5 / §6.4 default. Callers fill in Name/Address/Port and override
// whatever else they need.
func DefaultConfig(name, address string, port int) Config {
	return Config{
		Name:    name,
		Address: address,
		Port:    port,

		ReportOvertime: true,

		AnalyzerPeriod:  cfgdefaults.DefaultAnalyzerPeriod,
		LocalDataPeriod: cfgdefaults.DefaultLocalDataPeriod,
		DispatchPeriod:  cfgdefaults.DefaultDispatchPeriod,
		DiscoveryPeriod: cfgdefaults.DefaultDiscoveryPeriod,

		IncomingMaxSize:    10000,
		ProcessingMaxSize:  0,
		OutgoingMaxSize:    50000,
		OutgoingMaxRetries: cfgdefaults.DefaultMaxRetries,
		DispatchBatchSize:  cfgdefaults.DefaultBatchSize,

		DefaultMaxProcessingTime: 20 * time.Second,

		IncomingOverflowPolicy:   eventpool.OverflowDropOldest,
		ProcessingOverflowPolicy: eventpool.OverflowUnlimited,
		OutgoingOverflowPolicy:   eventpool.OverflowDropOldest,

		IncomingMaxAge:   300 * time.Second,
		ProcessingMaxAge: 40 * time.Second,
		OutgoingMaxAge:   600 * time.Second,

		SnapshotDir: ".",
		ConfigDir:   ".",
	}
}
