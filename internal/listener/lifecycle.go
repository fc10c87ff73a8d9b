package listener

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	cfgdefaults "github.com/avena-commons/eventcore/internal/config"
	"github.com/avena-commons/eventcore/internal/controlloop"
	"github.com/avena-commons/eventcore/internal/httpapi"
	"github.com/avena-commons/eventcore/internal/listenererr"
	"github.com/avena-commons/eventcore/internal/obs"
	"github.com/avena-commons/eventcore/internal/persistence"
)

func (l *Listener) snapshotPath() string {
	return filepath.Join(l.cfg.SnapshotDir, fmt.Sprintf("%s_state.json", l.cfg.Name))
}

func (l *Listener) configPath() string {
	return filepath.Join(l.cfg.ConfigDir, fmt.Sprintf("%s_config.json", l.cfg.Name))
}

// Start brings the listener from INITIALIZED to RUNNING: it loads any
// persisted config and state, registers SIGINT/SIGTERM handlers, starts
// the control loops, and blocks until ctx is cancelled or one of those
// signals arrives, then runs Shutdown (spec.md §4.6). A direct Shutdown
// call, or a signal that arrives before the node is RUNNING, stops the
// node but does not by itself make Start return.
func (l *Listener) Start(ctx context.Context) error {
	if State(l.lifecycle.Load()) != StateInitialized {
		return listenererr.ErrAlreadyRunning
	}

	var persistedConfig map[string]interface{}
	if err := persistence.LoadConfig(l.configPath(), &persistedConfig); err != nil {
		l.log.Warn("failed to load persisted config, continuing with defaults", "error", err)
	} else if persistedConfig != nil {
		l.appConfigMu.Lock()
		l.appConfig = persistedConfig
		l.appConfigMu.Unlock()
	}

	if !l.cfg.DoNotLoadState {
		snap, err := persistence.Load(l.snapshotPath())
		if err != nil {
			l.log.Warn("failed to load persisted state snapshot, starting empty", "error", err)
		} else {
			persistence.Restore(snap, l.Incoming, l.Processing, l.Outgoing)
			l.RestoreState(snap.State)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			l.log.Info("received shutdown signal", "signal", sig.String())
			_ = l.Shutdown()
		case <-l.systemReady:
		}
	}()

	metricsCfg := l.cfg.Metrics
	if metricsCfg == nil {
		metricsCfg = obs.DefaultMetricsConfig()
	}
	if m, err := obs.NewMetrics(ctx, metricsCfg); err != nil {
		l.log.Warn("failed to initialize metrics, continuing without them", "error", err)
		l.metrics = obs.NoopMetrics()
	} else {
		l.metrics = m
	}
	obs.SetGlobalMetrics(l.metrics)
	l.dispatcher.SetInstrumentation(l.metrics)

	tracingCfg := l.cfg.Tracing
	if tracingCfg == nil {
		tracingCfg = obs.DefaultConfig()
	}
	if t, err := obs.NewTracer(ctx, tracingCfg); err != nil {
		l.log.Warn("failed to initialize tracing, continuing without it", "error", err)
		l.tracer = obs.NoopTracer()
	} else {
		l.tracer = t
	}
	obs.SetGlobalTracer(l.tracer)

	l.loopCtx, l.loopCancel = context.WithCancel(ctx)

	l.analyzerLoop = controlloop.New("analyzer", l.cfg.AnalyzerPeriod, l.analyzerTick, l.log)
	l.localDataLoop = controlloop.New("local_data", l.cfg.LocalDataPeriod, l.localDataTick, l.log)
	l.dispatchLoop = controlloop.New("dispatch", l.cfg.DispatchPeriod, l.dispatchTick, l.log)
	l.analyzerLoop.SetReportOvertime(l.cfg.ReportOvertime)
	l.localDataLoop.SetReportOvertime(l.cfg.ReportOvertime)
	l.dispatchLoop.SetReportOvertime(l.cfg.ReportOvertime)

	l.analyzerLoop.Start(l.loopCtx)
	l.localDataLoop.Start(l.loopCtx)
	l.dispatchLoop.Start(l.loopCtx)

	if l.cfg.DiscoveryNeighbours {
		l.discoveryLoop = controlloop.New("discovery", l.cfg.DiscoveryPeriod, l.discoveryTick, l.log)
		l.discoveryLoop.SetReportOvertime(l.cfg.ReportOvertime)
		l.discoveryLoop.Start(l.loopCtx)
	}

	l.httpServer = httpapi.New(httpapi.Config{
		Addr:       fmt.Sprintf("%s:%d", l.cfg.Address, l.cfg.Port),
		Middleware: obs.Middleware(l.tracer),
	}, l.httpHandlers(), l.log)
	if err := l.httpServer.Start(); err != nil {
		l.lifecycle.Store(int32(StateError))
		return fmt.Errorf("start http ingress: %w", err)
	}

	l.diag.LogLifecycleTransition(StateInitialized.String(), StateRunning.String(), "start")
	l.lifecycle.Store(int32(StateRunning))
	l.systemReadyOnce.Do(func() { close(l.systemReady) })

	select {
	case <-ctx.Done():
	case sig := <-sigCh:
		l.log.Info("received shutdown signal", "signal", sig.String())
	}
	return l.Shutdown()
}

// analyzerTick pops a batch from the incoming pool and offers each event
// to the AnalyzeEvent hook; events the hook does not claim (returns false)
// are left on the pool for a later tick (spec.md §9 wedge note, preserved
// verbatim — see hooks.go).
func (l *Listener) analyzerTick(ctx context.Context) {
	batch := l.Incoming.PopBatch(64)
	for _, m := range batch {
		claimed := func() (ok bool) {
			defer func() {
				if r := recover(); r != nil {
					l.diag.LogHandlerException("analyze_event", m.Event.EventType, fmt.Errorf("panic: %v", r))
					ok = false
				}
			}()
			return l.hooks.AnalyzeEvent(l, m.Event)
		}()
		if !claimed {
			l.Incoming.Append(m.Event, m.RetryCount, m.Priority, m.Meta)
		}
	}
}

func (l *Listener) localDataTick(ctx context.Context) {
	if l.metrics != nil {
		l.metrics.SetPoolSizes(l.Incoming.Len(), l.Processing.Len(), l.Outgoing.Len())
	}

	_, span := l.tracer.StartSpan(ctx, "listener.check_local_data")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			obs.RecordError(span, err, "handler_exception", false)
			l.diag.LogHandlerException("check_local_data", "", err)
		}
	}()
	l.hooks.CheckLocalData(l)
}

func (l *Listener) dispatchTick(ctx context.Context) {
	spanCtx, span := l.tracer.StartSpan(ctx, "listener.dispatch_tick")
	defer span.End()
	l.dispatcher.Tick(spanCtx)
}

func (l *Listener) discoveryTick(ctx context.Context) {
	// Neighbour discovery is an optional loop (Config.DiscoveryNeighbours);
	// the reference node has no neighbour table to broadcast yet, so this
	// tick is a placeholder hook point for a future transport binding.
}

// Shutdown idempotently stops the control loops, persists queue state and
// config, runs the BeforeShutdown hook, and only then stops the HTTP
// ingress — matching spec.md §4.6's step order (write queue snapshot,
// write config, execute_before_shutdown, then ask the HTTP server to
// exit) so ingress keeps accepting events through persistence and the
// before-shutdown hook (spec.md §5). Safe to call more than once and safe
// to call concurrently with Start's own signal-triggered call (testable
// property #9).
func (l *Listener) Shutdown() error {
	var shutdownErr error
	l.shutdownOnce.Do(func() {
		l.shutdownRequested.Store(true)
		time.Sleep(500 * time.Millisecond)

		var wg sync.WaitGroup
		stopWithTimeout := func(loop *controlloop.Loop) {
			if loop == nil {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				done := make(chan struct{})
				go func() {
					loop.Stop()
					close(done)
				}()
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					l.log.Warn("control loop did not stop within timeout")
				}
			}()
		}
		stopWithTimeout(l.analyzerLoop)
		stopWithTimeout(l.localDataLoop)
		stopWithTimeout(l.dispatchLoop)
		stopWithTimeout(l.discoveryLoop)
		wg.Wait()

		if l.loopCancel != nil {
			l.loopCancel()
		}

		snap := persistence.BuildSnapshot(l.Incoming, l.Processing, l.Outgoing, l.StateSnapshot())
		if err := persistence.Save(l.snapshotPath(), snap); err != nil {
			l.diag.LogSerializationFailure("save_snapshot", l.snapshotPath(), err)
			shutdownErr = err
		}

		l.appConfigMu.RLock()
		cfgCopy := l.appConfig
		l.appConfigMu.RUnlock()
		if len(cfgCopy) > 0 {
			if err := persistence.SaveConfig(l.configPath(), cfgCopy); err != nil {
				l.diag.LogSerializationFailure("save_config", l.configPath(), err)
			}
		}

		if err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return l.hooks.BeforeShutdown(l)
		}(); err != nil {
			l.diag.LogHandlerException("before_shutdown", "", err)
		}

		if l.httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfgdefaults.DefaultShutdownGrace)
			if err := l.httpServer.Shutdown(shutdownCtx); err != nil {
				l.log.Warn("http ingress did not shut down cleanly", "error", err)
			}
			cancel()
		}

		obsCtx, obsCancel := context.WithTimeout(context.Background(), 2*time.Second)
		if l.metrics != nil {
			_ = l.metrics.Shutdown(obsCtx)
		}
		if l.tracer != nil {
			_ = l.tracer.Shutdown(obsCtx)
		}
		obsCancel()

		l.diag.LogLifecycleTransition(l.State().String(), StateIdle.String(), "shutdown")
		l.lifecycle.Store(int32(StateIdle))
	})
	return shutdownErr
}
