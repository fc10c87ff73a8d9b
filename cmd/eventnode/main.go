// Command eventnode runs a single Event Listener Core node: an HTTP
// ingress, incoming/processing/outgoing pools, a dispatcher, and the
// analyzer/local-data/dispatch (and optional discovery) control loops,
// per spec.md §4 and §6.4.
//
// Flag shape mirrors the teacher's cmd/server/main.go: one flag per
// process-level knob, parsed up front, wired into a config struct, then
// Start blocks until SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/avena-commons/eventcore/internal/eventmodel"
	"github.com/avena-commons/eventcore/internal/listener"
)

func main() {
	name := flag.String("name", "", "Node name (required); also the prefix of its state/config snapshot files")
	address := flag.String("address", "0.0.0.0", "Address this node advertises to peers")
	port := flag.Int("port", 8080, "HTTP listen port")
	doNotLoadState := flag.Bool("do-not-load-state", false, "Skip loading a persisted state snapshot at startup")
	discoveryNeighbours := flag.Bool("discovery", false, "Enable the periodic neighbour-discovery loop")
	reportOvertime := flag.Bool("report-overtime", true, "Log a warning when a control loop tick exceeds its period")
	analyzerHz := flag.Float64("analyzer-hz", 100, "Analyzer loop frequency in Hz")
	localDataHz := flag.Float64("local-data-hz", 100, "Local-data loop frequency in Hz")
	dispatchHz := flag.Float64("dispatch-hz", 50, "Dispatcher loop frequency in Hz")
	discoveryHz := flag.Float64("discovery-hz", 1, "Discovery loop frequency in Hz")
	incomingMaxSize := flag.Int("incoming-max-size", 10000, "Max entries in the incoming pool (0=unlimited)")
	outgoingMaxSize := flag.Int("outgoing-max-size", 50000, "Max entries in the outgoing pool (0=unlimited)")
	outgoingMaxRetries := flag.Int("outgoing-max-retries", 10, "Drop an outgoing event after this many failed sends (0=never)")
	demoEcho := flag.Bool("demo-echo", false, "Wire a demo echo hook: reply success to every incoming event")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "eventnode: -name is required")
		os.Exit(1)
	}

	instanceID := uuid.NewString()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With("node", *name, "instance_id", instanceID)

	cfg := listener.DefaultConfig(*name, *address, *port)
	cfg.DoNotLoadState = *doNotLoadState
	cfg.DiscoveryNeighbours = *discoveryNeighbours
	cfg.ReportOvertime = *reportOvertime
	cfg.AnalyzerPeriod = hzToPeriod(*analyzerHz)
	cfg.LocalDataPeriod = hzToPeriod(*localDataHz)
	cfg.DispatchPeriod = hzToPeriod(*dispatchHz)
	cfg.DiscoveryPeriod = hzToPeriod(*discoveryHz)
	cfg.IncomingMaxSize = *incomingMaxSize
	cfg.OutgoingMaxSize = *outgoingMaxSize
	cfg.OutgoingMaxRetries = *outgoingMaxRetries

	hooks := listener.DefaultHooks()
	if *demoEcho {
		hooks.AnalyzeEvent = demoEchoHook
	}

	l := listener.New(cfg, hooks, log)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received shutdown signal")
		cancel()
	}()

	log.Info("starting event listener core", "address", *address, "port", *port)
	if err := l.Start(ctx); err != nil {
		log.Error("event listener core exited with error", "error", err)
		os.Exit(1)
	}
}

func hzToPeriod(hz float64) time.Duration {
	if hz <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / hz)
}

// demoEchoHook is a minimal AnalyzeEvent implementation for the S1
// echo-round-trip scenario (spec.md §10): it immediately replies with
// ResultSuccess to any event that asked to be processed, and otherwise
// drops the event.
func demoEchoHook(l *listener.Listener, event *eventmodel.Event) bool {
	if !event.ToBeProcessed {
		return true
	}
	event.Result = eventmodel.NewResult(eventmodel.ResultSuccess)
	_ = l.Reply(event)
	return true
}
