// Package httpapi implements the listener's HTTP ingress: the three wire
// routes spec.md §6.1 requires (POST /event, /state, /discovery) plus the
// health/readiness/status/metrics quartet every teacher-style service
// exposes.
//
// Modeled on the teacher's control-plane API server
// (internal/controlplane/api/server.go): a plain net/http.Server behind a
// ServeMux, explicit Read/Write/IdleTimeout, writeJSON/writeError helpers,
// and an explicit net.Listener so tests can bind to ":0" and read back the
// assigned port. The teacher's auth/rate-limit middleware stack has no
// home here — the listener is a trusted internal bus node, not an
// internet-facing control plane — so those concerns are dropped; the
// structural shape is kept.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	cfgdefaults "github.com/avena-commons/eventcore/internal/config"
)

// Handlers is the narrow set of callbacks the HTTP layer needs from the
// listener, kept as plain function values rather than an interface on
// *listener.Listener to avoid httpapi importing internal/listener (which
// itself owns and constructs the Server).
type Handlers struct {
	OnEvent     func(w http.ResponseWriter, r *http.Request)
	OnState     func(w http.ResponseWriter, r *http.Request)
	OnDiscovery func(w http.ResponseWriter, r *http.Request)
	OnHealthz   func(w http.ResponseWriter, r *http.Request)
	OnReadyz    func(w http.ResponseWriter, r *http.Request)
	OnStatusz   func(w http.ResponseWriter, r *http.Request)
	OnMetrics   func(w http.ResponseWriter, r *http.Request)
}

// Server is the listener's HTTP ingress.
type Server struct {
	addr       string
	handlers   Handlers
	log        *slog.Logger
	middleware func(http.Handler) http.Handler

	mu       sync.Mutex
	running  bool
	server   *http.Server
	listener net.Listener
}

// Config configures a Server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// Middleware, if set, wraps every route (e.g. OpenTelemetry request
	// tracing); nil means no wrapping.
	Middleware func(http.Handler) http.Handler
}

// New builds a Server bound to cfg.Addr. It does not start listening until
// Start is called.
func New(cfg Config, handlers Handlers, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = cfgdefaults.DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = cfgdefaults.DefaultWriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	return &Server{
		addr:       cfg.Addr,
		handlers:   handlers,
		log:        log,
		middleware: cfg.Middleware,
		server: &http.Server{
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

func (s *Server) wrap(h http.HandlerFunc) http.Handler {
	if s.middleware == nil {
		return h
	}
	return s.middleware(h)
}

// Start binds the listening socket and serves in the background. It
// returns once the socket is bound, not once the server stops.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("httpapi: server already running")
	}

	mux := http.NewServeMux()
	mux.Handle("/event", s.wrap(methodOnly(http.MethodPost, s.handlers.OnEvent)))
	mux.Handle("/state", s.wrap(methodOnly(http.MethodPost, s.handlers.OnState)))
	mux.Handle("/discovery", s.wrap(methodOnly(http.MethodPost, s.handlers.OnDiscovery)))
	mux.HandleFunc("/healthz", s.handlers.OnHealthz)
	mux.HandleFunc("/readyz", s.handlers.OnReadyz)
	mux.HandleFunc("/statusz", s.handlers.OnStatusz)
	mux.HandleFunc("/metrics", s.handlers.OnMetrics)

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen: %w", err)
	}
	s.listener = listener
	s.server.Handler = mux

	s.running = true
	srv := s.server
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server exited", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, resolved (so ":0" returns the actual
// ephemeral port) once Start has succeeded.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown gracefully stops the server, waiting up to ctx's deadline for
// in-flight requests to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	srv := s.server
	s.mu.Unlock()

	return srv.Shutdown(ctx)
}

// methodOnly rejects any method other than want with 405, matching
// spec.md §6.1's "wrong HTTP method on a known route → 405".
func methodOnly(want string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != want {
			w.Header().Set("Allow", want)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h(w, r)
	}
}
