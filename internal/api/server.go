// Package api serves the layout pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz      liveness probe
//	GET  /metrics      Prometheus metrics (when a handler is configured)
//	GET  /v1/engines   supported layout engines
//	POST /v1/layout    {tasks, hidden, engine, theme} → positioned layout
//	POST /v1/graph     {tasks, hidden} → node/edge structure
//
// Failures are returned as {"code": ..., "message": ...} with a status
// derived from the error code. A failed layout never yields a partial body.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/taskgraph/pkg/pipeline"
)

// Options configures a [Server].
type Options struct {
	// Defaults are the pipeline options requests start from.
	Defaults pipeline.Options

	Logger *log.Logger

	// MaxBodyBytes bounds request bodies. Zero means 1 MiB.
	MaxBodyBytes int64

	// Timeout bounds one layout run. Zero means no limit beyond the client's.
	Timeout time.Duration

	// Metrics, when set, is served on /metrics.
	Metrics http.Handler
}

// Server is the HTTP front end of a pipeline runner.
type Server struct {
	runner   *pipeline.Runner
	defaults pipeline.Options
	logger   *log.Logger
	maxBody  int64
	timeout  time.Duration
	router   chi.Router
}

// New creates a server that lays out requests with runner.
func New(runner *pipeline.Runner, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	s := &Server{
		runner:   runner,
		defaults: opts.Defaults,
		logger:   opts.Logger,
		maxBody:  opts.MaxBodyBytes,
		timeout:  opts.Timeout,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/engines", s.handleEngines)
		r.Post("/layout", s.handleLayout)
		r.Post("/graph", s.handleGraph)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
