// Package server is the Burger Drop HTTP edge: the static web page, the
// high-score API, Prometheus metrics and debug snapshots of the pools and
// the performance monitor.
package server

import (
	"context"
	"embed"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/burgerdrop/internal/game"
	"github.com/ajitpratap0/burgerdrop/pkg/config"
	"github.com/ajitpratap0/burgerdrop/pkg/errors"
	"github.com/ajitpratap0/burgerdrop/pkg/highscore"
	"github.com/ajitpratap0/burgerdrop/pkg/observability"
	"github.com/ajitpratap0/burgerdrop/pkg/performance"
	"github.com/ajitpratap0/burgerdrop/pkg/pool"
)

// gzipMinSize is the smallest response worth compressing.
const gzipMinSize = 512

//go:embed static
var static embed.FS

// Server serves the HTTP API. Every dependency is optional; endpoints
// whose dependency is missing answer 404.
type Server struct {
	cfg      config.ServerConfig
	logger   *zap.Logger
	store    highscore.Store
	manager  *pool.Manager
	monitor  *performance.Monitor
	status   func() game.Status
	gatherer prometheus.Gatherer
	tracer   trace.Tracer

	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore enables /api/highscore.
func WithStore(store highscore.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithPools enables /debug/pools.
func WithPools(m *pool.Manager) Option {
	return func(s *Server) { s.manager = m }
}

// WithMonitor enables /debug/performance.
func WithMonitor(m *performance.Monitor) Option {
	return func(s *Server) { s.monitor = m }
}

// WithStatus enables /debug/game.
func WithStatus(fn func() game.Status) Option {
	return func(s *Server) { s.status = fn }
}

// WithGatherer enables /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithTracer wraps every request in a server span.
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// New builds the server and its routes.
func New(cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	root, _ := fs.Sub(static, "static")
	mux.Handle("GET /", http.FileServerFS(root))
	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.store != nil {
		mux.HandleFunc("GET /api/highscore", s.handleGetHighScore)
		mux.HandleFunc("POST /api/highscore", s.handleSubmitHighScore)
	}
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.cfg.Debug {
		if s.manager != nil {
			mux.HandleFunc("GET /debug/pools", s.handlePools)
		}
		if s.monitor != nil {
			mux.HandleFunc("GET /debug/performance", s.handlePerformance)
		}
		if s.status != nil {
			mux.HandleFunc("GET /debug/game", s.handleGame)
		}
	}

	var h http.Handler = mux
	if s.cfg.Gzip {
		if wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(gzipMinSize)); err == nil {
			h = wrap(h)
		} else {
			s.logger.Warn("gzip disabled", zap.Error(err))
		}
	}
	h = s.logRequests(h)
	if s.tracer != nil {
		h = observability.TracingMiddleware(s.tracer, "burgerdrop")(h)
	}
	return h
}

// ListenAndServe serves on cfg.Addr until ctx is done, then shuts down
// gracefully within cfg.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to listen").
			WithDetail("addr", s.cfg.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, errors.ErrorTypeConnection, "http server failed")
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeTimeout, "http server shutdown")
	}
	return nil
}

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		}
		fields = append(fields, observability.TraceFields(r.Context())...)
		s.logger.Debug("http request", fields...)
	})
}
