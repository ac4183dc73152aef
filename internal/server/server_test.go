package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ajitpratap0/burgerdrop/internal/game"
	"github.com/ajitpratap0/burgerdrop/pkg/config"
	"github.com/ajitpratap0/burgerdrop/pkg/errors"
	"github.com/ajitpratap0/burgerdrop/pkg/highscore"
	"github.com/ajitpratap0/burgerdrop/pkg/metrics"
	"github.com/ajitpratap0/burgerdrop/pkg/performance"
	"github.com/ajitpratap0/burgerdrop/pkg/pool"
	"github.com/ajitpratap0/burgerdrop/pkg/testutil"
)

type fixture struct {
	srv     *Server
	store   *highscore.MemoryStore
	manager *pool.Manager
	monitor *performance.Monitor
}

func newFixture(t *testing.T, cfg config.ServerConfig, opts ...Option) *fixture {
	t.Helper()
	logger := testutil.TestLogger(t)

	manager := pool.NewManager(pool.WithLogger(logger))
	p := pool.CreatePool(manager, "particles", func() *int { return new(int) }, nil, 4, 8)
	obj := p.Acquire()
	p.Release(obj)

	monitor := performance.NewMonitor(config.Default().MonitorConfig(performance.High), performance.WithLogger(logger))
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewPoolCollector("burgerdrop", manager))

	f := &fixture{store: highscore.NewMemoryStore(), manager: manager, monitor: monitor}
	base := []Option{
		WithLogger(logger),
		WithStore(f.store),
		WithPools(manager),
		WithMonitor(monitor),
		WithGatherer(reg),
		WithStatus(func() game.Status { return game.Status{Phase: "playing", Score: 42} }),
	}
	f.srv = New(cfg, append(base, opts...)...)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func debugConfig() config.ServerConfig {
	cfg := config.Default().Server
	cfg.Gzip = false
	cfg.Debug = true
	return cfg
}

func TestHighScoreAPI(t *testing.T) {
	f := newFixture(t, debugConfig())

	rec := f.do(t, http.MethodGet, "/api/highscore", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[highScoreResponse](t, rec).Best)

	rec = f.do(t, http.MethodPost, "/api/highscore", `{"score": 120}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, highScoreResponse{Best: 120, Improved: true}, decode[highScoreResponse](t, rec))

	rec = f.do(t, http.MethodPost, "/api/highscore", `{"score": 80}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, highScoreResponse{Best: 120}, decode[highScoreResponse](t, rec))

	rec = f.do(t, http.MethodGet, "/api/highscore", "")
	assert.Equal(t, 120, decode[highScoreResponse](t, rec).Best)
}

func TestHighScoreRejectsBadInput(t *testing.T) {
	f := newFixture(t, debugConfig())

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"score":`},
		{"missing score", `{}`},
		{"negative", `{"score": -5}`},
		{"wrong type", `{"score": "lots"}`},
		{"too large", `{"score": 1, "pad": "` + strings.Repeat("x", maxBody) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/highscore", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "validation", decode[errorResponse](t, rec).Type)
		})
	}

	best, err := f.store.Get(context.Background())
	require.NoError(t, err)
	assert.Zero(t, best)
}

func TestHealthAndStatic(t *testing.T) {
	f := newFixture(t, debugConfig())

	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Burger Drop")
}

func TestGzip(t *testing.T) {
	cfg := debugConfig()
	cfg.Gzip = true
	f := newFixture(t, cfg)

	rec := f.do(t, http.MethodGet, "/", "", "Accept-Encoding", "gzip")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

func TestDebugEndpoints(t *testing.T) {
	f := newFixture(t, debugConfig())

	rec := f.do(t, http.MethodGet, "/debug/pools", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]pool.Stats](t, rec)
	require.Contains(t, stats, "particles")
	assert.Equal(t, 8, stats["particles"].MaxSize)

	rec = f.do(t, http.MethodGet, "/debug/performance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[map[string]any](t, rec)
	assert.Equal(t, "high", report["level"])

	rec = f.do(t, http.MethodGet, "/debug/game", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 42, decode[game.Status](t, rec).Score)
}

func TestDebugEndpointsDisabled(t *testing.T) {
	cfg := debugConfig()
	cfg.Debug = false
	f := newFixture(t, cfg)

	for _, path := range []string{"/debug/pools", "/debug/performance", "/debug/game"} {
		rec := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, debugConfig())

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `burgerdrop_pool_max_size{pool="particles"} 8`)
}

func TestTracingMiddleware(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	f := newFixture(t, debugConfig(), WithTracer(tp.Tracer("test")))

	f.do(t, http.MethodGet, "/healthz", "")
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /healthz", spans[0].Name())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(errors.New(errors.ErrorTypeValidation, "x")))
	assert.Equal(t, http.StatusNotFound, statusFor(errors.New(errors.ErrorTypeNotFound, "x")))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(errors.New(errors.ErrorTypeTimeout, "x")))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(errors.New(errors.ErrorTypeConnection, "x")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New(errors.ErrorTypeStorage, "x")))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	f := newFixture(t, debugConfig())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(testutil.TestContext(t))
	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, ln) }()

	testutil.AssertEventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, "server never became healthy")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

// unavailableStore fails every call with err.
type unavailableStore struct{ err error }

func (s unavailableStore) Get(context.Context) (int, error) { return 0, s.err }

func (s unavailableStore) Submit(context.Context, int) (int, bool, error) { return 0, false, s.err }

func (s unavailableStore) Close() error { return nil }

func TestStoreFailuresAdvertiseRetry(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{"connection", errors.New(errors.ErrorTypeConnection, "database unreachable"), http.StatusServiceUnavailable, true},
		{"timeout", errors.New(errors.ErrorTypeTimeout, "query timed out"), http.StatusGatewayTimeout, true},
		{"storage", errors.New(errors.ErrorTypeStorage, "disk full"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, debugConfig(), WithStore(unavailableStore{err: tt.err}))

			for _, rec := range []*httptest.ResponseRecorder{
				f.do(t, http.MethodGet, "/api/highscore", ""),
				f.do(t, http.MethodPost, "/api/highscore", `{"score": 10}`),
			} {
				assert.Equal(t, tt.status, rec.Code)
				resp := decode[errorResponse](t, rec)
				assert.Equal(t, tt.retryable, resp.Retryable)
				if tt.retryable {
					assert.Equal(t, retryAfter, rec.Header().Get("Retry-After"))
				} else {
					assert.Empty(t, rec.Header().Get("Retry-After"))
				}
			}
		})
	}
}
