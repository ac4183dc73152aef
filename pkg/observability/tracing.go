// Package observability provides OpenTelemetry tracing for game sessions
// and the HTTP server.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/burgerdrop/pkg/performance"
)

// Session is the span covering one playthrough. Level changes and order
// outcomes are recorded as span events.
type Session struct {
	span  trace.Span
	id    string
	mu    sync.Mutex
	stops []func()
	ended bool
}

// StartSession starts a session span.
func StartSession(ctx context.Context, tracer trace.Tracer, sessionID, mode string) (context.Context, *Session) {
	ctx, span := tracer.Start(ctx, "game.session",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("session.mode", mode),
		))
	return ctx, &Session{span: span, id: sessionID}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// AttachMonitor records level changes of m on the session span until the
// session ends.
func (s *Session) AttachMonitor(m *performance.Monitor) {
	s.span.SetAttributes(attribute.String("performance.initial_level", m.Level().String()))
	stop := m.OnLevelChange(func(e performance.LevelChange) {
		s.span.AddEvent("performance.level_change", trace.WithAttributes(
			attribute.String("level.old", e.Old.String()),
			attribute.String("level.new", e.New.String()),
			attribute.Bool("level.forced", e.Forced),
			attribute.Int("quality.max_particles", e.Settings.MaxParticles),
			attribute.Float64("quality.render_scale", e.Settings.RenderScale),
		))
	})

	s.mu.Lock()
	s.stops = append(s.stops, stop)
	s.mu.Unlock()
}

// RecordOrder records a finished order.
func (s *Session) RecordOrder(outcome string, ingredients, points int) {
	s.span.AddEvent("order."+outcome, trace.WithAttributes(
		attribute.Int("order.ingredients", ingredients),
		attribute.Int("order.points", points),
	))
}

// AddEvent records a free-form event such as pause or resume.
func (s *Session) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// End finishes the span with the final score. A non-nil err marks the span
// as failed. Calling End again does nothing.
func (s *Session) End(score int, err error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	stops := s.stops
	s.stops = nil
	s.mu.Unlock()

	for _, stop := range stops {
		stop()
	}

	s.span.SetAttributes(attribute.Int("session.score", score))
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// TraceFields returns zap fields carrying the trace and span id of ctx.
func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

// TracingMiddleware provides HTTP middleware for tracing
func TracingMiddleware(tracer trace.Tracer, serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			operationName := fmt.Sprintf("%s %s", r.Method, r.URL.Path)
			ctx, span := tracer.Start(ctx, operationName, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.url", r.URL.String()),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.String("service.name", serviceName),
			)

			otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(w.Header()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
