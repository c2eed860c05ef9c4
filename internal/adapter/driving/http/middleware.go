package httphandler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/ericfisherdev/authgateway/internal/adapter/driving/httpkit"
	"github.com/ericfisherdev/authgateway/internal/telemetry"
)

// RequestIDHeader carries the request correlation id in both directions.
const RequestIDHeader = "X-Request-ID"

const tracerName = "github.com/ericfisherdev/authgateway/internal/adapter/driving/http"

type requestIDKey struct{}

// RequestIDFromContext returns the request id stored by the request id middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestIDMiddleware propagates an incoming X-Request-ID or assigns a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// requestAttrs adds the request id to request and panic logs.
func requestAttrs(r *http.Request) []any {
	return []any{"request_id", RequestIDFromContext(r.Context())}
}

// instrumentation wraps individual routes with a server span and request metrics.
type instrumentation struct {
	metrics    *telemetry.Metrics
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

func newInstrumentation(metrics *telemetry.Metrics) *instrumentation {
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &instrumentation{
		metrics:    metrics,
		tracer:     otel.Tracer(tracerName),
		propagator: otel.GetTextMapPropagator(),
	}
}

// wrap instruments next under the given route pattern.
func (in *instrumentation) wrap(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := in.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := in.tracer.Start(ctx, route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("request.id", RequestIDFromContext(ctx)),
			),
		)
		defer span.End()

		sw := httpkit.NewStatusWriter(w)
		next.ServeHTTP(sw, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.response.status_code", sw.Status))
		if sw.Status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(sw.Status))
		}
		in.metrics.RecordRequest(ctx, r.Method, route, sw.Status, time.Since(start))
	})
}
