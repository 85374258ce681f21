package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader carries the request ID on requests and responses.
const RequestIDHeader = "X-Request-ID"

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Middleware assigns every request an ID, echoes it in X-Request-ID, and
// wraps the handler in a server span. An incoming X-Request-ID is kept.
// A nil tracer still assigns request IDs.
func Middleware(tracer trace.Tracer, route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = NewRequestID()
			}
			w.Header().Set(RequestIDHeader, id)
			ctx := ContextWithRequestID(r.Context(), id)

			if tracer == nil {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			name := r.URL.Path
			if route != nil {
				name = route(r)
			}
			ctx, span := tracer.Start(ctx, SpanPrefixHTTP+name,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String(AttrHTTPMethod, r.Method),
					attribute.String(AttrHTTPRoute, name),
					attribute.String(AttrRequestID, id),
				),
			)
			defer span.End()

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			span.SetAttributes(attribute.Int(AttrHTTPStatus, rec.status))
			if rec.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.status))
			} else {
				span.SetStatus(codes.Ok, "")
			}
		})
	}
}
