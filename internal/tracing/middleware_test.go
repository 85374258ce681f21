package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMiddleware_RequestID(t *testing.T) {
	var seen string
	h := Middleware(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NotEmpty(t, seen)
	require.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "abc", seen)
	require.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
}

func TestMiddleware_Span(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	route := func(r *http.Request) string { return "/auth/token" }
	h := Middleware(tp.Tracer("test"), route)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/auth/token", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "http./auth/token", spans[0].Name())
	require.Equal(t, codes.Error, spans[0].Status().Code)

	attrs := map[string]any{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	require.Equal(t, "POST", attrs[AttrHTTPMethod])
	require.Equal(t, int64(http.StatusBadGateway), attrs[AttrHTTPStatus])
	require.NotEmpty(t, attrs[AttrRequestID])
}

func TestContextWithRequestID_Empty(t *testing.T) {
	ctx := ContextWithRequestID(t.Context(), "")
	require.Empty(t, RequestIDFromContext(ctx))
	require.Empty(t, RequestIDFromContext(nil)) //nolint:staticcheck
}
