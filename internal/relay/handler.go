// Package relay is the OAuth code-exchange service the browser editor talks
// to. It holds the GitHub client secret so the browser never sees it.
//
// Routes:
//
//	OPTIONS *            204, CORS preflight
//	GET     /health      liveness
//	POST    /auth/token  exchange {code} for an access token
//	POST    /device/code device-flow pass-through (when enabled)
//	POST    /device/token
//
// Every response carries the CORS method, header and max-age headers. The
// allow-origin and allow-credentials headers are only added for origins on
// the allow-list.
package relay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode/utf16"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/almostacms/almostacms/internal/domain"
	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/tracing"
)

// Bounds on the authorization code length, in UTF-16 code units.
const (
	MinCodeLength = 10
	MaxCodeLength = 100
)

const maxBodyBytes = 64 << 10

// Handler serves the relay routes.
type Handler struct {
	cfg       Config
	exchanger Exchanger
	doer      HTTPDoer
	limiter   *Limiter
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithExchanger replaces the x/oauth2 exchanger.
func WithExchanger(e Exchanger) Option {
	return func(h *Handler) { h.exchanger = e }
}

// WithTracer wraps requests in server spans.
func WithTracer(t trace.Tracer) Option {
	return func(h *Handler) { h.tracer = t }
}

// WithClock sets the time source for /health.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// NewHandler builds the relay handler from cfg.
func NewHandler(cfg Config, opts ...Option) *Handler {
	cfg = cfg.withDefaults()
	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: 15 * time.Second}
	}
	h := &Handler{
		cfg:     cfg,
		doer:    doer,
		limiter: NewLimiter(cfg.RPS, cfg.Burst),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.exchanger == nil {
		h.exchanger = NewOAuthExchanger(cfg.ClientID, cfg.ClientSecret, cfg.TokenURL, doer)
	}
	return h
}

// Routes returns the relay as an http.Handler.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("OPTIONS /", h.Preflight)
	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("POST /auth/token", h.limited(http.HandlerFunc(h.Token)))
	if h.cfg.DeviceProxy {
		mux.Handle("POST /device/{step}", h.limited(http.HandlerFunc(h.Device)))
	}
	mux.HandleFunc("/", h.NotFound)

	return tracing.Middleware(h.tracer, routeName)(h.cors(mux))
}

func routeName(r *http.Request) string {
	switch p := r.URL.Path; {
	case p == "/health", p == "/auth/token":
		return p
	case strings.HasPrefix(p, "/device/"):
		return "/device/{step}"
	}
	return "unmatched"
}

// AllowedOrigin reports whether origin is on the allow-list. The empty
// origin never is.
func (h *Handler) AllowedOrigin(origin string) bool {
	return origin != "" && slices.Contains(h.cfg.AllowedOrigins, origin)
}

func (h *Handler) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		hdr.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		hdr.Set("Access-Control-Allow-Headers", "Content-Type")
		hdr.Set("Access-Control-Max-Age", "86400")

		origin := r.Header.Get("Origin")
		allowed := h.AllowedOrigin(origin)
		if allowed {
			hdr.Set("Access-Control-Allow-Origin", origin)
			hdr.Set("Access-Control-Allow-Credentials", "true")
		}
		trace.SpanFromContext(r.Context()).SetAttributes(attribute.Bool(tracing.AttrOriginAllowed, allowed))
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) limited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.AllowedOrigin(r.Header.Get("Origin")) && !h.limiter.Allow(r.Context(), ClientIP(r)) {
			log.Warn(log.CatRelay, "rate limited", "ip", ClientIP(r), "path", r.URL.Path)
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// === Response types ===

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	Code json.RawMessage `json:"code"`
}

// === Handlers ===

// Preflight answers CORS preflight requests on any path.
func (h *Handler) Preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// Health reports that the relay is up.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Message:   "OAuth proxy is running",
		Timestamp: h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

// NotFound answers every unmatched route.
func (h *Handler) NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

// Token exchanges an authorization code. Checks run in a fixed order: origin,
// body, code presence, code length, then the exchange itself.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if !h.AllowedOrigin(origin) {
		log.Warn(log.CatRelay, "rejected origin", "origin", origin)
		writeError(w, http.StatusForbidden, "Unauthorized origin")
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var code string
	if len(req.Code) == 0 || json.Unmarshal(req.Code, &code) != nil || code == "" {
		writeError(w, http.StatusBadRequest, "Authorization code is required")
		return
	}

	if n := len(utf16.Encode([]rune(code))); n < MinCodeLength || n > MaxCodeLength {
		writeError(w, http.StatusBadRequest, "Invalid authorization code format")
		return
	}

	tok, err := h.exchanger.Exchange(r.Context(), code)
	if err != nil {
		h.exchangeFailed(w, r, err)
		return
	}

	log.Info(log.CatRelay, "token exchanged", "origin", origin, "request_id", tracing.RequestIDFromContext(r.Context()))
	writeJSON(w, http.StatusOK, tok)
}

func (h *Handler) exchangeFailed(w http.ResponseWriter, r *http.Request, err error) {
	span := trace.SpanFromContext(r.Context())
	var up *domain.UpstreamError
	if errors.Is(err, ErrTokenRejected) && errors.As(err, &up) {
		span.SetAttributes(attribute.String(tracing.AttrOAuthError, up.Code))
		log.Warn(log.CatRelay, "github rejected code", "error", up.Code)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Token exchange failed",
			Details: up.Detail(),
		})
		return
	}

	span.RecordError(err)
	log.ErrorErr(log.CatRelay, "token exchange error", err)
	msg := err.Error()
	if errors.As(err, &up) && up.Err != nil {
		msg = up.Err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "Token exchange failed",
		Message: msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(log.CatRelay, "failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
