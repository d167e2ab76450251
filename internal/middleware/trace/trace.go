// Package trace assigns request ids, logs completed requests and reports
// them to a metrics recorder.
package trace

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	applog "cinecalc/internal/log"
)

// HeaderRequestID is read from incoming requests and echoed on responses.
const HeaderRequestID = "X-Request-ID"

type contextKey struct{}

// Recorder receives one observation per completed request.
type Recorder interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// Config wires the optional collaborators of the middleware.
type Config struct {
	ExtractIP func(*http.Request) string
	// Route returns the matched route pattern once the handler has run.
	Route    func(*http.Request) string
	Recorder Recorder
	Logger   *applog.Logger
}

// Middleware handles request tracing and logging
type Middleware struct {
	cfg Config
	log *applog.StructuredLogger
}

func NewMiddleware(cfg Config) *Middleware {
	if cfg.Logger == nil {
		cfg.Logger = applog.FromContext(context.Background())
	}
	return &Middleware{cfg: cfg, log: applog.NewStructuredLogger(cfg.Logger)}
}

// Handler wraps next with request id propagation, access logging and metrics.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > 128 {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), contextKey{}, requestID)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		route := ""
		if m.cfg.Route != nil {
			route = m.cfg.Route(r)
		}
		if m.cfg.Recorder != nil {
			m.cfg.Recorder.ObserveRequest(r.Method, route, rw.statusCode, elapsed)
		}

		fields := applog.NewFields().
			WithRequestID(requestID).
			WithHTTPRequest(r.Method, r.URL.Path, r.Header.Get("User-Agent")).
			WithHTTPResponse(route, rw.statusCode, elapsed.Milliseconds())
		if m.cfg.ExtractIP != nil {
			fields.WithClientIP(m.cfg.ExtractIP(r))
		}
		m.log.LogHTTPEnd(ctx, r, fields, rw.statusCode)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestIDFromRequest is GetRequestID for middleware that only has the request.
func RequestIDFromRequest(r *http.Request) string {
	return GetRequestID(r.Context())
}
