package trace

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// RequestIDHeader carries the request ID in and out of the service
	RequestIDHeader = "X-Request-ID"
)

// Inbound IDs are accepted only when they look harmless in logs.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	metrics   *Metrics
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests       int64
	AverageResponseTime int64 // in microseconds
	totalMicros         int64
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		metrics:   &Metrics{},
	}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(requestID) {
			requestID = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.DebugContext(ctx, "HTTP request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		m.record(duration)

		logLevel := slog.LevelInfo
		if rw.statusCode >= 400 && rw.statusCode < 500 {
			logLevel = slog.LevelWarn
		} else if rw.statusCode >= 500 {
			logLevel = slog.LevelError
		}

		slog.Log(ctx, logLevel, "HTTP request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status_code", rw.statusCode,
			"bytes", rw.written,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP,
			"success", rw.statusCode < 400)
	})
}

func (m *Middleware) record(d time.Duration) {
	n := atomic.AddInt64(&m.metrics.TotalRequests, 1)
	total := atomic.AddInt64(&m.metrics.totalMicros, d.Microseconds())
	atomic.StoreInt64(&m.metrics.AverageResponseTime, total/n)
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int64
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
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:       atomic.LoadInt64(&m.metrics.TotalRequests),
		AverageResponseTime: atomic.LoadInt64(&m.metrics.AverageResponseTime),
	}
}
