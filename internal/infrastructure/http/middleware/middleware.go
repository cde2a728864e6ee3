// Package middleware provides net/http middleware for the kitchen web server
// following the Chain of Responsibility pattern
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/alchemorsel/chefnano/internal/infrastructure/config"
	"github.com/alchemorsel/chefnano/internal/infrastructure/monitoring"
	apperrors "github.com/alchemorsel/chefnano/pkg/errors"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type contextKey string

const requestIDKey contextKey = "request_id"

// Middleware provides all middleware functions
type Middleware struct {
	config  *config.Config
	logger  *zap.Logger
	limiter *IPRateLimiter
}

// New creates a new middleware instance
func New(cfg *config.Config, logger *zap.Logger) *Middleware {
	return &Middleware{
		config:  cfg,
		logger:  logger.Named("http"),
		limiter: NewIPRateLimiter(cfg.RateLimit),
	}
}

// RequestID adds a unique request ID to the context
func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID stored by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Logger provides structured logging for requests
func (m *Middleware) Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// Health checks and metric scrapes would drown everything else
		if m.skipLogging(r.URL.Path) {
			return
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		fields := []zap.Field{
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("ip", r.RemoteAddr),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("latency", time.Since(start)),
			zap.Bool("htmx", r.Header.Get("HX-Request") == "true"),
		}
		if traceID := monitoring.TraceIDFromContext(r.Context()); traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}

		switch {
		case status >= 500:
			m.logger.Error("Server error", fields...)
		case status >= 400:
			m.logger.Warn("Client error", fields...)
		default:
			m.logger.Debug("Request completed", fields...)
		}
	})
}

func (m *Middleware) skipLogging(path string) bool {
	mon := m.config.Monitoring
	switch path {
	case mon.HealthCheckPath, mon.ReadinessPath, mon.LivenessPath, mon.MetricsPath, "/kitchen":
		return true
	}
	return strings.HasPrefix(path, "/static/")
}

// Recovery recovers from panics and returns 500 error
func (m *Middleware) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			m.logger.Error("Panic recovered",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.Any("error", rec),
				zap.String("stack", string(debug.Stack())),
			)
			WriteError(w, r, apperrors.NewInternalError("Internal server error"))
		}()

		next.ServeHTTP(w, r)
	})
}

// Security adds security headers optimized for HTMX
func (m *Middleware) Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		csp := "default-src 'self'; " +
			"script-src 'self' 'unsafe-inline' https://unpkg.com; " +
			"style-src 'self' 'unsafe-inline'; " +
			"img-src 'self' data: blob:; " +
			"font-src 'self' data:; " +
			"connect-src 'self'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'none'; " +
			"object-src 'none'"
		w.Header().Set("Content-Security-Policy", csp)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		if m.config.IsProduction() {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		if strings.HasPrefix(r.URL.Path, "/static/") {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		} else {
			w.Header().Set("Cache-Control", "no-store")
		}

		next.ServeHTTP(w, r)
	})
}

// WriteError renders err as the JSON error envelope. Errors that are not
// an *AppError are reported as internal errors without their details.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.Wrap(err, "An unexpected error occurred")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	_ = json.NewEncoder(w).Encode(apperrors.ToErrorResponse(appErr, GetRequestID(r.Context())))
}
