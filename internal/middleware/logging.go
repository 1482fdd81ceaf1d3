package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/authtrail/internal/auth"
	pkglogger "github.com/BradenHooton/authtrail/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// SecureLogger returns a middleware for logging HTTP requests with sensitive data redaction
func SecureLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// Claims are attached further down the chain, so capture them on the way out
			var service string
			next.ServeHTTP(wrapped, r.WithContext(context.WithValue(r.Context(), serviceSlotKey, &service)))

			duration := time.Since(start)

			// Sanitize query string if it contains sensitive parameters
			path := r.URL.Path
			if pkglogger.SanitizeQueryString(r.URL.RawQuery) {
				path = path + "?[REDACTED]"
			} else if r.URL.RawQuery != "" {
				path = r.URL.Path + "?" + r.URL.RawQuery
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", path),
				slog.Int("status", wrapped.Status()),
				slog.Int64("bytes", int64(wrapped.BytesWritten())),
				slog.String("duration", duration.String()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if service != "" {
				attrs = append(attrs, slog.String("service", service))
			}

			level := slog.LevelInfo
			if wrapped.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(context.Background(), level, "http_request", attrs...)
		})
	}
}

type serviceSlot struct{}

var serviceSlotKey = serviceSlot{}

// CaptureService records the authenticated caller for SecureLogger. Mount it
// after auth.ServiceAuth.
func CaptureService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slot, ok := r.Context().Value(serviceSlotKey).(*string); ok {
			if claims := auth.GetServiceFromContext(r); claims != nil {
				*slot = claims.Service
			}
		}
		next.ServeHTTP(w, r)
	})
}
