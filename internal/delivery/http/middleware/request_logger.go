package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"skincare-client/pkg/logger"

	"github.com/google/uuid"
)

// NewRequestLogger logs every gateway request with timing, status and the session user.
func NewRequestLogger(sessions SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()[:8]
			}
			reqLogger := logger.WithRequestID(requestID)
			r = r.WithContext(logger.NewContext(r.Context(), &reqLogger))
			w.Header().Set("X-Request-ID", requestID)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			var userID int64
			if user := sessions.User(); user != nil {
				userID = user.ID
			}

			logEvent := reqLogger.Info()
			if wrapped.statusCode >= 500 {
				logEvent = reqLogger.Error()
			} else if wrapped.statusCode >= 400 {
				logEvent = reqLogger.Warn()
			}

			logEvent.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("query", r.URL.RawQuery).
				Int("status", wrapped.statusCode).
				Dur("duration_ms", time.Since(start)).
				Str("ip", getClientIP(r)).
				Str("origin", r.Header.Get("Origin")).
				Int64("user_id", userID).
				Msg("HTTP")
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP prefers the first proxy-reported address over RemoteAddr.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
