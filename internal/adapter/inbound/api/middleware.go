package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"scriptdex/internal/application/common/logging"
	"scriptdex/internal/application/common/slogger"
	"scriptdex/internal/application/dto"
)

// Middleware type for middleware chains
type Middleware func(http.Handler) http.Handler

// requestIDKey is the context key for request IDs
type requestIDKey struct{}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// SetRequestID sets the request ID in the context and tags log entries with it.
func SetRequestID(ctx context.Context, id string) context.Context {
	ctx = logging.WithRequestID(ctx, id)
	ctx = logging.WithCorrelationID(ctx, id)
	return context.WithValue(ctx, requestIDKey{}, id)
}

// NewLoggingMiddleware assigns a request id and logs one line per request.
func NewLoggingMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			r = r.WithContext(SetRequestID(r.Context(), requestID))
			w.Header().Set("X-Request-ID", requestID)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			fields := slogger.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrapped.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_ip":   clientIP(r),
			}
			if r.URL.RawQuery != "" {
				fields["query"] = r.URL.RawQuery
			}
			slogger.Info(r.Context(), "HTTP request completed", fields)
		})
	}
}

// NewCORSMiddleware allows any origin to read the catalog.
func NewCORSMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			allowedHeaders := "Content-Type, If-None-Match"
			if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
				allowedHeaders += ", " + requested
			}
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			w.Header().Set("Access-Control-Expose-Headers", "ETag, X-Request-ID")

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewRecoveryMiddleware turns handler panics into 500 responses.
func NewRecoveryMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					slogger.Error(r.Context(), "Panic recovered in HTTP handler", slogger.Fields{
						"method": r.Method,
						"path":   r.URL.Path,
						"panic":  rec,
					})
					writeErrorResponse(w, r, http.StatusInternalServerError,
						dto.NewErrorResponse(dto.ErrorCodeInternalError, "An internal error occurred", nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// NewMiddlewareChain applies middlewares so the first one listed runs outermost.
func NewMiddlewareChain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		handler := next
		for i := len(middlewares) - 1; i >= 0; i-- {
			handler = middlewares[i](handler)
		}
		return handler
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// clientIP prefers the first valid X-Forwarded-For entry, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	for _, ip := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip = strings.TrimSpace(ip); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
