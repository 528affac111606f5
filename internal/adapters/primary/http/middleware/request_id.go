package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lorrc/modmail-backend/internal/infrastructure/logging"
)

// RequestIDHeader is the HTTP header name for request IDs
const RequestIDHeader = "X-Request-ID"

// RequestID ensures each request carries a request ID, honoring an
// incoming X-Request-ID header and generating one otherwise. The ID lives
// under the logging package's context key, so the context-aware handler
// attaches it to every log line without further plumbing.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := logging.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
