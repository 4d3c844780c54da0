package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// ctxKey avoids collisions with other packages' context values.
type ctxKey string

const requestIDKey ctxKey = "request_id"

// RequestID assigns each request a UUID, exposes it via X-Request-ID, and
// stores it in the context for log correlation. An incoming X-Request-ID
// from a trusted proxy is preserved.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request id stored by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
