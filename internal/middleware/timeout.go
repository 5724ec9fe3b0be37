package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds request handling at 30 seconds unless
// configured.
const DefaultRequestTimeout = 30 * time.Second

// Timeout cuts off handlers that run past the limit with a 503 and cancels
// the request context so downstream calls stop too.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		handler := http.TimeoutHandler(next, timeout, "Request Timeout")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			handler.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
