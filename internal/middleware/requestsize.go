package middleware

import (
	"net/http"
)

// DefaultMaxRequestSize caps request bodies at 1MB unless configured.
const DefaultMaxRequestSize int64 = 1 << 20

// MaxRequestSize bounds request bodies. A declared Content-Length over the
// limit is rejected up front; chunked and lying clients are stopped by
// http.MaxBytesReader when the handler reads the body.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			defer r.Body.Close()

			next.ServeHTTP(w, r)
		})
	}
}
