package middleware

import (
	"log"
	"net/http"
	"time"

	"authlink/internal/database"
	"authlink/internal/request"
)

// ActivityTracking stamps last-seen for the authenticated user on every
// request that carries one. A failed stamp is logged and never fails the
// request; the data is advisory.
func ActivityTracking(users database.UserRepositoryInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := request.UserFromContext(r); user != nil {
				if err := users.UpdateLastSeen(r.Context(), user.ID, time.Now()); err != nil {
					log.Printf("Failed to update last seen for user: %v", err)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
