package middleware

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"authlink/internal/database"
	"authlink/internal/request"
	"authlink/internal/token"
	"github.com/google/uuid"
)

// Auth creates authentication middleware that validates bearer tokens issued
// by the login flow and loads the token's subject into the request context.
func Auth(users database.UserRepositoryInterface, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			claims, err := token.Verify(parts[1], secret)
			if err != nil {
				log.Printf("Token verification failed: %v", err)
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			sub, _ := claims["sub"].(string)
			userID, err := uuid.Parse(sub)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "Invalid token subject")
				return
			}

			ctx := r.Context()
			user, err := users.GetByID(ctx, userID)
			if err != nil {
				// A token for a user that no longer exists is rejected; other
				// repository errors indicate a database problem.
				if errors.Is(err, sql.ErrNoRows) {
					respondError(w, http.StatusUnauthorized, "Unknown user")
					return
				}
				log.Printf("Database error while fetching user: %v", err)
				respondError(w, http.StatusInternalServerError, "Database error")
				return
			}

			ctx = request.WithUser(ctx, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
