package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"authlink/internal/database"
	"authlink/internal/models"
	"authlink/internal/request"
	"authlink/internal/token"
	"github.com/google/uuid"
)

const testSecret = "auth-middleware-test-secret"

type mockUserRepo struct {
	getByIDFunc      func(ctx context.Context, id uuid.UUID) (*models.User, error)
	lastSeenFunc     func(ctx context.Context, id uuid.UUID, seenAt time.Time) error
	lastSeenCalls    int
	lastSeenLastUser uuid.UUID
}

var _ database.UserRepositoryInterface = (*mockUserRepo)(nil)

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error { return nil }

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error { return nil }

func (m *mockUserRepo) UpdateLastSeen(ctx context.Context, id uuid.UUID, seenAt time.Time) error {
	m.lastSeenCalls++
	m.lastSeenLastUser = id
	if m.lastSeenFunc != nil {
		return m.lastSeenFunc(ctx, id, seenAt)
	}
	return nil
}

func signTestToken(t *testing.T, sub string) string {
	t.Helper()
	tok, err := token.Sign(map[string]any{"sub": sub}, testSecret, "1h")
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return tok
}

func TestAuth_RejectsUnauthenticated(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{
			name:       "missing header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not bearer",
			authHeader: "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "bearer without token",
			authHeader: "Bearer",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			authHeader: "Bearer not.a.token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "subject is not a uuid",
			authHeader: "Bearer " + mustSign(t, map[string]any{"sub": "bob"}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no subject claim",
			authHeader: "Bearer " + mustSign(t, map[string]any{"email": "a@b.c"}),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := &mockUserRepo{
				getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
					return &models.User{ID: userID, Email: "a@b.c"}, nil
				},
			}

			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
			})

			req := httptest.NewRequest("GET", "/api/v1/users/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			Auth(repo, testSecret)(next).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if nextCalled {
				t.Error("Expected next handler not to be called")
			}

			var body map[string]any
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode error body: %v", err)
			}
			if success, _ := body["success"].(bool); success {
				t.Error("Expected success to be false")
			}
		})
	}
}

func TestAuth_RejectsExpiredToken(t *testing.T) {
	t.Parallel()

	expired, err := token.Sign(map[string]any{"sub": uuid.New().String()}, testSecret, "-1m")
	if err != nil {
		t.Fatalf("Failed to sign expired token: %v", err)
	}

	repo := &mockUserRepo{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected next handler not to be called")
	})

	req := httptest.NewRequest("GET", "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	w := httptest.NewRecorder()

	Auth(repo, testSecret)(next).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestAuth_RejectsWrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := token.Sign(map[string]any{"sub": uuid.New().String()}, "some-other-secret", "1h")
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	repo := &mockUserRepo{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected next handler not to be called")
	})

	req := httptest.NewRequest("GET", "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()

	Auth(repo, testSecret)(next).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestAuth_RejectsUnknownUser(t *testing.T) {
	t.Parallel()

	repo := &mockUserRepo{} // GetByID defaults to not found

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected next handler not to be called")
	})

	req := httptest.NewRequest("GET", "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, uuid.New().String()))
	w := httptest.NewRecorder()

	Auth(repo, testSecret)(next).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestAuth_DatabaseError(t *testing.T) {
	t.Parallel()

	repo := &mockUserRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
			return nil, fmt.Errorf("failed to get user: connection refused")
		},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected next handler not to be called")
	})

	req := httptest.NewRequest("GET", "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, uuid.New().String()))
	w := httptest.NewRecorder()

	Auth(repo, testSecret)(next).ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestAuth_ValidToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	stored := &models.User{ID: userID, Email: "ada@example.com", Status: models.UserStatusActive}

	repo := &mockUserRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
			if id != userID {
				t.Errorf("Expected lookup for %s, got %s", userID, id)
			}
			return stored, nil
		},
	}

	var gotUser *models.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = request.UserFromContext(r)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, userID.String()))
	w := httptest.NewRecorder()

	Auth(repo, testSecret)(next).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if gotUser != stored {
		t.Errorf("Expected user %v in context, got %v", stored, gotUser)
	}
}

func mustSign(t *testing.T, claims map[string]any) string {
	t.Helper()
	tok, err := token.Sign(claims, testSecret, "1h")
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tok
}
