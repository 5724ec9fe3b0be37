package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func TestNewGitHubRequiresAllCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		clientID     string
		clientSecret string
		callbackURL  string
		wantNil      bool
	}{
		{
			name:         "all present",
			clientID:     "iv1.abc",
			clientSecret: "shhh",
			callbackURL:  "https://auth.example.com/api/v1/auth/github/callback",
			wantNil:      false,
		},
		{
			name:         "missing client id",
			clientSecret: "shhh",
			callbackURL:  "https://auth.example.com/api/v1/auth/github/callback",
			wantNil:      true,
		},
		{
			name:        "missing client secret",
			clientID:    "iv1.abc",
			callbackURL: "https://auth.example.com/api/v1/auth/github/callback",
			wantNil:     true,
		},
		{
			name:         "missing callback url",
			clientID:     "iv1.abc",
			clientSecret: "shhh",
			wantNil:      true,
		},
		{
			name:    "all missing",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := NewGitHub(tt.clientID, tt.clientSecret, tt.callbackURL)
			if tt.wantNil && g != nil {
				t.Error("Expected nil provider")
			}
			if !tt.wantNil && g == nil {
				t.Error("Expected provider to be constructed")
			}
		})
	}
}

func TestAuthCodeURL(t *testing.T) {
	t.Parallel()

	g := NewGitHub("iv1.abc", "shhh", "https://auth.example.com/callback")
	url := g.AuthCodeURL("state-nonce-123")

	if !strings.Contains(url, "github.com") {
		t.Errorf("Expected github.com authorize endpoint, got %s", url)
	}
	if !strings.Contains(url, "state=state-nonce-123") {
		t.Errorf("Expected state parameter in %s", url)
	}
	if !strings.Contains(url, "client_id=iv1.abc") {
		t.Errorf("Expected client_id parameter in %s", url)
	}
}

// newTestGitHub points the provider at a stub API server
func newTestGitHub(t *testing.T, handler http.Handler) *GitHub {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g := NewGitHub("iv1.abc", "shhh", "https://auth.example.com/callback")
	g.apiBaseURL = server.URL
	g.httpClient = server.Client()
	return g
}

func TestFetchProfilePublicEmail(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer gho_testtoken" {
			t.Errorf("Expected bearer auth header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 1234567,
			"login": "ada99",
			"name": "Ada Lovelace",
			"email": "ada@example.com",
			"avatar_url": "https://avatars.example.com/u/1234567",
			"location": "London"
		}`))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected no /user/emails call when the public profile has an email")
	})

	g := newTestGitHub(t, mux)

	profile, err := g.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "gho_testtoken"})
	if err != nil {
		t.Fatalf("FetchProfile failed: %v", err)
	}

	if profile.ID != "1234567" {
		t.Errorf("Expected stringified id '1234567', got '%s'", profile.ID)
	}
	if profile.DisplayName != "Ada Lovelace" {
		t.Errorf("Expected display name 'Ada Lovelace', got '%s'", profile.DisplayName)
	}
	if profile.Login != "ada99" {
		t.Errorf("Expected login 'ada99', got '%s'", profile.Login)
	}
	if profile.Email != "ada@example.com" {
		t.Errorf("Expected email 'ada@example.com', got '%s'", profile.Email)
	}
	if profile.AvatarURL != "https://avatars.example.com/u/1234567" {
		t.Errorf("Expected avatar url, got '%s'", profile.AvatarURL)
	}
	if profile.Location != "London" {
		t.Errorf("Expected location 'London', got '%s'", profile.Location)
	}
	if len(profile.Emails) != 0 {
		t.Errorf("Expected no scoped email list, got %v", profile.Emails)
	}
}

func TestFetchProfileHiddenEmail(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 42, "login": "ghost", "name": null, "email": null}`))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"email": "old@example.com", "primary": false, "verified": true},
			{"email": "ghost@example.com", "primary": true, "verified": true}
		]`))
	})

	g := newTestGitHub(t, mux)

	profile, err := g.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "gho_testtoken"})
	if err != nil {
		t.Fatalf("FetchProfile failed: %v", err)
	}

	if profile.Email != "" {
		t.Errorf("Expected empty flat email, got '%s'", profile.Email)
	}
	if len(profile.Emails) != 2 {
		t.Fatalf("Expected 2 addresses, got %v", profile.Emails)
	}
	if profile.Emails[0] != "ghost@example.com" {
		t.Errorf("Expected primary verified address first, got '%s'", profile.Emails[0])
	}
}

func TestFetchProfileEmailEndpointFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 42, "login": "ghost"}`))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Forbidden"}`, http.StatusForbidden)
	})

	g := newTestGitHub(t, mux)

	profile, err := g.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "gho_testtoken"})
	if err != nil {
		t.Fatalf("FetchProfile failed: %v", err)
	}
	if len(profile.Emails) != 0 || profile.Email != "" {
		t.Error("Expected profile without email when the scoped endpoint is forbidden")
	}
}

func TestFetchProfileUserEndpointFailure(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	})

	g := newTestGitHub(t, mux)

	_, err := g.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "bad"})
	if err == nil {
		t.Fatal("Expected error when the user endpoint fails")
	}
}
