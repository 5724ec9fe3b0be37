package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"authlink/internal/identity"
	"authlink/internal/models"
	"authlink/internal/queue"
	"authlink/internal/token"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	testFrontendURL = "http://localhost:3000"
	testFailureURL  = "http://localhost:3000/login"
	testTokenSecret = "handler-test-secret"
)

// mockLoginProvider is a mock implementation of LoginProvider
type mockLoginProvider struct {
	exchangeFunc     func(ctx context.Context, code string) (*oauth2.Token, error)
	fetchProfileFunc func(ctx context.Context, tok *oauth2.Token) (*identity.Profile, error)
}

func (m *mockLoginProvider) AuthCodeURL(state string) string {
	return "https://github.example/authorize?state=" + state
}

func (m *mockLoginProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if m.exchangeFunc != nil {
		return m.exchangeFunc(ctx, code)
	}
	return &oauth2.Token{AccessToken: "gho_test"}, nil
}

func (m *mockLoginProvider) FetchProfile(ctx context.Context, tok *oauth2.Token) (*identity.Profile, error) {
	if m.fetchProfileFunc != nil {
		return m.fetchProfileFunc(ctx, tok)
	}
	return &identity.Profile{ID: "42", DisplayName: "Ada Lovelace", Email: "ada@example.com"}, nil
}

// Ensure mock implements interface
var _ LoginProvider = (*mockLoginProvider)(nil)

// mockStateStore is a mock implementation of StateStore
type mockStateStore struct {
	issueFunc   func(ctx context.Context) (string, error)
	consumeFunc func(ctx context.Context, state string) (bool, error)
}

func (m *mockStateStore) Issue(ctx context.Context) (string, error) {
	if m.issueFunc != nil {
		return m.issueFunc(ctx)
	}
	return "test-state", nil
}

func (m *mockStateStore) Consume(ctx context.Context, state string) (bool, error) {
	if m.consumeFunc != nil {
		return m.consumeFunc(ctx, state)
	}
	return true, nil
}

// Ensure mock implements interface
var _ StateStore = (*mockStateStore)(nil)

// mockLinker is a mock implementation of IdentityLinker
type mockLinker struct {
	linkFunc func(ctx context.Context, profile *identity.Profile) (*models.User, bool, error)
}

func (m *mockLinker) Link(ctx context.Context, profile *identity.Profile) (*models.User, bool, error) {
	if m.linkFunc != nil {
		return m.linkFunc(ctx, profile)
	}
	return &models.User{ID: uuid.New(), Email: profile.Email}, false, nil
}

func (m *mockLinker) Provider() string {
	return "github"
}

// Ensure mock implements interface
var _ IdentityLinker = (*mockLinker)(nil)

// mockJobQueue is a mock implementation of JobQueue
type mockJobQueue struct {
	enqueueFunc func(ctx context.Context, job *queue.Job) error
	healthFunc  func(ctx context.Context) error
	enqueued    []*queue.Job
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	m.enqueued = append(m.enqueued, job)
	if m.enqueueFunc != nil {
		return m.enqueueFunc(ctx, job)
	}
	return nil
}

func (m *mockJobQueue) Dequeue(ctx context.Context) (*queue.Message, error) {
	return nil, errors.New("not implemented")
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error {
	return nil
}

func (m *mockJobQueue) HealthCheck(ctx context.Context) error {
	if m.healthFunc != nil {
		return m.healthFunc(ctx)
	}
	return nil
}

// Ensure mock implements interface
var _ queue.JobQueue = (*mockJobQueue)(nil)

func newTestAuthHandler(gh LoginProvider, linker IdentityLinker, states StateStore, jobs queue.JobQueue) *AuthHandler {
	return NewAuthHandler(AuthHandlerConfig{
		GitHub:      gh,
		Linker:      linker,
		States:      states,
		Jobs:        jobs,
		FrontendURL: testFrontendURL,
		FailureURL:  testFailureURL,
		TokenSecret: testTokenSecret,
		TokenTTL:    "1h",
	})
}

func TestGitHubLogin_RedirectsToProvider(t *testing.T) {
	t.Parallel()

	h := newTestAuthHandler(&mockLoginProvider{}, &mockLinker{}, &mockStateStore{
		issueFunc: func(ctx context.Context) (string, error) { return "nonce-1", nil },
	}, &mockJobQueue{})

	req := httptest.NewRequest("GET", "/api/v1/auth/github/login", nil)
	w := httptest.NewRecorder()

	h.GitHubLogin(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", w.Code)
	}
	loc := w.Header().Get("Location")
	if loc != "https://github.example/authorize?state=nonce-1" {
		t.Errorf("Expected redirect to provider with issued state, got %q", loc)
	}
}

func TestGitHubLogin_StateIssueFailure(t *testing.T) {
	t.Parallel()

	h := newTestAuthHandler(&mockLoginProvider{}, &mockLinker{}, &mockStateStore{
		issueFunc: func(ctx context.Context) (string, error) { return "", errors.New("redis down") },
	}, &mockJobQueue{})

	req := httptest.NewRequest("GET", "/api/v1/auth/github/login", nil)
	w := httptest.NewRecorder()

	h.GitHubLogin(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestGitHubCallback_Success(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	linker := &mockLinker{
		linkFunc: func(ctx context.Context, profile *identity.Profile) (*models.User, bool, error) {
			return &models.User{ID: userID, Email: "ada@example.com"}, false, nil
		},
	}
	jobs := &mockJobQueue{}

	h := newTestAuthHandler(&mockLoginProvider{}, linker, &mockStateStore{}, jobs)

	req := httptest.NewRequest("GET", "/api/v1/auth/github/callback?state=test-state&code=abc", nil)
	w := httptest.NewRecorder()

	h.GitHubCallback(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", w.Code)
	}

	loc := w.Header().Get("Location")
	prefix := testFrontendURL + "#token="
	if !strings.HasPrefix(loc, prefix) {
		t.Fatalf("Expected redirect to %s..., got %q", prefix, loc)
	}

	claims, err := token.Verify(strings.TrimPrefix(loc, prefix), testTokenSecret)
	if err != nil {
		t.Fatalf("Redirected token does not verify: %v", err)
	}
	if claims["sub"] != userID.String() {
		t.Errorf("Expected sub claim %q, got %v", userID.String(), claims["sub"])
	}
	if claims["email"] != "ada@example.com" {
		t.Errorf("Expected email claim ada@example.com, got %v", claims["email"])
	}
	if claims["provider"] != "github" {
		t.Errorf("Expected provider claim github, got %v", claims["provider"])
	}

	if len(jobs.enqueued) != 1 {
		t.Fatalf("Expected 1 enqueued job, got %d", len(jobs.enqueued))
	}
	job := jobs.enqueued[0]
	if job.Type != queue.JobTypeRecordLogin {
		t.Errorf("Expected job type %s, got %s", queue.JobTypeRecordLogin, job.Type)
	}
	if job.UserID != userID {
		t.Errorf("Expected job user %s, got %s", userID, job.UserID)
	}
	if job.Metadata["event"] != string(models.LoginEventLogin) {
		t.Errorf("Expected event metadata login, got %v", job.Metadata["event"])
	}
	if job.Metadata["provider"] != "github" {
		t.Errorf("Expected provider metadata github, got %v", job.Metadata["provider"])
	}
}

func TestGitHubCallback_NewUserEnqueuesProvisioning(t *testing.T) {
	t.Parallel()

	linker := &mockLinker{
		linkFunc: func(ctx context.Context, profile *identity.Profile) (*models.User, bool, error) {
			return &models.User{ID: uuid.New(), Email: profile.Email}, true, nil
		},
	}
	jobs := &mockJobQueue{}

	h := newTestAuthHandler(&mockLoginProvider{}, linker, &mockStateStore{}, jobs)

	req := httptest.NewRequest("GET", "/api/v1/auth/github/callback?state=test-state&code=abc", nil)
	w := httptest.NewRecorder()

	h.GitHubCallback(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", w.Code)
	}
	if len(jobs.enqueued) != 1 {
		t.Fatalf("Expected 1 enqueued job, got %d", len(jobs.enqueued))
	}
	if jobs.enqueued[0].Type != queue.JobTypeProvisionUser {
		t.Errorf("Expected job type %s, got %s", queue.JobTypeProvisionUser, jobs.enqueued[0].Type)
	}
	if jobs.enqueued[0].Metadata["event"] != string(models.LoginEventCreated) {
		t.Errorf("Expected event metadata created, got %v", jobs.enqueued[0].Metadata["event"])
	}
}

func TestGitHubCallback_FailureRedirects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		states     *mockStateStore
		provider   *mockLoginProvider
		linker     *mockLinker
		wantReason string
	}{
		{
			name:       "provider error param",
			query:      "?error=access_denied&state=test-state",
			wantReason: ReasonProviderError,
		},
		{
			name:  "unknown state",
			query: "?state=forged&code=abc",
			states: &mockStateStore{
				consumeFunc: func(ctx context.Context, state string) (bool, error) { return false, nil },
			},
			wantReason: ReasonInvalidState,
		},
		{
			name:  "state lookup error",
			query: "?state=test-state&code=abc",
			states: &mockStateStore{
				consumeFunc: func(ctx context.Context, state string) (bool, error) { return false, errors.New("redis down") },
			},
			wantReason: ReasonInvalidState,
		},
		{
			name:       "missing code",
			query:      "?state=test-state",
			wantReason: ReasonMissingCode,
		},
		{
			name:  "exchange failure",
			query: "?state=test-state&code=abc",
			provider: &mockLoginProvider{
				exchangeFunc: func(ctx context.Context, code string) (*oauth2.Token, error) {
					return nil, errors.New("bad code")
				},
			},
			wantReason: ReasonExchangeFailed,
		},
		{
			name:  "profile fetch failure",
			query: "?state=test-state&code=abc",
			provider: &mockLoginProvider{
				fetchProfileFunc: func(ctx context.Context, tok *oauth2.Token) (*identity.Profile, error) {
					return nil, errors.New("api 500")
				},
			},
			wantReason: ReasonProfileFailed,
		},
		{
			name:  "profile without email",
			query: "?state=test-state&code=abc",
			linker: &mockLinker{
				linkFunc: func(ctx context.Context, profile *identity.Profile) (*models.User, bool, error) {
					return nil, false, identity.ErrNoEmail
				},
			},
			wantReason: ReasonNoEmail,
		},
		{
			name:  "store failure during link",
			query: "?state=test-state&code=abc",
			linker: &mockLinker{
				linkFunc: func(ctx context.Context, profile *identity.Profile) (*models.User, bool, error) {
					return nil, false, errors.New("failed to create user: disk full")
				},
			},
			wantReason: ReasonLinkFailed,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gh := tt.provider
			if gh == nil {
				gh = &mockLoginProvider{}
			}
			states := tt.states
			if states == nil {
				states = &mockStateStore{}
			}
			linker := tt.linker
			if linker == nil {
				linker = &mockLinker{}
			}
			jobs := &mockJobQueue{}

			h := newTestAuthHandler(gh, linker, states, jobs)

			req := httptest.NewRequest("GET", "/api/v1/auth/github/callback"+tt.query, nil)
			w := httptest.NewRecorder()

			h.GitHubCallback(w, req)

			if w.Code != http.StatusFound {
				t.Fatalf("Expected status 302, got %d", w.Code)
			}

			loc, err := url.Parse(w.Header().Get("Location"))
			if err != nil {
				t.Fatalf("Failed to parse Location header: %v", err)
			}
			if got := loc.Query().Get("reason"); got != tt.wantReason {
				t.Errorf("Expected reason %q, got %q (location %s)", tt.wantReason, got, loc)
			}
			if !strings.HasPrefix(w.Header().Get("Location"), testFailureURL) {
				t.Errorf("Expected redirect to failure URL, got %q", w.Header().Get("Location"))
			}

			if len(jobs.enqueued) != 0 {
				t.Errorf("Expected no enqueued jobs on failure, got %d", len(jobs.enqueued))
			}
		})
	}
}

func TestGitHubCallback_EnqueueFailureDoesNotBlockLogin(t *testing.T) {
	t.Parallel()

	jobs := &mockJobQueue{
		enqueueFunc: func(ctx context.Context, job *queue.Job) error {
			return errors.New("broker unavailable")
		},
	}

	h := newTestAuthHandler(&mockLoginProvider{}, &mockLinker{}, &mockStateStore{}, jobs)

	req := httptest.NewRequest("GET", "/api/v1/auth/github/callback?state=test-state&code=abc", nil)
	w := httptest.NewRecorder()

	h.GitHubCallback(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Location"), testFrontendURL+"#token=") {
		t.Errorf("Expected token redirect despite enqueue failure, got %q", w.Header().Get("Location"))
	}
}

func TestGitHubCallback_SigningFailure(t *testing.T) {
	t.Parallel()

	h := NewAuthHandler(AuthHandlerConfig{
		GitHub:      &mockLoginProvider{},
		Linker:      &mockLinker{},
		States:      &mockStateStore{},
		Jobs:        &mockJobQueue{},
		FrontendURL: testFrontendURL,
		FailureURL:  testFailureURL,
		TokenSecret: testTokenSecret,
		TokenTTL:    "not-a-ttl",
	})

	req := httptest.NewRequest("GET", "/api/v1/auth/github/callback?state=test-state&code=abc", nil)
	w := httptest.NewRecorder()

	h.GitHubCallback(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", w.Code)
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Failed to parse Location header: %v", err)
	}
	if got := loc.Query().Get("reason"); got != ReasonTokenFailed {
		t.Errorf("Expected reason %q, got %q", ReasonTokenFailed, got)
	}
}
