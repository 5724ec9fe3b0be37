package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"

	"authlink/internal/identity"
	"authlink/internal/models"
	"authlink/internal/oauthstate"
	"authlink/internal/queue"
	"authlink/internal/request"
	"authlink/internal/services/provider"
	"authlink/internal/token"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"
)

// Failure reason codes appended to the failure redirect URL as ?reason=<code>
const (
	ReasonProviderError  = "provider_error"
	ReasonInvalidState   = "invalid_state"
	ReasonMissingCode    = "missing_code"
	ReasonExchangeFailed = "exchange_failed"
	ReasonProfileFailed  = "profile_failed"
	ReasonNoEmail        = "no_email"
	ReasonLinkFailed     = "link_failed"
	ReasonTokenFailed    = "token_failed"
)

// LoginProvider is the OAuth provider surface the login flow consumes
type LoginProvider interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, tok *oauth2.Token) (*identity.Profile, error)
}

// StateStore issues and redeems single-use login state nonces
type StateStore interface {
	Issue(ctx context.Context) (string, error)
	Consume(ctx context.Context, state string) (bool, error)
}

// IdentityLinker resolves a provider profile to a local user account
type IdentityLinker interface {
	Link(ctx context.Context, profile *identity.Profile) (*models.User, bool, error)
	Provider() string
}

// Ensure concrete types implement the interfaces
var (
	_ LoginProvider  = (*provider.GitHub)(nil)
	_ StateStore     = (*oauthstate.Store)(nil)
	_ IdentityLinker = (*identity.Linker)(nil)
)

// AuthHandler drives the provider login flow: state issue, callback
// validation, identity linking, and token handoff to the frontend.
// Callers register its routes only when the provider is configured;
// unconfigured providers leave the login endpoints unmounted.
type AuthHandler struct {
	github      LoginProvider
	linker      IdentityLinker
	states      StateStore
	jobs        queue.JobQueue
	frontendURL string
	failureURL  string
	tokenSecret string
	tokenTTL    string
}

// AuthHandlerConfig carries the dependencies for NewAuthHandler
type AuthHandlerConfig struct {
	GitHub      LoginProvider
	Linker      IdentityLinker
	States      StateStore
	Jobs        queue.JobQueue
	FrontendURL string
	FailureURL  string
	TokenSecret string
	TokenTTL    string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		github:      cfg.GitHub,
		linker:      cfg.Linker,
		states:      cfg.States,
		jobs:        cfg.Jobs,
		frontendURL: cfg.FrontendURL,
		failureURL:  cfg.FailureURL,
		tokenSecret: cfg.TokenSecret,
		tokenTTL:    cfg.TokenTTL,
	}
}

// RegisterRoutes registers auth routes on the given router
// The router should already have the /api/v1/auth prefix
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/github/login", h.GitHubLogin).Methods("GET")
	r.HandleFunc("/github/callback", h.GitHubCallback).Methods("GET")
}

// GitHubLogin issues a single-use state nonce and redirects to the
// provider's authorization page
func (h *AuthHandler) GitHubLogin(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Issue(r.Context())
	if err != nil {
		log.Printf("Failed to issue login state: %v", err)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to start login")
		return
	}

	http.Redirect(w, r, h.github.AuthCodeURL(state), http.StatusFound)
}

// GitHubCallback completes the handshake: it validates the state nonce,
// exchanges the code, links the provider profile to a user, and hands a
// signed token to the frontend. Failures redirect to the failure URL with
// a reason code; the browser never sees a bare 5xx here.
func (h *AuthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	// The provider reports user denials and its own failures via the error parameter
	if provErr := query.Get("error"); provErr != "" {
		log.Printf("Provider returned error on callback: %s", provErr)
		h.redirectFailure(w, r, ReasonProviderError)
		return
	}

	ok, err := h.states.Consume(ctx, query.Get("state"))
	if err != nil {
		log.Printf("State lookup failed: %v", err)
		h.redirectFailure(w, r, ReasonInvalidState)
		return
	}
	if !ok {
		h.redirectFailure(w, r, ReasonInvalidState)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.redirectFailure(w, r, ReasonMissingCode)
		return
	}

	oauthToken, err := h.github.ExchangeCode(ctx, code)
	if err != nil {
		log.Printf("Code exchange failed: %v", err)
		h.redirectFailure(w, r, ReasonExchangeFailed)
		return
	}

	profile, err := h.github.FetchProfile(ctx, oauthToken)
	if err != nil {
		log.Printf("Profile fetch failed: %v", err)
		h.redirectFailure(w, r, ReasonProfileFailed)
		return
	}

	user, created, err := h.linker.Link(ctx, profile)
	if err != nil {
		if errors.Is(err, identity.ErrNoEmail) {
			h.redirectFailure(w, r, ReasonNoEmail)
			return
		}
		log.Printf("Identity link failed: %v", err)
		h.redirectFailure(w, r, ReasonLinkFailed)
		return
	}

	h.enqueueLoginJob(ctx, user, created, request.ClientIP(r))

	claims := map[string]any{
		"sub":      user.ID.String(),
		"email":    user.Email,
		"provider": h.linker.Provider(),
	}
	signed, err := token.Sign(claims, h.tokenSecret, h.tokenTTL)
	if err != nil {
		log.Printf("Token signing failed: %v", err)
		h.redirectFailure(w, r, ReasonTokenFailed)
		return
	}

	http.Redirect(w, r, h.frontendURL+"#token="+signed, http.StatusFound)
}

// enqueueLoginJob records the completed handshake for async processing.
// Failures are logged and never interrupt the login.
func (h *AuthHandler) enqueueLoginJob(ctx context.Context, user *models.User, created bool, clientIP string) {
	if h.jobs == nil {
		return
	}

	jobType := queue.JobTypeRecordLogin
	event := models.LoginEventLogin
	if created {
		jobType = queue.JobTypeProvisionUser
		event = models.LoginEventCreated
	}

	job := queue.NewJob(jobType, user.ID)
	job.Metadata["provider"] = h.linker.Provider()
	job.Metadata["event"] = string(event)
	job.Metadata["client_ip"] = clientIP

	if err := h.jobs.Enqueue(ctx, job); err != nil {
		log.Printf("Failed to enqueue %s job: %v", jobType, err)
	}
}

func (h *AuthHandler) redirectFailure(w http.ResponseWriter, r *http.Request, reason string) {
	u, err := url.Parse(h.failureURL)
	if err != nil {
		http.Redirect(w, r, h.failureURL, http.StatusFound)
		return
	}
	q := u.Query()
	q.Set("reason", reason)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}
