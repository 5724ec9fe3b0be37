package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"authlink/internal/identity"
)

// Tag is the provider tag stamped onto records created through GitHub
const Tag = "github"

const defaultAPIBaseURL = "https://api.github.com"

// GitHub drives the OAuth2 handshake against github.com and normalizes the
// REST profile payload.
type GitHub struct {
	config     *oauth2.Config
	apiBaseURL string
	httpClient *http.Client
}

// NewGitHub builds the provider from its three credentials. It returns nil
// when any of them is empty: the provider stays unregistered and its routes
// answer as if it did not exist.
func NewGitHub(clientID, clientSecret, callbackURL string) *GitHub {
	if clientID == "" || clientSecret == "" || callbackURL == "" {
		return nil
	}

	return &GitHub{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"user:email"},
			Endpoint:     oauthgithub.Endpoint,
		},
		apiBaseURL: defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthCodeURL returns the authorization URL the browser is redirected to
func (g *GitHub) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for tokens
func (g *GitHub) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return g.config.Exchange(ctx, code)
}

type apiUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	Location  string `json:"location"`
}

type apiEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// FetchProfile retrieves the authenticated user from the GitHub REST API
// and normalizes it. When the public profile hides the email address, the
// scoped /user/emails endpoint is consulted; a failure there is not fatal,
// the profile simply carries no address.
func (g *GitHub) FetchProfile(ctx context.Context, tok *oauth2.Token) (*identity.Profile, error) {
	var user apiUser
	if err := g.get(ctx, tok, "/user", &user); err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}

	profile := &identity.Profile{
		ID:          strconv.FormatInt(user.ID, 10),
		DisplayName: user.Name,
		Login:       user.Login,
		Email:       user.Email,
		AvatarURL:   user.AvatarURL,
		Location:    user.Location,
	}

	if user.Email == "" {
		var emails []apiEmail
		if err := g.get(ctx, tok, "/user/emails", &emails); err == nil {
			profile.Emails = orderEmails(emails)
		}
	}

	return profile, nil
}

// orderEmails flattens the address list with primary verified addresses
// first, preserving API order within each group.
func orderEmails(emails []apiEmail) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		if e.Primary && e.Verified && e.Email != "" {
			out = append(out, e.Email)
		}
	}
	for _, e := range emails {
		if !(e.Primary && e.Verified) && e.Email != "" {
			out = append(out, e.Email)
		}
	}
	return out
}

func (g *GitHub) get(ctx context.Context, tok *oauth2.Token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, path, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return nil
}
