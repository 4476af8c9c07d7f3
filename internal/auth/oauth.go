package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/model"
)

const (
	defaultGitHubAPIURL      = "https://api.github.com"
	defaultGoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	maxProviderResponseBytes = 1 << 20
)

// OAuthIdentity is what a provider asserts about the person who just
// signed in. SubjectID is the provider's stable account id. Email may be
// empty when the provider withholds it.
type OAuthIdentity struct {
	Provider    model.Provider
	SubjectID   string
	Email       string
	Username    string
	DisplayName string
	AvatarURL   string
}

// OAuthProvider runs the Authorization Code flow against one provider.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. AuthURL(state) → browser goes to the provider and approves
//  2. provider redirects back with ?code=...&state=...
//  3. Exchange(code) trades the code for an access token server-to-server
//     and reads the profile with it
type OAuthProvider interface {
	Name() model.Provider
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*OAuthIdentity, error)
}

// OAuthClientConfig holds client credentials. The URL fields are empty in
// production and point at an httptest server in tests.
type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string

	AuthURL  string
	TokenURL string
	APIURL   string
}

func (c OAuthClientConfig) oauth2Config(ep oauth2.Endpoint, scopes []string) *oauth2.Config {
	if c.AuthURL != "" {
		ep.AuthURL = c.AuthURL
	}
	if c.TokenURL != "" {
		ep.TokenURL = c.TokenURL
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.CallbackURL,
		Scopes:       scopes,
		Endpoint:     ep,
	}
}

// =========================================================================
// GITHUB
// =========================================================================

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GitHubProvider signs users in with GitHub.
//
// Scopes: "read:user" for the profile and "user:email" so the address is
// available even when the user hides it on their public profile.
type GitHubProvider struct {
	config *oauth2.Config
	apiURL string
}

func NewGitHubProvider(cfg OAuthClientConfig) *GitHubProvider {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = defaultGitHubAPIURL
	}
	return &GitHubProvider{
		config: cfg.oauth2Config(endpoints.GitHub, []string{"read:user", "user:email"}),
		apiURL: apiURL,
	}
}

func (p *GitHubProvider) Name() model.Provider { return model.ProviderGitHub }

func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the code for a GitHub identity. When the profile email
// is hidden, the /user/emails list is consulted.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*OAuthIdentity, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging GitHub code: %w", err)
	}
	client := p.config.Client(ctx, tok)

	var u githubUser
	if err := getJSON(ctx, client, p.apiURL+"/user", &u); err != nil {
		return nil, fmt.Errorf("auth: GitHub /user: %w", err)
	}
	if u.ID == 0 {
		return nil, errors.New("auth: GitHub returned an invalid user (ID = 0)")
	}

	email := u.Email
	if email == "" {
		var emails []githubEmail
		if err := getJSON(ctx, client, p.apiURL+"/user/emails", &emails); err != nil {
			return nil, fmt.Errorf("auth: GitHub /user/emails: %w", err)
		}
		email = pickGitHubEmail(emails)
	}

	return &OAuthIdentity{
		Provider:    model.ProviderGitHub,
		SubjectID:   strconv.FormatInt(u.ID, 10),
		Email:       email,
		Username:    u.Login,
		DisplayName: u.Name,
		AvatarURL:   u.AvatarURL,
	}, nil
}

// pickGitHubEmail prefers the verified primary address, then any verified
// address, then whatever comes first.
func pickGitHubEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	if len(emails) > 0 {
		return emails[0].Email
	}
	return ""
}

// =========================================================================
// GOOGLE
// =========================================================================

type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleProvider signs users in with Google via the OpenID userinfo endpoint.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(cfg OAuthClientConfig) *GoogleProvider {
	userInfoURL := cfg.APIURL
	if userInfoURL == "" {
		userInfoURL = defaultGoogleUserInfoURL
	}
	return &GoogleProvider{
		config:      cfg.oauth2Config(endpoints.Google, []string{"openid", "email", "profile"}),
		userInfoURL: userInfoURL,
	}
}

func (p *GoogleProvider) Name() model.Provider { return model.ProviderGoogle }

func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*OAuthIdentity, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging Google code: %w", err)
	}

	var info googleUserInfo
	if err := getJSON(ctx, p.config.Client(ctx, tok), p.userInfoURL, &info); err != nil {
		return nil, fmt.Errorf("auth: Google userinfo: %w", err)
	}
	if info.Sub == "" {
		return nil, errors.New("auth: Google returned an empty subject")
	}

	return &OAuthIdentity{
		Provider:    model.ProviderGoogle,
		SubjectID:   info.Sub,
		Email:       info.Email,
		DisplayName: info.Name,
		AvatarURL:   info.Picture,
	}, nil
}

// =========================================================================
// REGISTRY
// =========================================================================

// Providers holds the enabled providers by name.
type Providers map[model.Provider]OAuthProvider

// NewProviders builds the registry from the providers that have credentials.
func NewProviders(github, google OAuthClientConfig) Providers {
	ps := Providers{}
	if github.ClientID != "" && github.ClientSecret != "" {
		ps[model.ProviderGitHub] = NewGitHubProvider(github)
	}
	if google.ClientID != "" && google.ClientSecret != "" {
		ps[model.ProviderGoogle] = NewGoogleProvider(google)
	}
	return ps
}

func (ps Providers) Get(name model.Provider) (OAuthProvider, bool) {
	p, ok := ps[name]
	return p, ok
}

func getJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(io.LimitReader(resp.Body, maxProviderResponseBytes)).Decode(dst)
}

var (
	_ OAuthProvider = (*GitHubProvider)(nil)
	_ OAuthProvider = (*GoogleProvider)(nil)
)
