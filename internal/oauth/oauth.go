// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package oauth handles sign-in through external identity providers, both
// the redirect code flow and direct ID-token verification.
package oauth

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/ripplefund/ripple/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	"google.golang.org/api/idtoken"
)

var (
	ErrUnknownProvider = errors.New("unknown oauth provider")
	ErrInvalidState    = errors.New("invalid oauth state")
	ErrExchangeFailed  = errors.New("oauth code exchange failed")
)

const stateCookieName = "oauth_state"

// UserInfo is what we need from a provider to sign a user in.
type UserInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type provider struct {
	config      *oauth2.Config
	userInfoURL string
}

// Registry holds the configured providers and signs the state cookie that
// correlates the redirect round trip.
type Registry struct {
	providers      map[string]*provider
	states         *securecookie.SecureCookie
	googleClientID string
	client         *http.Client
}

// NewRegistry builds the provider set from config. Providers without
// credentials are simply absent.
func NewRegistry(cfg *config.OAuthConfig, redirectBase string) (*Registry, error) {
	if cfg.StateHashKey == "" {
		return nil, errors.New("oauth state key is required")
	}
	hashKey, err := hex.DecodeString(cfg.StateHashKey)
	if err != nil {
		return nil, fmt.Errorf("decoding oauth state key: %w", err)
	}

	providers := make(map[string]*provider)
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		providers["google"] = &provider{
			config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				RedirectURL:  redirectBase + "/api/v1/auth/callback/google",
				Scopes:       []string{"openid", "email", "profile"},
			},
			userInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		}
	}
	if cfg.MicrosoftClientID != "" && cfg.MicrosoftClientSecret != "" {
		providers["microsoft"] = &provider{
			config: &oauth2.Config{
				ClientID:     cfg.MicrosoftClientID,
				ClientSecret: cfg.MicrosoftClientSecret,
				Endpoint:     microsoft.AzureADEndpoint(""),
				RedirectURL:  redirectBase + "/api/v1/auth/callback/microsoft",
				Scopes:       []string{"openid", "email", "profile"},
			},
			userInfoURL: "https://graph.microsoft.com/oidc/userinfo",
		}
	}

	return &Registry{
		providers:      providers,
		states:         securecookie.New(hashKey, nil),
		googleClientID: cfg.GoogleClientID,
		client:         &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// AuthCodeURL returns the provider's consent URL and the signed state cookie
// to set alongside the redirect.
func (r *Registry) AuthCodeURL(providerName string) (redirectURL string, stateCookie *http.Cookie, err error) {
	p, ok := r.providers[providerName]
	if !ok {
		return "", nil, ErrUnknownProvider
	}

	state := uuid.NewString()
	encoded, err := r.states.Encode(stateCookieName, state)
	if err != nil {
		return "", nil, err
	}

	cookie := &http.Cookie{
		Name:     stateCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return p.config.AuthCodeURL(state), cookie, nil
}

// Exchange completes the redirect flow. The state from the query must match
// the one sealed in the cookie before the code is exchanged.
func (r *Registry) Exchange(ctx context.Context, providerName, code, state, stateCookie string) (*UserInfo, error) {
	p, ok := r.providers[providerName]
	if !ok {
		return nil, ErrUnknownProvider
	}

	var sealed string
	if err := r.states.Decode(stateCookieName, stateCookie, &sealed); err != nil {
		return nil, ErrInvalidState
	}
	if state == "" || state != sealed {
		return nil, ErrInvalidState
	}

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	return r.fetchUserInfo(ctx, p, tok)
}

// VerifyGoogleIDToken validates a Google-issued ID token presented directly
// by a client, skipping the redirect flow.
func (r *Registry) VerifyGoogleIDToken(ctx context.Context, rawToken string) (*UserInfo, error) {
	if r.googleClientID == "" {
		return nil, ErrUnknownProvider
	}
	payload, err := idtoken.Validate(ctx, rawToken, r.googleClientID)
	if err != nil {
		return nil, fmt.Errorf("validating id token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if email == "" {
		return nil, errors.New("id token carries no email claim")
	}
	return &UserInfo{Email: email, Name: name}, nil
}

func (r *Registry) fetchUserInfo(ctx context.Context, p *provider, tok *oauth2.Token) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching user info: status %d", resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding user info: %w", err)
	}
	if info.Email == "" {
		return nil, errors.New("provider returned no email")
	}
	return &info, nil
}
