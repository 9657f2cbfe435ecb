// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package oauth

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/ripplefund/ripple/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := &config.OAuthConfig{
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		StateHashKey:       hex.EncodeToString([]byte("0123456789abcdef0123456789abcdef")),
	}
	registry, err := NewRegistry(cfg, "https://ripple.example.com")
	require.NoError(t, err)
	return registry
}

func TestNewRegistryRequiresStateKey(t *testing.T) {
	_, err := NewRegistry(&config.OAuthConfig{}, "https://ripple.example.com")
	assert.Error(t, err)

	_, err = NewRegistry(&config.OAuthConfig{StateHashKey: "not-hex"}, "https://ripple.example.com")
	assert.Error(t, err)
}

func TestAuthCodeURL(t *testing.T) {
	registry := newTestRegistry(t)

	url, cookie, err := registry.AuthCodeURL("google")
	require.NoError(t, err)
	assert.Contains(t, url, "client_id=client-id")
	assert.Contains(t, url, "state=")
	require.NotNil(t, cookie)
	assert.Equal(t, "oauth_state", cookie.Name)
	assert.True(t, cookie.HttpOnly)

	_, _, err = registry.AuthCodeURL("github")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestExchangeRejectsBadState(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	url, cookie, err := registry.AuthCodeURL("google")
	require.NoError(t, err)
	require.Contains(t, url, "state=")

	// Tampered cookie.
	_, err = registry.Exchange(ctx, "google", "code", "state", "tampered")
	assert.ErrorIs(t, err, ErrInvalidState)

	// Valid cookie but mismatched query state.
	_, err = registry.Exchange(ctx, "google", "code", "wrong-state", cookie.Value)
	assert.ErrorIs(t, err, ErrInvalidState)

	// Empty query state never matches.
	_, err = registry.Exchange(ctx, "google", "code", "", cookie.Value)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateCookieRoundTrip(t *testing.T) {
	registry := newTestRegistry(t)

	url, cookie, err := registry.AuthCodeURL("google")
	require.NoError(t, err)

	var sealed string
	require.NoError(t, registry.states.Decode(stateCookieName, cookie.Value, &sealed))
	assert.Contains(t, url, "state="+sealed)
}
