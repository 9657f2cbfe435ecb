// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"testing"

	"github.com/ripplefund/ripple/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceValidatesConfig(t *testing.T) {
	_, err := NewService(&config.SMTPConfig{}, "https://ripple.example.com")
	assert.Error(t, err)

	_, err = NewService(&config.SMTPConfig{Host: "mail.example.com"}, "https://ripple.example.com")
	assert.Error(t, err)

	svc, err := NewService(&config.SMTPConfig{
		Host: "mail.example.com",
		From: "noreply@example.com",
	}, "https://ripple.example.com/")
	require.NoError(t, err)
	// Trailing slash is normalized away for link building.
	assert.Equal(t, "https://ripple.example.com", svc.baseURL)
}

func TestRenderTemplates(t *testing.T) {
	pin, err := render("verification_pin", map[string]any{
		"Pin":   "123456",
		"Email": "alice@example.com",
	})
	require.NoError(t, err)
	assert.Contains(t, pin, "123456")

	reset, err := render("reset_password", map[string]any{
		"Email": "alice@example.com",
		"Link":  "https://ripple.example.com/reset-password?token=abc",
	})
	require.NoError(t, err)
	assert.Contains(t, reset, "reset-password?token=abc")
	assert.Contains(t, reset, "alice@example.com")

	welcome, err := render("new_account", map[string]any{
		"Email":   "alice@example.com",
		"BaseURL": "https://ripple.example.com",
	})
	require.NoError(t, err)
	assert.Contains(t, welcome, "https://ripple.example.com")

	_, err = render("does_not_exist", nil)
	assert.Error(t, err)
}
