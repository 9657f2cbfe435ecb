// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the echo HTTP handlers. Handlers stay thin:
// they bind and validate input, call a service, and shape the response.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ripplefund/ripple/internal/config"
	"github.com/ripplefund/ripple/internal/oauth"
	"github.com/ripplefund/ripple/internal/repository"
	"github.com/ripplefund/ripple/internal/services/auth"
	"github.com/ripplefund/ripple/internal/services/payment"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	repo     *repository.Repository
	auth     *auth.Service
	payments *payment.Service
	oauth    *oauth.Registry
	cfg      *config.Config
}

// New creates a new handler with the given dependencies.
func New(repo *repository.Repository, authService *auth.Service, paymentService *payment.Service, registry *oauth.Registry, cfg *config.Config) *Handler {
	return &Handler{
		repo:     repo,
		auth:     authService,
		payments: paymentService,
		oauth:    registry,
		cfg:      cfg,
	}
}

// Health returns a simple health check response.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
