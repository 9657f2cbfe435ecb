// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/ripplefund/ripple/internal/models"
	"github.com/ripplefund/ripple/internal/services/auth"
)

const userContextKey = "user"

// RequireUser authenticates the bearer token and stores the user in the
// request context. Refresh and pending-TOTP tokens do not pass.
func (h *Handler) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return auth.ErrUnauthorized
		}
		user, err := h.auth.Authorize(c.Request().Context(), token)
		if err != nil {
			return err
		}
		c.Set(userContextKey, user)
		return next(c)
	}
}

// RequireSuperuser rejects authenticated users without the superuser flag.
// Must run after RequireUser.
func (h *Handler) RequireSuperuser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := userFrom(c)
		if user == nil || !user.IsSuperuser {
			return ErrForbidden
		}
		return next(c)
	}
}

// userFrom returns the authenticated user set by RequireUser, or nil.
func userFrom(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
