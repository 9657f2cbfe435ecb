// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/ripplefund/ripple/internal/oauth"
	"github.com/ripplefund/ripple/internal/services/auth"
)

type loginRequest struct {
	Email    string `json:"email" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login handles password authentication. With a second factor enrolled the
// response carries totp_required and an intermediate access token.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate(
		field("email", req.Email != "", "email is required"),
		field("password", req.Password != "", "password is required"),
	); err != nil {
		return err
	}

	grant, err := h.auth.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, grant)
}

type totpRequest struct {
	AccessToken string `json:"access_token"`
	Code        string `json:"code"`
}

// LoginTOTP completes a TOTP-gated login.
func (h *Handler) LoginTOTP(c echo.Context) error {
	var req totpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate(
		field("access_token", req.AccessToken != "", "access_token is required"),
		field("code", req.Code != "", "code is required"),
	); err != nil {
		return err
	}

	grant, err := h.auth.CompleteTOTP(c.Request().Context(), req.AccessToken, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, grant)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh rotates a refresh token into a fresh token pair.
func (h *Handler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RefreshToken == "" {
		return auth.ErrUnauthorized
	}

	grant, err := h.auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, grant)
}

// Revoke logs out by revoking the presented refresh token.
func (h *Handler) Revoke(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RefreshToken == "" {
		return auth.ErrUnauthorized
	}

	if err := h.auth.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "message": "logged out"})
}

// RecoverPassword starts a password reset. The response is the same whether
// or not the address belongs to an account.
func (h *Handler) RecoverPassword(c echo.Context) error {
	email := c.Param("email")
	if _, err := mail.ParseAddress(email); err != nil {
		return validate(field("email", false, "invalid email address"))
	}

	claimToken, err := h.auth.RequestPasswordReset(c.Request().Context(), email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":      "ok",
		"message":     "if the account exists, a reset email is on its way",
		"claim_token": claimToken,
	})
}

type resetRequest struct {
	EmailToken string `json:"email_token"`
	ClaimToken string `json:"claim_token"`
	Password   string `json:"password"`
}

// ResetPassword completes a password reset with both halves of the pair.
func (h *Handler) ResetPassword(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate(
		field("email_token", req.EmailToken != "", "email_token is required"),
		field("claim_token", req.ClaimToken != "", "claim_token is required"),
		field("password", req.Password != "", "password is required"),
	); err != nil {
		return err
	}

	if err := h.auth.CompletePasswordReset(c.Request().Context(), req.EmailToken, req.ClaimToken, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "message": "password updated"})
}

// OAuthRedirect sends the client to the provider's consent screen.
func (h *Handler) OAuthRedirect(c echo.Context) error {
	if h.oauth == nil {
		return oauth.ErrUnknownProvider
	}
	url, cookie, err := h.oauth.AuthCodeURL(c.Param("provider"))
	if err != nil {
		return err
	}
	c.SetCookie(cookie)
	return c.Redirect(http.StatusTemporaryRedirect, url)
}

// OAuthCallback completes the redirect flow and signs the user in.
func (h *Handler) OAuthCallback(c echo.Context) error {
	if h.oauth == nil {
		return oauth.ErrUnknownProvider
	}
	stateCookie, err := c.Cookie("oauth_state")
	if err != nil {
		return oauth.ErrInvalidState
	}

	info, err := h.oauth.Exchange(c.Request().Context(),
		c.Param("provider"), c.QueryParam("code"), c.QueryParam("state"), stateCookie.Value)
	if err != nil {
		return err
	}

	grant, err := h.auth.OAuthLogin(c.Request().Context(), info.Email, info.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, grant)
}

type oauthTokenRequest struct {
	IDToken string `json:"id_token"`
}

// OAuthTokenLogin signs in with a Google ID token obtained client side.
func (h *Handler) OAuthTokenLogin(c echo.Context) error {
	if h.oauth == nil {
		return oauth.ErrUnknownProvider
	}
	var req oauthTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate(field("id_token", req.IDToken != "", "id_token is required")); err != nil {
		return err
	}

	info, err := h.oauth.VerifyGoogleIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return auth.ErrUnauthorized
	}

	grant, err := h.auth.OAuthLogin(c.Request().Context(), info.Email, info.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, grant)
}
