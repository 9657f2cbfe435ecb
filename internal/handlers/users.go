// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"database/sql"
	"net/http"
	"net/mail"
	"time"

	"github.com/labstack/echo/v4"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// Register creates a new account and sends its verification pin.
func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	_, emailErr := mail.ParseAddress(req.Email)
	if err := validate(
		field("email", emailErr == nil, "a valid email address is required"),
		field("password", req.Password != "", "password is required"),
		field("full_name", req.FullName != "", "full_name is required"),
	); err != nil {
		return err
	}

	user, err := h.auth.Register(c.Request().Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// ListUsers returns all users. Superuser only.
func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.repo.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// CurrentUser returns the authenticated user's profile.
func (h *Handler) CurrentUser(c echo.Context) error {
	return c.JSON(http.StatusOK, userFrom(c))
}

type updateProfileRequest struct {
	Email       *string `json:"email"`
	FullName    *string `json:"full_name"`
	Phone       *string `json:"phone"`
	DateOfBirth *string `json:"date_of_birth"`
	Address     *string `json:"address"`
}

// UpdateProfile updates the authenticated user's profile. Changing the email
// address resets its verified state and mails a fresh pin.
func (h *Handler) UpdateProfile(c echo.Context) error {
	user := userFrom(c)

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	emailChanged := false
	if req.Email != nil && *req.Email != user.Email {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			return validate(field("email", false, "invalid email address"))
		}
		user.Email = *req.Email
		user.EmailValidated = false
		emailChanged = true
	}
	if req.FullName != nil {
		if *req.FullName == "" {
			return validate(field("full_name", false, "full_name must not be empty"))
		}
		user.FullName = *req.FullName
	}
	if req.Phone != nil {
		user.Phone = sql.NullString{String: *req.Phone, Valid: *req.Phone != ""}
	}
	if req.DateOfBirth != nil {
		if *req.DateOfBirth == "" {
			user.DateOfBirth = sql.NullTime{}
		} else {
			dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
			if err != nil {
				return validate(field("date_of_birth", false, "date_of_birth must be YYYY-MM-DD"))
			}
			user.DateOfBirth = sql.NullTime{Time: dob, Valid: true}
		}
	}
	if req.Address != nil {
		user.Address = sql.NullString{String: *req.Address, Valid: *req.Address != ""}
	}

	if err := h.repo.UpdateUserProfile(c.Request().Context(), user); err != nil {
		return err
	}
	if emailChanged {
		if err := h.auth.ResendVerificationPin(c.Request().Context(), user); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, user)
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Pin   string `json:"pin"`
}

// VerifyEmail checks the mailed pin and marks the address as verified. The
// pin arrives out of band, so the endpoint is keyed by email rather than by a
// bearer token.
func (h *Handler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	_, emailErr := mail.ParseAddress(req.Email)
	if err := validate(
		field("email", emailErr == nil, "a valid email address is required"),
		field("pin", req.Pin != "", "pin is required"),
	); err != nil {
		return err
	}

	user, err := h.repo.GetUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}
	if err := h.auth.VerifyEmail(c.Request().Context(), user, req.Pin); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "message": "email verified"})
}

type resendCodeRequest struct {
	Email string `json:"email"`
}

// ResendVerificationPin replaces and resends the verification pin.
func (h *Handler) ResendVerificationPin(c echo.Context) error {
	var req resendCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return validate(field("email", false, "a valid email address is required"))
	}

	user, err := h.repo.GetUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}
	if err := h.auth.ResendVerificationPin(c.Request().Context(), user); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "message": "verification pin sent"})
}

type toggleStateRequest struct {
	Email string `json:"email"`
}

// ToggleUserState flips the active flag of the named account. Superuser only.
// Deactivation also ends every session of the account.
func (h *Handler) ToggleUserState(c echo.Context) error {
	var req toggleStateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return validate(field("email", false, "a valid email address is required"))
	}

	ctx := c.Request().Context()
	user, err := h.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	user.IsActive = !user.IsActive
	if err := h.repo.SetUserActive(ctx, user.ID, user.IsActive); err != nil {
		return err
	}
	if !user.IsActive {
		if err := h.auth.RevokeAll(ctx, user.ID); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, user)
}

// EnableTOTP returns a fresh secret and provisioning URI for enrollment.
func (h *Handler) EnableTOTP(c echo.Context) error {
	secret, uri, err := h.auth.EnableTOTP(c.Request().Context(), userFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"secret": secret, "uri": uri})
}

type confirmTOTPRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

// ConfirmTOTP enrolls the second factor after a valid code.
func (h *Handler) ConfirmTOTP(c echo.Context) error {
	var req confirmTOTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate(
		field("secret", req.Secret != "", "secret is required"),
		field("code", req.Code != "", "code is required"),
	); err != nil {
		return err
	}

	if err := h.auth.ConfirmTOTP(c.Request().Context(), userFrom(c), req.Secret, req.Code); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "message": "totp enabled"})
}

type disableTOTPRequest struct {
	Code string `json:"code"`
}

// DisableTOTP removes the second factor after a valid current code.
func (h *Handler) DisableTOTP(c echo.Context) error {
	var req disableTOTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate(field("code", req.Code != "", "code is required")); err != nil {
		return err
	}

	if err := h.auth.DisableTOTP(c.Request().Context(), userFrom(c), req.Code); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "message": "totp disabled"})
}
