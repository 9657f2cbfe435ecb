// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ripplefund/ripple/internal/oauth"
	"github.com/ripplefund/ripple/internal/repository"
	"github.com/ripplefund/ripple/internal/services/auth"
	"github.com/ripplefund/ripple/internal/services/payment"
)

// ErrForbidden is returned when an authenticated user lacks the rights for
// the operation.
var ErrForbidden = errors.New("forbidden")

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries the field errors of a rejected request body.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

type errorBody struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// HTTPErrorHandler maps service errors onto the JSON error envelope. Unknown
// errors become a generic 500 with the detail only in the log.
func (h *Handler) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"
	var fields []FieldError

	var ve *ValidationError
	var he *echo.HTTPError

	switch {
	case errors.As(err, &ve):
		status = http.StatusUnprocessableEntity
		message = ve.Error()
		fields = ve.Fields
	case errors.As(err, &he):
		status = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(he.Code)
		}
	case errors.Is(err, auth.ErrUnauthorized):
		status = http.StatusUnauthorized
		message = "unauthorized"
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInactiveUser),
		errors.Is(err, auth.ErrInvalidClaim),
		errors.Is(err, auth.ErrInvalidPin),
		errors.Is(err, auth.ErrInvalidCode),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrRegistrationClosed),
		errors.Is(err, auth.ErrTOTPEnabled),
		errors.Is(err, auth.ErrTOTPNotEnabled),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, oauth.ErrInvalidState),
		errors.Is(err, oauth.ErrExchangeFailed),
		errors.Is(err, payment.ErrInvalidSignature),
		errors.Is(err, repository.ErrAlreadyFeatured):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, ErrForbidden):
		status = http.StatusForbidden
		message = "forbidden"
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, oauth.ErrUnknownProvider):
		status = http.StatusNotFound
		message = "not found"
	default:
		slog.Error("request failed", "method", c.Request().Method, "uri", c.Request().RequestURI, "error", err)
	}

	body := errorBody{Status: "error", Message: message, Errors: fields}
	if writeErr := c.JSON(status, body); writeErr != nil {
		slog.Error("writing error response failed", "error", writeErr)
	}
}
