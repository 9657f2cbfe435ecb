// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/ripplefund/ripple/internal/services/payment"
)

// InitializePayment opens a gateway transaction for a contribution and
// records it as pending. Contributions are made under the caller's own email.
func (h *Handler) InitializePayment(c echo.Context) error {
	var req payment.InitializeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	_, emailErr := mail.ParseAddress(req.Email)
	if err := validate(
		field("email", emailErr == nil, "a valid email address is required"),
		field("amount", req.Amount > 0, "amount must be a positive integer"),
		field("project_id", req.ProjectID > 0, "project_id is required"),
	); err != nil {
		return err
	}
	if req.Email != userFrom(c).Email {
		return echo.NewHTTPError(http.StatusBadRequest, "payments can only be made with your own email")
	}

	result, err := h.payments.Initialize(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ListPayments returns all recorded payments. Superuser only.
func (h *Handler) ListPayments(c echo.Context) error {
	payments, err := h.repo.ListPayments(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, payments)
}

// ConfirmPayment re-checks a payment against the gateway and returns its
// current state.
func (h *Handler) ConfirmPayment(c echo.Context) error {
	reference := c.Param("reference")
	if reference == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reference")
	}

	p, err := h.payments.ConfirmPayment(c.Request().Context(), reference)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// PaymentWebhook receives gateway events. The signature is checked over the
// raw body before anything is parsed. The gateway retries on non-2xx, so a
// verified event always answers 200 even when it is not acted on.
func (h *Handler) PaymentWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	signature := c.Request().Header.Get("x-paystack-signature")
	if err := h.payments.VerifyWebhookSignature(body, signature); err != nil {
		return err
	}

	var event payment.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event payload")
	}

	if err := h.payments.HandleWebhook(c.Request().Context(), event); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
