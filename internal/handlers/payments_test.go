// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"strconv"
	"testing"

	"github.com/ripplefund/ripple/internal/models"
	"github.com/ripplefund/ripple/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookSignature(body string) string {
	mac := hmac.New(sha512.New, []byte("sk_test"))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func seedPayment(t *testing.T, app *testApp, reference string) int64 {
	t.Helper()
	ctx := context.Background()
	owner := testutil.NewTestUser(t, app.repo, "owner@example.com", "hash")
	project := testutil.NewTestProject(t, app.repo, owner.ID, "Community Garden")
	p := &models.Payment{
		Email:     "backer@example.com",
		Amount:    500,
		Reference: reference,
		ProjectID: project.ID,
		Status:    models.PaymentStatusPending,
	}
	require.NoError(t, app.repo.CreatePayment(ctx, p))
	return project.ID
}

func TestPaymentWebhookRejectsBadSignature(t *testing.T) {
	app := newTestApp(t)
	app.e.POST("/api/v1/payments/webhook", app.h.PaymentWebhook)
	seedPayment(t, app, "ref-1")

	body := `{"event":"charge.success","data":{"reference":"ref-1","status":"success"}}`

	rec := app.do(http.MethodPost, "/api/v1/payments/webhook", body,
		map[string]string{"x-paystack-signature": "deadbeef"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// The forged event changed nothing.
	p, err := app.repo.GetPaymentByReference(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, p.Status)
}

func TestPaymentWebhookSettlesOnValidSignature(t *testing.T) {
	app := newTestApp(t)
	app.e.POST("/api/v1/payments/webhook", app.h.PaymentWebhook)
	projectID := seedPayment(t, app, "ref-1")

	body := `{"event":"charge.success","data":{"reference":"ref-1","status":"success","paid_at":"2026-08-30T12:00:00Z"}}`

	rec := app.do(http.MethodPost, "/api/v1/payments/webhook", body,
		map[string]string{"x-paystack-signature": webhookSignature(body)})
	require.Equal(t, http.StatusOK, rec.Code)

	p, err := app.repo.GetPaymentByReference(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, p.Status)

	backers, err := app.repo.ListBackers(context.Background(), projectID)
	require.NoError(t, err)
	assert.Len(t, backers, 1)
}

func TestInitializePaymentValidation(t *testing.T) {
	app := newTestApp(t)
	app.e.POST("/api/v1/payments/initialize", app.h.InitializePayment, app.h.RequireUser)
	app.register(t, "alice@example.com", "correct horse")
	grant := app.login(t, "alice@example.com", "correct horse")

	rec := app.do(http.MethodPost, "/api/v1/payments/initialize",
		`{"email":"not-an-email","amount":0}`, bearer(grant.AccessToken))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeBody(t, rec)
	fields, ok := body["errors"].([]any)
	require.True(t, ok)
	assert.Len(t, fields, 3)
}

func TestInitializePaymentRequiresAuth(t *testing.T) {
	app := newTestApp(t)
	app.e.POST("/api/v1/payments/initialize", app.h.InitializePayment, app.h.RequireUser)
	projectID := seedPayment(t, app, "ref-1")

	rec := app.do(http.MethodPost, "/api/v1/payments/initialize",
		`{"email":"victim@example.com","amount":100,"project_id":`+strconv.FormatInt(projectID, 10)+`}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// No gateway transaction was opened for the anonymous caller.
	payments, err := app.repo.ListPayments(context.Background())
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestInitializePaymentRejectsForeignEmail(t *testing.T) {
	app := newTestApp(t)
	app.e.POST("/api/v1/payments/initialize", app.h.InitializePayment, app.h.RequireUser)
	projectID := seedPayment(t, app, "ref-1")
	app.register(t, "alice@example.com", "correct horse")
	grant := app.login(t, "alice@example.com", "correct horse")

	rec := app.do(http.MethodPost, "/api/v1/payments/initialize",
		`{"email":"victim@example.com","amount":100,"project_id":`+strconv.FormatInt(projectID, 10)+`}`,
		bearer(grant.AccessToken))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	payments, err := app.repo.ListPayments(context.Background())
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}
