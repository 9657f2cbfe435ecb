// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package payment_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ripplefund/ripple/internal/config"
	"github.com/ripplefund/ripple/internal/models"
	"github.com/ripplefund/ripple/internal/repository"
	"github.com/ripplefund/ripple/internal/services/payment"
	"github.com/ripplefund/ripple/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "sk_test_secret"

func newTestService(t *testing.T, gatewayURL string) (*payment.Service, *repository.Repository) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	cfg := &config.PaymentConfig{SecretKey: testSecretKey, BaseURL: gatewayURL}
	return payment.NewService(repo, cfg), repo
}

func sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testSecretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	svc, _ := newTestService(t, "http://gateway.invalid")
	body := []byte(`{"event":"charge.success"}`)

	assert.NoError(t, svc.VerifyWebhookSignature(body, sign(body)))
	assert.ErrorIs(t, svc.VerifyWebhookSignature(body, "deadbeef"), payment.ErrInvalidSignature)
	assert.ErrorIs(t, svc.VerifyWebhookSignature(body, ""), payment.ErrInvalidSignature)

	// A signature over different bytes does not transfer.
	other := sign([]byte(`{"event":"charge.failed"}`))
	assert.ErrorIs(t, svc.VerifyWebhookSignature(body, other), payment.ErrInvalidSignature)
}

func TestInitializeCreatesPendingPayment(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/initialize", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"authorization_url": "https://checkout.example/abc",
				"access_code":       "abc",
				"reference":         gotBody["reference"],
			},
		})
	}))
	defer gateway.Close()

	svc, repo := newTestService(t, gateway.URL)
	ctx := context.Background()

	owner := testutil.NewTestUser(t, repo, "owner@example.com", "hash")
	project := testutil.NewTestProject(t, repo, owner.ID, "Community Garden")

	result, err := svc.Initialize(ctx, payment.InitializeRequest{
		Email:     "backer@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Amount:    500,
		ProjectID: project.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer "+testSecretKey, gotAuth)
	// The gateway is charged in subunits.
	assert.Equal(t, float64(50000), gotBody["amount"])
	assert.True(t, strings.HasPrefix(result.Reference, fmt.Sprintf("%d-", project.ID)), "reference %q", result.Reference)
	assert.Equal(t, "https://checkout.example/abc", result.AuthorizationURL)

	stored, err := repo.GetPaymentByReference(ctx, result.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
	assert.Equal(t, int64(500), stored.Amount)
}

func TestInitializeUnknownProject(t *testing.T) {
	svc, _ := newTestService(t, "http://gateway.invalid")

	_, err := svc.Initialize(context.Background(), payment.InitializeRequest{
		Email:     "backer@example.com",
		Amount:    500,
		ProjectID: 999,
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInitializeGatewayRejection(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer gateway.Close()

	svc, repo := newTestService(t, gateway.URL)
	ctx := context.Background()

	owner := testutil.NewTestUser(t, repo, "owner@example.com", "hash")
	project := testutil.NewTestProject(t, repo, owner.ID, "Community Garden")

	_, err := svc.Initialize(ctx, payment.InitializeRequest{
		Email:     "backer@example.com",
		Amount:    500,
		ProjectID: project.ID,
	})
	assert.ErrorIs(t, err, payment.ErrGateway)

	// Nothing was recorded for the failed handoff.
	payments, err := repo.ListPayments(ctx)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func seedPendingPayment(t *testing.T, repo *repository.Repository, reference string) int64 {
	t.Helper()
	ctx := context.Background()
	owner := testutil.NewTestUser(t, repo, "owner@example.com", "hash")
	project := testutil.NewTestProject(t, repo, owner.ID, "Community Garden")
	p := &models.Payment{
		Email:     "backer@example.com",
		Amount:    500,
		Reference: reference,
		ProjectID: project.ID,
		Status:    models.PaymentStatusPending,
	}
	require.NoError(t, repo.CreatePayment(ctx, p))
	return project.ID
}

func TestHandleWebhookChargeSuccess(t *testing.T) {
	svc, repo := newTestService(t, "http://gateway.invalid")
	ctx := context.Background()
	projectID := seedPendingPayment(t, repo, "ref-1")

	event := payment.WebhookEvent{Event: "charge.success"}
	event.Data.Reference = "ref-1"
	event.Data.PaidAt = "2026-08-30T12:00:00Z"
	require.NoError(t, svc.HandleWebhook(ctx, event))

	p, err := repo.GetPaymentByReference(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, p.Status)

	backers, err := repo.ListBackers(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, backers, 1)

	// Re-delivery settles nothing twice.
	require.NoError(t, svc.HandleWebhook(ctx, event))
	backers, err = repo.ListBackers(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, backers, 1)
}

func TestHandleWebhookChargeFailed(t *testing.T) {
	svc, repo := newTestService(t, "http://gateway.invalid")
	ctx := context.Background()
	seedPendingPayment(t, repo, "ref-1")

	event := payment.WebhookEvent{Event: "charge.failed"}
	event.Data.Reference = "ref-1"
	require.NoError(t, svc.HandleWebhook(ctx, event))

	p, err := repo.GetPaymentByReference(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, p.Status)
}

func TestHandleWebhookIgnoresUnknownEvents(t *testing.T) {
	svc, repo := newTestService(t, "http://gateway.invalid")
	ctx := context.Background()
	seedPendingPayment(t, repo, "ref-1")

	event := payment.WebhookEvent{Event: "transfer.success"}
	event.Data.Reference = "ref-1"
	require.NoError(t, svc.HandleWebhook(ctx, event))

	p, err := repo.GetPaymentByReference(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, p.Status)
}

func TestConfirmPaymentVerifiesAgainstGateway(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/verify/ref-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"status":  "success",
				"paid_at": "2026-08-30T12:00:00Z",
			},
		})
	}))
	defer gateway.Close()

	svc, repo := newTestService(t, gateway.URL)
	ctx := context.Background()
	projectID := seedPendingPayment(t, repo, "ref-1")

	p, err := svc.ConfirmPayment(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, p.Status)
	assert.Equal(t, "2026-08-30T12:00:00Z", p.PaidAt.String)

	// Confirming again does not touch the gateway state or duplicate the
	// backer record.
	p, err = svc.ConfirmPayment(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, p.Status)

	backers, err := repo.ListBackers(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, backers, 1)
}
