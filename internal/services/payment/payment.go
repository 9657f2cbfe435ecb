// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package payment integrates the card gateway: it initializes transactions,
// verifies webhook signatures and settles confirmed payments.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ripplefund/ripple/internal/config"
	"github.com/ripplefund/ripple/internal/models"
	"github.com/ripplefund/ripple/internal/repository"
)

var (
	ErrGateway          = errors.New("payment gateway error")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// InitializeRequest is the caller-facing input for starting a payment.
// Amount is in whole currency units; the gateway wants subunits.
type InitializeRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Amount    int64  `json:"amount"`
	ProjectID int64  `json:"project_id"`
}

// InitializeResult carries the gateway checkout handoff back to the client.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Service talks to the gateway HTTP API and records payments.
type Service struct {
	repo   *repository.Repository
	cfg    *config.PaymentConfig
	client *http.Client
}

func NewService(repo *repository.Repository, cfg *config.PaymentConfig) *Service {
	return &Service{
		repo:   repo,
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Initialize registers a pending payment locally and opens a transaction at
// the gateway. The reference ties the two together.
func (s *Service) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if _, err := s.repo.GetProjectByID(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	reference := fmt.Sprintf("%d-%s", req.ProjectID, uuid.NewString())

	payload, err := json.Marshal(map[string]any{
		"email":     req.Email,
		"amount":    req.Amount * 100,
		"reference": reference,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode)
	}

	var body struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if !body.Status {
		return nil, ErrGateway
	}

	p := &models.Payment{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Amount:    req.Amount,
		Reference: reference,
		ProjectID: req.ProjectID,
		Status:    models.PaymentStatusPending,
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	return &InitializeResult{
		AuthorizationURL: body.Data.AuthorizationURL,
		AccessCode:       body.Data.AccessCode,
		Reference:        reference,
	}, nil
}

// VerifyTransaction asks the gateway for the authoritative state of a
// transaction and returns its status and settlement timestamp.
func (s *Service) VerifyTransaction(ctx context.Context, reference string) (status, paidAt string, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.cfg.BaseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return "", "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.SecretKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode)
	}

	var body struct {
		Status bool `json:"status"`
		Data   struct {
			Status string `json:"status"`
			PaidAt string `json:"paid_at"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if !body.Status {
		return "", "", ErrGateway
	}
	return body.Data.Status, body.Data.PaidAt, nil
}

// VerifyWebhookSignature checks the gateway's HMAC-SHA512 signature over the
// raw webhook body.
func (s *Service) VerifyWebhookSignature(body []byte, signature string) error {
	mac := hmac.New(sha512.New, []byte(s.cfg.SecretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return ErrInvalidSignature
	}
	return nil
}

// WebhookEvent is the slice of the gateway event payload we act on.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		PaidAt    string `json:"paid_at"`
	} `json:"data"`
}

// HandleWebhook applies a verified gateway event. Successful charges settle
// the payment and record the backer in one transaction; settling the same
// reference twice is a no-op. Unknown events are ignored.
func (s *Service) HandleWebhook(ctx context.Context, event WebhookEvent) error {
	switch event.Event {
	case "charge.success":
		paidAt := sql.NullString{String: event.Data.PaidAt, Valid: event.Data.PaidAt != ""}
		return s.repo.SettlePayment(ctx, event.Data.Reference, paidAt)
	case "charge.failed":
		return s.repo.UpdatePaymentStatus(ctx, event.Data.Reference, models.PaymentStatusFailed, sql.NullString{})
	default:
		return nil
	}
}

// ConfirmPayment re-checks a pending payment against the gateway, for
// clients that return from checkout before the webhook lands.
func (s *Service) ConfirmPayment(ctx context.Context, reference string) (*models.Payment, error) {
	p, err := s.repo.GetPaymentByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PaymentStatusSuccess {
		return p, nil
	}

	status, paidAt, err := s.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	switch status {
	case models.PaymentStatusSuccess:
		if err := s.repo.SettlePayment(ctx, reference, sql.NullString{String: paidAt, Valid: paidAt != ""}); err != nil {
			return nil, err
		}
	case models.PaymentStatusFailed:
		if err := s.repo.UpdatePaymentStatus(ctx, reference, models.PaymentStatusFailed, sql.NullString{}); err != nil {
			return nil, err
		}
	}
	return s.repo.GetPaymentByReference(ctx, reference)
}
