// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ripplefund/ripple/internal/models"
)

// CreatePayment inserts a pending payment record.
func (r *Repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	now := time.Now().UTC()
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (email, first_name, last_name, amount, reference, project_id,
		                       status, paid_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.Email, payment.FirstName, payment.LastName, payment.Amount,
		payment.Reference, payment.ProjectID, payment.Status, payment.PaidAt, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	payment.ID = id
	payment.CreatedAt = now
	payment.UpdatedAt = now
	return nil
}

// GetPaymentByReference retrieves a payment by its gateway reference.
func (r *Repository) GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.GetContext(ctx, &payment,
		`SELECT * FROM payments WHERE reference = ?`, reference)
	if err != nil {
		return nil, wrapError(err)
	}
	return &payment, nil
}

// ListPayments returns all payments, newest first.
func (r *Repository) ListPayments(ctx context.Context) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.SelectContext(ctx, &payments, `SELECT * FROM payments ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// UpdatePaymentStatus records the gateway-reported status for a payment.
func (r *Repository) UpdatePaymentStatus(ctx context.Context, reference, status string, paidAt sql.NullString) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = ?, paid_at = ?, updated_at = ? WHERE reference = ?`,
		status, paidAt, time.Now().UTC(), reference)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SettlePayment applies a successful charge in one transaction: the payment
// flips to success and the payer is recorded as a backer of the project. The
// reference is the idempotency key; settling an already-settled payment is a
// no-op, so webhook re-deliveries are safe.
func (r *Repository) SettlePayment(ctx context.Context, reference string, paidAt sql.NullString) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var payment models.Payment
	if err := tx.GetContext(ctx, &payment,
		`SELECT * FROM payments WHERE reference = ?`, reference); err != nil {
		return wrapError(err)
	}
	if payment.Status == models.PaymentStatusSuccess {
		// Already settled, nothing to apply.
		return nil
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = ?, paid_at = ?, updated_at = ? WHERE id = ?`,
		models.PaymentStatusSuccess, paidAt, now, payment.ID); err != nil {
		return fmt.Errorf("updating payment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO backers (project_id, email, amount, created_at) VALUES (?, ?, ?, ?)`,
		payment.ProjectID, payment.Email, payment.Amount, now); err != nil {
		return fmt.Errorf("recording backer: %w", err)
	}

	return tx.Commit()
}
