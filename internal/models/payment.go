// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"time"
)

// Payment status values as reported by the gateway.
const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// Payment tracks a gateway transaction from initialization to settlement.
// Reference is unique and doubles as the idempotency key for webhook
// confirmation.
type Payment struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64          `db:"id" json:"id"`
	Email     string         `db:"email" json:"email"`
	FirstName string         `db:"first_name" json:"first_name"`
	LastName  string         `db:"last_name" json:"last_name"`
	Amount    int64          `db:"amount" json:"amount"`
	Reference string         `db:"reference" json:"reference"`
	ProjectID int64          `db:"project_id" json:"project_id"`
	Status    string         `db:"status" json:"status"`
	PaidAt    sql.NullString `db:"paid_at" json:"paid_at,omitzero"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
