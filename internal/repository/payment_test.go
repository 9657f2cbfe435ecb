// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/ripplefund/ripple/internal/models"
	"github.com/ripplefund/ripple/internal/repository"
	"github.com/ripplefund/ripple/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(t *testing.T, repo *repository.Repository, projectID int64, reference string) *models.Payment {
	t.Helper()
	p := &models.Payment{
		Email:     "backer@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Amount:    500,
		Reference: reference,
		ProjectID: projectID,
		Status:    models.PaymentStatusPending,
	}
	require.NoError(t, repo.CreatePayment(context.Background(), p))
	return p
}

func TestSettlePaymentRecordsBacker(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	owner := testutil.NewTestUser(t, repo, "owner@example.com", "hash")
	project := testutil.NewTestProject(t, repo, owner.ID, "Community Garden")
	newTestPayment(t, repo, project.ID, "ref-1")

	paidAt := sql.NullString{String: "2026-08-30T12:00:00Z", Valid: true}
	require.NoError(t, repo.SettlePayment(ctx, "ref-1", paidAt))

	settled, err := repo.GetPaymentByReference(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, settled.Status)
	assert.Equal(t, "2026-08-30T12:00:00Z", settled.PaidAt.String)

	backers, err := repo.ListBackers(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, backers, 1)
	assert.Equal(t, "backer@example.com", backers[0].Email)
	assert.Equal(t, int64(500), backers[0].Amount)
}

func TestSettlePaymentIsIdempotent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	owner := testutil.NewTestUser(t, repo, "owner@example.com", "hash")
	project := testutil.NewTestProject(t, repo, owner.ID, "Community Garden")
	newTestPayment(t, repo, project.ID, "ref-1")

	paidAt := sql.NullString{String: "2026-08-30T12:00:00Z", Valid: true}
	require.NoError(t, repo.SettlePayment(ctx, "ref-1", paidAt))
	// A webhook re-delivery must not record a second backer.
	require.NoError(t, repo.SettlePayment(ctx, "ref-1", paidAt))

	backers, err := repo.ListBackers(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, backers, 1)
}

func TestSettlePaymentUnknownReference(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.SettlePayment(context.Background(), "no-such-ref", sql.NullString{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdatePaymentStatus(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	owner := testutil.NewTestUser(t, repo, "owner@example.com", "hash")
	project := testutil.NewTestProject(t, repo, owner.ID, "Community Garden")
	newTestPayment(t, repo, project.ID, "ref-1")

	require.NoError(t, repo.UpdatePaymentStatus(ctx, "ref-1", models.PaymentStatusFailed, sql.NullString{}))

	p, err := repo.GetPaymentByReference(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, p.Status)

	err = repo.UpdatePaymentStatus(ctx, "missing", models.PaymentStatusFailed, sql.NullString{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
