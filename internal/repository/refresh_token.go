// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/ripplefund/ripple/internal/models"
)

// CreateRefreshToken persists a refresh token bound to a user.
func (r *Repository) CreateRefreshToken(ctx context.Context, userID int64, token string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (token, user_id, created_at) VALUES (?, ?, ?)`,
		token, userID, time.Now().UTC())
	return err
}

// ConsumeRefreshToken deletes the refresh token bound to the user and reports
// whether a record was actually removed. The single DELETE is atomic, so two
// concurrent redemptions of the same token cannot both observe success.
func (r *Repository) ConsumeRefreshToken(ctx context.Context, userID int64, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token = ? AND user_id = ?`, token, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteUserRefreshTokens revokes every outstanding refresh token for a user.
func (r *Repository) DeleteUserRefreshTokens(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	return err
}

// CountUserRefreshTokens returns the number of outstanding tokens for a user.
func (r *Repository) CountUserRefreshTokens(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM refresh_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListUserRefreshTokens returns the user's outstanding refresh token records.
func (r *Repository) ListUserRefreshTokens(ctx context.Context, userID int64) ([]models.RefreshToken, error) {
	var tokens []models.RefreshToken
	err := r.db.SelectContext(ctx, &tokens,
		`SELECT * FROM refresh_tokens WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
