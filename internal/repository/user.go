// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ripplefund/ripple/internal/models"
)

// CreateUser inserts the user and fills in its ID and timestamps.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, full_name, phone, date_of_birth, address, password_hash,
		                    totp_secret, totp_counter, email_validated, verification_pin,
		                    is_active, is_superuser, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email, user.FullName, user.Phone, user.DateOfBirth, user.Address,
		user.PasswordHash, user.TOTPSecret, user.TOTPCounter, user.EmailValidated,
		user.VerificationPin, user.IsActive, user.IsSuperuser, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// UpdateUserProfile updates the mutable profile fields.
func (r *Repository) UpdateUserProfile(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET full_name = ?, phone = ?, date_of_birth = ?, address = ?,
		                  email = ?, email_validated = ?, updated_at = ?
		 WHERE id = ?`,
		user.FullName, user.Phone, user.DateOfBirth, user.Address,
		user.Email, user.EmailValidated, time.Now().UTC(), user.ID)
	return err
}

// UpdateUserPassword updates a user's password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	return err
}

// SetEmailValidated marks the user's email as verified.
func (r *Repository) SetEmailValidated(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_validated = 1, verification_pin = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	return err
}

// SetVerificationPin stores a fresh verification pin for the user.
func (r *Repository) SetVerificationPin(ctx context.Context, id int64, pin string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET verification_pin = ?, updated_at = ? WHERE id = ?`,
		pin, time.Now().UTC(), id)
	return err
}

// SetTOTPSecret stores or clears the user's TOTP secret. Clearing the secret
// also resets the counter.
func (r *Repository) SetTOTPSecret(ctx context.Context, id int64, secret sql.NullString) error {
	if !secret.Valid {
		_, err := r.db.ExecContext(ctx,
			`UPDATE users SET totp_secret = NULL, totp_counter = NULL, updated_at = ? WHERE id = ?`,
			time.Now().UTC(), id)
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = ?, updated_at = ? WHERE id = ?`,
		secret, time.Now().UTC(), id)
	return err
}

// SetTOTPCounter persists the last accepted TOTP counter for replay rejection.
func (r *Repository) SetTOTPCounter(ctx context.Context, id int64, counter int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_counter = ?, updated_at = ? WHERE id = ?`,
		counter, time.Now().UTC(), id)
	return err
}

// SetUserActive toggles the user's active flag.
func (r *Repository) SetUserActive(ctx context.Context, id int64, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id)
	return err
}

// SetUserSuperuser toggles the superuser flag.
func (r *Repository) SetUserSuperuser(ctx context.Context, id int64, superuser bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_superuser = ?, updated_at = ? WHERE id = ?`,
		superuser, time.Now().UTC(), id)
	return err
}

// ListUsers returns all users ordered by creation date (newest first).
func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// CountSuperusers returns the number of superusers.
func (r *Repository) CountSuperusers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE is_superuser = 1`)
	if err != nil {
		return 0, err
	}
	return count, nil
}
