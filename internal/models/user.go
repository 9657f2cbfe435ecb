// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"time"
)

// User is the identity record. OAuth-only accounts have no password hash and
// cannot authenticate with a password.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID              int64          `db:"id" json:"id"`
	Email           string         `db:"email" json:"email"`
	FullName        string         `db:"full_name" json:"full_name"`
	Phone           sql.NullString `db:"phone" json:"phone,omitzero"`
	DateOfBirth     sql.NullTime   `db:"date_of_birth" json:"date_of_birth,omitzero"`
	Address         sql.NullString `db:"address" json:"address,omitzero"`
	PasswordHash    sql.NullString `db:"password_hash" json:"-"`
	TOTPSecret      sql.NullString `db:"totp_secret" json:"-"`
	TOTPCounter     sql.NullInt64  `db:"totp_counter" json:"-"`
	EmailValidated  bool           `db:"email_validated" json:"email_validated"`
	VerificationPin sql.NullString `db:"verification_pin" json:"-"`
	IsActive        bool           `db:"is_active" json:"is_active"`
	IsSuperuser     bool           `db:"is_superuser" json:"is_superuser"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// HasPassword reports whether the user can authenticate with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash.Valid && u.PasswordHash.String != ""
}

// TOTPEnabled reports whether the user has an enrolled second factor.
func (u *User) TOTPEnabled() bool {
	return u.TOTPSecret.Valid && u.TOTPSecret.String != ""
}

// RefreshToken binds an opaque bearer string to the user it authenticates.
// A record is consumed (deleted) the moment it is redeemed.
type RefreshToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	Token     string    `db:"token" json:"-"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
