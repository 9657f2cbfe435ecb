// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements the account and session lifecycle: password and
// OAuth login, TOTP second factors, access/refresh token rotation, email
// verification and password recovery.
package auth

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/ripplefund/ripple/internal/config"
	"github.com/ripplefund/ripple/internal/models"
	"github.com/ripplefund/ripple/internal/repository"
	"github.com/ripplefund/ripple/internal/token"
	"github.com/ripplefund/ripple/internal/totp"
)

var (
	// ErrInvalidCredentials covers every password login failure. Unknown
	// email, wrong password and inactive account are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInactiveUser       = errors.New("inactive user")
	ErrInvalidClaim       = errors.New("invalid claim")
	ErrInvalidPin         = errors.New("invalid verification pin")
	ErrInvalidCode        = errors.New("invalid code")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrTOTPNotEnabled     = errors.New("totp not enabled")
	ErrTOTPEnabled        = errors.New("totp already enabled")
)

// Mailer is the outbound email surface the auth flows need. A nil Mailer
// disables email without disabling the flows themselves.
type Mailer interface {
	SendVerificationPin(toEmail, pin string) error
	SendPasswordReset(toEmail, token string) error
	SendNewAccount(toEmail string) error
}

// Grant is the result of a successful (or partial) authentication.
// AccessToken is always set. RefreshToken is empty while a second factor is
// still pending, and TOTPRequired tells the caller to complete it.
type Grant struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	TokenType    string       `json:"token_type"`
	TOTPRequired bool         `json:"totp_required,omitempty"`
	User         *models.User `json:"-"`
}

// Service implements the auth session lifecycle on top of the repository.
type Service struct {
	repo   *repository.Repository
	codec  *token.Codec
	totp   *totp.Engine
	mailer Mailer
	cfg    *config.AuthConfig
}

func NewService(repo *repository.Repository, codec *token.Codec, engine *totp.Engine, mailer Mailer, cfg *config.AuthConfig) *Service {
	return &Service{
		repo:   repo,
		codec:  codec,
		totp:   engine,
		mailer: mailer,
		cfg:    cfg,
	}
}

// Register creates a new password account and mails its verification pin.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (*models.User, error) {
	if !s.cfg.OpenRegistration {
		return nil, ErrRegistrationClosed
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	pin, err := generatePin()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:           email,
		FullName:        fullName,
		PasswordHash:    sql.NullString{String: hash, Valid: true},
		VerificationPin: sql.NullString{String: pin, Valid: true},
		IsActive:        true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.sendMail(user.Email, "verification pin", func() error {
		if err := s.mailer.SendVerificationPin(user.Email, pin); err != nil {
			return err
		}
		return s.mailer.SendNewAccount(user.Email)
	})

	return user, nil
}

// Authenticate checks the password and returns a grant. When the account has
// a second factor enrolled the grant is partial: its access token carries a
// pending-TOTP marker and authorizes nothing but CompleteTOTP.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Grant, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a hash comparison so the timing matches a real lookup.
			VerifyPassword(dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	hash := dummyHash
	if user.HasPassword() {
		hash = user.PasswordHash.String
	}
	if !VerifyPassword(hash, password) || !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if user.TOTPEnabled() {
		access, err := s.codec.IssueAccess(user.ID, true)
		if err != nil {
			return nil, err
		}
		return &Grant{AccessToken: access, TokenType: "bearer", TOTPRequired: true, User: user}, nil
	}

	return s.issueGrant(ctx, user)
}

// CompleteTOTP upgrades a partial grant to a full one. The code must map to
// a counter strictly greater than the last accepted one, so a code can never
// be replayed inside its validity window.
func (s *Service) CompleteTOTP(ctx context.Context, accessToken, code string) (*Grant, error) {
	claims, err := s.codec.Parse(accessToken)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if !claims.TOTP || claims.Refresh {
		return nil, ErrUnauthorized
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if !user.IsActive || !user.TOTPEnabled() {
		return nil, ErrUnauthorized
	}

	secret, err := totp.DecodeSecret(user.TOTPSecret.String)
	if err != nil {
		return nil, ErrUnauthorized
	}
	ok, counter, err := s.totp.Verify(secret, code, time.Now())
	if err != nil || !ok {
		return nil, ErrInvalidCode
	}
	if user.TOTPCounter.Valid && counter <= user.TOTPCounter.Int64 {
		return nil, ErrInvalidCode
	}
	if err := s.repo.SetTOTPCounter(ctx, user.ID, counter); err != nil {
		return nil, err
	}

	return s.issueGrant(ctx, user)
}

// Authorize resolves an access token to its user. Refresh tokens and
// pending-TOTP tokens are rejected outright.
func (s *Service) Authorize(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.codec.Parse(accessToken)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if claims.Refresh || claims.TOTP {
		return nil, ErrUnauthorized
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

// Refresh redeems a refresh token for a fresh token pair. Each refresh token
// is single use. Presenting a well-signed token that is no longer on record
// is treated as evidence of theft and revokes every session of that user.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Grant, error) {
	claims, err := s.codec.Parse(refreshToken)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if !claims.Refresh {
		return nil, ErrUnauthorized
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	consumed, err := s.repo.ConsumeRefreshToken(ctx, userID, refreshToken)
	if err != nil {
		return nil, err
	}
	if !consumed {
		if err := s.repo.DeleteUserRefreshTokens(ctx, userID); err != nil {
			slog.Error("Revoking sessions after refresh token reuse failed", "user_id", userID, "error", err)
		}
		return nil, ErrUnauthorized
	}

	return s.issueGrant(ctx, user)
}

// Logout revokes the presented refresh token. Revoking a token that was
// already gone is not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.codec.Parse(refreshToken)
	if err != nil {
		return ErrUnauthorized
	}
	if !claims.Refresh {
		return ErrUnauthorized
	}
	userID, err := claims.UserID()
	if err != nil {
		return ErrUnauthorized
	}
	_, err = s.repo.ConsumeRefreshToken(ctx, userID, refreshToken)
	return err
}

// RevokeAll drops every refresh token of the user, ending all their sessions.
func (s *Service) RevokeAll(ctx context.Context, userID int64) error {
	return s.repo.DeleteUserRefreshTokens(ctx, userID)
}

// RequestPasswordReset issues a magic-link pair for the account. One half is
// mailed, the other is returned to the caller; resetting requires both. For
// unknown or inactive accounts the returned claim token is empty but no
// error is reported, so the endpoint leaks nothing about which emails exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if !user.IsActive {
		return "", nil
	}

	emailToken, claimToken, err := s.codec.IssueMagicPair(user.ID)
	if err != nil {
		return "", err
	}

	s.sendMail(user.Email, "password reset", func() error {
		return s.mailer.SendPasswordReset(user.Email, emailToken)
	})

	return claimToken, nil
}

// CompletePasswordReset sets a new password when both halves of a magic-link
// pair agree. Any mismatch, bad signature or expiry yields the same error.
// A successful reset revokes every active session of the user.
func (s *Service) CompletePasswordReset(ctx context.Context, emailToken, claimToken, newPassword string) error {
	emailClaims, err := s.codec.ParseMagic(emailToken)
	if err != nil {
		return ErrInvalidClaim
	}
	claimClaims, err := s.codec.ParseMagic(claimToken)
	if err != nil {
		return ErrInvalidClaim
	}
	if emailClaims.Subject != claimClaims.Subject {
		return ErrInvalidClaim
	}
	if subtle.ConstantTimeCompare([]byte(emailClaims.Fingerprint), []byte(claimClaims.Fingerprint)) != 1 {
		return ErrInvalidClaim
	}
	userID, err := emailClaims.UserID()
	if err != nil {
		return ErrInvalidClaim
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return ErrInvalidClaim
	}
	if !user.IsActive {
		return ErrInvalidClaim
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return err
	}
	if err := s.repo.DeleteUserRefreshTokens(ctx, user.ID); err != nil {
		slog.Error("Revoking sessions after password reset failed", "user_id", user.ID, "error", err)
	}
	return nil
}

// VerifyEmail checks the pin the user received by mail and marks the address
// as verified.
func (s *Service) VerifyEmail(ctx context.Context, user *models.User, pin string) error {
	if user.EmailValidated {
		return nil
	}
	if !user.VerificationPin.Valid ||
		subtle.ConstantTimeCompare([]byte(user.VerificationPin.String), []byte(pin)) != 1 {
		return ErrInvalidPin
	}
	return s.repo.SetEmailValidated(ctx, user.ID)
}

// ResendVerificationPin replaces the stored pin and mails the new one.
func (s *Service) ResendVerificationPin(ctx context.Context, user *models.User) error {
	if user.EmailValidated {
		return nil
	}
	pin, err := generatePin()
	if err != nil {
		return err
	}
	if err := s.repo.SetVerificationPin(ctx, user.ID, pin); err != nil {
		return err
	}
	s.sendMail(user.Email, "verification pin", func() error {
		return s.mailer.SendVerificationPin(user.Email, pin)
	})
	return nil
}

// EnableTOTP generates a fresh secret and its provisioning URI. Nothing is
// persisted until the user proves possession via ConfirmTOTP.
func (s *Service) EnableTOTP(ctx context.Context, user *models.User) (secretBase32, uri string, err error) {
	if user.TOTPEnabled() {
		return "", "", ErrTOTPEnabled
	}
	_, secretBase32, err = s.totp.GenerateSecret()
	if err != nil {
		return "", "", err
	}
	return secretBase32, s.totp.ProvisionURI(secretBase32, user.Email), nil
}

// ConfirmTOTP enrolls the secret after the user submits a valid code for it.
func (s *Service) ConfirmTOTP(ctx context.Context, user *models.User, secretBase32, code string) error {
	if user.TOTPEnabled() {
		return ErrTOTPEnabled
	}
	secret, err := totp.DecodeSecret(secretBase32)
	if err != nil {
		return ErrInvalidCode
	}
	ok, counter, err := s.totp.Verify(secret, code, time.Now())
	if err != nil || !ok {
		return ErrInvalidCode
	}
	if err := s.repo.SetTOTPSecret(ctx, user.ID, sql.NullString{String: secretBase32, Valid: true}); err != nil {
		return err
	}
	return s.repo.SetTOTPCounter(ctx, user.ID, counter)
}

// DisableTOTP removes the second factor after a valid current code.
func (s *Service) DisableTOTP(ctx context.Context, user *models.User, code string) error {
	if !user.TOTPEnabled() {
		return ErrTOTPNotEnabled
	}
	secret, err := totp.DecodeSecret(user.TOTPSecret.String)
	if err != nil {
		return ErrInvalidCode
	}
	ok, _, err := s.totp.Verify(secret, code, time.Now())
	if err != nil || !ok {
		return ErrInvalidCode
	}
	return s.repo.SetTOTPSecret(ctx, user.ID, sql.NullString{})
}

// OAuthLogin signs in a user vouched for by an identity provider, creating
// the account on first contact. OAuth accounts have no password and their
// email counts as verified.
func (s *Service) OAuthLogin(ctx context.Context, email, fullName string) (*Grant, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		user = &models.User{
			Email:          email,
			FullName:       fullName,
			EmailValidated: true,
			IsActive:       true,
		}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		s.sendMail(user.Email, "new account", func() error {
			return s.mailer.SendNewAccount(user.Email)
		})
	} else if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if user.TOTPEnabled() {
		access, err := s.codec.IssueAccess(user.ID, true)
		if err != nil {
			return nil, err
		}
		return &Grant{AccessToken: access, TokenType: "bearer", TOTPRequired: true, User: user}, nil
	}
	return s.issueGrant(ctx, user)
}

// EnsureSuperuser creates or promotes the configured bootstrap superuser.
// Called once at startup; a no-op when unconfigured.
func (s *Service) EnsureSuperuser(ctx context.Context) error {
	if s.cfg.FirstSuperuser == "" || s.cfg.FirstSuperuserPass == "" {
		return nil
	}

	user, err := s.repo.GetUserByEmail(ctx, s.cfg.FirstSuperuser)
	if errors.Is(err, repository.ErrNotFound) {
		hash, err := HashPassword(s.cfg.FirstSuperuserPass)
		if err != nil {
			return err
		}
		user = &models.User{
			Email:          s.cfg.FirstSuperuser,
			FullName:       "Superuser",
			PasswordHash:   sql.NullString{String: hash, Valid: true},
			EmailValidated: true,
			IsActive:       true,
			IsSuperuser:    true,
		}
		return s.repo.CreateUser(ctx, user)
	}
	if err != nil {
		return err
	}
	if !user.IsSuperuser {
		return s.repo.SetUserSuperuser(ctx, user.ID, true)
	}
	return nil
}

func (s *Service) issueGrant(ctx context.Context, user *models.User) (*Grant, error) {
	access, err := s.codec.IssueAccess(user.ID, false)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, err
	}
	return &Grant{AccessToken: access, RefreshToken: refresh, TokenType: "bearer", User: user}, nil
}

// sendMail runs fn in the background when a mailer is configured. Email is
// best effort, a failed delivery never fails the request.
func (s *Service) sendMail(email, kind string, fn func() error) {
	if s.mailer == nil {
		return
	}
	go func() {
		if err := fn(); err != nil {
			slog.Error("Sending email failed", "kind", kind, "email", email, "error", err)
		}
	}()
}
