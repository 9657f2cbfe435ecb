// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token signs and verifies the stateless bearer tokens used for
// access, refresh and magic-link claims. Verification is purely cryptographic;
// only refresh redemption consults the database, and that happens elsewhere.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails signature, expiry or
// shape validation. Callers must not distinguish the failure modes.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of an access or refresh token. A token with Refresh
// or TOTP set must never be accepted as an access credential.
type Claims struct {
	Refresh bool `json:"refresh"`
	TOTP    bool `json:"totp"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// MagicClaims is the payload of one half of a magic-link pair. The
// fingerprint correlates the two halves.
type MagicClaims struct {
	Fingerprint string `json:"fingerprint"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c *MagicClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// Codec issues and verifies signed tokens with a shared secret.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	magicTTL   time.Duration
}

// NewCodec creates a codec. The secret must not be empty.
func NewCodec(secret string, accessTTL, refreshTTL, magicTTL time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	return &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		magicTTL:   magicTTL,
	}, nil
}

// IssueAccess signs an access token. With totpPending set the token only
// authorizes completing the TOTP step, nothing else.
func (c *Codec) IssueAccess(userID int64, totpPending bool) (string, error) {
	return c.sign(&Claims{
		TOTP: totpPending,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

// IssueRefresh signs a refresh token. The random token ID makes every issued
// string unique, two sessions opened in the same second included. The caller
// is responsible for persisting the returned string so it can be revoked.
func (c *Codec) IssueRefresh(userID int64) (string, error) {
	return c.sign(&Claims{
		Refresh: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

// IssueWithTTL signs an access token with an explicit lifetime. Used by tests
// and short-lived grants.
func (c *Codec) IssueWithTTL(userID int64, totpPending bool, ttl time.Duration) (string, error) {
	return c.sign(&Claims{
		TOTP: totpPending,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

// Parse verifies the signature and expiry and returns the claims. Any failure
// is reported as ErrInvalidToken.
func (c *Codec) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if err := c.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueMagicPair creates the two halves of a magic-link exchange. Both carry
// the same subject and a fresh random fingerprint; the first is delivered by
// email, the second returned to the caller. Completing the exchange requires
// presenting both.
func (c *Codec) IssueMagicPair(userID int64) (emailToken, claimToken string, err error) {
	fingerprint := uuid.NewString()
	sub := strconv.FormatInt(userID, 10)

	for _, dst := range []*string{&emailToken, &claimToken} {
		signed, signErr := c.sign(&MagicClaims{
			Fingerprint: fingerprint,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   sub,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.magicTTL)),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
		})
		if signErr != nil {
			return "", "", signErr
		}
		*dst = signed
	}
	return emailToken, claimToken, nil
}

// ParseMagic verifies a magic-link token half.
func (c *Codec) ParseMagic(tokenStr string) (*MagicClaims, error) {
	claims := &MagicClaims{}
	if err := c.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.Fingerprint == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (c *Codec) sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (c *Codec) parse(tokenStr string, claims jwt.Claims) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
