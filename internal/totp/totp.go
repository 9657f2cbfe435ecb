// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package totp implements RFC 6238 time-based one-time passwords on top of
// the RFC 4226 HOTP construction.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // SHA1 is the RFC 6238 default
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const secretBytes = 20

// Engine generates and verifies TOTP codes for a configured issuer.
type Engine struct { //nolint:govet // fieldalignment not critical
	Issuer    string
	Algorithm string // SHA1, SHA256, SHA512
	Digits    int
	Period    int
	Skew      int // accepted clock drift in steps, each direction
}

// NewEngine returns an engine with RFC defaults applied for zero fields.
func NewEngine(issuer, algorithm string) *Engine {
	if algorithm == "" {
		algorithm = "SHA1"
	}
	return &Engine{
		Issuer:    issuer,
		Algorithm: algorithm,
		Digits:    6,
		Period:    30,
		Skew:      1,
	}
}

// GenerateSecret creates a fresh shared secret and its base32 form.
func (e *Engine) GenerateSecret() ([]byte, string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return raw, enc.EncodeToString(raw), nil
}

// DecodeSecret parses a base32 secret back to raw bytes.
func DecodeSecret(secretBase32 string) ([]byte, error) {
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return enc.DecodeString(strings.ToUpper(strings.TrimSpace(secretBase32)))
}

// ProvisionURI builds the otpauth:// enrollment URI for authenticator apps.
func (e *Engine) ProvisionURI(secretBase32, account string) string {
	label := url.PathEscape(e.Issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secretBase32)
	v.Set("issuer", e.Issuer)
	v.Set("period", strconv.Itoa(e.Period))
	v.Set("digits", strconv.Itoa(e.Digits))
	v.Set("algorithm", strings.ToUpper(e.Algorithm))

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Code returns the code for the step containing now.
func (e *Engine) Code(secret []byte, now time.Time) (string, error) {
	return hotpCode(secret, now.Unix()/int64(e.Period), e.Digits, e.Algorithm)
}

// Verify checks a submitted code against the secret within the skew window.
// On success it returns the matched counter so callers can reject replays of
// the same code by persisting the counter.
func (e *Engine) Verify(secret []byte, code string, now time.Time) (bool, int64, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != e.Digits || !isNumeric(trimmed) {
		return false, 0, nil
	}
	if len(secret) == 0 {
		return false, 0, errors.New("empty totp secret")
	}

	baseCounter := now.Unix() / int64(e.Period)
	for step := -e.Skew; step <= e.Skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := hotpCode(secret, counter, e.Digits, e.Algorithm)
		if err != nil {
			return false, 0, err
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true, counter, nil
		}
	}

	return false, 0, nil
}

func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, errors.New("unsupported totp algorithm")
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
