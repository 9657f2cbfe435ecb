// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec("test-secret", 30*time.Minute, 7*24*time.Hour, 48*time.Hour)
	require.NoError(t, err)
	return codec
}

func TestNewCodecRequiresSecret(t *testing.T) {
	_, err := NewCodec("", time.Minute, time.Minute, time.Minute)
	assert.Error(t, err)
}

func TestIssueAndParseAccess(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.IssueAccess(42, false)
	require.NoError(t, err)

	claims, err := codec.Parse(signed)
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.False(t, claims.Refresh)
	assert.False(t, claims.TOTP)
}

func TestIssueAccessTOTPPending(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.IssueAccess(42, true)
	require.NoError(t, err)

	claims, err := codec.Parse(signed)
	require.NoError(t, err)
	assert.True(t, claims.TOTP)
	assert.False(t, claims.Refresh)
}

func TestIssueRefreshCarriesRefreshClaim(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.IssueRefresh(7)
	require.NoError(t, err)

	claims, err := codec.Parse(signed)
	require.NoError(t, err)
	assert.True(t, claims.Refresh)
	assert.False(t, claims.TOTP)
}

func TestParseRejectsExpired(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.IssueWithTTL(1, false, -time.Minute)
	require.NoError(t, err)

	_, err = codec.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewCodec("other-secret", time.Minute, time.Minute, time.Minute)
	require.NoError(t, err)

	signed, err := other.IssueAccess(1, false)
	require.NoError(t, err)

	_, err = codec.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	codec := newTestCodec(t)

	for _, tokenStr := range []string{"", "not-a-token", "a.b.c"} {
		_, err := codec.Parse(tokenStr)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestMagicPairSharesFingerprint(t *testing.T) {
	codec := newTestCodec(t)

	emailToken, claimToken, err := codec.IssueMagicPair(9)
	require.NoError(t, err)
	assert.NotEqual(t, emailToken, claimToken)

	emailClaims, err := codec.ParseMagic(emailToken)
	require.NoError(t, err)
	claimClaims, err := codec.ParseMagic(claimToken)
	require.NoError(t, err)

	assert.NotEmpty(t, emailClaims.Fingerprint)
	assert.Equal(t, emailClaims.Fingerprint, claimClaims.Fingerprint)
	assert.Equal(t, emailClaims.Subject, claimClaims.Subject)
}

func TestMagicPairsDiffer(t *testing.T) {
	codec := newTestCodec(t)

	_, first, err := codec.IssueMagicPair(9)
	require.NoError(t, err)
	_, second, err := codec.IssueMagicPair(9)
	require.NoError(t, err)

	firstClaims, err := codec.ParseMagic(first)
	require.NoError(t, err)
	secondClaims, err := codec.ParseMagic(second)
	require.NoError(t, err)

	// Two requests must never produce interchangeable halves.
	assert.NotEqual(t, firstClaims.Fingerprint, secondClaims.Fingerprint)
}

func TestParseMagicRejectsAccessToken(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.IssueAccess(9, false)
	require.NoError(t, err)

	// An access token carries no fingerprint and is not a magic half.
	_, err = codec.ParseMagic(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
