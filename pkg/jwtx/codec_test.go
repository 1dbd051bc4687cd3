package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testIssuer = "skillbase-auth"

func testSecrets() map[Purpose]string {
	return map[Purpose]string{
		PurposeAccess:        "access-secret-for-tests-0123456789",
		PurposeRefresh:       "refresh-secret-for-tests-0123456789",
		PurposeMFAChallenge:  "mfa-secret-for-tests-0123456789",
		PurposePasswordReset: "reset-secret-for-tests-0123456789",
	}
}

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(testIssuer, testSecrets())
	require.NoError(t, err)
	return c
}

func TestNewCodecRejectsMissingSecret(t *testing.T) {
	secrets := testSecrets()
	delete(secrets, PurposeRefresh)

	_, err := NewCodec(testIssuer, secrets)
	require.Error(t, err)
	require.Contains(t, err.Error(), "refresh")
}

func TestNewCodecRejectsSharedSecrets(t *testing.T) {
	secrets := testSecrets()
	secrets[PurposeRefresh] = secrets[PurposeAccess]

	_, err := NewCodec(testIssuer, secrets)
	require.Error(t, err)
	require.Contains(t, err.Error(), "share a signing secret")
}

func TestSignVerifyRoundTrip(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now()

	for _, p := range Purposes {
		claims := NewClaims(p, "user-1", "alice@example.com", "student", time.Minute, testIssuer, "jti-1", now)
		token, err := c.Sign(p, claims)
		require.NoError(t, err)

		got, err := c.Verify(p, token)
		require.NoError(t, err, "purpose %s", p)
		require.Equal(t, "user-1", got.Subject)
		require.Equal(t, "alice@example.com", got.Email)
		require.Equal(t, "student", got.Role)
		require.Equal(t, "jti-1", got.ID)
	}
}

func TestVerifyRejectsCrossPurposeReplay(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now()

	// A password-reset token must never pass as an access, refresh or MFA
	// challenge token, regardless of which check fires first.
	reset, err := c.Sign(PurposePasswordReset,
		NewClaims(PurposePasswordReset, "user-1", "", "", time.Minute, testIssuer, "jti-2", now))
	require.NoError(t, err)

	for _, p := range []Purpose{PurposeAccess, PurposeRefresh, PurposeMFAChallenge} {
		_, err := c.Verify(p, reset)
		require.Error(t, err, "reset token accepted as %s", p)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	c := newTestCodec(t)
	issued := time.Now().Add(-2 * time.Hour)

	token, err := c.Sign(PurposeAccess,
		NewClaims(PurposeAccess, "user-1", "", "", time.Minute, testIssuer, "jti-3", issued))
	require.NoError(t, err)

	_, err = c.Verify(PurposeAccess, token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsTampering(t *testing.T) {
	c := newTestCodec(t)

	token, err := c.Sign(PurposeAccess,
		NewClaims(PurposeAccess, "user-1", "", "", time.Minute, testIssuer, "jti-4", time.Now()))
	require.NoError(t, err)

	_, err = c.Verify(PurposeAccess, token[:len(token)-2]+"xx")
	require.Error(t, err)

	_, err = c.Verify(PurposeAccess, "not.a.jwt")
	require.Error(t, err)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	other, err := NewCodec("someone-else", testSecrets())
	require.NoError(t, err)

	token, err := other.Sign(PurposeAccess,
		NewClaims(PurposeAccess, "user-1", "", "", time.Minute, "someone-else", "jti-5", time.Now()))
	require.NoError(t, err)

	c := newTestCodec(t)
	_, err = c.Verify(PurposeAccess, token)
	require.ErrorIs(t, err, ErrIssuer)
}
