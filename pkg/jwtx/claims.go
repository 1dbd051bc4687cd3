package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes. Short access tokens bound the damage of a leaked
// bearer credential; the refresh TTL is the real session length.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// ImpersonationTTL caps admin-assumed sessions well below normal ones.
	ImpersonationTTL = time.Hour

	// MFAChallengeTTL bounds the gap between password and code verification.
	MFAChallengeTTL = 5 * time.Minute

	// PasswordResetTTL bounds how long an emailed reset link stays valid.
	PasswordResetTTL = 15 * time.Minute
)

// Claims are the signed claims shared by all four token purposes. The token's
// purpose doubles as its audience, so a token minted for one purpose fails
// audience validation under any other even before the key check matters.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the subject user.
	Email string `json:"email,omitempty"`

	// Role name of the subject user at issuance time. Informational only:
	// anything that gates privileged actions re-reads the persisted role.
	Role string `json:"role,omitempty"`

	// ImpersonatorID is set on refresh tokens minted for impersonation
	// sessions and identifies the admin who assumed the subject identity.
	ImpersonatorID string `json:"impersonator_id,omitempty"`

	// MFAPending marks an MFA challenge token: the password was verified
	// but no session exists yet.
	MFAPending bool `json:"mfa_pending,omitempty"`

	// CredentialFP is set on password reset tokens: a fingerprint of the
	// password hash the token was minted against. Once the password changes
	// the fingerprint no longer matches, so a used reset link is dead even
	// though the token itself is stateless.
	CredentialFP string `json:"credential_fp,omitempty"`
}

// NewClaims builds minimally-correct claims for the given purpose.
func NewClaims(purpose Purpose, subject, email, role string, ttl time.Duration, issuer, jti string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{string(purpose)},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		Email: email,
		Role:  role,
	}
}
