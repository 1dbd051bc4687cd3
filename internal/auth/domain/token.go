package domain

import "time"

// TokenPair is what a successful authentication returns: the short-lived
// access token plus the refresh token that rotates it. The refresh token is
// delivered in an HttpOnly cookie, never in the JSON body.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"-"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // seconds until access token expiry
	RefreshTTL   time.Duration `json:"-"`                    // refresh token lifetime, drives the cookie Max-Age
}

// RefreshToken models the stored refresh token record. ID doubles as the jti
// claim of the signed token, so a presented token maps straight to its row.
type RefreshToken struct {
	ID                string
	UserID            string
	TokenHash         string // deterministic fingerprint (base64url SHA-256)
	DeviceInfo        string // User-Agent captured at issuance
	ImpersonatorID    string // admin user id when the session is an impersonation, else empty
	ExpiresAt         time.Time
	RevokedAt         *time.Time
	ReplacedByTokenID string // set on rotation, points at the successor row
	CreatedAt         time.Time
}

// Revoked reports whether the token has been invalidated.
func (t RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Expired reports whether the token is past its lifetime at the given time.
func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
