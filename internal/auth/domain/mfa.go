package domain

import "time"

// MFAType enumerates supported second factors. Only TOTP is implemented;
// the column exists so other factors can be added without a migration.
const MFATypeTOTP = "totp"

// MFASetting is the per-user second-factor record. A row with a nil
// EnabledAt is a pending enrollment: the secret has been provisioned but not
// yet confirmed with a valid code, and login is unaffected.
type MFASetting struct {
	UserID    string
	Secret    string // base32 TOTP secret
	Type      string
	EnabledAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Enabled reports whether enrollment has been confirmed.
func (m MFASetting) Enabled() bool {
	return m.EnabledAt != nil
}

// MFAEnrollResponse is returned by MFA setup: everything the client needs to
// provision an authenticator app.
type MFAEnrollResponse struct {
	Secret     string `json:"secret"`      // base32 encoded secret
	OTPAuthURL string `json:"otpauth_url"` // otpauth:// provisioning URL
	QRCode     string `json:"qr_code"`     // PNG data URL of the provisioning QR
}

// MFAChallengeResponse is returned when a password login requires a second
// factor. The challenge token is short-lived and grants nothing on its own.
type MFAChallengeResponse struct {
	MFARequired bool     `json:"mfa_required"` // always true
	MFAToken    string   `json:"mfa_token"`
	Methods     []string `json:"methods"` // e.g. ["totp", "backup_codes"]
}

// BackupCode is a single-use recovery code, stored hashed.
type BackupCode struct {
	ID        string
	UserID    string
	CodeHash  string
	UsedAt    *time.Time
	CreatedAt time.Time
}
