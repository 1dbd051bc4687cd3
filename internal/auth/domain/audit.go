package domain

import "time"

// Audit actions recorded by the authentication service.
const (
	AuditLogin              = "login"
	AuditLoginMFA           = "login_mfa"
	AuditRegister           = "register"
	AuditRefresh            = "token_refresh"
	AuditRefreshReuse       = "token_reuse_detected"
	AuditLogout             = "logout"
	AuditMFAEnabled         = "mfa_enabled"
	AuditMFADisabled        = "mfa_disabled"
	AuditBackupCodesIssued  = "backup_codes_issued"
	AuditPasswordResetSent  = "password_reset_requested"
	AuditPasswordReset      = "password_reset"
	AuditImpersonationStart = "impersonation_start"
	AuditRoleChanged        = "role_changed"
	AuditSocialLogin        = "social_login"
)

// Audit outcomes.
const (
	AuditSuccess = "SUCCESS"
	AuditFailure = "FAILURE"
)

// AuditLog is a single security-relevant event. ActorID is the user who
// performed the action; TargetID the user it affected, when different (e.g.
// impersonation, role changes).
type AuditLog struct {
	ID        string
	ActorID   string
	TargetID  string
	Action    string
	Status    string
	IPAddress string
	UserAgent string
	Detail    string
	CreatedAt time.Time
}
