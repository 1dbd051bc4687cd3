package store

import (
	"context"
	"errors"

	"github.com/skillbase/skillbase/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. Sub-repositories keep concerns tidy and stop callers from
// accidentally nesting transactions.
type Store interface {
	Users() Users
	Roles() Roles
	RefreshTokens() RefreshTokens
	MFASettings() MFASettings
	BackupCodes() BackupCodes
	LinkedAccounts() LinkedAccounts
	AuditLogs() AuditLogs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil and rolling
	// back on error. Prefer this over Tx for multi-step operations that must
	// be atomic (e.g. refresh rotation).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up by lowercased email, used during login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateFullName mutates the full_name and bumps updated_at.
	UpdateFullName(ctx context.Context, userID string, fullName string) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// UpdateRole re-points the user at a different role.
	UpdateRole(ctx context.Context, userID string, roleID string) error

	// DeleteUser cascades to refresh_tokens and mfa_settings (per schema).
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Roles interface {
	// GetRoleByID fetches a role by its ID.
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)

	// GetRoleByName fetches a role by its name (used by the seeder).
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	// ListAll returns all roles in the system.
	ListAll(ctx context.Context) ([]domain.Role, error)

	// CreateRole inserts a new role (id is ULID).
	CreateRole(ctx context.Context, r domain.Role) error

	// UpdateRoleScopes modifies the scopes for a role.
	UpdateRoleScopes(ctx context.Context, roleID string, scopes []string) error

	// DeleteRole removes a role. Fails while users still reference it.
	DeleteRole(ctx context.Context, roleID string) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByID returns the row for a token's jti, revoked or not.
	// Callers inspect RevokedAt themselves: a revoked row being presented
	// again is the reuse signal, not a lookup miss.
	GetRefreshTokenByID(ctx context.Context, id string) (domain.RefreshToken, error)

	// RevokeRefreshToken sets revoked_at, optionally recording the successor
	// row id when the revocation is a rotation. Returns ErrNotFound when no
	// live row matched: the token was already revoked by a concurrent
	// rotation, which callers on the rotation path must treat as reuse.
	RevokeRefreshToken(ctx context.Context, id string, replacedByID string) error

	// RevokeAllUserRefreshTokens bulk-revokes every live token for a user
	// (reuse detection, password reset, MFA disable).
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// ListActiveUserRefreshTokens returns the user's live sessions.
	ListActiveUserRefreshTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error)

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type MFASettings interface {
	// GetMFASetting returns the user's MFA record, pending or enabled.
	GetMFASetting(ctx context.Context, userID string) (domain.MFASetting, error)

	// UpsertMFASecret writes a pending enrollment, replacing any previous
	// unconfirmed secret. Refuses to overwrite an enabled record.
	UpsertMFASecret(ctx context.Context, userID string, secret string, mfaType string) error

	// EnableMFA confirms enrollment by setting enabled_at.
	EnableMFA(ctx context.Context, userID string) error

	// DeleteMFASetting removes the record entirely (disable).
	DeleteMFASetting(ctx context.Context, userID string) error
}

type BackupCodes interface {
	// CreateBackupCode stores a backup code hash for a user.
	CreateBackupCode(ctx context.Context, c domain.BackupCode) error

	// ConsumeBackupCode marks an unused code matching the hash as used.
	// Returns ErrNotFound when no unused code matches.
	ConsumeBackupCode(ctx context.Context, userID string, codeHash string) error

	// DeleteAllBackupCodes removes all backup codes for a user.
	DeleteAllBackupCodes(ctx context.Context, userID string) error

	// CountUnusedBackupCodes returns the number of remaining codes.
	CountUnusedBackupCodes(ctx context.Context, userID string) (int, error)
}

type LinkedAccounts interface {
	// CreateLinkedAccount ties an external identity to a user.
	CreateLinkedAccount(ctx context.Context, la domain.LinkedAccount) error

	// GetLinkedAccount looks up by (provider, provider_user_id).
	GetLinkedAccount(ctx context.Context, provider, providerUserID string) (domain.LinkedAccount, error)

	// ListUserLinkedAccounts returns all external identities for a user.
	ListUserLinkedAccounts(ctx context.Context, userID string) ([]domain.LinkedAccount, error)

	// DeleteLinkedAccount unlinks an external identity.
	DeleteLinkedAccount(ctx context.Context, id string) error
}

type AuditLogs interface {
	// CreateAuditLog appends an event. Never updated or deleted by the app.
	CreateAuditLog(ctx context.Context, l domain.AuditLog) error

	// ListAuditLogs returns events newest first, filtered by the non-zero
	// fields of the filter.
	ListAuditLogs(ctx context.Context, f AuditLogFilter) ([]domain.AuditLog, error)
}

// AuditLogFilter narrows ListAuditLogs. Zero values mean "any".
type AuditLogFilter struct {
	ActorID  string
	TargetID string
	Action   string
	Limit    int // defaults to 100, capped at 1000
	Offset   int
}
