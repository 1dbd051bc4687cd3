package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/pkg/cryptox"
	"github.com/skillbase/skillbase/pkg/idx"
	"github.com/skillbase/skillbase/pkg/jwtx"
	"github.com/skillbase/skillbase/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrAccessDenied       = errors.New("access_denied")
	ErrTooManyAttempts    = errors.New("too_many_attempts")
)

type TokenService struct {
	Store      store.Store
	Codec      *jwtx.Codec
	Audit      *AuditService
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// issueOpts tunes IssuePair for the non-default session kinds.
type issueOpts struct {
	ImpersonatorID string
	Meta           RequestMeta
}

// IssuePair mints an access/refresh pair for an authenticated user and
// persists the refresh token's fingerprint. The refresh token's jti doubles
// as the row id, so rotation and revocation resolve a presented token to its
// record without scanning hashes.
func (s *TokenService) IssuePair(ctx context.Context, user domain.User, roleName string, opts issueOpts) (*domain.TokenPair, error) {
	now := time.Now()

	refreshTTL := s.RefreshTTL
	if opts.ImpersonatorID != "" {
		// Impersonation sessions stay short regardless of the normal policy.
		refreshTTL = jwtx.ImpersonationTTL
	}

	jti := idx.New().String()
	refreshClaims := jwtx.NewClaims(jwtx.PurposeRefresh, user.ID, user.Email, roleName, refreshTTL, s.Issuer, jti, now)
	refreshClaims.ImpersonatorID = opts.ImpersonatorID
	refreshToken, err := s.Codec.Sign(jwtx.PurposeRefresh, refreshClaims)
	if err != nil {
		return nil, err
	}

	accessClaims := jwtx.NewClaims(jwtx.PurposeAccess, user.ID, user.Email, roleName, s.AccessTTL, s.Issuer, idx.New().String(), now)
	accessClaims.ImpersonatorID = opts.ImpersonatorID
	accessToken, err := s.Codec.Sign(jwtx.PurposeAccess, accessClaims)
	if err != nil {
		return nil, err
	}

	record := domain.RefreshToken{
		ID:             jti,
		UserID:         user.ID,
		TokenHash:      cryptox.FingerprintToken(refreshToken),
		DeviceInfo:     opts.Meta.UserAgent,
		ImpersonatorID: opts.ImpersonatorID,
		ExpiresAt:      now.Add(refreshTTL),
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, record); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
		RefreshTTL:   refreshTTL,
	}, nil
}

// Rotate exchanges a refresh token for a fresh pair. The old token is revoked
// and linked to its successor in the same transaction, so a crash can not
// leave both alive.
//
// Presenting a token that was already rotated or revoked is treated as theft:
// every session the user has is revoked and the event is audited.
func (s *TokenService) Rotate(ctx context.Context, rawToken string, meta RequestMeta) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Verify(jwtx.PurposeRefresh, rawToken)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	rt, err := s.Store.RefreshTokens().GetRefreshTokenByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	// The signature already binds the token to its row, but compare the
	// stored fingerprint as well so a forged jti on a stolen signing key
	// still has to match what was persisted.
	fp := cryptox.FingerprintToken(rawToken)
	if subtle.ConstantTimeCompare([]byte(fp), []byte(rt.TokenHash)) != 1 {
		return nil, ErrInvalidRefresh
	}

	if rt.Revoked() {
		// Reuse of an already-rotated token. Someone holds a stale copy,
		// possibly an attacker. Kill every session for this user.
		l.Warn("refresh token reuse detected, revoking all user sessions",
			"user_id", rt.UserID, "token_id", rt.ID)
		if err := s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, rt.UserID); err != nil {
			l.Error("failed to revoke user sessions after reuse detection", "error", err)
		}
		s.auditReuse(ctx, rt, meta)
		return nil, ErrAccessDenied
	}

	if rt.Expired(now) {
		return nil, ErrInvalidRefresh
	}

	// Re-read user and role so the new tokens carry current identity, not
	// whatever the old token was minted with.
	user, err := s.Store.Users().GetUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}

	refreshTTL := s.RefreshTTL
	if rt.ImpersonatorID != "" {
		refreshTTL = jwtx.ImpersonationTTL
	}

	newJTI := idx.New().String()
	refreshClaims := jwtx.NewClaims(jwtx.PurposeRefresh, user.ID, user.Email, role.Name, refreshTTL, s.Issuer, newJTI, now)
	refreshClaims.ImpersonatorID = rt.ImpersonatorID
	newRefreshToken, err := s.Codec.Sign(jwtx.PurposeRefresh, refreshClaims)
	if err != nil {
		return nil, err
	}

	accessClaims := jwtx.NewClaims(jwtx.PurposeAccess, user.ID, user.Email, role.Name, s.AccessTTL, s.Issuer, idx.New().String(), now)
	accessClaims.ImpersonatorID = rt.ImpersonatorID
	accessToken, err := s.Codec.Sign(jwtx.PurposeAccess, accessClaims)
	if err != nil {
		return nil, err
	}

	newRecord := domain.RefreshToken{
		ID:             newJTI,
		UserID:         user.ID,
		TokenHash:      cryptox.FingerprintToken(newRefreshToken),
		DeviceInfo:     meta.UserAgent,
		ImpersonatorID: rt.ImpersonatorID,
		ExpiresAt:      now.Add(refreshTTL),
	}

	// The revoke-then-insert runs atomically, and the revoke doubles as the
	// race arbiter: it matches only a still-live row, so of two concurrent
	// rotations of the same token exactly one can win. The loser finds the
	// row already revoked and must apply the same treatment as replaying an
	// old token, committing the mass revoke instead of its new record.
	var lostRace bool
	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		err := tx.RefreshTokens().RevokeRefreshToken(ctx, rt.ID, newJTI)
		if errors.Is(err, store.ErrNotFound) {
			lostRace = true
			return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, rt.UserID)
		}
		if err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, newRecord)
	}); err != nil {
		return nil, err
	}
	if lostRace {
		l.Warn("refresh token reuse detected during rotation, revoking all user sessions",
			"user_id", rt.UserID, "token_id", rt.ID)
		s.auditReuse(ctx, rt, meta)
		return nil, ErrAccessDenied
	}

	s.Audit.Record(ctx, domain.AuditLog{
		ActorID:   user.ID,
		Action:    domain.AuditRefresh,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
		RefreshTTL:   refreshTTL,
	}, nil
}

func (s *TokenService) auditReuse(ctx context.Context, rt domain.RefreshToken, meta RequestMeta) {
	s.Audit.Record(ctx, domain.AuditLog{
		ActorID:   rt.UserID,
		TargetID:  rt.UserID,
		Action:    domain.AuditRefreshReuse,
		Status:    domain.AuditFailure,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		Detail:    "revoked refresh token presented, all sessions revoked",
	})
}

// Revoke invalidates a single refresh token (logout). Unknown or already
// revoked tokens are not an error: logout is idempotent.
func (s *TokenService) Revoke(ctx context.Context, rawToken string, meta RequestMeta) error {
	claims, err := s.Codec.Verify(jwtx.PurposeRefresh, rawToken)
	if err != nil {
		return nil
	}
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if cryptox.FingerprintToken(rawToken) != rt.TokenHash {
		return nil
	}
	if rt.Revoked() {
		return nil
	}
	if err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, rt.ID, ""); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Raced with a rotation or another logout. Already gone.
			return nil
		}
		return err
	}

	s.Audit.Record(ctx, domain.AuditLog{
		ActorID:   rt.UserID,
		Action:    domain.AuditLogout,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})
	return nil
}

// RevokeAllForUser terminates every session for a user (password reset, MFA
// disable, admin action).
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
}
