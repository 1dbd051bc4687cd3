package service

import (
	"context"
	"errors"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/pkg/slogx"
)

var (
	ErrNotSuperAdmin = errors.New("not_super_admin")
	ErrUserNotFound  = errors.New("user_not_found")
	ErrRoleNotFound  = errors.New("role_not_found")
	ErrSelfTarget    = errors.New("cannot_target_self")
)

type AdminService struct {
	Store  store.Store
	Tokens *TokenService
	Audit  *AuditService
}

// RequireSuperAdmin re-reads the caller from the database and checks the
// wildcard scope on their current role. Claims in an access token are not
// trusted for this: a role stripped a minute ago must deny immediately, not
// when the token expires.
func (s *AdminService) RequireSuperAdmin(ctx context.Context, callerID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNotSuperAdmin
		}
		return domain.User{}, err
	}
	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return domain.User{}, err
	}
	if !role.IsSuperAdmin() {
		return domain.User{}, ErrNotSuperAdmin
	}
	return user, nil
}

// Impersonate issues a short-lived session for the target user on behalf of
// a super admin. Both tokens carry the impersonator's id, and the refresh
// token expires after an hour no matter how often it is rotated.
func (s *AdminService) Impersonate(ctx context.Context, callerID, targetID string, meta RequestMeta) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	admin, err := s.RequireSuperAdmin(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if targetID == admin.ID {
		return nil, ErrSelfTarget
	}

	target, err := s.Store.Users().GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	targetRole, err := s.Store.Roles().GetRoleByID(ctx, target.RoleID)
	if err != nil {
		return nil, err
	}

	pair, err := s.Tokens.IssuePair(ctx, target, targetRole.Name, issueOpts{
		ImpersonatorID: admin.ID,
		Meta:           meta,
	})
	if err != nil {
		return nil, err
	}

	l.Info("impersonation session issued", "admin_id", admin.ID, "target_id", target.ID)
	s.Audit.Record(ctx, domain.AuditLog{
		ActorID:   admin.ID,
		TargetID:  target.ID,
		Action:    domain.AuditImpersonationStart,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})

	return pair, nil
}

// ChangeRole re-points a user at a different role and revokes their sessions
// so old tokens can not keep acting under the previous role.
func (s *AdminService) ChangeRole(ctx context.Context, callerID, targetID, roleName string, meta RequestMeta) error {
	admin, err := s.RequireSuperAdmin(ctx, callerID)
	if err != nil {
		return err
	}
	if targetID == admin.ID {
		return ErrSelfTarget
	}

	target, err := s.Store.Users().GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	role, err := s.Store.Roles().GetRoleByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRoleNotFound
		}
		return err
	}

	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdateRole(ctx, target.ID, role.ID); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, target.ID)
	}); err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditLog{
		ActorID:   admin.ID,
		TargetID:  target.ID,
		Action:    domain.AuditRoleChanged,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		Detail:    "new role: " + role.Name,
	})

	return nil
}
