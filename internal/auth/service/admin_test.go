package service

import (
	"context"
	"testing"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestRequireSuperAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.createUser(t, "owner@example.com", "sup3rsecret", domain.RoleOwner)
	admin := env.createUser(t, "admin@example.com", "sup3rsecret", domain.RoleAdmin)
	student := env.createUser(t, "kid@example.com", "sup3rsecret", domain.RoleStudent)

	t.Run("owner passes, everyone else is denied", func(t *testing.T) {
		_, err := env.Admin.RequireSuperAdmin(ctx, owner.ID)
		require.NoError(t, err)

		_, err = env.Admin.RequireSuperAdmin(ctx, admin.ID)
		require.ErrorIs(t, err, ErrNotSuperAdmin)

		_, err = env.Admin.RequireSuperAdmin(ctx, student.ID)
		require.ErrorIs(t, err, ErrNotSuperAdmin)

		_, err = env.Admin.RequireSuperAdmin(ctx, "nonexistent")
		require.ErrorIs(t, err, ErrNotSuperAdmin)
	})

	t.Run("demotion takes effect before any token expires", func(t *testing.T) {
		demoted := env.createUser(t, "demoted@example.com", "sup3rsecret", domain.RoleOwner)
		_, err := env.Admin.RequireSuperAdmin(ctx, demoted.ID)
		require.NoError(t, err)

		studentRole, err := env.Store.Roles().GetRoleByName(ctx, domain.RoleStudent)
		require.NoError(t, err)
		require.NoError(t, env.Store.Users().UpdateRole(ctx, demoted.ID, studentRole.ID))

		// The gate reads the database, so the very next call is denied even
		// though any issued access token still says owner.
		_, err = env.Admin.RequireSuperAdmin(ctx, demoted.ID)
		require.ErrorIs(t, err, ErrNotSuperAdmin)
	})
}

func TestImpersonate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.createUser(t, "owner@example.com", "sup3rsecret", domain.RoleOwner)
	admin := env.createUser(t, "admin@example.com", "sup3rsecret", domain.RoleAdmin)
	student := env.createUser(t, "kid@example.com", "sup3rsecret", domain.RoleStudent)

	t.Run("owner can impersonate a student", func(t *testing.T) {
		pair, err := env.Admin.Impersonate(ctx, owner.ID, student.ID, testMeta())
		require.NoError(t, err)

		claims, err := env.Codec.Verify(jwtx.PurposeAccess, pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, student.ID, claims.Subject)
		require.Equal(t, owner.ID, claims.ImpersonatorID)
		require.Equal(t, domain.RoleStudent, claims.Role)

		logs, err := env.Audit.List(ctx, store.AuditLogFilter{Action: domain.AuditImpersonationStart})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		require.Equal(t, owner.ID, logs[0].ActorID)
		require.Equal(t, student.ID, logs[0].TargetID)
	})

	t.Run("plain admin is denied", func(t *testing.T) {
		_, err := env.Admin.Impersonate(ctx, admin.ID, student.ID, testMeta())
		require.ErrorIs(t, err, ErrNotSuperAdmin)
	})

	t.Run("self impersonation and unknown targets are rejected", func(t *testing.T) {
		_, err := env.Admin.Impersonate(ctx, owner.ID, owner.ID, testMeta())
		require.ErrorIs(t, err, ErrSelfTarget)

		_, err = env.Admin.Impersonate(ctx, owner.ID, "nonexistent", testMeta())
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestChangeRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.createUser(t, "owner@example.com", "sup3rsecret", domain.RoleOwner)
	student := env.createUser(t, "kid@example.com", "sup3rsecret", domain.RoleStudent)

	// A live session that must not survive the role change.
	pair, err := env.Tokens.IssuePair(ctx, student, domain.RoleStudent, issueOpts{Meta: testMeta()})
	require.NoError(t, err)

	t.Run("promotes and revokes sessions", func(t *testing.T) {
		require.NoError(t, env.Admin.ChangeRole(ctx, owner.ID, student.ID, domain.RoleInstructor, testMeta()))

		updated, err := env.Store.Users().GetUserByID(ctx, student.ID)
		require.NoError(t, err)
		role, err := env.Store.Roles().GetRoleByID(ctx, updated.RoleID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleInstructor, role.Name)

		_, err = env.Tokens.Rotate(ctx, pair.RefreshToken, testMeta())
		require.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		err := env.Admin.ChangeRole(ctx, owner.ID, student.ID, "emperor", testMeta())
		require.ErrorIs(t, err, ErrRoleNotFound)
	})

	t.Run("owner cannot change own role", func(t *testing.T) {
		err := env.Admin.ChangeRole(ctx, owner.ID, owner.ID, domain.RoleStudent, testMeta())
		require.ErrorIs(t, err, ErrSelfTarget)
	})
}
