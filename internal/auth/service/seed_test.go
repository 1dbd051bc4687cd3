package service

import (
	"context"
	"testing"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestSeedRoles(t *testing.T) {
	env := newTestEnv(t) // newTestEnv already ran the seeder once
	ctx := context.Background()
	seeder := &SeedService{Store: env.Store}

	t.Run("creates the four default roles", func(t *testing.T) {
		roles, err := env.Store.Roles().ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, roles, 4)

		owner, err := env.Store.Roles().GetRoleByName(ctx, domain.RoleOwner)
		require.NoError(t, err)
		require.True(t, owner.IsSuperAdmin())

		student, err := env.Store.Roles().GetRoleByName(ctx, domain.RoleStudent)
		require.NoError(t, err)
		require.False(t, student.IsSuperAdmin())
	})

	t.Run("is idempotent", func(t *testing.T) {
		require.NoError(t, seeder.Run(ctx, OwnerConfig{}))
		roles, err := env.Store.Roles().ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, roles, 4)
	})
}

func TestSeedOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seeder := &SeedService{Store: env.Store}

	owner := OwnerConfig{
		Email:    "root@example.com",
		Name:     "Platform Owner",
		Password: "ownerpassword",
	}

	t.Run("creates a super admin that can log in", func(t *testing.T) {
		require.NoError(t, seeder.Run(ctx, owner))

		user, err := env.Store.Users().GetUserByEmail(ctx, "root@example.com")
		require.NoError(t, err)
		_, err = env.Admin.RequireSuperAdmin(ctx, user.ID)
		require.NoError(t, err)

		pair, challenge, err := env.Auth.Login(ctx, "root@example.com", "ownerpassword", testMeta())
		require.NoError(t, err)
		require.Nil(t, challenge)
		require.NotEmpty(t, pair.AccessToken)
	})

	t.Run("rerun leaves the existing owner untouched", func(t *testing.T) {
		require.NoError(t, seeder.Run(ctx, OwnerConfig{
			Email:    "root@example.com",
			Name:     "Someone Else",
			Password: "differentpassword",
		}))

		// The original password still works.
		_, _, err := env.Auth.Login(ctx, "root@example.com", "ownerpassword", testMeta())
		require.NoError(t, err)
	})

	t.Run("refuses an owner without a password", func(t *testing.T) {
		err := seeder.Run(ctx, OwnerConfig{Email: "new-owner@example.com"})
		require.Error(t, err)
	})
}
