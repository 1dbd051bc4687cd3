package service

import (
	"context"
	"testing"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/stretchr/testify/require"
)

// fakeVerifier returns canned identities keyed by token.
type fakeVerifier struct {
	identities map[string]ExternalIdentity
}

func (v *fakeVerifier) Verify(ctx context.Context, provider, token string) (ExternalIdentity, error) {
	ident, ok := v.identities[token]
	if !ok || ident.Provider != provider {
		return ExternalIdentity{}, ErrProviderToken
	}
	return ident, nil
}

func TestSocialLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	verifier := &fakeVerifier{identities: map[string]ExternalIdentity{
		"google-token": {
			Provider:       domain.ProviderGoogle,
			ProviderUserID: "g-123",
			Email:          "Social@Example.com",
			Name:           "Social User",
		},
		"github-token": {
			Provider:       domain.ProviderGitHub,
			ProviderUserID: "gh-456",
			Email:          "linked@example.com",
			Name:           "Linked User",
		},
	}}
	svc := &SocialService{Store: env.Store, Tokens: env.Tokens, Audit: env.Audit, Verifier: verifier}

	t.Run("first login creates a student account", func(t *testing.T) {
		pair, err := svc.Login(ctx, domain.ProviderGoogle, "google-token", testMeta())
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)

		user, err := env.Store.Users().GetUserByEmail(ctx, "social@example.com")
		require.NoError(t, err)
		require.Empty(t, user.PasswordHash)

		role, err := env.Store.Roles().GetRoleByID(ctx, user.RoleID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleStudent, role.Name)

		links, err := env.Store.LinkedAccounts().ListUserLinkedAccounts(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, links, 1)
		require.Equal(t, "g-123", links[0].ProviderUserID)
	})

	t.Run("second login reuses the account", func(t *testing.T) {
		_, err := svc.Login(ctx, domain.ProviderGoogle, "google-token", testMeta())
		require.NoError(t, err)

		user, err := env.Store.Users().GetUserByEmail(ctx, "social@example.com")
		require.NoError(t, err)
		links, err := env.Store.LinkedAccounts().ListUserLinkedAccounts(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, links, 1)
	})

	t.Run("matching email links to the existing account", func(t *testing.T) {
		existing := env.createUser(t, "linked@example.com", "sup3rsecret", domain.RoleInstructor)

		pair, err := svc.Login(ctx, domain.ProviderGitHub, "github-token", testMeta())
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)

		links, err := env.Store.LinkedAccounts().ListUserLinkedAccounts(ctx, existing.ID)
		require.NoError(t, err)
		require.Len(t, links, 1)
		require.Equal(t, domain.ProviderGitHub, links[0].Provider)
	})

	t.Run("bad provider token is rejected", func(t *testing.T) {
		_, err := svc.Login(ctx, domain.ProviderGoogle, "wrong", testMeta())
		require.ErrorIs(t, err, ErrProviderToken)
	})

	t.Run("token from one provider does not work for another", func(t *testing.T) {
		_, err := svc.Login(ctx, domain.ProviderGitHub, "google-token", testMeta())
		require.ErrorIs(t, err, ErrProviderToken)
	})

	t.Run("social logins are audited", func(t *testing.T) {
		logs, err := env.Audit.List(ctx, store.AuditLogFilter{Action: domain.AuditSocialLogin})
		require.NoError(t, err)
		require.NotEmpty(t, logs)
	})
}

func TestHTTPIdentityVerifierRejectsUnknownProvider(t *testing.T) {
	v := NewHTTPIdentityVerifier()
	_, err := v.Verify(context.Background(), "myspace", "token")
	require.ErrorIs(t, err, ErrUnknownProvider)
}
