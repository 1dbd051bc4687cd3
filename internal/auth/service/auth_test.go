package service

import (
	"context"
	"testing"
	"time"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/pkg/jwtx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("creates student account with normalised email", func(t *testing.T) {
		user, pair, err := env.Auth.Register(ctx, "  New.Student@Example.COM ", "longenough", "New Student", testMeta())
		require.NoError(t, err)
		require.Equal(t, "new.student@example.com", user.Email)
		require.NotEmpty(t, pair.AccessToken, "registration signs the account in")

		claims, err := env.Codec.Verify(jwtx.PurposeAccess, pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, claims.Subject)

		role, err := env.Store.Roles().GetRoleByID(ctx, user.RoleID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleStudent, role.Name)
	})

	t.Run("rejects duplicate email regardless of case", func(t *testing.T) {
		_, _, err := env.Auth.Register(ctx, "new.student@example.com", "longenough", "Dup", testMeta())
		require.ErrorIs(t, err, ErrEmailTaken)

		_, _, err = env.Auth.Register(ctx, "NEW.STUDENT@EXAMPLE.COM", "longenough", "Dup", testMeta())
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		_, _, err := env.Auth.Register(ctx, "short@example.com", "short", "S", testMeta())
		require.ErrorIs(t, err, ErrWeakPassword)
	})
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "alice@example.com", "sup3rsecret", domain.RoleStudent)

	t.Run("returns pair for valid credentials", func(t *testing.T) {
		pair, challenge, err := env.Auth.Login(ctx, "Alice@Example.com", "sup3rsecret", testMeta())
		require.NoError(t, err)
		require.Nil(t, challenge)
		require.NotEmpty(t, pair.AccessToken)
	})

	t.Run("wrong password and unknown email fail identically", func(t *testing.T) {
		_, _, err := env.Auth.Login(ctx, "alice@example.com", "wrong", testMeta())
		require.ErrorIs(t, err, ErrInvalidCredentials)

		_, _, err = env.Auth.Login(ctx, "nobody@example.com", "sup3rsecret", testMeta())
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email attempt is audited with empty actor", func(t *testing.T) {
		_, _, err := env.Auth.Login(ctx, "ghost@example.com", "whatever1", testMeta())
		require.ErrorIs(t, err, ErrInvalidCredentials)

		logs, err := env.Audit.List(ctx, store.AuditLogFilter{Action: domain.AuditLogin})
		require.NoError(t, err)

		var found bool
		for _, l := range logs {
			if l.ActorID == "" && l.Status == domain.AuditFailure {
				found = true
				break
			}
		}
		require.True(t, found, "no failure audit entry without an actor id")
	})
}

// enableMFA walks a user through setup and enable, returning the secret and
// the backup codes.
func enableMFA(t *testing.T, env *testEnv, userID string) (string, []string) {
	t.Helper()
	ctx := context.Background()

	enroll, err := env.MFA.Setup(ctx, userID)
	require.NoError(t, err)

	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)

	backupCodes, err := env.MFA.Enable(ctx, userID, code, testMeta())
	require.NoError(t, err)
	require.Len(t, backupCodes, backupCodeCount)

	return enroll.Secret, backupCodes
}

func TestLoginWithMFA(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "mfa@example.com", "sup3rsecret", domain.RoleStudent)
	secret, backupCodes := enableMFA(t, env, user.ID)

	t.Run("password login returns challenge, never tokens", func(t *testing.T) {
		pair, challenge, err := env.Auth.Login(ctx, "mfa@example.com", "sup3rsecret", testMeta())
		require.NoError(t, err)
		require.Nil(t, pair)
		require.True(t, challenge.MFARequired)
		require.NotEmpty(t, challenge.MFAToken)
		require.Contains(t, challenge.Methods, "totp")

		// No session row may exist at this point.
		active, err := env.Store.RefreshTokens().ListActiveUserRefreshTokens(ctx, user.ID)
		require.NoError(t, err)
		require.Empty(t, active)
	})

	t.Run("valid TOTP completes the login", func(t *testing.T) {
		_, challenge, err := env.Auth.Login(ctx, "mfa@example.com", "sup3rsecret", testMeta())
		require.NoError(t, err)

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		pair, err := env.Auth.LoginMFA(ctx, challenge.MFAToken, code, "totp", testMeta())
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
	})

	t.Run("wrong code is rejected", func(t *testing.T) {
		_, challenge, err := env.Auth.Login(ctx, "mfa@example.com", "sup3rsecret", testMeta())
		require.NoError(t, err)

		_, err = env.Auth.LoginMFA(ctx, challenge.MFAToken, "000000", "totp", testMeta())
		require.ErrorIs(t, err, ErrInvalidMFACode)
	})

	t.Run("backup code works exactly once", func(t *testing.T) {
		_, challenge, err := env.Auth.Login(ctx, "mfa@example.com", "sup3rsecret", testMeta())
		require.NoError(t, err)

		pair, err := env.Auth.LoginMFA(ctx, challenge.MFAToken, backupCodes[0], "backup_codes", testMeta())
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)

		_, challenge, err = env.Auth.Login(ctx, "mfa@example.com", "sup3rsecret", testMeta())
		require.NoError(t, err)
		_, err = env.Auth.LoginMFA(ctx, challenge.MFAToken, backupCodes[0], "backup_codes", testMeta())
		require.ErrorIs(t, err, ErrInvalidMFACode)
	})

	t.Run("garbage challenge token is rejected", func(t *testing.T) {
		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		_, err = env.Auth.LoginMFA(ctx, "bogus", code, "totp", testMeta())
		require.ErrorIs(t, err, ErrInvalidMFAToken)
	})

	t.Run("access token is not accepted as challenge token", func(t *testing.T) {
		other := env.createUser(t, "other@example.com", "sup3rsecret", domain.RoleStudent)
		pair, err := env.Tokens.IssuePair(ctx, other, domain.RoleStudent, issueOpts{Meta: testMeta()})
		require.NoError(t, err)

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		_, err = env.Auth.LoginMFA(ctx, pair.AccessToken, code, "totp", testMeta())
		require.ErrorIs(t, err, ErrInvalidMFAToken)
	})
}

func TestChallengeTokenGrantsNothingElse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "pending@example.com", "sup3rsecret", domain.RoleStudent)
	enableMFA(t, env, user.ID)

	_, challenge, err := env.Auth.Login(ctx, "pending@example.com", "sup3rsecret", testMeta())
	require.NoError(t, err)

	// The challenge token fails verification under every other purpose.
	_, err = env.Codec.Verify(jwtx.PurposeAccess, challenge.MFAToken)
	require.Error(t, err)
	_, err = env.Codec.Verify(jwtx.PurposeRefresh, challenge.MFAToken)
	require.Error(t, err)

	_, err = env.Tokens.Rotate(ctx, challenge.MFAToken, testMeta())
	require.ErrorIs(t, err, ErrInvalidRefresh)
}
