package service

import (
	"context"
	"strings"
	"testing"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

// captureMailer records the last message instead of sending it.
type captureMailer struct {
	to      string
	subject string
	body    string
	sent    int
}

func (m *captureMailer) Send(ctx context.Context, to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	m.sent++
	return nil
}

// resetTokenFromMail pulls the token out of the reset link in the mail body.
func resetTokenFromMail(t *testing.T, body string) string {
	t.Helper()
	_, after, found := strings.Cut(body, "token=")
	require.True(t, found, "mail body should contain a reset link")
	token, _, _ := strings.Cut(after, "\n")
	return strings.TrimSpace(token)
}

func newPasswordService(env *testEnv, mailer *captureMailer) *PasswordService {
	return &PasswordService{
		Store:           env.Store,
		Tokens:          env.Tokens,
		Audit:           env.Audit,
		Codec:           env.Codec,
		Mailer:          mailer,
		Issuer:          testIssuer,
		FrontendBaseURL: "https://app.example.com",
	}
}

func TestRequestReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "alice@example.com", "oldpassword", domain.RoleStudent)

	mailer := &captureMailer{}
	svc := newPasswordService(env, mailer)

	t.Run("mails a reset link to known accounts", func(t *testing.T) {
		require.NoError(t, svc.RequestReset(ctx, "Alice@Example.com", testMeta()))
		require.Equal(t, 1, mailer.sent)
		require.Equal(t, "alice@example.com", mailer.to)
		require.Contains(t, mailer.body, "https://app.example.com/reset-password?token=")
	})

	t.Run("unknown email succeeds without sending", func(t *testing.T) {
		before := mailer.sent
		require.NoError(t, svc.RequestReset(ctx, "nobody@example.com", testMeta()))
		require.Equal(t, before, mailer.sent)
	})
}

func TestReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "bob@example.com", "oldpassword", domain.RoleStudent)

	mailer := &captureMailer{}
	svc := newPasswordService(env, mailer)

	// A live session that must be revoked by the reset.
	pair, err := env.Tokens.IssuePair(ctx, user, domain.RoleStudent, issueOpts{Meta: testMeta()})
	require.NoError(t, err)

	require.NoError(t, svc.RequestReset(ctx, "bob@example.com", testMeta()))
	token := resetTokenFromMail(t, mailer.body)

	t.Run("rejects garbage tokens and weak passwords", func(t *testing.T) {
		require.ErrorIs(t, svc.Reset(ctx, "garbage", "brandnewpassword", testMeta()), ErrInvalidResetToken)
		require.ErrorIs(t, svc.Reset(ctx, token, "short", testMeta()), ErrWeakPassword)
	})

	t.Run("sets the new password and revokes sessions", func(t *testing.T) {
		require.NoError(t, svc.Reset(ctx, token, "brandnewpassword", testMeta()))

		_, _, err := env.Auth.Login(ctx, "bob@example.com", "oldpassword", testMeta())
		require.ErrorIs(t, err, ErrInvalidCredentials)
		p, challenge, err := env.Auth.Login(ctx, "bob@example.com", "brandnewpassword", testMeta())
		require.NoError(t, err)
		require.Nil(t, challenge)
		require.NotEmpty(t, p.AccessToken)

		_, err = env.Tokens.Rotate(ctx, pair.RefreshToken, testMeta())
		require.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("a used token is dead", func(t *testing.T) {
		require.ErrorIs(t, svc.Reset(ctx, token, "anothernewpassword", testMeta()), ErrInvalidResetToken)
	})
}
