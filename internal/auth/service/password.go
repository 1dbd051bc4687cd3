package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/mail"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/pkg/cryptox"
	"github.com/skillbase/skillbase/pkg/idx"
	"github.com/skillbase/skillbase/pkg/jwtx"
	"github.com/skillbase/skillbase/pkg/slogx"
)

var ErrInvalidResetToken = errors.New("invalid_reset_token")

type PasswordService struct {
	Store           store.Store
	Tokens          *TokenService
	Audit           *AuditService
	Codec           *jwtx.Codec
	Mailer          mail.Mailer
	Issuer          string
	FrontendBaseURL string
}

// RequestReset mints a short-lived reset token and mails it to the account.
// It reveals nothing to the caller: unknown addresses take the same path
// minus the mail, so the endpoint can not be used to probe for accounts.
func (s *PasswordService) RequestReset(ctx context.Context, email string, meta RequestMeta) error {
	l := slogx.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	claims := jwtx.NewClaims(jwtx.PurposePasswordReset, user.ID, user.Email, "",
		jwtx.PasswordResetTTL, s.Issuer, idx.New().String(), time.Now())
	claims.CredentialFP = cryptox.FingerprintToken(user.PasswordHash)
	token, err := s.Codec.Sign(jwtx.PurposePasswordReset, claims)
	if err != nil {
		return err
	}

	link := s.FrontendBaseURL + "/reset-password?token=" + token
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Open the link below within %d minutes to choose a new password:\n\n%s\n\n"+
			"If you did not request this, you can ignore this message.",
		int(jwtx.PasswordResetTTL.Minutes()), link)

	if err := s.Mailer.Send(ctx, user.Email, "Reset your password", body); err != nil {
		// The caller still gets a 200; retrying is up to the user.
		l.Error("failed to send password reset mail", "user_id", user.ID, "error", err)
	}

	s.Audit.Record(ctx, domain.AuditLog{
		ActorID:   user.ID,
		Action:    domain.AuditPasswordResetSent,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})

	return nil
}

// Reset sets a new password from a valid reset token, then revokes every
// session. Whoever had a stolen refresh token loses it here.
func (s *PasswordService) Reset(ctx context.Context, token, newPassword string, meta RequestMeta) error {
	claims, err := s.Codec.Verify(jwtx.PurposePasswordReset, token)
	if err != nil {
		return ErrInvalidResetToken
	}
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	// Single use: the token was minted against the then-current password
	// hash. After the first successful reset the fingerprint stops matching.
	if claims.CredentialFP != cryptox.FingerprintToken(user.PasswordHash) {
		return ErrInvalidResetToken
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, user.ID)
	}); err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditLog{
		ActorID:   user.ID,
		Action:    domain.AuditPasswordReset,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})

	return nil
}
