package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/mail"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/pkg/cryptox"
	"github.com/skillbase/skillbase/pkg/idx"
	"github.com/skillbase/skillbase/pkg/jwtx"
	"github.com/skillbase/skillbase/pkg/slogx"
	"github.com/pquerna/otp/totp"
)

const minPasswordLength = 8

var (
	ErrEmailTaken      = errors.New("email_taken")
	ErrWeakPassword    = errors.New("weak_password")
	ErrInvalidMFACode  = errors.New("invalid_mfa_code")
	ErrInvalidMFAToken = errors.New("invalid_mfa_token")
)

type AuthService struct {
	Store  store.Store
	Tokens *TokenService
	Audit  *AuditService
	Codec  *jwtx.Codec
	Mailer mail.Mailer // optional, welcome mail is skipped when nil
	Issuer string
}

// Register creates a new account with the default student role and signs it
// straight in. The email is normalised to lowercase before the uniqueness
// check. The welcome mail is best effort and never fails the registration.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string, meta RequestMeta) (domain.User, *domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, nil, ErrInvalidCredentials
	}
	if len(password) < minPasswordLength {
		return domain.User{}, nil, ErrWeakPassword
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, nil, err
	}

	role, err := s.Store.Roles().GetRoleByName(ctx, domain.RoleStudent)
	if err != nil {
		return domain.User{}, nil, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		RoleID:       role.ID,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, nil, ErrEmailTaken
		}
		return domain.User{}, nil, err
	}

	pair, err := s.Tokens.IssuePair(ctx, user, role.Name, issueOpts{Meta: meta})
	if err != nil {
		return domain.User{}, nil, err
	}

	if s.Mailer != nil {
		body := "Welcome to Skillbase, " + user.FullName + "! Your account is ready."
		if err := s.Mailer.Send(ctx, user.Email, "Welcome to Skillbase", body); err != nil {
			l.Warn("welcome mail failed", "user_id", user.ID, "err", err)
		}
	}

	s.Audit.Record(ctx, domain.AuditLog{
		ActorID:   user.ID,
		Action:    domain.AuditRegister,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})

	return user, pair, nil
}

// Login verifies email and password. For accounts with MFA enabled it returns
// a challenge instead of tokens: the challenge token proves only that the
// password step passed and is useless against any other endpoint.
func (s *AuthService) Login(ctx context.Context, email, password string, meta RequestMeta) (*domain.TokenPair, *domain.MFAChallengeResponse, error) {
	l := slogx.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Audited with an empty actor id so attempts against unknown
			// principals still show up in the trail.
			s.Audit.Record(ctx, domain.AuditLog{
				Action:    domain.AuditLogin,
				Status:    domain.AuditFailure,
				IPAddress: meta.IP,
				UserAgent: meta.UserAgent,
				Detail:    "unknown email",
			})
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if user.PasswordHash == "" || cryptox.VerifyPassword(password, user.PasswordHash) != nil {
		l.Info("password verification failed", "user_id", user.ID)
		s.Audit.Record(ctx, domain.AuditLog{
			ActorID:   user.ID,
			Action:    domain.AuditLogin,
			Status:    domain.AuditFailure,
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
			Detail:    "bad password",
		})
		return nil, nil, ErrInvalidCredentials
	}

	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return nil, nil, err
	}

	mfa, err := s.Store.MFASettings().GetMFASetting(ctx, user.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, nil, err
	}
	if err == nil && mfa.Enabled() {
		challenge, err := s.mintMFAChallenge(user, role.Name)
		if err != nil {
			return nil, nil, err
		}
		return nil, challenge, nil
	}

	pair, err := s.Tokens.IssuePair(ctx, user, role.Name, issueOpts{Meta: meta})
	if err != nil {
		return nil, nil, err
	}

	s.Audit.Record(ctx, domain.AuditLog{
		ActorID:   user.ID,
		Action:    domain.AuditLogin,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})

	return pair, nil, nil
}

// LoginMFA completes a challenged login with a TOTP code or a backup code.
func (s *AuthService) LoginMFA(ctx context.Context, mfaToken, code, method string, meta RequestMeta) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Verify(jwtx.PurposeMFAChallenge, mfaToken)
	if err != nil {
		return nil, ErrInvalidMFAToken
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidMFAToken
		}
		return nil, err
	}

	mfa, err := s.Store.MFASettings().GetMFASetting(ctx, user.ID)
	if err != nil || !mfa.Enabled() {
		// MFA was disabled between challenge and completion; force a fresh
		// password login rather than honouring a stale challenge.
		return nil, ErrInvalidMFAToken
	}

	switch method {
	case "", "totp":
		if !totp.Validate(code, mfa.Secret) {
			l.Info("TOTP verification failed", "user_id", user.ID)
			s.Audit.Record(ctx, domain.AuditLog{
				ActorID:   user.ID,
				Action:    domain.AuditLoginMFA,
				Status:    domain.AuditFailure,
				IPAddress: meta.IP,
				UserAgent: meta.UserAgent,
				Detail:    "invalid totp code",
			})
			return nil, ErrInvalidMFACode
		}
	case "backup_codes":
		hash := cryptox.FingerprintToken(code)
		if err := s.Store.BackupCodes().ConsumeBackupCode(ctx, user.ID, hash); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.Audit.Record(ctx, domain.AuditLog{
					ActorID:   user.ID,
					Action:    domain.AuditLoginMFA,
					Status:    domain.AuditFailure,
					IPAddress: meta.IP,
					UserAgent: meta.UserAgent,
					Detail:    "invalid backup code",
				})
				return nil, ErrInvalidMFACode
			}
			return nil, err
		}
	default:
		return nil, ErrInvalidMFACode
	}

	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}

	pair, err := s.Tokens.IssuePair(ctx, user, role.Name, issueOpts{Meta: meta})
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, domain.AuditLog{
		ActorID:   user.ID,
		Action:    domain.AuditLoginMFA,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})

	return pair, nil
}

func (s *AuthService) mintMFAChallenge(user domain.User, roleName string) (*domain.MFAChallengeResponse, error) {
	claims := jwtx.NewClaims(jwtx.PurposeMFAChallenge, user.ID, user.Email, roleName,
		jwtx.MFAChallengeTTL, s.Issuer, idx.New().String(), time.Now())
	claims.MFAPending = true

	token, err := s.Codec.Sign(jwtx.PurposeMFAChallenge, claims)
	if err != nil {
		return nil, err
	}
	return &domain.MFAChallengeResponse{
		MFARequired: true,
		MFAToken:    token,
		Methods:     []string{"totp", "backup_codes"},
	}, nil
}
