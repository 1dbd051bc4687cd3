package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/pkg/cryptox"
	"github.com/skillbase/skillbase/pkg/idx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	backupCodeCount = 10
	backupCodeBytes = cryptox.TokenSize128
	qrImageSize     = 256
)

var (
	ErrInvalidTOTPCode   = errors.New("invalid_totp_code")
	ErrMFANotEnabled     = errors.New("mfa_not_enabled")
	ErrMFAAlreadyEnabled = errors.New("mfa_already_enabled")
	ErrMFANotEnrolled    = errors.New("mfa_not_enrolled")
)

type MFAService struct {
	Store  store.Store
	Tokens *TokenService
	Audit  *AuditService
	Issuer string // TOTP issuer label shown in authenticator apps
}

// Setup provisions a TOTP secret for the user. The secret stays pending until
// Enable confirms it with a valid code; login behaviour is unchanged until
// then. Calling Setup again replaces a pending secret but never an enabled
// one.
func (s *MFAService) Setup(ctx context.Context, userID string) (domain.MFAEnrollResponse, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.MFAEnrollResponse{}, err
	}

	existing, err := s.Store.MFASettings().GetMFASetting(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.MFAEnrollResponse{}, err
	}
	if err == nil && existing.Enabled() {
		return domain.MFAEnrollResponse{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.MFAEnrollResponse{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	if err := s.Store.MFASettings().UpsertMFASecret(ctx, userID, key.Secret(), domain.MFATypeTOTP); err != nil {
		return domain.MFAEnrollResponse{}, fmt.Errorf("failed to store MFA secret: %w", err)
	}

	qr, err := qrDataURL(key)
	if err != nil {
		return domain.MFAEnrollResponse{}, err
	}

	return domain.MFAEnrollResponse{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		QRCode:     qr,
	}, nil
}

// Enable confirms a pending enrollment. The code is always checked against
// the secret stored server-side: whatever secret the client claims to hold is
// irrelevant. Returns freshly generated backup codes, shown once.
func (s *MFAService) Enable(ctx context.Context, userID string, code string, meta RequestMeta) ([]string, error) {
	mfa, err := s.Store.MFASettings().GetMFASetting(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMFANotEnrolled
		}
		return nil, err
	}
	if mfa.Enabled() {
		return nil, ErrMFAAlreadyEnabled
	}

	if !totp.Validate(code, mfa.Secret) {
		return nil, ErrInvalidTOTPCode
	}

	codes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, c := range codes {
			bc := domain.BackupCode{
				ID:       idx.New().String(),
				UserID:   userID,
				CodeHash: cryptox.FingerprintToken(c),
			}
			if err := tx.BackupCodes().CreateBackupCode(ctx, bc); err != nil {
				return err
			}
		}
		return tx.MFASettings().EnableMFA(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, domain.AuditLog{
		ActorID:   userID,
		Action:    domain.AuditMFAEnabled,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})

	return codes, nil
}

// Disable turns MFA off after verifying a current TOTP code, then revokes
// every session so any stolen refresh token can not outlive the downgrade.
func (s *MFAService) Disable(ctx context.Context, userID string, code string, meta RequestMeta) error {
	mfa, err := s.Store.MFASettings().GetMFASetting(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMFANotEnabled
		}
		return err
	}
	if !mfa.Enabled() {
		return ErrMFANotEnabled
	}
	if !totp.Validate(code, mfa.Secret) {
		return ErrInvalidTOTPCode
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return err
		}
		if err := tx.MFASettings().DeleteMFASetting(ctx, userID); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
	})
	if err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditLog{
		ActorID:   userID,
		Action:    domain.AuditMFADisabled,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})

	return nil
}

// RegenerateBackupCodes replaces the user's backup codes after verifying a
// current TOTP code. Old codes stop working immediately.
func (s *MFAService) RegenerateBackupCodes(ctx context.Context, userID string, code string, meta RequestMeta) ([]string, error) {
	mfa, err := s.Store.MFASettings().GetMFASetting(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMFANotEnabled
		}
		return nil, err
	}
	if !mfa.Enabled() {
		return nil, ErrMFANotEnabled
	}
	if !totp.Validate(code, mfa.Secret) {
		return nil, ErrInvalidTOTPCode
	}

	codes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return err
		}
		for _, c := range codes {
			bc := domain.BackupCode{
				ID:       idx.New().String(),
				UserID:   userID,
				CodeHash: cryptox.FingerprintToken(c),
			}
			if err := tx.BackupCodes().CreateBackupCode(ctx, bc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, domain.AuditLog{
		ActorID:   userID,
		Action:    domain.AuditBackupCodesIssued,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})

	return codes, nil
}

func generateBackupCodes() ([]string, error) {
	codes := make([]string, backupCodeCount)
	for i := range codes {
		c, err := cryptox.GenerateToken(backupCodeBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		codes[i] = c
	}
	return codes, nil
}

// qrDataURL renders the provisioning QR as a PNG data URL so clients can drop
// it straight into an img tag.
func qrDataURL(key *otp.Key) (string, error) {
	img, err := key.Image(qrImageSize, qrImageSize)
	if err != nil {
		return "", fmt.Errorf("failed to render QR image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
