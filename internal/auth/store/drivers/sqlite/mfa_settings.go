package sqlite

import (
	"context"
	"database/sql"

	"github.com/skillbase/skillbase/internal/auth/domain"
)

type mfaSettingsRepo struct {
	db dbtx
}

func (r *mfaSettingsRepo) GetMFASetting(ctx context.Context, userID string) (domain.MFASetting, error) {
	var m domain.MFASetting
	var enabledAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, secret, type, enabled_at, created_at, updated_at
		FROM mfa_settings WHERE user_id = ?`,
		userID).Scan(&m.UserID, &m.Secret, &m.Type, &enabledAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return domain.MFASetting{}, mapNotFound(err)
	}
	m.EnabledAt = mapNullTimePtr(enabledAt)
	return m, nil
}

// UpsertMFASecret writes a pending enrollment. The WHERE on the update arm
// keeps an enabled record from being silently replaced.
func (r *mfaSettingsRepo) UpsertMFASecret(ctx context.Context, userID string, secret string, mfaType string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mfa_settings (user_id, secret, type)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET secret = excluded.secret, type = excluded.type, updated_at = CURRENT_TIMESTAMP
		WHERE mfa_settings.enabled_at IS NULL`,
		userID, secret, mfaType)
	return err
}

func (r *mfaSettingsRepo) EnableMFA(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE mfa_settings
		SET enabled_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND enabled_at IS NULL`,
		userID)
	return err
}

func (r *mfaSettingsRepo) DeleteMFASetting(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mfa_settings WHERE user_id = ?`, userID)
	return err
}
