package sqlite

import (
	"context"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/store"
)

type backupCodesRepo struct {
	db dbtx
}

func (r *backupCodesRepo) CreateBackupCode(ctx context.Context, c domain.BackupCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO backup_codes (id, user_id, code_hash) VALUES (?, ?, ?)`,
		c.ID, c.UserID, c.CodeHash)
	return mapConflict(err)
}

func (r *backupCodesRepo) ConsumeBackupCode(ctx context.Context, userID string, codeHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE backup_codes
		SET used_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND code_hash = ? AND used_at IS NULL`,
		userID, codeHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM backup_codes WHERE user_id = ?`, userID)
	return err
}

func (r *backupCodesRepo) CountUnusedBackupCodes(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM backup_codes WHERE user_id = ? AND used_at IS NULL`,
		userID).Scan(&n)
	return n, err
}
