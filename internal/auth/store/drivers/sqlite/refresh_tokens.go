package sqlite

import (
	"context"
	"database/sql"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/store"
)

type refreshTokensRepo struct {
	db dbtx
}

const refreshTokenColumns = `id, user_id, token_hash, device_info, impersonator_id,
	expires_at, revoked_at, replaced_by_token_id, created_at`

func scanRefreshToken(row scanner) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	var impersonator, replacedBy sql.NullString
	var revokedAt sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.DeviceInfo, &impersonator,
		&t.ExpiresAt, &revokedAt, &replacedBy, &t.CreatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.ImpersonatorID = mapNullString(impersonator)
	t.ReplacedByTokenID = mapNullString(replacedBy)
	t.RevokedAt = mapNullTimePtr(revokedAt)
	return t, nil
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, device_info, impersonator_id, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, t.DeviceInfo, mapStringNull(t.ImpersonatorID), t.ExpiresAt)
	return mapConflict(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByID(ctx context.Context, id string) (domain.RefreshToken, error) {
	return scanRefreshToken(r.db.QueryRowContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE id = ?`, id))
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string, replacedByID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = CURRENT_TIMESTAMP, replaced_by_token_id = ?
		WHERE id = ? AND revoked_at IS NULL`,
		mapStringNull(replacedByID), id)
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

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND revoked_at IS NULL`,
		userID)
	return err
}

func (r *refreshTokensRepo) ListActiveUserRefreshTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+refreshTokenColumns+`
		FROM refresh_tokens
		WHERE user_id = ? AND revoked_at IS NULL AND expires_at > CURRENT_TIMESTAMP
		ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RefreshToken
	for rows.Next() {
		t, err := scanRefreshToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= CURRENT_TIMESTAMP`)
	return err
}
