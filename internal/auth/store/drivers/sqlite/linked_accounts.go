package sqlite

import (
	"context"

	"github.com/skillbase/skillbase/internal/auth/domain"
)

type linkedAccountsRepo struct {
	db dbtx
}

const linkedAccountColumns = `id, user_id, provider, provider_user_id, email, created_at`

func scanLinkedAccount(row scanner) (domain.LinkedAccount, error) {
	var la domain.LinkedAccount
	err := row.Scan(&la.ID, &la.UserID, &la.Provider, &la.ProviderUserID, &la.Email, &la.CreatedAt)
	if err != nil {
		return domain.LinkedAccount{}, mapNotFound(err)
	}
	return la, nil
}

func (r *linkedAccountsRepo) CreateLinkedAccount(ctx context.Context, la domain.LinkedAccount) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO linked_accounts (id, user_id, provider, provider_user_id, email)
		VALUES (?, ?, ?, ?, lower(?))`,
		la.ID, la.UserID, la.Provider, la.ProviderUserID, la.Email)
	return mapConflict(err)
}

func (r *linkedAccountsRepo) GetLinkedAccount(ctx context.Context, provider, providerUserID string) (domain.LinkedAccount, error) {
	return scanLinkedAccount(r.db.QueryRowContext(ctx,
		`SELECT `+linkedAccountColumns+` FROM linked_accounts
		 WHERE provider = ? AND provider_user_id = ?`,
		provider, providerUserID))
}

func (r *linkedAccountsRepo) ListUserLinkedAccounts(ctx context.Context, userID string) ([]domain.LinkedAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+linkedAccountColumns+` FROM linked_accounts
		 WHERE user_id = ? ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LinkedAccount
	for rows.Next() {
		la, err := scanLinkedAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, la)
	}
	return out, rows.Err()
}

func (r *linkedAccountsRepo) DeleteLinkedAccount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM linked_accounts WHERE id = ?`, id)
	return err
}
