package sqlite

import (
	"context"

	"github.com/skillbase/skillbase/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, full_name, password_hash, role_id, created_at, updated_at`

func (r *usersRepo) scanUser(row scanner) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.RoleID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = lower(?)`, email)
	return r.scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, password_hash, role_id)
		VALUES (?, lower(?), ?, ?, ?)`,
		u.ID, u.Email, u.FullName, u.PasswordHash, u.RoleID)
	return mapConflict(err)
}

func (r *usersRepo) UpdateFullName(ctx context.Context, userID string, fullName string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET full_name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		fullName, userID)
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		newHash, userID)
	return err
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID string, roleID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET role_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		roleID, userID)
	return err
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}
