package sqlite

import (
	"context"
	"strings"

	"github.com/skillbase/skillbase/internal/auth/domain"
)

type rolesRepo struct {
	db dbtx
}

const roleColumns = `id, name, scopes, created_at, updated_at`

func scanRole(row scanner) (domain.Role, error) {
	var r domain.Role
	var scopes string
	if err := row.Scan(&r.ID, &r.Name, &scopes, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	r.Scopes = splitScopes(scopes)
	return r, nil
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id string) (domain.Role, error) {
	return scanRole(r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = ?`, id))
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	return scanRole(r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE name = ?`, name))
}

func (r *rolesRepo) ListAll(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roles (id, name, scopes) VALUES (?, ?, ?)`,
		role.ID, role.Name, strings.Join(role.Scopes, " "))
	return mapConflict(err)
}

func (r *rolesRepo) UpdateRoleScopes(ctx context.Context, roleID string, scopes []string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE roles SET scopes = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		strings.Join(scopes, " "), roleID)
	return err
}

func (r *rolesRepo) DeleteRole(ctx context.Context, roleID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, roleID)
	return err
}
