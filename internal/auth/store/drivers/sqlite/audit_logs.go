package sqlite

import (
	"context"
	"strings"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/store"
)

type auditLogsRepo struct {
	db dbtx
}

func (r *auditLogsRepo) CreateAuditLog(ctx context.Context, l domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, target_id, action, status, ip_address, user_agent, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.ActorID, l.TargetID, l.Action, l.Status, l.IPAddress, l.UserAgent, l.Detail)
	return err
}

func (r *auditLogsRepo) ListAuditLogs(ctx context.Context, f store.AuditLogFilter) ([]domain.AuditLog, error) {
	var where []string
	var args []any
	if f.ActorID != "" {
		where = append(where, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if f.TargetID != "" {
		where = append(where, "target_id = ?")
		args = append(args, f.TargetID)
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, f.Action)
	}

	query := `SELECT id, actor_id, target_id, action, status, ip_address, user_agent, detail, created_at
		FROM audit_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	args = append(args, limit, max(f.Offset, 0))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		if err := rows.Scan(&l.ID, &l.ActorID, &l.TargetID, &l.Action, &l.Status,
			&l.IPAddress, &l.UserAgent, &l.Detail, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
