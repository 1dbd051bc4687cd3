package service

import (
	"context"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/pkg/idx"
	"github.com/skillbase/skillbase/pkg/slogx"
)

// RequestMeta carries per-request client details from the HTTP layer down to
// auditing and session records.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type AuditService struct {
	Store store.Store
}

// Record appends an audit event. Failures are logged but never propagated:
// an audit write must not fail the operation it describes.
func (s *AuditService) Record(ctx context.Context, evt domain.AuditLog) {
	if evt.ID == "" {
		evt.ID = idx.New().String()
	}
	if evt.Status == "" {
		evt.Status = domain.AuditSuccess
	}
	if err := s.Store.AuditLogs().CreateAuditLog(ctx, evt); err != nil {
		slogx.FromContext(ctx).Error("failed to write audit log",
			"action", evt.Action, "actor_id", evt.ActorID, "error", err)
	}
}

// List returns audit events for admin review.
func (s *AuditService) List(ctx context.Context, f store.AuditLogFilter) ([]domain.AuditLog, error) {
	return s.Store.AuditLogs().ListAuditLogs(ctx, f)
}
