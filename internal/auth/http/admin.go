package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/skillbase/skillbase/internal/auth/service"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/pkg/httpx"
	"github.com/skillbase/skillbase/pkg/slogx"
)

type AdminHandler struct {
	AdminService  *service.AdminService
	AuditService  *service.AuditService
	SecureCookies bool
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// Impersonate handles POST /admin/users/{id}/impersonate
//
//	@Summary		Start an impersonation session
//	@Description	Issues a short-lived token pair acting as the target user, with the admin recorded as impersonator in every token. Super admins only. The refresh cookie is replaced with the impersonation session; sign in again to return to the admin account.
//	@Tags			Admin
//	@Produce		json
//	@Param			id	path		string	true	"Target user id"
//	@Success		200	{object}	TokenResponse
//	@Failure		400	{object}	ErrorResponse	"Cannot impersonate yourself"
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse	"Caller is not a super admin"
//	@Failure		404	{object}	ErrorResponse	"Target not found"
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/admin/users/{id}/impersonate [post].
func (h *AdminHandler) Impersonate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	callerID := httpx.UserIDFromContext(ctx)
	if callerID == "" {
		errInvalidToken.WriteError(w)
		return
	}
	targetID := r.PathValue("id")

	pair, err := h.AdminService.Impersonate(ctx, callerID, targetID, metaFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotSuperAdmin):
			errForbidden.WriteError(w)
		case errors.Is(err, service.ErrSelfTarget):
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:       "invalid_target",
				Description: "You are already signed in as this user",
			})
		case errors.Is(err, service.ErrUserNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:       "user_not_found",
				Description: "No user with that id",
			})
		default:
			log.Error("impersonation failed", "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	writeTokenPair(w, pair, h.SecureCookies)
}

// ChangeRole handles PUT /admin/users/{id}/role
//
//	@Summary		Change a user's role
//	@Description	Assigns the named role and revokes every session the user holds. Super admins only.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string				true	"Target user id"
//	@Param			request	body	ChangeRoleRequest	true	"New role name"
//	@Success		204		"Role changed, target sessions revoked"
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse	"Unknown user or role"
//	@Failure		500		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/admin/users/{id}/role [put].
func (h *AdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	callerID := httpx.UserIDFromContext(ctx)
	if callerID == "" {
		errInvalidToken.WriteError(w)
		return
	}
	targetID := r.PathValue("id")

	var req ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidBody.WriteError(w)
		return
	}

	if err := h.AdminService.ChangeRole(ctx, callerID, targetID, req.Role, metaFromRequest(r)); err != nil {
		switch {
		case errors.Is(err, service.ErrNotSuperAdmin):
			errForbidden.WriteError(w)
		case errors.Is(err, service.ErrSelfTarget):
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:       "invalid_target",
				Description: "You cannot change your own role",
			})
		case errors.Is(err, service.ErrUserNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:       "user_not_found",
				Description: "No user with that id",
			})
		case errors.Is(err, service.ErrRoleNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:       "role_not_found",
				Description: "No role with that name",
			})
		default:
			log.Error("role change failed", "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListAuditLogs handles GET /admin/audit-logs
//
//	@Summary		Browse the audit trail
//	@Description	Lists security events newest first. Filterable by actor, target and action. Super admins only.
//	@Tags			Admin
//	@Produce		json
//	@Param			actor_id	query		string	false	"Filter by acting user id"
//	@Param			target_id	query		string	false	"Filter by target user id"
//	@Param			action		query		string	false	"Filter by action name"
//	@Param			limit		query		int		false	"Page size, default 100, max 1000"
//	@Param			offset		query		int		false	"Rows to skip"
//	@Success		200			{array}		domain.AuditLog
//	@Failure		401			{object}	ErrorResponse
//	@Failure		403			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/admin/audit-logs [get].
func (h *AdminHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	callerID := httpx.UserIDFromContext(ctx)
	if callerID == "" {
		errInvalidToken.WriteError(w)
		return
	}
	if _, err := h.AdminService.RequireSuperAdmin(ctx, callerID); err != nil {
		errForbidden.WriteError(w)
		return
	}

	q := r.URL.Query()
	filter := store.AuditLogFilter{
		ActorID:  q.Get("actor_id"),
		TargetID: q.Get("target_id"),
		Action:   q.Get("action"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	logs, err := h.AuditService.List(ctx, filter)
	if err != nil {
		log.Error("audit log listing failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, logs)
}
