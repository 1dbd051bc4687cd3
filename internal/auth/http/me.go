package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skillbase/skillbase/internal/auth/service"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/pkg/httpx"
	"github.com/skillbase/skillbase/pkg/slogx"
)

type MeHandler struct {
	UserService *service.UserService
}

// ServeHTTP handles GET /auth/me
//
//	@Summary		Get the signed-in user's profile
//	@Tags			Users
//	@Produce		json
//	@Success		200	{object}	domain.Profile
//	@Failure		401	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/auth/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		errInvalidToken.WriteError(w)
		return
	}

	profile, err := h.UserService.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Token outlived the account.
			errInvalidToken.WriteError(w)
			return
		}
		log.Error("profile lookup failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, profile)
}

type UpdateMeHandler struct {
	UserService *service.UserService
}

type UpdateMeRequest struct {
	FullName string `json:"full_name"`
}

// ServeHTTP handles PUT /auth/me
//
//	@Summary		Update the signed-in user's profile
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		UpdateMeRequest	true	"Fields to update"
//	@Success		200		{object}	domain.Profile
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/auth/me [put].
func (h *UpdateMeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		errInvalidToken.WriteError(w)
		return
	}

	var req UpdateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidBody.WriteError(w)
		return
	}

	if err := h.UserService.UpdateFullName(ctx, userID, req.FullName); err != nil {
		log.Error("profile update failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	profile, err := h.UserService.Profile(ctx, userID)
	if err != nil {
		log.Error("profile lookup failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, profile)
}
