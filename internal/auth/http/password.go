package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skillbase/skillbase/internal/auth/service"
	"github.com/skillbase/skillbase/pkg/httpx"
	"github.com/skillbase/skillbase/pkg/slogx"
)

type PasswordHandler struct {
	PasswordService *service.PasswordService
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Forgot handles POST /auth/forgot-password
//
//	@Summary		Request a password reset email
//	@Description	Always answers 200 with the same body, whether or not the email belongs to an account.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ForgotPasswordRequest	true	"Account email"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/auth/forgot-password [post].
func (h *PasswordHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidBody.WriteError(w)
		return
	}

	if err := h.PasswordService.RequestReset(ctx, req.Email, metaFromRequest(r)); err != nil {
		log.Error("password reset request failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{
		Message: "If that email belongs to an account, a reset link is on its way",
	})
}

// Reset handles POST /auth/reset-password
//
//	@Summary		Set a new password with a reset token
//	@Description	Consumes the emailed reset token. On success every session for the account is revoked.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ResetPasswordRequest	true	"Reset token and new password"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse	"Weak password"
//	@Failure		401		{object}	ErrorResponse	"Invalid, expired or already used token"
//	@Failure		500		{object}	ErrorResponse
//	@Router			/auth/reset-password [post].
func (h *PasswordHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidBody.WriteError(w)
		return
	}

	if err := h.PasswordService.Reset(ctx, req.Token, req.NewPassword, metaFromRequest(r)); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidResetToken):
			httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:       "invalid_reset_token",
				Description: "Reset token is invalid, expired or already used",
			})
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:       "weak_password",
				Description: "Password must be at least 8 characters",
			})
		default:
			log.Error("password reset failed", "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{
		Message: "Password updated, sign in with the new password",
	})
}
