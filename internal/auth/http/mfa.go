package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skillbase/skillbase/internal/auth/service"
	"github.com/skillbase/skillbase/pkg/httpx"
	"github.com/skillbase/skillbase/pkg/slogx"
)

type MFAHandler struct {
	MFAService *service.MFAService
}

type MFACodeRequest struct {
	Code string `json:"code"`
}

type BackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// Setup handles POST /auth/mfa/setup
//
//	@Summary		Begin TOTP enrollment
//	@Description	Generates a TOTP secret for the signed-in user and returns it with a provisioning QR code. The factor stays inactive until confirmed via /auth/mfa/enable.
//	@Tags			MFA
//	@Produce		json
//	@Success		200	{object}	domain.MFAEnrollResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse	"MFA already enabled"
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/auth/mfa/setup [post].
func (h *MFAHandler) Setup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		errInvalidToken.WriteError(w)
		return
	}

	enroll, err := h.MFAService.Setup(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrMFAAlreadyEnabled) {
			httpx.WriteJSON(w, http.StatusConflict, ErrorResponse{
				Error:       "mfa_already_enabled",
				Description: "Disable the current factor before enrolling a new one",
			})
			return
		}
		log.Error("mfa setup failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, enroll)
}

// Enable handles POST /auth/mfa/enable
//
//	@Summary		Confirm TOTP enrollment
//	@Description	Verifies a code against the pending secret and activates MFA. Returns single-use backup codes, shown only this once.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		MFACodeRequest	true	"Current TOTP code"
//	@Success		200		{object}	BackupCodesResponse
//	@Failure		400		{object}	ErrorResponse	"No pending enrollment or wrong code"
//	@Failure		401		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse	"MFA already enabled"
//	@Failure		500		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/auth/mfa/enable [post].
func (h *MFAHandler) Enable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		errInvalidToken.WriteError(w)
		return
	}

	var req MFACodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidBody.WriteError(w)
		return
	}

	codes, err := h.MFAService.Enable(ctx, userID, req.Code, metaFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMFANotEnrolled):
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:       "mfa_not_enrolled",
				Description: "Call /auth/mfa/setup first",
			})
		case errors.Is(err, service.ErrInvalidTOTPCode):
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:       "invalid_totp_code",
				Description: "Verification code was not accepted",
			})
		case errors.Is(err, service.ErrMFAAlreadyEnabled):
			httpx.WriteJSON(w, http.StatusConflict, ErrorResponse{
				Error:       "mfa_already_enabled",
				Description: "MFA is already active on this account",
			})
		default:
			log.Error("mfa enable failed", "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, BackupCodesResponse{BackupCodes: codes})
}

// Disable handles POST /auth/mfa/disable
//
//	@Summary		Turn off MFA
//	@Description	Requires a current TOTP code. Removes the factor and its backup codes and revokes every session for the account.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body	MFACodeRequest	true	"Current TOTP code"
//	@Success		204		"MFA disabled, all sessions revoked"
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/auth/mfa/disable [post].
func (h *MFAHandler) Disable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		errInvalidToken.WriteError(w)
		return
	}

	var req MFACodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidBody.WriteError(w)
		return
	}

	if err := h.MFAService.Disable(ctx, userID, req.Code, metaFromRequest(r)); err != nil {
		switch {
		case errors.Is(err, service.ErrMFANotEnabled):
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:       "mfa_not_enabled",
				Description: "MFA is not active on this account",
			})
		case errors.Is(err, service.ErrInvalidTOTPCode):
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:       "invalid_totp_code",
				Description: "Verification code was not accepted",
			})
		default:
			log.Error("mfa disable failed", "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegenerateBackupCodes handles POST /auth/mfa/backup-codes
//
//	@Summary		Replace backup codes
//	@Description	Requires a current TOTP code. Discards all remaining backup codes and issues a fresh set.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		MFACodeRequest	true	"Current TOTP code"
//	@Success		200		{object}	BackupCodesResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/auth/mfa/backup-codes [post].
func (h *MFAHandler) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		errInvalidToken.WriteError(w)
		return
	}

	var req MFACodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidBody.WriteError(w)
		return
	}

	codes, err := h.MFAService.RegenerateBackupCodes(ctx, userID, req.Code, metaFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMFANotEnabled):
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:       "mfa_not_enabled",
				Description: "MFA is not active on this account",
			})
		case errors.Is(err, service.ErrInvalidTOTPCode):
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:       "invalid_totp_code",
				Description: "Verification code was not accepted",
			})
		default:
			log.Error("backup code regeneration failed", "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, BackupCodesResponse{BackupCodes: codes})
}
