package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skillbase/skillbase/internal/auth/service"
	"github.com/skillbase/skillbase/pkg/httpx"
	"github.com/skillbase/skillbase/pkg/slogx"
)

type LoginHandler struct {
	AuthService   *service.AuthService
	SecureCookies bool
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ServeHTTP handles POST /auth/login
//
//	@Summary		Sign in with email and password
//	@Description	Returns an access token on success. Accounts with MFA enabled receive a short-lived challenge token instead and must complete the login via /auth/login/mfa.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	TokenResponse	"Signed in, refresh token set as cookie"
//	@Success		202		{object}	domain.MFAChallengeResponse	"MFA challenge issued"
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse	"Bad credentials"
//	@Failure		500		{object}	ErrorResponse
//	@Router			/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidBody.WriteError(w)
		return
	}

	pair, challenge, err := h.AuthService.Login(ctx, req.Email, req.Password, metaFromRequest(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			errInvalidCredentials.WriteError(w)
			return
		}
		log.Error("login failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	if challenge != nil {
		httpx.NoCache(w)
		httpx.WriteJSON(w, http.StatusAccepted, challenge)
		return
	}

	writeTokenPair(w, pair, h.SecureCookies)
}

type LoginMFAHandler struct {
	AuthService   *service.AuthService
	SecureCookies bool
}

type LoginMFARequest struct {
	MFAToken string `json:"mfa_token"`
	Code     string `json:"code"`
	Method   string `json:"method,omitempty"` // "totp" (default) or "backup_codes"
}

// ServeHTTP handles POST /auth/login/mfa
//
//	@Summary		Complete an MFA-challenged login
//	@Description	Exchanges the challenge token from /auth/login plus a TOTP or backup code for a full token pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginMFARequest	true	"Challenge token and code"
//	@Success		200		{object}	TokenResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse	"Expired challenge or wrong code"
//	@Failure		500		{object}	ErrorResponse
//	@Router			/auth/login/mfa [post].
func (h *LoginMFAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req LoginMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidBody.WriteError(w)
		return
	}

	pair, err := h.AuthService.LoginMFA(ctx, req.MFAToken, req.Code, req.Method, metaFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidMFAToken):
			httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:       "invalid_mfa_token",
				Description: "Challenge token is invalid or expired, sign in again",
			})
		case errors.Is(err, service.ErrInvalidMFACode):
			httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:       "invalid_mfa_code",
				Description: "Verification code was not accepted",
			})
		default:
			log.Error("mfa login failed", "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	writeTokenPair(w, pair, h.SecureCookies)
}
