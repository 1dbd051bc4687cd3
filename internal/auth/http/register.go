package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skillbase/skillbase/internal/auth/service"
	"github.com/skillbase/skillbase/pkg/httpx"
	"github.com/skillbase/skillbase/pkg/slogx"
)

type RegisterHandler struct {
	AuthService   *service.AuthService
	SecureCookies bool
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type RegisterResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ServeHTTP handles POST /auth/register
//
//	@Summary		Register a new account
//	@Description	Creates a new account with the default student role and signs it in: the response carries an access token and the refresh cookie is set.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest	true	"New account details"
//	@Success		201		{object}	RegisterResponse
//	@Failure		400		{object}	ErrorResponse	"Invalid email or weak password"
//	@Failure		409		{object}	ErrorResponse	"Email already registered"
//	@Failure		500		{object}	ErrorResponse
//	@Router			/auth/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidBody.WriteError(w)
		return
	}

	user, pair, err := h.AuthService.Register(ctx, req.Email, req.Password, req.FullName, metaFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteJSON(w, http.StatusConflict, ErrorResponse{
				Error:       "email_taken",
				Description: "An account with this email already exists",
			})
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:       "weak_password",
				Description: "Password must be at least 8 characters",
			})
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:       "invalid_email",
				Description: "A valid email address is required",
			})
		default:
			log.Error("registration failed", "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	setRefreshCookie(w, pair.RefreshToken, pair.RefreshTTL, h.SecureCookies)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, RegisterResponse{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		ExpiresIn:   int(pair.ExpiresIn.Seconds()),
	})
}
