package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skillbase/skillbase/internal/auth/service"
	"github.com/skillbase/skillbase/pkg/httpx"
	"github.com/skillbase/skillbase/pkg/slogx"
)

type SocialLoginHandler struct {
	SocialService *service.SocialService
	SecureCookies bool
}

type SocialLoginRequest struct {
	Provider string `json:"provider"` // "google" or "github"
	Token    string `json:"token"`    // provider-issued token proving the identity
}

// ServeHTTP handles POST /auth/social
//
//	@Summary		Sign in with an external identity provider
//	@Description	Verifies a Google ID token or GitHub access token with the provider. First-time identities get a passwordless student account, or are linked to an existing account with the same email.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SocialLoginRequest	true	"Provider and its token"
//	@Success		200		{object}	TokenResponse
//	@Failure		400		{object}	ErrorResponse	"Unknown provider"
//	@Failure		401		{object}	ErrorResponse	"Provider rejected the token"
//	@Failure		500		{object}	ErrorResponse
//	@Router			/auth/social [post].
func (h *SocialLoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req SocialLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidBody.WriteError(w)
		return
	}

	pair, err := h.SocialService.Login(ctx, req.Provider, req.Token, metaFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownProvider):
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:       "unknown_provider",
				Description: "Supported providers are google and github",
			})
		case errors.Is(err, service.ErrProviderToken):
			httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:       "invalid_provider_token",
				Description: "The identity provider rejected the token",
			})
		default:
			log.Error("social login failed", "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	writeTokenPair(w, pair, h.SecureCookies)
}
