package http

import (
	"errors"
	"net/http"

	"github.com/skillbase/skillbase/internal/auth/service"
	"github.com/skillbase/skillbase/pkg/slogx"
)

type RefreshHandler struct {
	TokenService  *service.TokenService
	SecureCookies bool
}

// ServeHTTP handles POST /auth/refresh
//
//	@Summary		Rotate the refresh token
//	@Description	Reads the refresh token from its cookie and exchanges it for a new pair. Presenting an already-rotated token revokes every session for the account.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	TokenResponse	"New pair issued, cookie replaced"
//	@Failure		401	{object}	ErrorResponse	"Missing, invalid or reused token"
//	@Failure		500	{object}	ErrorResponse
//	@Router			/auth/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	raw := refreshTokenFromCookie(r)
	if raw == "" {
		errInvalidToken.WriteError(w)
		return
	}

	pair, err := h.TokenService.Rotate(ctx, raw, metaFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccessDenied):
			// Reuse detected. The session family is gone, drop the cookie.
			clearRefreshCookie(w, h.SecureCookies)
			errAccessDenied.WriteError(w)
		case errors.Is(err, service.ErrInvalidRefresh):
			clearRefreshCookie(w, h.SecureCookies)
			errInvalidToken.WriteError(w)
		default:
			log.Error("token rotation failed", "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	writeTokenPair(w, pair, h.SecureCookies)
}

type LogoutHandler struct {
	TokenService  *service.TokenService
	SecureCookies bool
}

// ServeHTTP handles POST /auth/logout
//
//	@Summary		Sign out
//	@Description	Revokes the refresh token from the cookie and clears it. The refresh cookie alone is never enough, the caller also proves the session with its access token.
//	@Tags			Auth
//	@Produce		json
//	@Success		204	"Signed out"
//	@Failure		401	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/auth/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if raw := refreshTokenFromCookie(r); raw != "" {
		if err := h.TokenService.Revoke(ctx, raw, metaFromRequest(r)); err != nil {
			log.Error("logout revocation failed", "err", err)
			errServerError.WriteError(w)
			return
		}
	}

	clearRefreshCookie(w, h.SecureCookies)
	w.WriteHeader(http.StatusNoContent)
}
