package http

import (
	"net/http"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/service"
	"github.com/skillbase/skillbase/pkg/httpx"
)

// TokenResponse is the success body for login, MFA completion, social login
// and refresh. The refresh token travels in the cookie, not here.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func metaFromRequest(r *http.Request) service.RequestMeta {
	return service.RequestMeta{
		IP:        httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// writeTokenPair sets the refresh cookie and returns the access token. The
// cookie Max-Age tracks the pair's refresh lifetime, so impersonation
// sessions keep their short cookie across rotations too.
func writeTokenPair(w http.ResponseWriter, pair *domain.TokenPair, secureCookies bool) {
	setRefreshCookie(w, pair.RefreshToken, pair.RefreshTTL, secureCookies)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		ExpiresIn:   int(pair.ExpiresIn.Seconds()),
	})
}
