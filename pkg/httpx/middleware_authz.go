package httpx

import (
	"net/http"
	"strings"
)

// RequireRole gates a route on the role carried in the verified access token.
// This is a fast precheck only: handlers for privileged operations still
// re-check the caller's current role against the database, so a role revoked
// after token issuance cannot ride out the token's lifetime.
func RequireRole(roles ...string) Middleware {
	want := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		want[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}
			if _, allowed := want[claims.Role]; !allowed {
				writeRoleError(w, roles...)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-style error response for a role the caller does not hold.
func writeRoleError(w http.ResponseWriter, roles ...string) {
	w.Header().Set("WWW-Authenticate",
		`Bearer error="insufficient_scope", scope="`+strings.Join(roles, " ")+`"`)
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("insufficient_scope"))
}
