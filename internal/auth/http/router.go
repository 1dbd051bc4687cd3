package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/service"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/pkg/httpx"
	"github.com/skillbase/skillbase/pkg/jwtx"
	"github.com/skillbase/skillbase/pkg/slogx"

	_ "github.com/skillbase/skillbase/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec         *jwtx.Codec
	buildVersion  string
	startTime     time.Time
	logger        *slog.Logger
	secureCookies bool

	store           store.Store
	TokenService    *service.TokenService
	AuthService     *service.AuthService
	UserService     *service.UserService
	MFAService      *service.MFAService
	PasswordService *service.PasswordService
	SocialService   *service.SocialService
	AdminService    *service.AdminService
	AuditService    *service.AuditService
}

func NewRouter(
	codec *jwtx.Codec,
	buildVersion string,
	secureCookies bool,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		codec:         codec,
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		secureCookies: secureCookies,
		store:         st,
		logger:        logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMFA()
	r.registerPassword()
	r.registerProfile()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			SkillBase Authentication Service API
//	@version		0.1.0
//	@description	Authentication and session lifecycle for the SkillBase learning platform: password and social sign-in, TOTP MFA, rotating refresh tokens and admin impersonation.
//	@description
//	@description				Refresh tokens are delivered only as an HttpOnly cookie and rotate on every use.
//
//	@contact.name				SkillBase Team
//	@contact.url				https://github.com/skillbase/skillbase
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// POST /auth/register - strict rate limit (account creation)
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(&RegisterHandler{
			AuthService:   r.AuthService,
			SecureCookies: r.secureCookies,
		},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/login - strict rate limit (credential guessing)
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(&LoginHandler{
			AuthService:   r.AuthService,
			SecureCookies: r.secureCookies,
		},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/login/mfa - strict rate limit (code guessing)
	r.Mux.Handle("POST /auth/login/mfa",
		httpx.Chain(&LoginMFAHandler{
			AuthService:   r.AuthService,
			SecureCookies: r.secureCookies,
		},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/social - strict rate limit (hits external providers)
	r.Mux.Handle("POST /auth/social",
		httpx.Chain(&SocialLoginHandler{
			SocialService: r.SocialService,
			SecureCookies: r.secureCookies,
		},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/refresh - moderate rate limit (every client calls it regularly)
	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(&RefreshHandler{
			TokenService:  r.TokenService,
			SecureCookies: r.secureCookies,
		},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /auth/logout - moderate rate limit, authenticated
	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(&LogoutHandler{
			TokenService:  r.TokenService,
			SecureCookies: r.secureCookies,
		},
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	// POST /auth/mfa/setup - moderate rate limit, authenticated
	r.Mux.Handle("POST /auth/mfa/setup",
		httpx.Chain(http.HandlerFunc(h.Setup),
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// POST /auth/mfa/enable - strict rate limit (code guessing), authenticated
	r.Mux.Handle("POST /auth/mfa/enable",
		httpx.Chain(http.HandlerFunc(h.Enable),
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	// POST /auth/mfa/disable - strict rate limit (code guessing), authenticated
	r.Mux.Handle("POST /auth/mfa/disable",
		httpx.Chain(http.HandlerFunc(h.Disable),
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	// POST /auth/mfa/backup-codes - strict rate limit (code guessing), authenticated
	r.Mux.Handle("POST /auth/mfa/backup-codes",
		httpx.Chain(http.HandlerFunc(h.RegenerateBackupCodes),
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerPassword() {
	h := &PasswordHandler{PasswordService: r.PasswordService}

	// POST /auth/forgot-password - strict rate limit (sends email)
	r.Mux.Handle("POST /auth/forgot-password",
		httpx.Chain(http.HandlerFunc(h.Forgot),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/reset-password - strict rate limit (token guessing)
	r.Mux.Handle("POST /auth/reset-password",
		httpx.Chain(http.HandlerFunc(h.Reset),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerProfile() {
	// GET /auth/me - lenient rate limit, authenticated
	r.Mux.Handle("GET /auth/me",
		httpx.Chain(&MeHandler{UserService: r.UserService},
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// PUT /auth/me - moderate rate limit, authenticated
	r.Mux.Handle("PUT /auth/me",
		httpx.Chain(&UpdateMeHandler{UserService: r.UserService},
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{
		AdminService:  r.AdminService,
		AuditService:  r.AuditService,
		SecureCookies: r.secureCookies,
	}

	// The role check here is a claims precheck; every admin operation
	// re-reads the caller from the database before acting.
	adminOnly := httpx.RequireRole(domain.RoleAdmin, domain.RoleOwner)

	// POST /admin/users/{id}/impersonate - strict rate limit, admin claims required
	r.Mux.Handle("POST /admin/users/{id}/impersonate",
		httpx.Chain(http.HandlerFunc(h.Impersonate),
			httpx.AuthnMiddleware(r.codec),
			adminOnly,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	// PUT /admin/users/{id}/role - strict rate limit, admin claims required
	r.Mux.Handle("PUT /admin/users/{id}/role",
		httpx.Chain(http.HandlerFunc(h.ChangeRole),
			httpx.AuthnMiddleware(r.codec),
			adminOnly,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	// GET /admin/audit-logs - lenient rate limit, admin claims required
	r.Mux.Handle("GET /admin/audit-logs",
		httpx.Chain(http.HandlerFunc(h.ListAuditLogs),
			httpx.AuthnMiddleware(r.codec),
			adminOnly,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// GET /livez - public rate limit
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	// GET /readyz - public rate limit
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
