package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/pkg/idx"
)

var (
	ErrUnknownProvider = errors.New("unknown_provider")
	ErrProviderToken   = errors.New("invalid_provider_token")
)

// ExternalIdentity is what a provider asserts about the person holding the
// token the client handed us.
type ExternalIdentity struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
}

// IdentityVerifier validates a provider token server-side. The client-supplied
// token is never trusted until the provider confirms it.
type IdentityVerifier interface {
	Verify(ctx context.Context, provider, token string) (ExternalIdentity, error)
}

type SocialService struct {
	Store    store.Store
	Tokens   *TokenService
	Audit    *AuditService
	Verifier IdentityVerifier
}

// Login signs a user in with a verified external identity. An already linked
// identity logs straight in; a known email gets the identity linked; anyone
// else gets a fresh student account with no password.
func (s *SocialService) Login(ctx context.Context, provider, providerToken string, meta RequestMeta) (*domain.TokenPair, error) {
	ident, err := s.Verifier.Verify(ctx, provider, providerToken)
	if err != nil {
		return nil, err
	}
	ident.Email = strings.ToLower(strings.TrimSpace(ident.Email))
	if ident.Email == "" || ident.ProviderUserID == "" {
		return nil, ErrProviderToken
	}

	var user domain.User

	linked, err := s.Store.LinkedAccounts().GetLinkedAccount(ctx, ident.Provider, ident.ProviderUserID)
	switch {
	case err == nil:
		user, err = s.Store.Users().GetUserByID(ctx, linked.UserID)
		if err != nil {
			return nil, err
		}

	case errors.Is(err, store.ErrNotFound):
		user, err = s.findOrCreateUser(ctx, ident)
		if err != nil {
			return nil, err
		}

	default:
		return nil, err
	}

	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}

	pair, err := s.Tokens.IssuePair(ctx, user, role.Name, issueOpts{Meta: meta})
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, domain.AuditLog{
		ActorID:   user.ID,
		Action:    domain.AuditSocialLogin,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		Detail:    "provider: " + ident.Provider,
	})

	return pair, nil
}

func (s *SocialService) findOrCreateUser(ctx context.Context, ident ExternalIdentity) (domain.User, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, ident.Email)
	if errors.Is(err, store.ErrNotFound) {
		role, err := s.Store.Roles().GetRoleByName(ctx, domain.RoleStudent)
		if err != nil {
			return domain.User{}, err
		}
		user = domain.User{
			ID:       idx.New().String(),
			Email:    ident.Email,
			FullName: ident.Name,
			RoleID:   role.ID,
		}
		if err := s.Store.Users().CreateUser(ctx, user); err != nil {
			return domain.User{}, err
		}
	} else if err != nil {
		return domain.User{}, err
	}

	link := domain.LinkedAccount{
		ID:             idx.New().String(),
		UserID:         user.ID,
		Provider:       ident.Provider,
		ProviderUserID: ident.ProviderUserID,
		Email:          ident.Email,
	}
	if err := s.Store.LinkedAccounts().CreateLinkedAccount(ctx, link); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// HTTPIdentityVerifier checks provider tokens against the providers' own
// endpoints: Google's tokeninfo and GitHub's authenticated user API.
type HTTPIdentityVerifier struct {
	Client *http.Client

	// Endpoint overrides for tests; zero values use the real providers.
	GoogleEndpoint string
	GitHubEndpoint string
}

func NewHTTPIdentityVerifier() *HTTPIdentityVerifier {
	return &HTTPIdentityVerifier{
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *HTTPIdentityVerifier) Verify(ctx context.Context, provider, token string) (ExternalIdentity, error) {
	switch provider {
	case domain.ProviderGoogle:
		return v.verifyGoogle(ctx, token)
	case domain.ProviderGitHub:
		return v.verifyGitHub(ctx, token)
	default:
		return ExternalIdentity{}, ErrUnknownProvider
	}
}

func (v *HTTPIdentityVerifier) verifyGoogle(ctx context.Context, token string) (ExternalIdentity, error) {
	endpoint := v.GoogleEndpoint
	if endpoint == "" {
		endpoint = "https://oauth2.googleapis.com/tokeninfo"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?id_token="+token, nil)
	if err != nil {
		return ExternalIdentity{}, err
	}
	var body struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := v.do(req, &body); err != nil {
		return ExternalIdentity{}, err
	}
	if body.Sub == "" || body.EmailVerified != "true" {
		return ExternalIdentity{}, ErrProviderToken
	}
	return ExternalIdentity{
		Provider:       domain.ProviderGoogle,
		ProviderUserID: body.Sub,
		Email:          body.Email,
		Name:           body.Name,
	}, nil
}

func (v *HTTPIdentityVerifier) verifyGitHub(ctx context.Context, token string) (ExternalIdentity, error) {
	endpoint := v.GitHubEndpoint
	if endpoint == "" {
		endpoint = "https://api.github.com/user"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ExternalIdentity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")

	var body struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := v.do(req, &body); err != nil {
		return ExternalIdentity{}, err
	}
	if body.ID == 0 {
		return ExternalIdentity{}, ErrProviderToken
	}
	return ExternalIdentity{
		Provider:       domain.ProviderGitHub,
		ProviderUserID: fmt.Sprintf("%d", body.ID),
		Email:          body.Email,
		Name:           body.Name,
	}, nil
}

func (v *HTTPIdentityVerifier) do(req *http.Request, out any) error {
	resp, err := v.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrProviderToken
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
