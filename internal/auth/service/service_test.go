package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/internal/auth/store/drivers/sqlite"
	"github.com/skillbase/skillbase/pkg/cryptox"
	"github.com/skillbase/skillbase/pkg/idx"
	"github.com/skillbase/skillbase/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "skillbase-auth-test"

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "authsvc-test-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// testEnv wires every service against a shared in-memory store, mirroring
// how the application assembles them.
type testEnv struct {
	Store  store.Store
	Codec  *jwtx.Codec
	Tokens *TokenService
	Auth   *AuthService
	MFA    *MFAService
	Admin  *AdminService
	Users  *UserService
	Audit  *AuditService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	seeder := &SeedService{Store: st}
	require.NoError(t, seeder.Run(context.Background(), OwnerConfig{}))

	codec, err := jwtx.NewCodec(testIssuer, map[jwtx.Purpose]string{
		jwtx.PurposeAccess:        "test-access-secret-0123456789abcd",
		jwtx.PurposeRefresh:       "test-refresh-secret-0123456789abc",
		jwtx.PurposeMFAChallenge:  "test-mfa-secret-0123456789abcdefg",
		jwtx.PurposePasswordReset: "test-reset-secret-0123456789abcde",
	})
	require.NoError(t, err)

	audit := &AuditService{Store: st}
	tokens := &TokenService{
		Store:      st,
		Codec:      codec,
		Audit:      audit,
		Issuer:     testIssuer,
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}

	return &testEnv{
		Store:  st,
		Codec:  codec,
		Tokens: tokens,
		Auth:   &AuthService{Store: st, Tokens: tokens, Audit: audit, Codec: codec, Issuer: testIssuer},
		MFA:    &MFAService{Store: st, Tokens: tokens, Audit: audit, Issuer: testIssuer},
		Admin:  &AdminService{Store: st, Tokens: tokens, Audit: audit},
		Users:  &UserService{Store: st},
		Audit:  audit,
	}
}

// createUser inserts a user with the given role and password, bypassing the
// register flow for tests that need specific roles.
func (e *testEnv) createUser(t *testing.T, email, password, roleName string) domain.User {
	t.Helper()
	ctx := context.Background()

	role, err := e.Store.Roles().GetRoleByName(ctx, roleName)
	require.NoError(t, err)

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		FullName:     "Test User",
		PasswordHash: hash,
		RoleID:       role.ID,
	}
	require.NoError(t, e.Store.Users().CreateUser(ctx, u))
	return u
}

func testMeta() RequestMeta {
	return RequestMeta{IP: "203.0.113.9", UserAgent: "go-test"}
}
