package service

import (
	"context"
	"testing"
	"time"

	"github.com/skillbase/skillbase/internal/auth/domain"
	"github.com/skillbase/skillbase/internal/auth/store"
	"github.com/skillbase/skillbase/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestRotateIssuesNewPairAndRevokesOld(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice@example.com", "sup3rsecret", domain.RoleStudent)
	pair, err := env.Tokens.IssuePair(ctx, user, domain.RoleStudent, issueOpts{Meta: testMeta()})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, env.Tokens.RefreshTTL, pair.RefreshTTL)

	rotated, err := env.Tokens.Rotate(ctx, pair.RefreshToken, testMeta())
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	require.NotEqual(t, pair.AccessToken, rotated.AccessToken)

	// Old row is revoked and linked to its successor.
	oldClaims, err := env.Codec.Verify(jwtx.PurposeRefresh, pair.RefreshToken)
	require.NoError(t, err)
	newClaims, err := env.Codec.Verify(jwtx.PurposeRefresh, rotated.RefreshToken)
	require.NoError(t, err)

	oldRow, err := env.Store.RefreshTokens().GetRefreshTokenByID(ctx, oldClaims.ID)
	require.NoError(t, err)
	require.True(t, oldRow.Revoked())
	require.Equal(t, newClaims.ID, oldRow.ReplacedByTokenID)
}

func TestRotateReuseRevokesAllSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "bob@example.com", "sup3rsecret", domain.RoleStudent)

	// Two independent sessions, e.g. two devices.
	session1, err := env.Tokens.IssuePair(ctx, user, domain.RoleStudent, issueOpts{Meta: testMeta()})
	require.NoError(t, err)
	session2, err := env.Tokens.IssuePair(ctx, user, domain.RoleStudent, issueOpts{Meta: testMeta()})
	require.NoError(t, err)

	// Normal rotation of session1, then replay of the pre-rotation token.
	_, err = env.Tokens.Rotate(ctx, session1.RefreshToken, testMeta())
	require.NoError(t, err)

	_, err = env.Tokens.Rotate(ctx, session1.RefreshToken, testMeta())
	require.ErrorIs(t, err, ErrAccessDenied)

	// The untouched second session must be dead too.
	_, err = env.Tokens.Rotate(ctx, session2.RefreshToken, testMeta())
	require.ErrorIs(t, err, ErrAccessDenied)

	active, err := env.Store.RefreshTokens().ListActiveUserRefreshTokens(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, active)

	// The reuse is audited.
	logs, err := env.Audit.List(ctx, store.AuditLogFilter{
		ActorID: user.ID,
		Action:  domain.AuditRefreshReuse,
	})
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	require.Equal(t, domain.AuditFailure, logs[0].Status)
}

// staleTokenStore serves a fixed pre-read snapshot for one token row so a
// test can replay the schedule where two rotations of the same token both
// read the row before either one writes.
type staleTokenStore struct {
	store.Store
	snapshot domain.RefreshToken
}

func (s *staleTokenStore) RefreshTokens() store.RefreshTokens {
	return &staleTokenRepo{RefreshTokens: s.Store.RefreshTokens(), snapshot: s.snapshot}
}

type staleTokenRepo struct {
	store.RefreshTokens
	snapshot domain.RefreshToken
}

func (r *staleTokenRepo) GetRefreshTokenByID(ctx context.Context, id string) (domain.RefreshToken, error) {
	if id == r.snapshot.ID {
		return r.snapshot, nil
	}
	return r.RefreshTokens.GetRefreshTokenByID(ctx, id)
}

func TestRotateConcurrentPresentationsSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "fern@example.com", "sup3rsecret", domain.RoleStudent)
	pair, err := env.Tokens.IssuePair(ctx, user, domain.RoleStudent, issueOpts{Meta: testMeta()})
	require.NoError(t, err)

	claims, err := env.Codec.Verify(jwtx.PurposeRefresh, pair.RefreshToken)
	require.NoError(t, err)
	snapshot, err := env.Store.RefreshTokens().GetRefreshTokenByID(ctx, claims.ID)
	require.NoError(t, err)
	require.False(t, snapshot.Revoked())

	// The first presentation wins and rotates normally.
	_, err = env.Tokens.Rotate(ctx, pair.RefreshToken, testMeta())
	require.NoError(t, err)

	// The second presentation raced the first: its pre-transaction read saw
	// the row while it was still live, so the revoked check passes. The
	// rotation transaction must still detect the loss, revoke every session
	// and deny access rather than mint a second chain tip.
	racing := &TokenService{
		Store:      &staleTokenStore{Store: env.Store, snapshot: snapshot},
		Codec:      env.Codec,
		Audit:      env.Audit,
		Issuer:     testIssuer,
		AccessTTL:  env.Tokens.AccessTTL,
		RefreshTTL: env.Tokens.RefreshTTL,
	}
	_, err = racing.Rotate(ctx, pair.RefreshToken, testMeta())
	require.ErrorIs(t, err, ErrAccessDenied)

	// No chain tip survives, the winner's fresh token included.
	active, err := env.Store.RefreshTokens().ListActiveUserRefreshTokens(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, active)

	logs, err := env.Audit.List(ctx, store.AuditLogFilter{
		ActorID: user.ID,
		Action:  domain.AuditRefreshReuse,
	})
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	require.Equal(t, domain.AuditFailure, logs[0].Status)
}

func TestRotateRejectsGarbageAndForeignTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.Tokens.Rotate(ctx, "not-a-jwt", testMeta())
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// A structurally valid refresh token whose row was never persisted.
	user := env.createUser(t, "carol@example.com", "sup3rsecret", domain.RoleStudent)
	claims := jwtx.NewClaims(jwtx.PurposeRefresh, user.ID, user.Email, domain.RoleStudent,
		time.Hour, testIssuer, "01JUNKJUNKJUNKJUNKJUNKJUNK", time.Now())
	orphan, err := env.Codec.Sign(jwtx.PurposeRefresh, claims)
	require.NoError(t, err)

	_, err = env.Tokens.Rotate(ctx, orphan, testMeta())
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// An access token is never accepted where a refresh token is expected.
	pair, err := env.Tokens.IssuePair(ctx, user, domain.RoleStudent, issueOpts{Meta: testMeta()})
	require.NoError(t, err)
	_, err = env.Tokens.Rotate(ctx, pair.AccessToken, testMeta())
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRotatePicksUpCurrentRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "dora@example.com", "sup3rsecret", domain.RoleStudent)
	pair, err := env.Tokens.IssuePair(ctx, user, domain.RoleStudent, issueOpts{Meta: testMeta()})
	require.NoError(t, err)

	instructor, err := env.Store.Roles().GetRoleByName(ctx, domain.RoleInstructor)
	require.NoError(t, err)
	require.NoError(t, env.Store.Users().UpdateRole(ctx, user.ID, instructor.ID))

	rotated, err := env.Tokens.Rotate(ctx, pair.RefreshToken, testMeta())
	require.NoError(t, err)

	claims, err := env.Codec.Verify(jwtx.PurposeAccess, rotated.AccessToken)
	require.NoError(t, err)
	require.Equal(t, domain.RoleInstructor, claims.Role)
}

func TestRevokeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "evan@example.com", "sup3rsecret", domain.RoleStudent)
	pair, err := env.Tokens.IssuePair(ctx, user, domain.RoleStudent, issueOpts{Meta: testMeta()})
	require.NoError(t, err)

	require.NoError(t, env.Tokens.Revoke(ctx, pair.RefreshToken, testMeta()))
	require.NoError(t, env.Tokens.Revoke(ctx, pair.RefreshToken, testMeta()))
	require.NoError(t, env.Tokens.Revoke(ctx, "garbage", testMeta()))

	// A revoked-by-logout token presented for rotation is the reuse path.
	_, err = env.Tokens.Rotate(ctx, pair.RefreshToken, testMeta())
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestImpersonationPairCarriesImpersonatorAndShortTTL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.createUser(t, "root@example.com", "sup3rsecret", domain.RoleOwner)
	target := env.createUser(t, "kid@example.com", "sup3rsecret", domain.RoleStudent)

	pair, err := env.Tokens.IssuePair(ctx, target, domain.RoleStudent, issueOpts{
		ImpersonatorID: admin.ID,
		Meta:           testMeta(),
	})
	require.NoError(t, err)

	refreshClaims, err := env.Codec.Verify(jwtx.PurposeRefresh, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, target.ID, refreshClaims.Subject)
	require.Equal(t, admin.ID, refreshClaims.ImpersonatorID)
	require.Equal(t, jwtx.ImpersonationTTL, pair.RefreshTTL)

	ttl := time.Until(refreshClaims.ExpiresAt.Time)
	require.LessOrEqual(t, ttl, jwtx.ImpersonationTTL)
	require.Greater(t, ttl, jwtx.ImpersonationTTL-time.Minute)

	accessClaims, err := env.Codec.Verify(jwtx.PurposeAccess, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, admin.ID, accessClaims.ImpersonatorID)

	// Rotation keeps the impersonation marker and the short TTL.
	rotated, err := env.Tokens.Rotate(ctx, pair.RefreshToken, testMeta())
	require.NoError(t, err)
	rotatedClaims, err := env.Codec.Verify(jwtx.PurposeRefresh, rotated.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, admin.ID, rotatedClaims.ImpersonatorID)
	require.LessOrEqual(t, time.Until(rotatedClaims.ExpiresAt.Time), jwtx.ImpersonationTTL)
	require.Equal(t, jwtx.ImpersonationTTL, rotated.RefreshTTL)
}
