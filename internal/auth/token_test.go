package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/stocktrack/stocktrack/internal/shared"
)

func newTestTokenManager(t *testing.T) (*TokenManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTokenManager(client, "test-secret", time.Hour), mr
}

func TestIssueAndResolve(t *testing.T) {
	tokens, _ := newTestTokenManager(t)

	token, err := tokens.Issue(context.Background(), shared.Identity{UserID: 42, Role: shared.RoleAdmin})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := tokens.Resolve(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, int64(42), id.UserID)
	require.Equal(t, shared.RoleAdmin, id.Role)
}

func TestResolveUnknownToken(t *testing.T) {
	tokens, _ := newTestTokenManager(t)

	_, err := tokens.Resolve(context.Background(), "nope.deadbeef")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestResolveExpiredToken(t *testing.T) {
	tokens, mr := newTestTokenManager(t)

	token, err := tokens.Issue(context.Background(), shared.Identity{UserID: 7, Role: shared.RoleStaff})
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = tokens.Resolve(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRevokeToken(t *testing.T) {
	tokens, _ := newTestTokenManager(t)

	token, err := tokens.Issue(context.Background(), shared.Identity{UserID: 7, Role: shared.RoleStaff})
	require.NoError(t, err)

	require.NoError(t, tokens.Revoke(context.Background(), token))

	_, err = tokens.Resolve(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
