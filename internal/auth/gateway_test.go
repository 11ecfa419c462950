package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"pocket-survival/internal/memstore"
	"pocket-survival/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword("correct horse", hash))
	assert.False(t, CheckPassword("wrong horse", hash))
}

func TestGenerateSessionToken(t *testing.T) {
	a, err := GenerateSessionToken()
	require.NoError(t, err)
	b, err := GenerateSessionToken()
	require.NoError(t, err)
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestGateway_SignUp(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(memstore.New())

	user, err := g.SignUp(ctx, "  alice ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = g.SignUp(ctx, "alice", "password123")
	var authErr *models.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.ErrorIs(t, err, models.ErrUserExists)

	_, err = g.SignUp(ctx, "bob", "short")
	assert.True(t, models.IsValidation(err))

	_, err = g.SignUp(ctx, "   ", "password123")
	assert.True(t, models.IsValidation(err))
}

func TestGateway_SignIn(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(memstore.New())
	_, err := g.SignUp(ctx, "alice", "password123")
	require.NoError(t, err)

	_, _, err = g.SignIn(ctx, "alice", "nope-nope")
	assert.True(t, models.IsAuth(err))
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, _, err = g.SignIn(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	user, session, err := g.SignIn(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
	assert.NotEmpty(t, session.Token)

	got, _, renewed, err := g.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.False(t, renewed, "fresh session should not be renewed")
}

func TestGateway_AuthenticateRenewsPastHalfLife(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(memstore.New())
	_, err := g.SignUp(ctx, "alice", "password123")
	require.NoError(t, err)
	_, session, err := g.SignIn(ctx, "alice", "password123")
	require.NoError(t, err)

	later := time.Now().Add(20 * 24 * time.Hour)
	g.now = func() time.Time { return later }

	_, renewedSession, renewed, err := g.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.True(t, renewed)
	assert.WithinDuration(t, later.Add(SessionDuration), renewedSession.ExpiresAt, time.Second)
}

func TestGateway_SignOut(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(memstore.New())
	_, err := g.SignUp(ctx, "alice", "password123")
	require.NoError(t, err)
	_, session, err := g.SignIn(ctx, "alice", "password123")
	require.NoError(t, err)

	require.NoError(t, g.SignOut(ctx, session.Token))
	require.NoError(t, g.SignOut(ctx, ""))

	_, _, _, err = g.Authenticate(ctx, session.Token)
	assert.True(t, models.IsAuth(err))

	_, _, _, err = g.Authenticate(ctx, "")
	assert.True(t, models.IsAuth(err))
}

func TestGateway_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	g := NewGateway(store)

	created, err := g.EnsureAdmin(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = g.EnsureAdmin(ctx, "admin", "password123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = g.EnsureAdmin(ctx, "other", "password123")
	require.NoError(t, err)
	assert.False(t, created, "admin is only seeded into an empty store")

	n, err := store.UserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
