package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/praisehq/praise/internal/platform/httpx"
	"github.com/praisehq/praise/internal/users"
)

type stubUsers struct {
	byUsername map[string]users.User
	byID       map[uuid.UUID]users.User
}

func (s stubUsers) FindByUsername(_ context.Context, username string) (users.User, error) {
	u, ok := s.byUsername[username]
	if !ok {
		return users.User{}, fmt.Errorf("users: not found: %w", httpx.ErrNotFound)
	}
	return u, nil
}

func (s stubUsers) FindByID(_ context.Context, id uuid.UUID) (users.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return users.User{}, fmt.Errorf("users: not found: %w", httpx.ErrNotFound)
	}
	return u, nil
}

func newAuthService(t *testing.T) (*Service, users.User) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	user := users.User{
		ID:           uuid.New(),
		Username:     "freya",
		PasswordHash: string(hash),
		Roles:        []string{"USER", "QUANTIFIER"},
		IsActive:     true,
	}
	repo := stubUsers{
		byUsername: map[string]users.User{user.Username: user},
		byID:       map[uuid.UUID]users.User{user.ID: user},
	}
	return NewService(repo, NewTokenStore(client, time.Hour)), user
}

func TestLoginIssuesResolvableToken(t *testing.T) {
	svc, user := newAuthService(t)

	token, loggedIn, err := svc.Login(context.Background(), "freya", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)

	resolved, err := svc.ResolveToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.Username, resolved.Username)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newAuthService(t)

	_, _, err := svc.Login(context.Background(), "freya", "wrong-password")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	svc, _ := newAuthService(t)

	_, _, err := svc.Login(context.Background(), "nobody", "correct-horse")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newAuthService(t)

	token, _, err := svc.Login(context.Background(), "freya", "correct-horse")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), token))

	_, err = svc.ResolveToken(context.Background(), token)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}
