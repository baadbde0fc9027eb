package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryUserRepo struct {
	users map[string]*User
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func newTestService(t *testing.T) (*Service, *TokenStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &memoryUserRepo{users: map[string]*User{
		"buyer@example.com": {ID: 7, Email: "buyer@example.com", PasswordHash: string(hash), IsActive: true},
	}}
	tokens := NewTokenStore(client, "test_token", time.Hour)
	return NewService(repo, tokens), tokens
}

func TestLoginIssuesResolvableToken(t *testing.T) {
	svc, tokens := newTestService(t)
	ctx := context.Background()

	token, user, err := svc.Login(ctx, "buyer@example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, int64(7), user.ID)
	require.NotEmpty(t, token)

	actor, err := tokens.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, int64(7), actor.UserID)
	require.Equal(t, "buyer@example.com", actor.Email)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Login(context.Background(), "buyer@example.com", "wrong-password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, tokens := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "buyer@example.com", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))

	_, err = tokens.Resolve(ctx, token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
