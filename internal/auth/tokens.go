package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// TokenStore keeps bearer tokens in Redis with a sliding TTL.
type TokenStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, prefix string, ttl time.Duration) *TokenStore {
	if prefix == "" {
		prefix = "meridian_token"
	}
	return &TokenStore{client: client, prefix: prefix, ttl: ttl}
}

// Issue creates a token for the user and stores it with the configured TTL.
func (s *TokenStore) Issue(ctx context.Context, user *User) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate token: %w", err)
	}
	token := hex.EncodeToString(buf)
	payload := strconv.FormatInt(user.ID, 10) + "|" + user.Email
	if err := s.client.Set(ctx, s.key(token), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store token: %w", err)
	}
	return token, nil
}

// Resolve looks up a token and extends its TTL on hit.
func (s *TokenStore) Resolve(ctx context.Context, token string) (shared.Actor, error) {
	if token == "" {
		return shared.Actor{}, shared.ErrInvalidCredentials
	}
	payload, err := s.client.Get(ctx, s.key(token)).Result()
	if err != nil {
		return shared.Actor{}, shared.ErrInvalidCredentials
	}
	userID, email := splitPayload(payload)
	if userID == 0 {
		return shared.Actor{}, shared.ErrInvalidCredentials
	}
	_ = s.client.Expire(ctx, s.key(token), s.ttl).Err()
	return shared.Actor{UserID: userID, Email: email}, nil
}

// Revoke deletes a token.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.client.Del(ctx, s.key(token)).Err()
}

func (s *TokenStore) key(token string) string {
	return s.prefix + ":" + token
}

func splitPayload(payload string) (int64, string) {
	for i := 0; i < len(payload); i++ {
		if payload[i] == '|' {
			id, err := strconv.ParseInt(payload[:i], 10, 64)
			if err != nil {
				return 0, ""
			}
			return id, payload[i+1:]
		}
	}
	return 0, ""
}
