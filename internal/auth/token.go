package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stocktrack/stocktrack/internal/shared"
)

// ErrTokenInvalid indicates an unknown or expired token.
var ErrTokenInvalid = errors.New("auth: token invalid or expired")

// TokenManager issues and resolves bearer tokens backed by Redis.
type TokenManager struct {
	client *redis.Client
	secret []byte
	ttl    time.Duration
}

type tokenPayload struct {
	UserID int64       `json:"user_id"`
	Role   shared.Role `json:"role"`
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(client *redis.Client, secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{client: client, secret: []byte(secret), ttl: ttl}
}

// Issue creates a token for the identity and stores it with TTL.
func (m *TokenManager) Issue(ctx context.Context, id shared.Identity) (string, error) {
	if m == nil || m.client == nil {
		return "", errors.New("auth: token manager not initialised")
	}
	token := m.sign(uuid.NewString())
	payload, err := json.Marshal(tokenPayload{UserID: id.UserID, Role: id.Role})
	if err != nil {
		return "", err
	}
	if err := m.client.Set(ctx, m.redisKey(token), payload, m.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve maps a token back to the identity that owns it.
func (m *TokenManager) Resolve(ctx context.Context, token string) (shared.Identity, error) {
	if m == nil || m.client == nil {
		return shared.Identity{}, errors.New("auth: token manager not initialised")
	}
	if token == "" {
		return shared.Identity{}, ErrTokenInvalid
	}
	raw, err := m.client.Get(ctx, m.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.Identity{}, ErrTokenInvalid
		}
		return shared.Identity{}, err
	}
	var payload tokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return shared.Identity{}, ErrTokenInvalid
	}
	return shared.Identity{UserID: payload.UserID, Role: payload.Role}, nil
}

// Revoke deletes a token.
func (m *TokenManager) Revoke(ctx context.Context, token string) error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Del(ctx, m.redisKey(token)).Err()
}

// TTL exposes the configured token lifetime.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

func (m *TokenManager) sign(nonce string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(nonce))
	return nonce + "." + hex.EncodeToString(mac.Sum(nil)[:8])
}

func (m *TokenManager) redisKey(token string) string {
	return "token:" + token
}
