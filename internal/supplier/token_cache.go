package supplier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// tokenKey is the key used to store the supplier access token in Redis.
	tokenKey = "supplier_access_token"
	// TokenExpiryBuffer is the buffer time before actual token expiry to refresh it (in seconds)
	TokenExpiryBuffer = 60
)

// TokenCache represents a cached token with its expiry time
type TokenCache struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsValid checks if the token is still valid with a buffer time before expiry
func (tc *TokenCache) IsValid() bool {
	if tc == nil || tc.Token == "" {
		return false
	}
	return time.Now().Add(TokenExpiryBuffer * time.Second).Before(tc.ExpiresAt)
}

// RedisTokenCache implements token caching using Redis
type RedisTokenCache struct {
	Client *redis.Client
}

func NewRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{Client: client}
}

// GetToken retrieves a token from the cache. A missing or expired entry
// returns nil without error.
func (c *RedisTokenCache) GetToken(ctx context.Context) (*TokenCache, error) {
	if c.Client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	tokenJSON, err := c.Client.Get(ctx, tokenKey).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get token from Redis: %w", err)
	}

	var tokenCache TokenCache
	if err := json.Unmarshal([]byte(tokenJSON), &tokenCache); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token cache: %w", err)
	}
	if !tokenCache.IsValid() {
		return nil, nil
	}
	return &tokenCache, nil
}

// SetToken stores a token in the cache with its expiry time
func (c *RedisTokenCache) SetToken(ctx context.Context, token string, expiresIn int) error {
	if c.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	tokenCache := &TokenCache{
		Token:     token,
		ExpiresAt: time.Now().Add(time.Duration(expiresIn) * time.Second),
	}
	tokenJSON, err := json.Marshal(tokenCache)
	if err != nil {
		return fmt.Errorf("failed to marshal token cache: %w", err)
	}

	// Redis TTL gets a small buffer on top of the token expiry for clock skew.
	ttl := time.Duration(expiresIn+TokenExpiryBuffer) * time.Second
	if err := c.Client.Set(ctx, tokenKey, tokenJSON, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token in Redis: %w", err)
	}
	return nil
}
