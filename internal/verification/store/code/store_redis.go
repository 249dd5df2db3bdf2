package code

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gatepass/internal/verification/models"
	"gatepass/pkg/platform/sentinel"
)

const codeKeyPrefix = "otp:"

// RedisStore keeps one-time codes as Redis keys with a native TTL.
// Consume uses GETDEL so two racing verifications cannot both succeed.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func codeKey(email, code string) string {
	return codeKeyPrefix + email + ":" + code
}

func (s *RedisStore) Save(ctx context.Context, c *models.OneTimeCode) error {
	ttl := c.ExpiresAt.Sub(c.IssuedAt)
	if ttl <= 0 {
		return fmt.Errorf("one-time code already expired: %w", sentinel.ErrExpired)
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal one-time code: %w", err)
	}
	if err := s.client.Set(ctx, codeKey(c.Email, c.Code), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save one-time code: %w", err)
	}
	return nil
}

// Consume atomically reads and deletes the pair. Redis expiry and the stored
// expires_at are both honoured so the lookup-time check matches the memory store.
func (s *RedisStore) Consume(ctx context.Context, email, code string, now time.Time) error {
	raw, err := s.client.GetDel(ctx, codeKey(email, code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("one-time code not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("consume one-time code: %w", err)
	}
	var c models.OneTimeCode
	if err := json.Unmarshal(raw, &c); err != nil {
		return fmt.Errorf("unmarshal one-time code: %w", err)
	}
	if c.IsExpired(now) {
		return fmt.Errorf("one-time code expired: %w", sentinel.ErrExpired)
	}
	return nil
}

// DeleteExpired is a no-op: Redis reclaims expired keys itself.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
