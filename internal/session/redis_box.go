package session

import (
	"context"
	"fmt"
	"time"

	"github.com/anasy333/krishisat-gateway/pkg/redis"
)

const (
	redisKeyPrefix  = "session:"
	fieldCredential = "credential"
	fieldIdentity   = "identity"
)

// RedisBox stores the session slots as a Redis hash with the session TTL.
type RedisBox struct {
	client *redis.Client
}

// NewRedisBox creates a Redis-backed session box.
func NewRedisBox(client *redis.Client) *RedisBox {
	return &RedisBox{client: client}
}

func redisKey(sid string) string {
	return redisKeyPrefix + sid
}

// Load restores the slots, (nil, nil) when the hash is absent or expired.
func (b *RedisBox) Load(ctx context.Context, sid string) (*Slots, error) {
	fields, err := b.client.HGetAll(ctx, redisKey(sid)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBoxUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return &Slots{
		Credential: fields[fieldCredential],
		Identity:   fields[fieldIdentity],
	}, nil
}

// Save writes both slots and refreshes the TTL atomically via pipeline.
func (b *RedisBox) Save(ctx context.Context, sid string, slots *Slots, ttl time.Duration) error {
	pipe := b.client.Pipeline()
	pipe.HSet(ctx, redisKey(sid),
		fieldCredential, slots.Credential,
		fieldIdentity, slots.Identity,
	)
	pipe.Expire(ctx, redisKey(sid), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrBoxUnavailable, err)
	}
	return nil
}

// Clear removes the session hash.
func (b *RedisBox) Clear(ctx context.Context, sid string) error {
	if err := b.client.Del(ctx, redisKey(sid)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBoxUnavailable, err)
	}
	return nil
}

// HealthCheck reports whether the backend answers, used by the readiness
// probe.
func (b *RedisBox) HealthCheck(ctx context.Context) error {
	return b.client.HealthCheck(ctx)
}
