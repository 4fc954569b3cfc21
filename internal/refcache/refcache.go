// Package refcache caches positive department/user existence checks in Redis.
package refcache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const keyPrefix = "tenderflow:ref:"

type References interface {
	DepartmentExists(ctx context.Context, id string) (bool, error)
	UserExists(ctx context.Context, id string) (bool, error)
}

// Cached answers from Redis when it can and from the wrapped References otherwise.
// Only hits are cached so a newly created department is visible immediately.
type Cached struct {
	next   References
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func New(next References, client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cached {
	return &Cached{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *Cached) DepartmentExists(ctx context.Context, id string) (bool, error) {
	return c.exists(ctx, "department", id, c.next.DepartmentExists)
}

func (c *Cached) UserExists(ctx context.Context, id string) (bool, error) {
	return c.exists(ctx, "user", id, c.next.UserExists)
}

func (c *Cached) exists(ctx context.Context, kind, id string, lookup func(context.Context, string) (bool, error)) (bool, error) {
	key := keyPrefix + kind + ":" + id

	_, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return true, nil
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("reference cache read failed", zap.String("key", key), zap.Error(err))
	}

	ok, err := lookup(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	if err := c.client.Set(ctx, key, "1", c.ttl).Err(); err != nil {
		c.logger.Warn("reference cache write failed", zap.String("key", key), zap.Error(err))
	}
	return true, nil
}
