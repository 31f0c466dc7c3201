package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper records webhook event ids with SETNX so a redelivered Stripe
// event is processed once.
type RedisDeduper struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

func NewRedisDeduper(rdb *redis.Client) *RedisDeduper {
	return &RedisDeduper{Client: rdb, Prefix: "stripe:event", TTL: 72 * time.Hour}
}

func (d *RedisDeduper) key(id string) string { return d.Prefix + ":" + id }

func (d *RedisDeduper) Seen(ctx context.Context, id string) (bool, error) {
	fresh, err := d.Client.SetNX(ctx, d.key(id), 1, d.TTL).Result()
	if err != nil {
		return false, err
	}
	return !fresh, nil
}

func (d *RedisDeduper) Forget(ctx context.Context, id string) error {
	return d.Client.Del(ctx, d.key(id)).Err()
}
