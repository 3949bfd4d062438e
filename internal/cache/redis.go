package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
		breaker: newBreaker("redis-cart-cache"),
	}
}

// RedisCache stores cart ids under cart:<identity key>. All calls go through
// a circuit breaker so an unavailable Redis fails fast instead of adding a
// network timeout to every request.
type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
	breaker *gobreaker.CircuitBreaker[int64]
}

func newBreaker(name string) *gobreaker.CircuitBreaker[int64] {
	return gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// A miss is a healthy answer.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
	})
}

func (r *RedisCache) GetCartID(ctx context.Context, owner domain.Identity) (int64, error) {
	key := cacheKey(owner)

	return r.breaker.Execute(func() (int64, error) {
		raw, err := r.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		if err != nil {
			return 0, fmt.Errorf("redis get failed: %w", err)
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse cart id failed: %w", err)
		}
		return id, nil
	})
}

func (r *RedisCache) SetCartID(ctx context.Context, owner domain.Identity, cartID int64) error {
	key := cacheKey(owner)
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter

	_, err := r.breaker.Execute(func() (int64, error) {
		if err := r.client.Set(ctx, key, strconv.FormatInt(cartID, 10), ttl).Err(); err != nil {
			return 0, fmt.Errorf("redis set failed: %w", err)
		}
		return cartID, nil
	})
	return err
}

func (r *RedisCache) Delete(ctx context.Context, owner domain.Identity) error {
	key := cacheKey(owner)

	_, err := r.breaker.Execute(func() (int64, error) {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return 0, fmt.Errorf("redis delete failed: %w", err)
		}
		return 0, nil
	})
	return err
}

func cacheKey(owner domain.Identity) string {
	return fmt.Sprintf("cart:%s", owner.Key())
}
