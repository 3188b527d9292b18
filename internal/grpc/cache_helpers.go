package grpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const defaultSetTimeout = 5 * time.Second

// addTTLJitter adds up to ±15s random jitter to TTL to avoid mass expiration.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl <= 30*time.Second {
		return ttl
	}
	jitter := time.Duration(rand.IntN(30)-15) * time.Second
	return ttl + jitter
}

// FindAndCache is a read-through cache: hits are returned as is, misses are
// fetched once per key through singleflight and stored with a jittered TTL.
// A nil cache degrades to a plain fetch.
func FindAndCache[T any](
	ctx context.Context,
	c Cacher,
	sf *singleflight.Group,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		return fn(ctx)
	}

	var cached T
	err := c.Get(ctx, key, &cached)
	switch {
	case err == nil:
		logger.Debug("cache hit", zap.String("key", key))
		return cached, nil
	case errors.Is(err, redis.Nil):
		logger.Debug("cache miss", zap.String("key", key))
	default:
		logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, shared := sf.Do(key, func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}

		setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultSetTimeout)
		defer cancel()
		if err := c.Set(setCtx, key, value, addTTLJitter(ttl)); err != nil {
			logger.Warn("failed to set cache on miss", zap.String("key", key), zap.Error(err))
		}
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}
	if shared {
		logger.Debug("singleflight shared result", zap.String("key", key))
	}
	return value, nil
}

// invalidate drops keys, logging rather than failing on cache errors.
func invalidate(ctx context.Context, c Cacher, logger *zap.Logger, keys ...string) {
	if c == nil {
		return
	}
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultSetTimeout)
	defer cancel()
	if err := c.Delete(delCtx, keys...); err != nil {
		logger.Warn("failed to invalidate cache", zap.Strings("keys", keys), zap.Error(err))
	}
}
