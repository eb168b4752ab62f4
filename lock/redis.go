package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions configures the Redis locker.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every key. Defaults to "roastery:lock:".
	Prefix string
	// TTL bounds how long a crashed holder can block others. Defaults to 30s.
	TTL time.Duration
	// RetryEvery is the back-off between attempts while a key is taken.
	// Defaults to 50ms. Retries stop when the context ends.
	RetryEvery time.Duration
}

// Redis locks keys across processes.
type Redis struct {
	client *redis.Client
	locker *redislock.Client
	opts   RedisOptions
	logger *zap.Logger
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Prefix == "" {
		opts.Prefix = "roastery:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.RetryEvery <= 0 {
		opts.RetryEvery = 50 * time.Millisecond
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect redis at %s: %w", opts.Addr, err)
	}

	return &Redis{
		client: client,
		locker: redislock.New(client),
		opts:   opts,
		logger: logger,
	}, nil
}

// Lock obtains every key, retrying while ctx allows.
func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = sortedKeys(keys)
	held := make([]*redislock.Lock, 0, len(keys))

	release := func() {
		// Release even if the caller's context is already done.
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Release(relCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				r.logger.Warn("failed to release redis lock",
					zap.String("key", held[i].Key()),
					zap.Error(err),
				)
			}
		}
	}

	opt := &redislock.Options{RetryStrategy: redislock.LinearBackoff(r.opts.RetryEvery)}
	for _, key := range keys {
		l, err := r.locker.Obtain(ctx, r.opts.Prefix+key, r.opts.TTL, opt)
		if err != nil {
			release()
			if errors.Is(err, redislock.ErrNotObtained) || ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
			}
			return nil, fmt.Errorf("obtain redis lock %s: %w", key, err)
		}
		held = append(held, l)
	}

	return release, nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
