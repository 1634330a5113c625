package ledger

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings for NewRedis.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Now       func() time.Time
}

// Redis is a ledger shared by every instance pointing at the same server.
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedis connects a Redis ledger. The connection is lazy; call Ping to
// verify it.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, goerrors.New("redis addr is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return NewRedisWithClient(client, cfg.KeyPrefix, cfg.Now), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string, now func() time.Time) *Redis {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &Redis{client: client, prefix: prefix, now: now}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "reset ledger unreachable")
	}
	return nil
}

// Consume sets the key for tokenID with SETNX and an expiry matching the
// credential. An id whose credential already expired is reported as used.
func (r *Redis) Consume(ctx context.Context, tokenID string, until time.Time) (bool, error) {
	if err := validateTokenID(tokenID); err != nil {
		return false, err
	}

	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return false, nil
	}
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	ok, err := r.client.SetNX(ctx, r.prefix+tokenID, 1, ttl).Result()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record reset token use")
	}
	return ok, nil
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
