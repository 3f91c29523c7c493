package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/asafe/user-service/internal/config"
)

const redisPingTimeout = 2 * time.Second

// Redis holds the client behind the user cache. Client is nil when Redis is
// not configured or was unreachable at startup; the service then runs
// without a cache.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to cfg.Addr and keeps the client only if it answers a ping.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not provided; user cache disabled")
		return &Redis{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable; user cache disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = client.Close()
		return &Redis{}
	}

	logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r.Available() {
		_ = r.Client.Close()
	}
}

// Handle returns the underlying client, or nil when Redis is unavailable.
func (r *Redis) Handle() *redis.Client {
	if r == nil {
		return nil
	}
	return r.Client
}

// Available reports whether a client is connected.
func (r *Redis) Available() bool {
	return r != nil && r.Client != nil
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Available() {
		return errors.New("redis not available")
	}
	return r.Client.Ping(ctx).Err()
}
