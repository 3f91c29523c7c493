package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/asafe/user-service/internal/domain"
)

const userCachePrefix = "user:"

// CachedUserRepository is a read-through Redis cache in front of another
// UserRepository. Only GetByID is cached; password hashes are never written
// to Redis, so callers needing the hash must use GetByEmail.
type CachedUserRepository struct {
	UserRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedUserRepository wraps next. A nil client disables caching.
func NewCachedUserRepository(next UserRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) UserRepository {
	if client == nil || ttl <= 0 {
		return next
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedUserRepository{UserRepository: next, client: client, ttl: ttl, logger: logger}
}

func (r *CachedUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	key := userCacheKey(id)

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var user domain.User
		if jsonErr := json.Unmarshal(raw, &user); jsonErr == nil {
			return &user, nil
		}
		r.logger.Warn("discarding corrupt cached user", zap.Int64("user_id", id))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("user cache read failed", zap.Error(err))
	}

	user, err := r.UserRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, user)
	return user, nil
}

func (r *CachedUserRepository) Update(ctx context.Context, id int64, update domain.UserUpdate) (*domain.User, error) {
	user, err := r.UserRepository.Update(ctx, id, update)
	r.invalidate(ctx, id)
	return user, err
}

func (r *CachedUserRepository) Delete(ctx context.Context, id int64) error {
	err := r.UserRepository.Delete(ctx, id)
	r.invalidate(ctx, id)
	return err
}

func (r *CachedUserRepository) store(ctx context.Context, user *domain.User) {
	payload, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, userCacheKey(user.ID), payload, r.ttl).Err(); err != nil {
		r.logger.Warn("user cache write failed", zap.Error(err))
	}
}

func (r *CachedUserRepository) invalidate(ctx context.Context, id int64) {
	if err := r.client.Del(ctx, userCacheKey(id)).Err(); err != nil {
		r.logger.Warn("user cache invalidation failed", zap.Int64("user_id", id), zap.Error(err))
	}
}

func userCacheKey(id int64) string {
	return userCachePrefix + strconv.FormatInt(id, 10)
}
