package storage

import (
	"context"
	"errors"

	"github.com/mascota/mascota/internal/infrastructure/redis"
)

const redisKeyPrefix = "mascota:"

type RedisStore struct {
	redisService *redis.Service
}

func NewRedisStore(redisService *redis.Service) *RedisStore {
	return &RedisStore{redisService: redisService}
}

func (rs *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := rs.redisService.Get(ctx, redisKeyPrefix+key)
	if errors.Is(err, redis.ErrNotFound) {
		return "", ErrNotFound
	}
	return value, err
}

func (rs *RedisStore) Set(ctx context.Context, key, value string) error {
	return rs.redisService.Set(ctx, redisKeyPrefix+key, value, 0)
}

func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	return rs.redisService.Delete(ctx, redisKeyPrefix+key)
}
