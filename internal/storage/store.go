package storage

import (
	"context"
	"errors"

	"github.com/mascota/mascota/internal/infrastructure/redis"
	"github.com/mascota/mascota/internal/logger"
)

// ErrNotFound is returned by Get for keys that were never set or were deleted.
var ErrNotFound = errors.New("storage: key not found")

// Store is the small local key/value substrate that holds the token and
// user preference flags.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// NewStore picks redis when a live service is given, then a JSON file
// when a path is configured, and memory otherwise.
func NewStore(ctx context.Context, redisService *redis.Service, path string) Store {
	l := logger.For(logger.STORAGE)

	if redisService != nil {
		if err := redisService.Ping(ctx); err != nil {
			l.Error().Err(err).Msg("Redis connection failed")
			l.Warn().Msg("Falling back to local storage")
		} else {
			l.Info().Msg("Using Redis for local storage")
			return NewRedisStore(redisService)
		}
	}

	if path != "" {
		fs, err := NewFileStore(path)
		if err == nil {
			l.Info().Str("path", path).Msg("Using file storage")
			return fs
		}
		l.Error().Err(err).Str("path", path).Msg("File storage unavailable")
	}

	l.Info().Msg("Using in-memory storage")
	return NewMemoryStore()
}
