package services

import (
	"context"
	"errors"
	"sync"

	"github.com/mascota/mascota/internal/config"
	"github.com/mascota/mascota/internal/infrastructure/api"
	"github.com/mascota/mascota/internal/infrastructure/redis"
	"github.com/mascota/mascota/internal/preferences"
	"github.com/mascota/mascota/internal/services/notify"
	"github.com/mascota/mascota/internal/services/session"
	"github.com/mascota/mascota/internal/storage"
	"github.com/rs/zerolog/log"
)

var (
	// Mutex for thread-safe initialization
	servicesMu sync.RWMutex
)

type Services struct {
	apiClient        *api.Client
	notifyService    *notify.Service
	preferencesStore *preferences.Store
	redisService     *redis.Service
	sessionService   *session.Service
	storage          storage.Store
}

// InitializeServices builds the client stack from cfg. Redis and the
// file store are optional; without them state lives in memory.
func InitializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	if cfg == nil {
		return nil, errors.New("configuration is required")
	}

	log.Info().Msg("Initializing core services")

	// Initialize Redis service (optional)
	redisService := redis.NewService(ctx, cfg.RedisURL, cfg.RedisPassword)
	log.Info().Bool("available", redisService != nil).Msg("Initializing Redis service")

	kv := storage.NewStore(ctx, redisService, cfg.StorePath)

	apiClient := api.NewClient(cfg.APIURL, cfg.HealthURL, cfg.HTTPTimeout)
	log.Info().Msg("Initializing API client")

	notifyService := notify.NewService()
	notifyService.Init()
	log.Info().Msg("Initializing notification service")

	sessionService := session.NewService(apiClient, kv, notifyService, session.Options{
		FetchThrottle:   cfg.FetchThrottle,
		CooldownSeconds: cfg.CooldownSeconds,
	})
	log.Info().Msg("Initializing session service")

	preferencesStore := preferences.NewStore(kv)

	log.Info().Msg("All services initialized successfully")

	return &Services{
		apiClient:        apiClient,
		notifyService:    notifyService,
		preferencesStore: preferencesStore,
		redisService:     redisService,
		sessionService:   sessionService,
		storage:          kv,
	}, nil
}

// Close releases notification subscribers and the Redis connection.
func (s *Services) Close() {
	s.notifyService.Dispose()
	if s.redisService != nil {
		if err := s.redisService.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis connection")
		}
	}
}

// GetSessionService returns the session service
func (s *Services) GetSessionService() *session.Service {
	return s.sessionService
}

// GetNotifyService returns the notification service
func (s *Services) GetNotifyService() *notify.Service {
	return s.notifyService
}

// GetPreferencesStore returns the preferences store
func (s *Services) GetPreferencesStore() *preferences.Store {
	return s.preferencesStore
}

// GetStorage returns the key/value store shared by token and preferences
func (s *Services) GetStorage() storage.Store {
	return s.storage
}
