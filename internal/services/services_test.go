package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mascota/mascota/internal/config"
	"github.com/mascota/mascota/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		APIURL:          "http://127.0.0.1:1/api",
		HealthURL:       "http://127.0.0.1:1/health",
		HTTPTimeout:     time.Second,
		FetchThrottle:   2 * time.Second,
		CooldownSeconds: 30,
	}
}

func TestInitializeServices(t *testing.T) {
	ctx := context.Background()

	t.Run("requires config", func(t *testing.T) {
		if _, err := InitializeServices(ctx, nil); err == nil {
			t.Error("Expected error for nil config")
		}
	})

	t.Run("memory storage", func(t *testing.T) {
		svc, err := InitializeServices(ctx, testConfig(t))
		if err != nil {
			t.Fatalf("InitializeServices() error = %v", err)
		}
		defer svc.Close()

		if svc.GetSessionService() == nil || svc.GetNotifyService() == nil || svc.GetPreferencesStore() == nil {
			t.Fatal("Expected all services to be initialized")
		}
		if _, ok := svc.GetStorage().(*storage.MemoryStore); !ok {
			t.Errorf("Expected memory store, got %T", svc.GetStorage())
		}
	})

	t.Run("file storage keeps preferences", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.StorePath = filepath.Join(t.TempDir(), "mascota.json")

		svc, err := InitializeServices(ctx, cfg)
		if err != nil {
			t.Fatalf("InitializeServices() error = %v", err)
		}
		if err := svc.GetPreferencesStore().SetMusicVolume(ctx, 0.9); err != nil {
			t.Fatalf("SetMusicVolume() error = %v", err)
		}
		svc.Close()

		reopened, err := InitializeServices(ctx, cfg)
		if err != nil {
			t.Fatalf("InitializeServices() error = %v", err)
		}
		defer reopened.Close()

		if got := reopened.GetPreferencesStore().Load(ctx).MusicVolume; got != 0.9 {
			t.Errorf("MusicVolume = %v, want 0.9", got)
		}
	})

	t.Run("redis storage", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig(t)
		cfg.RedisURL = mr.Addr()

		svc, err := InitializeServices(ctx, cfg)
		if err != nil {
			t.Fatalf("InitializeServices() error = %v", err)
		}
		defer svc.Close()

		if _, ok := svc.GetStorage().(*storage.RedisStore); !ok {
			t.Errorf("Expected redis store, got %T", svc.GetStorage())
		}
	})
}
