package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mascota/mascota/internal/config"
	"github.com/mascota/mascota/internal/domain/models"
	"github.com/mascota/mascota/internal/fakeapi"
	"github.com/mascota/mascota/internal/logger"
	"github.com/rs/zerolog/log"
)

const (
	demoUsername = "demo"
	demoPassword = "demo123"
)

func main() {
	logger.Setup(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	r := setupRouter(fakeapi.Options{LoginLimit: 10, LoginWindow: time.Minute})
	srv := &http.Server{
		Addr:              cfg.MockAPIAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.MockAPIAddr).Msg("Mock API starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Mock API stopped")
}

func setupRouter(opts fakeapi.Options) *mux.Router {
	world := fakeapi.NewWorld()
	seedDemo(world)
	return fakeapi.NewServer(world, opts).Router()
}

// seedDemo installs the account the smoke runner logs in with.
func seedDemo(world *fakeapi.World) {
	world.Seed(
		models.User{ID: "demo-user", Username: demoUsername, Email: "demo@example.com", Coins: fakeapi.StartingCoins},
		demoPassword,
		[]models.Pet{
			{ID: "p1", Name: "Firulais", Type: "dog", Color: "brown", Health: 70, Happiness: 85, Energy: 60, Status: models.StatusAlive},
			{ID: "p2", Name: "Michi", Type: "cat", Color: "black", Health: 25, Happiness: 40, Energy: 20, Status: models.StatusAlive},
		},
		[]models.Hero{
			{ID: "h1", Name: "Bruce", Alias: "Batman", City: "Gotham", Team: "Justice League"},
		},
	)
}
