package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mascota/mascota/internal/config"
	"github.com/mascota/mascota/internal/domain/care"
	"github.com/mascota/mascota/internal/domain/models"
	"github.com/mascota/mascota/internal/domain/mood"
	"github.com/mascota/mascota/internal/logger"
	"github.com/mascota/mascota/internal/services"
	"github.com/mascota/mascota/internal/services/synchronizer"
	"github.com/rs/zerolog/log"
)

var errNoCredentials = errors.New("no persisted session; set MASCOTA_USERNAME and MASCOTA_PASSWORD")

func main() {
	logger.Setup(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	svc, err := services.InitializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	err = run(ctx, svc)
	svc.Close()
	if err != nil {
		log.Error().Err(err).Msg("Session run failed")
		stop()
		os.Exit(1)
	}
}

// run restores or opens a session, refreshes it once and reports the
// pets. MASCOTA_CARE_ACTION optionally performs one care action on the
// active pet.
func run(ctx context.Context, svc *services.Services) error {
	l := logger.For(logger.APP)
	sess := svc.GetSessionService()

	notes, unsubscribe := svc.GetNotifyService().Subscribe()
	defer unsubscribe()
	go func() {
		for n := range notes {
			l.Warn().Str("kind", string(n.Kind)).Msg(n.Message)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go sess.Cooldowns().Run(runCtx)

	if !sess.Restore(ctx) {
		username := config.GetEnvOrDefault("MASCOTA_USERNAME", "")
		password := config.GetEnvOrDefault("MASCOTA_PASSWORD", "")
		if username == "" || password == "" {
			return errNoCredentials
		}
		if _, err := sess.LoginWithCredentials(ctx, username, password); err != nil {
			return err
		}
	}

	if outcome := sess.FetchUserData(ctx, true); outcome != synchronizer.OutcomeRefreshed {
		return fmt.Errorf("refresh finished with outcome %s", outcome)
	}

	prefs := svc.GetPreferencesStore().Load(ctx)
	l.Info().
		Bool("sound", prefs.SoundEnabled).
		Float64("sound_volume", prefs.SoundVolume).
		Bool("music", prefs.MusicEnabled).
		Float64("music_volume", prefs.MusicVolume).
		Msg("Preferences loaded")

	report(sess.Snapshot().Pets)

	if raw := config.GetEnvOrDefault("MASCOTA_CARE_ACTION", ""); raw != "" {
		action, err := care.Parse(raw)
		if err != nil {
			return err
		}
		active := sess.Snapshot().ActivePet
		if active == nil {
			return fmt.Errorf("no pet to %s", action)
		}
		result, err := sess.PerformCare(ctx, active.ID, action)
		if err != nil {
			return err
		}
		l.Info().Str("pet_id", active.ID).Str("action", string(action)).Msg(result.Message)
		report(sess.Snapshot().Pets)
	}

	snap := sess.Snapshot()
	l.Info().
		Str("session_id", snap.SessionID).
		Str("active_pet", snap.ActivePetID).
		Int("coins", snap.Coins).
		Int("heroes", len(snap.Heroes)).
		Msg("Session ready")
	return nil
}

func report(pets []models.Pet) {
	l := logger.For(logger.APP)
	for _, p := range pets {
		l.Info().
			Str("pet_id", p.ID).
			Str("name", p.Name).
			Str("mood", string(mood.Classify(p))).
			Str("health", string(mood.StatLevel(p.Health))).
			Str("happiness", string(mood.StatLevel(p.Happiness))).
			Str("energy", string(mood.StatLevel(p.Energy))).
			Msg("Pet status")
	}
}
