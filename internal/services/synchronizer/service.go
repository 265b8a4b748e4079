package synchronizer

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mascota/mascota/internal/domain/models"
	"github.com/mascota/mascota/internal/infrastructure/api"
	"github.com/mascota/mascota/internal/logger"
	"github.com/mascota/mascota/internal/services/notify"
	"github.com/mascota/mascota/internal/state"
	"github.com/mascota/mascota/pkg/ratelimit"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultWindow is the minimum spacing of unforced refreshes.
const DefaultWindow = 2 * time.Second

const (
	backendUnavailableMessage = "Backend unavailable. Please wait a few minutes and try again."
	sessionExpiredMessage     = "Your session has expired. Please log in again."
)

type Outcome string

const (
	OutcomeNoToken     Outcome = "no_token"
	OutcomeThrottled   Outcome = "throttled"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeLoggedOut   Outcome = "logged_out"
	OutcomeFailed      Outcome = "failed"
	OutcomeStale       Outcome = "stale"
	OutcomeRefreshed   Outcome = "refreshed"
)

// Backend is the part of the REST API a refresh needs.
type Backend interface {
	Health(ctx context.Context) error
	GetProfile(ctx context.Context, token string) (*models.User, error)
	GetPets(ctx context.Context, token string) ([]models.Pet, error)
	GetHeroes(ctx context.Context, token string) ([]models.Hero, error)
}

// Notifier receives the user-facing advisories.
type Notifier interface {
	Publish(kind notify.Kind, message string)
}

type Service struct {
	backend  Backend
	state    *state.State
	notifier Notifier
	throttle *ratelimit.Window
	expire   func(ctx context.Context)
}

// NewService wires a synchronizer. expire is called when the profile
// call rejects the token and must tear the whole session down.
func NewService(backend Backend, st *state.State, notifier Notifier, clk clock.Clock, window time.Duration, expire func(ctx context.Context)) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		backend:  backend,
		state:    st,
		notifier: notifier,
		throttle: ratelimit.NewWindow(clk, window),
		expire:   expire,
	}
}

// ResetThrottle lets the next unforced refresh through.
func (s *Service) ResetThrottle() {
	s.throttle.Reset()
}

// Refresh reloads the profile, pets and heroes for the current token.
// Only an auth rejection of the profile call ends the session; every
// other failure leaves existing state in place.
func (s *Service) Refresh(ctx context.Context, force bool) Outcome {
	snap := s.state.Snapshot()
	l := logger.For(logger.SYNC).With().
		Str("session_id", snap.SessionID).
		Uint64("epoch", snap.Epoch).
		Bool("force", force).
		Logger()

	if snap.Token == "" {
		l.Debug().Msg("No token, nothing to synchronize")
		return OutcomeNoToken
	}
	token, epoch := snap.Token, snap.Epoch

	startedAt, ready := s.throttle.Ready()
	if !force && !ready {
		l.Debug().Msg("Skipping refresh inside throttle window")
		return OutcomeThrottled
	}

	if err := s.backend.Health(ctx); err != nil {
		l.Warn().Err(err).Msg("Backend liveness probe failed")
		s.notifier.Publish(notify.BackendUnavailable, backendUnavailableMessage)
		return OutcomeUnavailable
	}

	user, err := s.backend.GetProfile(ctx, token)
	if err != nil {
		if api.IsAuthError(err) {
			if s.state.Epoch() != epoch {
				l.Info().Msg("Token rejected for a session that already ended")
				return OutcomeStale
			}
			l.Warn().Int("status", api.StatusCode(err)).Msg("Token rejected, logging out")
			s.expire(ctx)
			s.notifier.Publish(notify.SessionExpired, sessionExpiredMessage)
			return OutcomeLoggedOut
		}
		l.Error().Err(err).Msg("Failed to fetch user profile")
		return OutcomeFailed
	}

	if !s.state.Update(epoch, func(tx *state.Tx) { tx.SetUser(*user) }) {
		return OutcomeStale
	}
	s.throttle.Mark(startedAt)

	pets, heroes := s.fetchCollections(ctx, token, l)

	if !s.state.Update(epoch, func(tx *state.Tx) {
		tx.SetPets(pets)
		tx.SetHeroes(heroes)
	}) {
		return OutcomeStale
	}

	l.Info().
		Str("user_id", user.ID).
		Int("pets", len(pets)).
		Int("heroes", len(heroes)).
		Msg("Session refreshed")
	return OutcomeRefreshed
}

// fetchCollections loads pets and heroes side by side. A failure in
// either only empties that collection.
func (s *Service) fetchCollections(ctx context.Context, token string, l zerolog.Logger) ([]models.Pet, []models.Hero) {
	var (
		pets   []models.Pet
		heroes []models.Hero
		g      errgroup.Group
	)

	g.Go(func() error {
		result, err := s.backend.GetPets(ctx, token)
		if err != nil {
			l.Warn().Err(err).Msg("Failed to fetch pets")
			pets = []models.Pet{}
			return nil
		}
		pets = result
		return nil
	})

	g.Go(func() error {
		result, err := s.backend.GetHeroes(ctx, token)
		if err != nil {
			l.Warn().Err(err).Msg("Failed to fetch heroes")
			heroes = []models.Hero{}
			return nil
		}
		heroes = result
		return nil
	})

	_ = g.Wait()
	return pets, heroes
}
