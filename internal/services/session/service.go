package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mascota/mascota/internal/domain/care"
	"github.com/mascota/mascota/internal/domain/models"
	"github.com/mascota/mascota/internal/logger"
	"github.com/mascota/mascota/internal/services/cooldown"
	"github.com/mascota/mascota/internal/services/notify"
	"github.com/mascota/mascota/internal/services/synchronizer"
	"github.com/mascota/mascota/internal/state"
	"github.com/mascota/mascota/internal/storage"
	"github.com/mascota/mascota/internal/token"
)

var (
	ErrNoSession     = errors.New("no active session")
	ErrInvalidToken  = errors.New("token is malformed or expired")
	ErrPetNotFound   = errors.New("pet not found")
	ErrCoolingDown   = errors.New("action is cooling down")
	ErrMissingUserID = errors.New("session has no user id")
)

// Backend is the REST API as seen by the session.
type Backend interface {
	synchronizer.Backend
	Login(ctx context.Context, username, password string) (*models.LoginResponse, error)
	Register(ctx context.Context, username, email, password string) (*models.RegisterResponse, error)
	Care(ctx context.Context, token, petID string, action care.Action) (*models.CareResult, error)
	UpdateCoins(ctx context.Context, token, userID string, coins int) error
}

type Options struct {
	Clock           clock.Clock
	FetchThrottle   time.Duration
	CooldownSeconds int
}

// Service is the single entry point UI code talks to.
type Service struct {
	backend   Backend
	tokens    *token.Store
	state     *state.State
	sync      *synchronizer.Service
	cooldowns *cooldown.Gate
	notifier  *notify.Service
}

func NewService(backend Backend, kv storage.Store, notifier *notify.Service, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.FetchThrottle == 0 {
		opts.FetchThrottle = synchronizer.DefaultWindow
	}

	s := &Service{
		backend:   backend,
		tokens:    token.NewStore(kv, opts.Clock),
		state:     state.New(),
		cooldowns: cooldown.NewGate(opts.Clock, opts.CooldownSeconds),
		notifier:  notifier,
	}
	s.sync = synchronizer.NewService(backend, s.state, notifier, opts.Clock, opts.FetchThrottle, s.Logout)
	return s
}

// Login seeds a session from a token the caller already obtained. User
// data is not fetched; call FetchUserData afterwards.
func (s *Service) Login(ctx context.Context, t string, user *models.User) error {
	l := logger.For(logger.SESSION)

	if !s.tokens.IsValid(t) {
		l.Info().Msg("Refusing login with invalid token")
		return ErrInvalidToken
	}
	if err := s.tokens.Save(ctx, t); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	s.sync.ResetThrottle()
	epoch := s.state.Begin(t, user)

	ev := l.Info().Uint64("epoch", epoch)
	if user != nil {
		ev = ev.Str("user_id", user.ID)
	}
	ev.Msg("User logged in")
	return nil
}

// LoginWithCredentials exchanges username and password for a token and
// starts a session with it.
func (s *Service) LoginWithCredentials(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	resp, err := s.backend.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	user := resp.User
	if err := s.Login(ctx, resp.Token, &user); err != nil {
		return nil, err
	}
	return resp, nil
}

// Register creates an account. It does not start a session.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.RegisterResponse, error) {
	resp, err := s.backend.Register(ctx, username, email, password)
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	l := logger.For(logger.SESSION)
	l.Info().Str("username", username).Msg("User registered")
	return resp, nil
}

// Restore resumes a session from a persisted valid token. Only the
// token is seeded.
func (s *Service) Restore(ctx context.Context) bool {
	t, ok := s.tokens.Load(ctx)
	if !ok {
		return false
	}
	epoch := s.state.Begin(t, nil)

	l := logger.For(logger.SESSION)
	l.Info().Uint64("epoch", epoch).Msg("Session restored from persisted token")
	return true
}

// Logout drops the token and every piece of session data. Responses
// still in flight are discarded when they arrive.
func (s *Service) Logout(ctx context.Context) {
	l := logger.For(logger.SESSION)

	if err := s.tokens.Clear(ctx); err != nil {
		l.Error().Err(err).Msg("Failed to clear persisted token")
	}
	s.state.Reset()
	s.sync.ResetThrottle()

	l.Info().Msg("User logged out")
}

func (s *Service) FetchUserData(ctx context.Context, force bool) synchronizer.Outcome {
	return s.sync.Refresh(ctx, force)
}

func (s *Service) SetActivePetByID(petID string) bool {
	return s.state.SetActivePet(petID)
}

// UpdateActivePet merges a locally modified pet into the session.
func (s *Service) UpdateActivePet(pet models.Pet) bool {
	return s.state.MergePetUpdate(pet)
}

// UpdateCoins applies the balance locally, then writes it to the server.
// A failed write is logged and the local value is kept.
func (s *Service) UpdateCoins(ctx context.Context, coins int) {
	snap := s.state.Snapshot()
	l := logger.For(logger.SESSION)

	if !snap.LoggedIn() {
		l.Debug().Msg("Ignoring coin update without session")
		return
	}
	if !s.state.Update(snap.Epoch, func(tx *state.Tx) { tx.SetCoins(coins) }) {
		return
	}
	if snap.User == nil || snap.User.ID == "" {
		l.Warn().Err(ErrMissingUserID).Int("coins", coins).Msg("Coins updated locally only")
		return
	}

	if err := s.backend.UpdateCoins(ctx, snap.Token, snap.User.ID, coins); err != nil {
		l.Error().
			Err(err).
			Str("user_id", snap.User.ID).
			Int("coins", coins).
			Msg("Failed to sync coins with server")
		return
	}
	l.Debug().Str("user_id", snap.User.ID).Int("coins", coins).Msg("Coins synced")
}

// PerformCare runs a care action on one of the session's pets. The
// action's cooldown is armed only when the server accepts it.
func (s *Service) PerformCare(ctx context.Context, petID string, action care.Action) (*models.CareResult, error) {
	snap := s.state.Snapshot()
	if !snap.LoggedIn() {
		return nil, ErrNoSession
	}

	pet, ok := findPet(snap.Pets, petID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPetNotFound, petID)
	}
	kind := string(action)
	if remaining := s.cooldowns.Remaining(kind); remaining > 0 {
		return nil, fmt.Errorf("%w: %s for %ds", ErrCoolingDown, kind, remaining)
	}
	if err := care.Permit(pet, action); err != nil {
		return nil, err
	}

	l := logger.For(logger.SESSION).With().
		Str("session_id", snap.SessionID).
		Str("pet_id", petID).
		Str("action", kind).
		Logger()

	result, err := s.backend.Care(ctx, snap.Token, petID, action)
	if err != nil {
		l.Error().Err(err).Msg("Care action failed")
		s.notifier.Publish(notify.Error, fmt.Sprintf("Could not %s %s. Please try again.", kind, pet.Name))
		return nil, fmt.Errorf("care action %s failed: %w", kind, err)
	}

	updated, ok := resolveCaredPet(pet, result)
	if ok {
		if !s.state.Update(snap.Epoch, func(tx *state.Tx) { tx.MergePetUpdate(updated) }) {
			l.Info().Msg("Session ended before care result arrived")
			return result, nil
		}
	}
	s.cooldowns.Start(kind)

	if result.Message != "" {
		s.notifier.Publish(notify.Info, result.Message)
	}
	l.Info().Float64("health", updated.Health).Msg("Care action applied")
	return result, nil
}

// resolveCaredPet prefers the pet returned by the server and falls back
// to applying the reported deltas to the local copy.
func resolveCaredPet(local models.Pet, result *models.CareResult) (models.Pet, bool) {
	if result.Pet != nil {
		p := result.Pet.Clone()
		if p.ID == "" {
			p.ID = local.ID
		}
		return p, true
	}
	if c := result.Consequences; c != nil {
		p := local.Clone()
		p.Health = models.ClampStat(p.Health + c.Health)
		p.Happiness = models.ClampStat(p.Happiness + c.Happiness)
		p.Energy = models.ClampStat(p.Energy + c.Energy)
		return p, true
	}
	return local, false
}

func findPet(pets []models.Pet, id string) (models.Pet, bool) {
	for _, p := range pets {
		if p.ID == id {
			return p, true
		}
	}
	return models.Pet{}, false
}

func (s *Service) Snapshot() state.Snapshot {
	return s.state.Snapshot()
}

func (s *Service) Subscribe(fn state.Listener) func() {
	return s.state.Subscribe(fn)
}

func (s *Service) Cooldowns() *cooldown.Gate {
	return s.cooldowns
}

func (s *Service) Notifications() *notify.Service {
	return s.notifier
}
