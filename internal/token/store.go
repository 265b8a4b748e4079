package token

import (
	"context"
	"errors"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mascota/mascota/internal/logger"
	"github.com/mascota/mascota/internal/storage"
)

// Key is the single storage key holding the bearer credential.
const Key = "token"

type Store struct {
	kv    storage.Store
	clock clock.Clock
}

func NewStore(kv storage.Store, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{kv: kv, clock: clk}
}

// IsValid reports whether t is a three-segment JWT whose exp claim is
// strictly in the future. Any decoding problem makes it invalid. The
// signature is not checked; the client holds no key.
func (s *Store) IsValid(t string) bool {
	if strings.Count(t, ".") != 2 {
		return false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(t, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.After(s.clock.Now())
}

// Load returns the persisted token if it is still valid. An invalid
// token is left in place; only Clear removes it.
func (s *Store) Load(ctx context.Context) (string, bool) {
	l := logger.For(logger.TOKEN)

	t, err := s.kv.Get(ctx, Key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			l.Warn().Err(err).Msg("Failed to read persisted token")
		}
		return "", false
	}
	if !s.IsValid(t) {
		l.Info().Msg("Persisted token is invalid or expired")
		return "", false
	}
	return t, true
}

func (s *Store) Save(ctx context.Context, t string) error {
	return s.kv.Set(ctx, Key, t)
}

func (s *Store) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, Key)
}
