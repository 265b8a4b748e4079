package preferences

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mascota/mascota/internal/logger"
	"github.com/mascota/mascota/internal/storage"
)

const (
	SoundEnabledKey = "soundEnabled"
	SoundVolumeKey  = "soundVolume"
	MusicEnabledKey = "musicEnabled"
	MusicVolumeKey  = "musicVolume"
)

const (
	DefaultSoundEnabled = true
	DefaultSoundVolume  = 0.5
	DefaultMusicEnabled = true
	DefaultMusicVolume  = 0.3
)

// Keys lists every preference key held in the store.
var Keys = []string{SoundEnabledKey, SoundVolumeKey, MusicEnabledKey, MusicVolumeKey}

// Settings is the full set of audio preferences.
type Settings struct {
	SoundEnabled bool    `json:"soundEnabled"`
	SoundVolume  float64 `json:"soundVolume"`
	MusicEnabled bool    `json:"musicEnabled"`
	MusicVolume  float64 `json:"musicVolume"`
}

func Defaults() Settings {
	return Settings{
		SoundEnabled: DefaultSoundEnabled,
		SoundVolume:  DefaultSoundVolume,
		MusicEnabled: DefaultMusicEnabled,
		MusicVolume:  DefaultMusicVolume,
	}
}

// Store reads and writes preferences next to the token. Logging out
// never touches these keys.
type Store struct {
	kv storage.Store
}

func NewStore(kv storage.Store) *Store {
	return &Store{kv: kv}
}

// Load returns the stored settings. Missing or unparseable values fall
// back to their defaults.
func (s *Store) Load(ctx context.Context) Settings {
	settings := Defaults()
	settings.SoundEnabled = s.getBool(ctx, SoundEnabledKey, DefaultSoundEnabled)
	settings.SoundVolume = s.getVolume(ctx, SoundVolumeKey, DefaultSoundVolume)
	settings.MusicEnabled = s.getBool(ctx, MusicEnabledKey, DefaultMusicEnabled)
	settings.MusicVolume = s.getVolume(ctx, MusicVolumeKey, DefaultMusicVolume)
	return settings
}

func (s *Store) Save(ctx context.Context, settings Settings) error {
	if err := s.SetSoundEnabled(ctx, settings.SoundEnabled); err != nil {
		return err
	}
	if err := s.SetSoundVolume(ctx, settings.SoundVolume); err != nil {
		return err
	}
	if err := s.SetMusicEnabled(ctx, settings.MusicEnabled); err != nil {
		return err
	}
	return s.SetMusicVolume(ctx, settings.MusicVolume)
}

func (s *Store) SetSoundEnabled(ctx context.Context, enabled bool) error {
	return s.set(ctx, SoundEnabledKey, strconv.FormatBool(enabled))
}

func (s *Store) SetSoundVolume(ctx context.Context, volume float64) error {
	return s.set(ctx, SoundVolumeKey, formatVolume(volume))
}

func (s *Store) SetMusicEnabled(ctx context.Context, enabled bool) error {
	return s.set(ctx, MusicEnabledKey, strconv.FormatBool(enabled))
}

func (s *Store) SetMusicVolume(ctx context.Context, volume float64) error {
	return s.set(ctx, MusicVolumeKey, formatVolume(volume))
}

// Clear removes every preference so the defaults apply again.
func (s *Store) Clear(ctx context.Context) error {
	for _, key := range Keys {
		if err := s.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete preference %s: %w", key, err)
		}
	}
	return nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	if err := s.kv.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}
	return nil
}

func (s *Store) getBool(ctx context.Context, key string, def bool) bool {
	raw, ok := s.get(ctx, key)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		l := logger.For(logger.PREFERENCES)
		l.Warn().Str("key", key).Str("value", raw).Msg("Ignoring malformed preference")
		return def
	}
	return v
}

func (s *Store) getVolume(ctx context.Context, key string, def float64) float64 {
	raw, ok := s.get(ctx, key)
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		l := logger.For(logger.PREFERENCES)
		l.Warn().Str("key", key).Str("value", raw).Msg("Ignoring malformed preference")
		return def
	}
	return clampVolume(v)
}

func (s *Store) get(ctx context.Context, key string) (string, bool) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			l := logger.For(logger.PREFERENCES)
			l.Warn().Err(err).Str("key", key).Msg("Failed to read preference")
		}
		return "", false
	}
	return raw, true
}

func formatVolume(v float64) string {
	return strconv.FormatFloat(clampVolume(v), 'f', -1, 64)
}

// clampVolume keeps volumes in [0,1].
func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
