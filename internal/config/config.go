package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mascota/mascota/internal/logger"
)

const DefaultAPIURL = "https://api-heroes-gh4i.onrender.com/api"

// Config holds the client settings loaded from the environment.
type Config struct {
	APIURL          string        `env:"MASCOTA_API_URL" envDefault:"https://api-heroes-gh4i.onrender.com/api"`
	HealthURL       string        `env:"MASCOTA_HEALTH_URL"`
	HTTPTimeout     time.Duration `env:"MASCOTA_HTTP_TIMEOUT" envDefault:"10s"`
	FetchThrottle   time.Duration `env:"MASCOTA_FETCH_THROTTLE" envDefault:"2s"`
	CooldownSeconds int           `env:"MASCOTA_COOLDOWN_SECONDS" envDefault:"30"`
	StorePath       string        `env:"MASCOTA_STORE_PATH"`
	RedisURL        string        `env:"REDIS_URL"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	MockAPIAddr     string        `env:"MOCKAPI_ADDR" envDefault:":8080"`
}

// Load parses the environment and fills derived values.
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	l := logger.For(logger.CONFIG)
	l.Info().
		Str("api_url", cfg.APIURL).
		Str("health_url", cfg.HealthURL).
		Dur("fetch_throttle", cfg.FetchThrottle).
		Bool("redis", cfg.RedisURL != "").
		Msg("Configuration loaded")

	return &cfg, nil
}

func (c *Config) normalize() error {
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if _, err := url.ParseRequestURI(c.APIURL); err != nil {
		return fmt.Errorf("invalid MASCOTA_API_URL %q: %w", c.APIURL, err)
	}
	if c.HealthURL == "" {
		c.HealthURL = DeriveHealthURL(c.APIURL)
	}
	if c.FetchThrottle < 0 {
		return fmt.Errorf("MASCOTA_FETCH_THROTTLE must not be negative")
	}
	if c.CooldownSeconds <= 0 {
		return fmt.Errorf("MASCOTA_COOLDOWN_SECONDS must be positive")
	}
	return nil
}

// DeriveHealthURL maps an API base such as https://host/api to the
// liveness endpoint at the host root.
func DeriveHealthURL(apiURL string) string {
	base := strings.TrimSuffix(strings.TrimRight(apiURL, "/"), "/api")
	return base + "/health"
}
