package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, populated from the environment.
type Config struct {
	Addr            string        `env:"VIDAPLUS_ADDR" envDefault:":8080"`
	DatabaseDSN     string        `env:"VIDAPLUS_PG_DSN"`
	AuthSecret      string        `env:"VIDAPLUS_AUTH_SECRET"`
	AccessTTL       time.Duration `env:"VIDAPLUS_ACCESS_TTL" envDefault:"168h"`
	ResetTTL        time.Duration `env:"VIDAPLUS_RESET_TTL" envDefault:"1h"`
	RateBurst       int           `env:"VIDAPLUS_RATE_BURST" envDefault:"20"`
	RatePerSecond   int           `env:"VIDAPLUS_RATE_PER_SECOND" envDefault:"10"`
	ShutdownTimeout time.Duration `env:"VIDAPLUS_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment and validates the values the service cannot
// start without.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.AuthSecret == "" {
		return Config{}, errors.New("config: VIDAPLUS_AUTH_SECRET is required")
	}
	if cfg.DatabaseDSN == "" {
		return Config{}, errors.New("config: VIDAPLUS_PG_DSN is required")
	}
	return cfg, nil
}
