// Package config loads server settings from the environment.
//
// A .env file in the working directory is read first when present (values
// already set in the environment win), then variables are parsed into Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/robalobadob/neuroprime/internal/coach"
	"github.com/robalobadob/neuroprime/internal/game/memory"
	"github.com/robalobadob/neuroprime/internal/game/simon"
	"github.com/robalobadob/neuroprime/internal/shell"
)

type Config struct {
	Port         string `env:"PORT" envDefault:"5175"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"json"`
	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	Production   bool   `env:"PRODUCTION" envDefault:"false"`

	SessionSecret string        `env:"SESSION_SECRET" envDefault:"dev_secret_change_me"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	CookieName    string        `env:"COOKIE_NAME" envDefault:"neuroprime_session"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`

	DailySalt string `env:"DAILY_SALT" envDefault:"local_dev_salt"`
	FacesFile string `env:"FACES_FILE"`

	CoachAPIKey   string        `env:"COACH_API_KEY"`
	CoachBaseURL  string        `env:"COACH_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	CoachModel    string        `env:"COACH_MODEL" envDefault:"gemini-2.5-flash"`
	CoachTimeout  time.Duration `env:"COACH_TIMEOUT" envDefault:"8s"`
	CoachFallback string        `env:"COACH_FALLBACK"`

	SimonLead       time.Duration `env:"SIMON_LEAD" envDefault:"800ms"`
	SimonFlash      time.Duration `env:"SIMON_FLASH" envDefault:"450ms"`
	SimonGap        time.Duration `env:"SIMON_GAP" envDefault:"200ms"`
	SimonRoundDelay time.Duration `env:"SIMON_ROUND_DELAY" envDefault:"900ms"`

	MemoryPairs         int           `env:"MEMORY_PAIRS" envDefault:"6"`
	MemoryDuration      time.Duration `env:"MEMORY_DURATION" envDefault:"60s"`
	MemoryMismatchDelay time.Duration `env:"MEMORY_MISMATCH_DELAY" envDefault:"900ms"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// Load reads .env (if any) and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env tags cannot express. The pairs-versus-catalog
// bound is checked once the face catalog is loaded.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if f := strings.ToLower(c.LogFormat); f != "json" && f != "console" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET must not be empty"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if c.MemoryPairs <= 0 {
		errs = append(errs, fmt.Errorf("MEMORY_PAIRS must be positive, got %d", c.MemoryPairs))
	}
	if c.MemoryDuration < time.Second {
		errs = append(errs, errors.New("MEMORY_DURATION must be at least 1s"))
	}
	for name, d := range map[string]time.Duration{
		"SIMON_LEAD":            c.SimonLead,
		"SIMON_FLASH":           c.SimonFlash,
		"SIMON_GAP":             c.SimonGap,
		"SIMON_ROUND_DELAY":     c.SimonRoundDelay,
		"MEMORY_MISMATCH_DELAY": c.MemoryMismatchDelay,
		"COACH_TIMEOUT":         c.CoachTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	return errors.Join(errs...)
}

// Level is the parsed LOG_LEVEL.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Shell returns the game tuning handed to every session.
func (c *Config) Shell() shell.Config {
	return shell.Config{
		Simon: simon.Timing{
			Lead:       c.SimonLead,
			Flash:      c.SimonFlash,
			Gap:        c.SimonGap,
			RoundDelay: c.SimonRoundDelay,
		},
		Memory: memory.Config{
			Pairs:         c.MemoryPairs,
			Duration:      c.MemoryDuration,
			Tick:          time.Second,
			MismatchDelay: c.MemoryMismatchDelay,
		},
		DailySalt: c.DailySalt,
	}
}

// Coach returns the tip-client settings.
func (c *Config) Coach() coach.Config {
	return coach.Config{
		APIKey:   c.CoachAPIKey,
		BaseURL:  c.CoachBaseURL,
		Model:    c.CoachModel,
		Timeout:  c.CoachTimeout,
		Fallback: c.CoachFallback,
	}
}
