package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/nuetoban/counter-bot/model"
)

var (
	ErrMissingToken          = errors.New("TOKEN is required")
	ErrMissingDefaultChannel = errors.New("DEFAULT_COUNT_CHANNEL is required")
)

// Config struct to hold the configuration settings.
// Keys match the original config.json, so JSON files load as they are.
type Config struct {
	Token               string   `yaml:"TOKEN" env:"TOKEN"`
	DefaultCountChannel string   `yaml:"DEFAULT_COUNT_CHANNEL" env:"DEFAULT_COUNT_CHANNEL"`
	ResetOnIncorrect    bool     `yaml:"RESET_ON_INCORRECT" env:"RESET_ON_INCORRECT"`
	HideFromLeaderboard bool     `yaml:"HIDE_FROM_LEADERBOARD" env:"HIDE_FROM_LEADERBOARD"`
	SkipLeaderboard     GuildIDs `yaml:"SKIP_LEADERBOARD_FOR_SERVERS" env:"SKIP_LEADERBOARD_FOR_SERVERS" envSeparator:","`

	Workers        int           `yaml:"WORKERS" env:"WORKERS"`
	QueueSize      int           `yaml:"QUEUE_SIZE" env:"QUEUE_SIZE"`
	RequestTimeout time.Duration `yaml:"REQUEST_TIMEOUT" env:"REQUEST_TIMEOUT"`
	MetricsAddress string        `yaml:"METRICS_ADDRESS" env:"METRICS_ADDRESS"`
	LogLevel       string        `yaml:"LOG_LEVEL" env:"LOG_LEVEL"`
}

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "COUNTER_BOT_"

// Default returns the configuration used for keys absent from file and environment
func Default() Config {
	return Config{
		ResetOnIncorrect: true,
		Workers:          8,
		QueueSize:        64,
		RequestTimeout:   10 * time.Second,
		MetricsAddress:   ":8080",
		LogLevel:         "info",
	}
}

// Load reads filename when it exists, then applies environment overrides
// and validates the result
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config %s: %w", filename, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Environment only
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", filename, err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports the first missing or invalid setting
func (c *Config) Validate() error {
	if c.Token == "" {
		return ErrMissingToken
	}
	if c.DefaultCountChannel == "" {
		return ErrMissingDefaultChannel
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("QUEUE_SIZE must not be negative, got %d", c.QueueSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// Defaults for lazily created games
func (c *Config) Defaults() model.Defaults {
	return model.Defaults{
		CountingChannel:       c.DefaultCountChannel,
		ResetOnIncorrect:      c.ResetOnIncorrect,
		HiddenFromLeaderboard: c.HideFromLeaderboard,
	}
}

// Excluded returns the guilds never shown on the leaderboard
func (c *Config) Excluded() map[string]struct{} {
	excluded := make(map[string]struct{}, len(c.SkipLeaderboard))
	for _, id := range c.SkipLeaderboard {
		excluded[id] = struct{}{}
	}
	return excluded
}
