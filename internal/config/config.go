// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/deuce/internal/adapters/repository"
	"github.com/okian/deuce/internal/domain/profile"
	"github.com/okian/deuce/internal/domain/rating"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory placement queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of persistence workers.
	WorkerCount int `koanf:"worker_count"`

	// WorkerMaxTries bounds attempts for one record write.
	WorkerMaxTries int `koanf:"worker_max_tries"`

	// DedupeSize sets the size of the submission idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreDriver selects the record store: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the data source name for SQL drivers.
	StoreDSN string `koanf:"store_dsn"`

	// DefaultSeason is used when a placement omits season_id.
	DefaultSeason string `koanf:"default_season"`

	// MaxListLimit caps GET /ratings?limit.
	MaxListLimit int `koanf:"max_list_limit"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// SystemMetricsInterval sets how often process metrics are sampled.
	SystemMetricsInterval time.Duration `koanf:"system_metrics_interval"`

	// Profiles tunes the built-in sport profiles, keyed by sport name.
	Profiles map[string]ProfileOverride `koanf:"profiles"`
}

// ProfileOverride adjusts one sport profile.
type ProfileOverride struct {
	// RangeScales replaces category range scales, keyed by category.
	RangeScales map[string]float64 `koanf:"range_scales"`

	// ConfidenceWeights replaces category confidence weights.
	ConfidenceWeights map[string]float64 `koanf:"confidence_weights"`

	// DoublesOffset replaces the additive doubles offset.
	DoublesOffset *int `koanf:"doubles_offset"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		QueueSize:             10_000,
		WorkerCount:           8,
		WorkerMaxTries:        5,
		DedupeSize:            50_000,
		StoreDriver:           string(repository.DriverMemory),
		DefaultSeason:         "default",
		MaxListLimit:          100,
		ShutdownTimeout:       30 * time.Second,
		SystemMetricsInterval: 10 * time.Second,
	}
}

// Validate checks fields that have no safe fallback.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, err := repository.ParseDriver(c.StoreDriver); err != nil {
		return fmt.Errorf("%w: store_driver: %w", ErrInvalidConfig, err)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown_timeout must be positive", ErrInvalidConfig)
	}
	if c.SystemMetricsInterval <= 0 {
		return fmt.Errorf("%w: system_metrics_interval must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := c.RegistryOptions(); err != nil {
		return err
	}
	return nil
}

// RegistryOptions turns the profile overrides into registry options.
func (c *Config) RegistryOptions() ([]profile.Option, error) {
	var opts []profile.Option
	for name, o := range c.Profiles {
		sport, err := rating.ParseSport(name)
		if err != nil {
			return nil, fmt.Errorf("%w: profiles: %w", ErrInvalidConfig, err)
		}
		for category, scale := range o.RangeScales {
			opts = append(opts, profile.WithRangeScale(sport, category, scale))
		}
		for category, weight := range o.ConfidenceWeights {
			opts = append(opts, profile.WithConfidenceWeight(sport, category, weight))
		}
		if o.DoublesOffset != nil {
			opts = append(opts, profile.WithDoublesOffset(sport, *o.DoublesOffset))
		}
	}
	return opts, nil
}
