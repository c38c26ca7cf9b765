// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and INACTIVES_* environment variables on top.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"runtime"
	"time"

	"github.com/okian/inactives/internal/adapters/provider"
	"github.com/okian/inactives/internal/domain/ranking"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ProviderBaseURL is the external API endpoint; %s is the world name.
	ProviderBaseURL string `koanf:"provider_base_url"`

	// ProviderTimeoutMS bounds a single external API request.
	ProviderTimeoutMS int `koanf:"provider_timeout_ms"`

	// ProviderRatePerSec caps outbound external API requests.
	ProviderRatePerSec float64 `koanf:"provider_rate_per_sec"`

	// ProviderMaxAttempts is the number of tries for transient failures.
	ProviderMaxAttempts int `koanf:"provider_max_attempts"`

	// APIKeySiteURL is announced when a private API key is requested.
	APIKeySiteURL string `koanf:"api_key_site_url"`

	// ClassifyWorkers bounds parallel classification of matched players.
	ClassifyWorkers int `koanf:"classify_workers"`

	// Defaults for omitted /inactives query parameters.
	DefaultInactiveFor   int     `koanf:"default_inactive_for"`
	DefaultMinVillagePop int     `koanf:"default_min_village_pop"`
	DefaultMaxVillagePop int     `koanf:"default_max_village_pop"`
	DefaultMinPlayerPop  int     `koanf:"default_min_player_pop"`
	DefaultMaxPlayerPop  int     `koanf:"default_max_player_pop"`
	DefaultMaxDistance   float64 `koanf:"default_max_distance"`

	// CORSAllowedOrigins lists origins allowed to call the HTTP API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// New creates a Config with defaults.
func New() *Config {
	criteria := ranking.DefaultCriteria()
	return &Config{
		LogLevel:             "info",
		Addr:                 ":5000",
		ProviderBaseURL:      provider.DefaultBaseURL,
		ProviderTimeoutMS:    30_000,
		ProviderRatePerSec:   5,
		ProviderMaxAttempts:  3,
		APIKeySiteURL:        provider.DefaultSiteURL,
		ClassifyWorkers:      runtime.NumCPU(),
		DefaultInactiveFor:   5,
		DefaultMinVillagePop: criteria.MinVillagePop,
		DefaultMaxVillagePop: criteria.MaxVillagePop,
		DefaultMinPlayerPop:  criteria.MinPlayerPop,
		DefaultMaxPlayerPop:  criteria.MaxPlayerPop,
		DefaultMaxDistance:   criteria.MaxDistance,
		CORSAllowedOrigins:   []string{"*"},
	}
}

// ProviderTimeout returns ProviderTimeoutMS as a duration.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutMS) * time.Millisecond
}
