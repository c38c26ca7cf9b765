package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix = "INACTIVES_"
	EnvFile   = EnvPrefix + "CONFIG"
)

// listKeys are the settings read from env as comma separated lists.
var listKeys = map[string]struct{}{
	"cors_allowed_origins": {},
}

// splitList splits a comma separated value and drops empty items.
func splitList(value string) []string {
	items := make([]string, 0, strings.Count(value, ",")+1)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if INACTIVES_CONFIG is set
//  3. env (prefix INACTIVES_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// INACTIVES_PROVIDER_BASE_URL -> provider_base_url. Keys stay flat so
	// underscores match the koanf tags on the struct. List settings are
	// comma separated.
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
		if _, ok := listKeys[key]; ok {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ProviderBaseURL == "":
		return fmt.Errorf("%w: provider_base_url must not be empty", ErrInvalidConfig)
	case !strings.Contains(c.ProviderBaseURL, "%s"):
		return fmt.Errorf("%w: provider_base_url must contain %%s for the world name", ErrInvalidConfig)
	case c.ProviderTimeoutMS <= 0:
		return fmt.Errorf("%w: provider_timeout_ms must be positive", ErrInvalidConfig)
	case c.ProviderMaxAttempts <= 0:
		return fmt.Errorf("%w: provider_max_attempts must be positive", ErrInvalidConfig)
	case c.DefaultInactiveFor <= 0:
		return fmt.Errorf("%w: default_inactive_for must be positive", ErrInvalidConfig)
	case c.DefaultMinVillagePop > c.DefaultMaxVillagePop:
		return fmt.Errorf("%w: default_min_village_pop exceeds default_max_village_pop", ErrInvalidConfig)
	case c.DefaultMinPlayerPop > c.DefaultMaxPlayerPop:
		return fmt.Errorf("%w: default_min_player_pop exceeds default_max_player_pop", ErrInvalidConfig)
	}
	return nil
}
