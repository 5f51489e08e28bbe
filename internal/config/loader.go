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

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if DEVQUEST_CONFIG is set
//  3. env (prefix DEVQUEST_)
func Load(ctx context.Context) (*Config, error) {
	_ = ctx // reserved for future remote providers

	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("DEVQUEST_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: DEVQUEST_ADDR, DEVQUEST_CACHE_TTL, ...
	// Map env keys like DEVQUEST_CACHE_TTL -> cache_ttl (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("DEVQUEST_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "devquest_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SweepInterval <= 0:
		return fmt.Errorf("%w: sweep_interval must be positive", ErrInvalidConfig)
	case c.CacheTTL <= 0:
		return fmt.Errorf("%w: cache_ttl must be positive", ErrInvalidConfig)
	case c.RetryMaxAttempts < 1:
		return fmt.Errorf("%w: retry_max_attempts must be at least 1", ErrInvalidConfig)
	case c.RetryMultiplier < 1:
		return fmt.Errorf("%w: retry_multiplier must be at least 1", ErrInvalidConfig)
	case c.UpstreamURL == "":
		return fmt.Errorf("%w: upstream_url must not be empty", ErrInvalidConfig)
	}

	switch c.CacheBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("%w: unknown cache_backend %q", ErrInvalidConfig, c.CacheBackend)
	}

	switch c.SinkBackend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("%w: unknown sink_backend %q", ErrInvalidConfig, c.SinkBackend)
	}

	if c.SinkBackend == BackendPostgres && c.PostgresURL == "" {
		return fmt.Errorf("%w: postgres_url required for postgres sink", ErrInvalidConfig)
	}
	return nil
}
