// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file/env on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"time"
)

// Backend selectors for the cache and sink layers.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// TrackedUsers lists the external account names swept by the scheduler.
	TrackedUsers []string `koanf:"tracked_users"`

	// SweepInterval is the period of the scheduled full refresh sweep.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// CacheTTL bounds how long an aggregated record is considered fresh.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// CacheBackend selects the cache implementation: memory or redis.
	CacheBackend string `koanf:"cache_backend"`

	// RedisURL configures the redis cache backend, e.g. "redis://localhost:6379/0".
	RedisURL string `koanf:"redis_url"`

	// SinkBackend selects the durable store: memory or postgres.
	SinkBackend string `koanf:"sink_backend"`

	// PostgresURL configures the postgres sink backend.
	PostgresURL string `koanf:"postgres_url"`

	// UpstreamURL is the base URL of the external coding-activity API.
	UpstreamURL string `koanf:"upstream_url"`

	// UpstreamTimeout bounds each individual upstream request.
	UpstreamTimeout time.Duration `koanf:"upstream_timeout"`

	// Retry policy for transient upstream failures.
	RetryBaseDelay   time.Duration `koanf:"retry_base_delay"`
	RetryMultiplier  float64       `koanf:"retry_multiplier"`
	RetryMaxDelay    time.Duration `koanf:"retry_max_delay"`
	RetryMaxAttempts int           `koanf:"retry_max_attempts"`

	// RecentLimit caps the recent-solves list kept on each record.
	RecentLimit int `koanf:"recent_limit"`

	// Upstream credentials forwarded on each request.
	CSRFToken     string `koanf:"csrf_token"`
	SessionCookie string `koanf:"session_cookie"`

	// UserAgent identifies this service to the upstream API.
	UserAgent string `koanf:"user_agent"`
}

// New creates a Config populated with defaults. Load layers optional
// file and environment configuration on top of these values.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9090",
		TrackedUsers:     nil,
		SweepInterval:    24 * time.Hour,
		CacheTTL:         time.Hour,
		CacheBackend:     BackendMemory,
		RedisURL:         "redis://localhost:6379/0",
		SinkBackend:      BackendMemory,
		PostgresURL:      "",
		UpstreamURL:      "https://leetcode.com",
		UpstreamTimeout:  15 * time.Second,
		RetryBaseDelay:   500 * time.Millisecond,
		RetryMultiplier:  2.0,
		RetryMaxDelay:    30 * time.Second,
		RetryMaxAttempts: 3,
		RecentLimit:      10,
		UserAgent:        "DevQuest.IO Analytics Service",
	}
}
