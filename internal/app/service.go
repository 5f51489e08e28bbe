// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devquest-io/analytics/internal/adapters/cache"
	"github.com/devquest-io/analytics/internal/adapters/leetcode"
	"github.com/devquest-io/analytics/internal/adapters/sink"
	"github.com/devquest-io/analytics/internal/config"
	"github.com/devquest-io/analytics/internal/dispatch"
	"github.com/devquest-io/analytics/internal/domain/aggregate"
	"github.com/devquest-io/analytics/internal/domain/backoff"
	"github.com/devquest-io/analytics/internal/domain/model"
	"github.com/devquest-io/analytics/internal/sched"
	"github.com/devquest-io/analytics/pkg/logger"
)

// Service wires the refresh pipeline together: upstream client, cache,
// sink, dispatcher and scheduler.
type Service struct {
	mu sync.RWMutex

	// Configuration
	cfg *config.Config

	// Core components
	store      cache.Cache
	persist    sink.Sink
	fetcher    dispatch.Fetcher
	client     *leetcode.Client
	dispatcher *dispatch.Dispatcher
	scheduler  *sched.Scheduler

	// Backend handles needing explicit teardown
	redisClient *redis.Client
	pgSink      *sink.PostgresSink

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the service configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithCache replaces the cache backend, mainly for tests.
func WithCache(store cache.Cache) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithSink replaces the persistence backend, mainly for tests.
func WithSink(persist sink.Sink) Option {
	return func(s *Service) {
		s.persist = persist
	}
}

// WithFetcher replaces the upstream client, mainly for tests.
func WithFetcher(fetcher dispatch.Fetcher) Option {
	return func(s *Service) {
		s.fetcher = fetcher
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg: config.New(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting analytics service...")

	if err := s.buildCache(ctx); err != nil {
		return err
	}
	if err := s.buildSink(ctx); err != nil {
		return err
	}

	if s.fetcher == nil {
		policy := backoff.NewPolicy(
			backoff.WithBaseDelay(s.cfg.RetryBaseDelay),
			backoff.WithMultiplier(s.cfg.RetryMultiplier),
			backoff.WithMaxDelay(s.cfg.RetryMaxDelay),
			backoff.WithMaxAttempts(s.cfg.RetryMaxAttempts),
		)
		s.client = leetcode.NewClient(
			leetcode.WithBaseURL(s.cfg.UpstreamURL),
			leetcode.WithTimeout(s.cfg.UpstreamTimeout),
			leetcode.WithPolicy(policy),
			leetcode.WithAggregator(aggregate.New(
				aggregate.WithRecentLimit(s.cfg.RecentLimit),
			)),
			leetcode.WithCredentials(s.cfg.CSRFToken, s.cfg.SessionCookie),
			leetcode.WithUserAgent(s.cfg.UserAgent),
			leetcode.WithLogger(s.logger.Named("leetcode")),
		)
		s.fetcher = s.client
	}

	s.dispatcher = dispatch.NewDispatcher(s.fetcher, s.store, s.persist,
		dispatch.WithTTL(s.cfg.CacheTTL),
		dispatch.WithLogger(s.logger.Named("dispatch")),
	)

	s.scheduler = sched.New(s.dispatcher, s.trackedKeys(),
		sched.WithInterval(s.cfg.SweepInterval),
		sched.WithLogger(s.logger.Named("sched")),
	)
	s.scheduler.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "analytics service started",
		logger.Int("trackedUsers", len(s.cfg.TrackedUsers)),
		logger.Duration("sweepInterval", s.cfg.SweepInterval),
		logger.Duration("cacheTTL", s.cfg.CacheTTL),
		logger.String("cacheBackend", s.cfg.CacheBackend),
		logger.String("sinkBackend", s.cfg.SinkBackend),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping analytics service...")

	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.pgSink != nil {
		s.pgSink.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "analytics service stopped")
}

func (s *Service) buildCache(ctx context.Context) error {
	if s.store != nil {
		return nil
	}

	switch s.cfg.CacheBackend {
	case config.BackendRedis:
		redisOpts, err := redis.ParseURL(s.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		s.redisClient = redis.NewClient(redisOpts)
		if err := s.redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		s.store = cache.NewRedisCache(s.redisClient)
		s.logger.Info(ctx, "using redis cache")
	default:
		s.store = cache.NewInMemoryCache()
		s.logger.Info(ctx, "using in-memory cache")
	}

	return nil
}

func (s *Service) buildSink(ctx context.Context) error {
	if s.persist != nil {
		return nil
	}

	switch s.cfg.SinkBackend {
	case config.BackendPostgres:
		pg, err := sink.NewPostgresSink(ctx, s.cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("postgres sink: %w", err)
		}
		s.pgSink = pg
		s.persist = pg
		s.logger.Info(ctx, "using postgres sink")
	default:
		s.persist = sink.NewInMemorySink()
		s.logger.Info(ctx, "using in-memory sink")
	}

	return nil
}

func (s *Service) trackedKeys() []model.UserKey {
	keys := make([]model.UserKey, 0, len(s.cfg.TrackedUsers))
	for _, u := range s.cfg.TrackedUsers {
		if key := model.UserKey(u); key.Valid() {
			keys = append(keys, key)
		}
	}
	return keys
}

// Refresh fetches or serves the current snapshot for user.
func (s *Service) Refresh(ctx context.Context, user string) (model.ActivityRecord, error) {
	return s.dispatcher.RequestRefresh(ctx, model.UserKey(user), model.ReasonOnDemand)
}

// InvalidateUser drops the cached snapshot for user.
func (s *Service) InvalidateUser(ctx context.Context, user string) error {
	return s.dispatcher.Invalidate(ctx, model.UserKey(user))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"tracked_users":  len(s.cfg.TrackedUsers),
		"sweep_interval": s.cfg.SweepInterval.String(),
		"cache_ttl":      s.cfg.CacheTTL.String(),
		"cache_backend":  s.cfg.CacheBackend,
		"sink_backend":   s.cfg.SinkBackend,
		"timestamp":      time.Now().UTC(),
	}
	if s.dispatcher != nil {
		stats["in_flight_refreshes"] = s.dispatcher.InFlight()
	}

	return stats
}
