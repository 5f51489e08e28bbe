// Package leetcode implements the external data client for the upstream API.
package leetcode

import (
	"net/http"
	"time"

	"github.com/coder/quartz"

	"github.com/devquest-io/analytics/internal/domain/aggregate"
	"github.com/devquest-io/analytics/internal/domain/backoff"
	"github.com/devquest-io/analytics/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL sets the upstream base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithClock injects the clock used for retry sleeps and fetch stamps.
func WithClock(clock quartz.Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithPolicy sets the retry/backoff policy for transient failures.
func WithPolicy(p backoff.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithAggregator replaces the aggregator used to normalize raw payloads.
func WithAggregator(a *aggregate.Aggregator) Option {
	return func(c *Client) {
		if a != nil {
			c.agg = a
		}
	}
}

// WithCredentials sets the csrf token and session cookie sent upstream.
func WithCredentials(csrfToken, sessionCookie string) Option {
	return func(c *Client) {
		c.csrfToken = csrfToken
		c.sessionCookie = sessionCookie
	}
}

// WithUserAgent sets the User-Agent header sent upstream.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout bounds each individual upstream request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPageDelay sets the pause between submission pages. Zero disables
// pacing; the default stays polite to the rate-limited upstream.
func WithPageDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.pageDelay = d
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
