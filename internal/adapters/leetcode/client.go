// Package leetcode implements the external data client for the upstream API.
//
// The client is a purely functional translation of upstream responses into
// ActivityRecord snapshots: one GraphQL profile query plus a paginated walk
// of the submissions endpoint, with retry/backoff applied per request.
package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coder/quartz"

	"github.com/devquest-io/analytics/internal/domain/aggregate"
	"github.com/devquest-io/analytics/internal/domain/backoff"
	"github.com/devquest-io/analytics/internal/domain/model"
	"github.com/devquest-io/analytics/pkg/logger"
	"github.com/devquest-io/analytics/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultBaseURL   = "https://leetcode.com"
	defaultUserAgent = "DevQuest.IO Analytics Service"
	defaultTimeout   = 15 * time.Second
	defaultPageDelay = 2 * time.Second

	submissionsPageSize = 20
	graphqlPath         = "/graphql/"
	submissionsPath     = "/api/submissions/"
)

// skillStatsQuery fetches per-tag solve counts and global accepted-submission
// counts for one user in a single round trip.
const skillStatsQuery = `
query skillStats($username: String!) {
  matchedUser(username: $username) {
    tagProblemCounts {
      advanced { tagName tagSlug problemsSolved }
      intermediate { tagName tagSlug problemsSolved }
      fundamental { tagName tagSlug problemsSolved }
    }
    submitStatsGlobal {
      acSubmissionNum { difficulty count }
    }
  }
}`

// Client issues authenticated requests to the upstream API and normalizes
// responses into ActivityRecord snapshots.
type Client struct {
	baseURL       string
	http          *http.Client
	clock         quartz.Clock
	policy        backoff.Policy
	agg           *aggregate.Aggregator
	csrfToken     string
	sessionCookie string
	userAgent     string
	timeout       time.Duration
	pageDelay     time.Duration

	logger logger.Logger
}

// NewClient creates a new upstream client with configuration options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		http:      &http.Client{},
		clock:     quartz.NewReal(),
		policy:    backoff.NewPolicy(),
		agg:       aggregate.New(),
		userAgent: defaultUserAgent,
		timeout:   defaultTimeout,
		pageDelay: defaultPageDelay,
		logger:    logger.Get().Named("leetcode"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch retrieves and aggregates the activity snapshot for key.
// Transient upstream failures are retried internally; permanent failures
// and retry exhaustion surface as typed errors.
func (c *Client) Fetch(ctx context.Context, key model.UserKey) (model.ActivityRecord, error) {
	if !key.Valid() {
		return model.ActivityRecord{}, ErrEmptyKey
	}

	profile, err := c.fetchProfile(ctx, key)
	if err != nil {
		return model.ActivityRecord{}, fmt.Errorf("fetch profile for %q: %w", key, err)
	}

	subs, err := c.fetchSubmissions(ctx)
	if err != nil {
		return model.ActivityRecord{}, fmt.Errorf("fetch submissions for %q: %w", key, err)
	}

	return c.agg.Build(key, subs, profile.tags, profile.byDifficulty, c.clock.Now()), nil
}

// profileData is the normalized result of the GraphQL profile query.
type profileData struct {
	tags         model.TagStats
	byDifficulty map[string]int
}

func (c *Client) fetchProfile(ctx context.Context, key model.UserKey) (profileData, error) {
	body, err := json.Marshal(map[string]any{
		"query":     skillStatsQuery,
		"variables": map[string]any{"username": key.String()},
	})
	if err != nil {
		return profileData{}, fmt.Errorf("encode query: %w", err)
	}

	var resp skillStatsResponse
	err = c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.baseURL+graphqlPath, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, &resp)
	if err != nil {
		return profileData{}, err
	}

	if len(resp.Errors) > 0 {
		return profileData{}, permanent(http.StatusOK, fmt.Errorf("graphql errors: %s", resp.Errors[0].Message))
	}
	matched := resp.Data.MatchedUser
	if matched == nil {
		return profileData{}, permanent(http.StatusOK, fmt.Errorf("%w: %q", ErrUnknownUser, key))
	}

	byDifficulty := make(map[string]int)
	for _, row := range matched.SubmitStatsGlobal.AcSubmissionNum {
		if strings.EqualFold(row.Difficulty, "All") {
			continue
		}
		byDifficulty[strings.ToLower(row.Difficulty)] = row.Count
	}

	return profileData{
		tags: model.TagStats{
			Advanced:     convertTags(matched.TagProblemCounts.Advanced),
			Intermediate: convertTags(matched.TagProblemCounts.Intermediate),
			Fundamental:  convertTags(matched.TagProblemCounts.Fundamental),
		},
		byDifficulty: byDifficulty,
	}, nil
}

// fetchSubmissions walks the paginated submissions endpoint until the
// upstream reports no further pages.
func (c *Client) fetchSubmissions(ctx context.Context) ([]aggregate.Submission, error) {
	var all []aggregate.Submission
	offset := 0
	lastKey := ""

	for {
		params := url.Values{}
		params.Set("offset", strconv.Itoa(offset))
		params.Set("limit", strconv.Itoa(submissionsPageSize))
		if lastKey != "" {
			params.Set("lastkey", lastKey)
		}

		var page submissionsResponse
		err := c.doWithRetry(ctx, func() (*http.Request, error) {
			return http.NewRequest(http.MethodGet, c.baseURL+submissionsPath+"?"+params.Encode(), nil)
		}, &page)
		if err != nil {
			return nil, err
		}

		if len(page.SubmissionsDump) == 0 {
			break
		}
		for _, sub := range page.SubmissionsDump {
			all = append(all, aggregate.Submission{
				ID:            sub.ID,
				QuestionID:    sub.QuestionID,
				Title:         sub.Title,
				TitleSlug:     sub.TitleSlug,
				StatusDisplay: sub.StatusDisplay,
				Timestamp:     sub.Timestamp,
				Lang:          sub.Lang,
			})
		}

		if !page.HasNext {
			break
		}
		lastKey = page.LastKey
		offset += submissionsPageSize

		// Pace page requests so a deep history does not trip the rate limit.
		if err := c.sleep(ctx, c.pageDelay); err != nil {
			return nil, err
		}
	}

	return all, nil
}

// doWithRetry issues one logical request, retrying transient failures per
// the backoff policy. A server Retry-After hint overrides the computed delay.
func (c *Client) doWithRetry(ctx context.Context, build func() (*http.Request, error), out any) error {
	attempts := c.policy.MaxAttempts()
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			metrics.RecordUpstreamRetry()
		}

		err := c.doOnce(ctx, build, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) {
			metrics.RecordUpstreamFailure(string(KindPermanent))
			return err
		}
		if !IsTransient(err) {
			// Context cancellation and other local failures are not retried.
			return err
		}
		if attempt == attempts-1 {
			break
		}

		delay := c.policy.Delay(attempt)
		var ue *UpstreamError
		if errors.As(err, &ue) && ue.RetryAfter > 0 {
			delay = time.Duration(ue.RetryAfter) * time.Second
		}
		c.logger.Warn(ctx, "transient upstream failure; retrying",
			logger.Int("attempt", attempt+1),
			logger.Duration("delay", delay),
			logger.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}

	metrics.RecordUpstreamFailure(string(KindTransient))
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr)
}

// doOnce performs a single upstream attempt and classifies its outcome.
func (c *Client) doOnce(ctx context.Context, build func() (*http.Request, error), out any) error {
	metrics.RecordUpstreamAttempt()

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := build()
	if err != nil {
		return permanent(0, fmt.Errorf("build request: %w", err))
	}
	req = req.WithContext(attemptCtx)
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.RecordUpstreamLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("upstream request aborted: %w", ctx.Err())
		}
		// Timeouts and connection resets are retry-eligible.
		return transient(0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		ue := transient(resp.StatusCode, errors.New("rate limited"))
		ue.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), c.clock.Now())
		return ue
	case resp.StatusCode >= http.StatusInternalServerError:
		return transient(resp.StatusCode, fmt.Errorf("server error: %s", resp.Status))
	case resp.StatusCode != http.StatusOK:
		return permanent(resp.StatusCode, fmt.Errorf("unexpected status: %s", resp.Status))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return permanent(resp.StatusCode, fmt.Errorf("malformed response: %w", err))
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", c.baseURL)
	if c.csrfToken != "" {
		req.Header.Set("x-csrftoken", c.csrfToken)
	}
	if c.sessionCookie != "" {
		req.Header.Set("Cookie", c.sessionCookie)
	}
}

// sleep waits for d on the injected clock, abortable by ctx.
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := c.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("retry wait aborted: %w", ctx.Err())
	}
}

// parseRetryAfter returns the server retry hint in seconds, 0 when absent
// or unparseable. Both delta-seconds and HTTP-date forms are accepted.
func parseRetryAfter(v string, now time.Time) int64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs < 0 {
			return 0
		}
		return secs
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return int64(d.Round(time.Second) / time.Second)
		}
	}
	return 0
}

// Wire types mirroring the upstream response shapes.

type skillStatsResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Data struct {
		MatchedUser *struct {
			TagProblemCounts struct {
				Advanced     []tagCount `json:"advanced"`
				Intermediate []tagCount `json:"intermediate"`
				Fundamental  []tagCount `json:"fundamental"`
			} `json:"tagProblemCounts"`
			SubmitStatsGlobal struct {
				AcSubmissionNum []struct {
					Difficulty string `json:"difficulty"`
					Count      int    `json:"count"`
				} `json:"acSubmissionNum"`
			} `json:"submitStatsGlobal"`
		} `json:"matchedUser"`
	} `json:"data"`
}

type tagCount struct {
	TagName        string `json:"tagName"`
	TagSlug        string `json:"tagSlug"`
	ProblemsSolved int    `json:"problemsSolved"`
}

func convertTags(in []tagCount) []model.TagStat {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.TagStat, len(in))
	for i, tag := range in {
		out[i] = model.TagStat{Name: tag.TagName, Slug: tag.TagSlug, Solved: tag.ProblemsSolved}
	}
	return out
}

type submissionsResponse struct {
	SubmissionsDump []struct {
		ID            int64  `json:"id"`
		QuestionID    int64  `json:"question_id"`
		Title         string `json:"title"`
		TitleSlug     string `json:"title_slug"`
		StatusDisplay string `json:"status_display"`
		Timestamp     int64  `json:"timestamp"`
		Lang          string `json:"lang"`
	} `json:"submissions_dump"`
	HasNext bool   `json:"has_next"`
	LastKey string `json:"last_key"`
}
