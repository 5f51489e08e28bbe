package leetcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/devquest-io/analytics/internal/domain/backoff"
)

const profileBody = `{
	"data": {
		"matchedUser": {
			"tagProblemCounts": {
				"advanced": [{"tagName": "Dynamic Programming", "tagSlug": "dynamic-programming", "problemsSolved": 12}],
				"intermediate": [{"tagName": "Hash Table", "tagSlug": "hash-table", "problemsSolved": 30}],
				"fundamental": [{"tagName": "Array", "tagSlug": "array", "problemsSolved": 55}]
			},
			"submitStatsGlobal": {
				"acSubmissionNum": [
					{"difficulty": "All", "count": 97},
					{"difficulty": "Easy", "count": 55},
					{"difficulty": "Medium", "count": 30},
					{"difficulty": "Hard", "count": 12}
				]
			}
		}
	}
}`

const unknownUserBody = `{"data": {"matchedUser": null}}`

func submissionsPage(subs []map[string]any, hasNext bool, lastKey string) string {
	body, err := json.Marshal(map[string]any{
		"submissions_dump": subs,
		"has_next":         hasNext,
		"last_key":         lastKey,
	})
	if err != nil {
		panic(err)
	}
	return string(body)
}

func newTestClient(baseURL string, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(baseURL),
		WithPageDelay(0),
		WithPolicy(backoff.NewPolicy(
			backoff.WithBaseDelay(0),
			backoff.WithJitter(func(time.Duration) time.Duration { return 0 }),
		)),
	}
	return NewClient(append(base, opts...)...)
}

func TestFetchSuccess(t *testing.T) {
	var graphqlCalls, submissionCalls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case graphqlPath:
			graphqlCalls.Add(1)
			if got := r.Header.Get("x-csrftoken"); got != "csrf-1" {
				t.Errorf("csrf header = %q, want %q", got, "csrf-1")
			}
			if got := r.Header.Get("Cookie"); got != "LEETCODE_SESSION=abc" {
				t.Errorf("cookie header = %q, want %q", got, "LEETCODE_SESSION=abc")
			}
			fmt.Fprint(w, profileBody)
		case submissionsPath:
			n := submissionCalls.Add(1)
			switch n {
			case 1:
				if got := r.URL.Query().Get("offset"); got != "0" {
					t.Errorf("first page offset = %q, want 0", got)
				}
				fmt.Fprint(w, submissionsPage([]map[string]any{
					{"id": 1, "question_id": 10, "title": "Two Sum", "title_slug": "two-sum", "status_display": "Accepted", "timestamp": 1700000100, "lang": "go"},
					{"id": 2, "question_id": 10, "title": "Two Sum", "title_slug": "two-sum", "status_display": "Wrong Answer", "timestamp": 1700000000, "lang": "go"},
				}, true, "page-2"))
			case 2:
				if got := r.URL.Query().Get("offset"); got != "20" {
					t.Errorf("second page offset = %q, want 20", got)
				}
				if got := r.URL.Query().Get("lastkey"); got != "page-2" {
					t.Errorf("second page lastkey = %q, want page-2", got)
				}
				fmt.Fprint(w, submissionsPage([]map[string]any{
					{"id": 3, "question_id": 11, "title": "Add Two Numbers", "title_slug": "add-two-numbers", "status_display": "Accepted", "timestamp": 1700000200, "lang": "go"},
				}, false, ""))
			default:
				t.Errorf("unexpected submissions page %d", n)
			}
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithCredentials("csrf-1", "LEETCODE_SESSION=abc"))

	rec, err := client.Fetch(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if got := graphqlCalls.Load(); got != 1 {
		t.Errorf("graphql calls = %d, want 1", got)
	}
	if rec.User != "alice" {
		t.Errorf("user = %q, want alice", rec.User)
	}
	if rec.TotalSolved != 2 {
		t.Errorf("total solved = %d, want 2", rec.TotalSolved)
	}
	if len(rec.RecentSolves) != 2 || rec.RecentSolves[0].TitleSlug != "add-two-numbers" {
		t.Errorf("recent solves = %+v, want newest first", rec.RecentSolves)
	}
	if rec.ByDifficulty["easy"] != 55 || rec.ByDifficulty["hard"] != 12 {
		t.Errorf("by difficulty = %v", rec.ByDifficulty)
	}
	if _, ok := rec.ByDifficulty["all"]; ok {
		t.Errorf("aggregate difficulty row should be dropped, got %v", rec.ByDifficulty)
	}
	if len(rec.TagStats.Fundamental) != 1 || rec.TagStats.Fundamental[0].Slug != "array" {
		t.Errorf("fundamental tags = %+v", rec.TagStats.Fundamental)
	}
	if rec.ByTopic["array"] != 55 {
		t.Errorf("topic counts = %v", rec.ByTopic)
	}
}

func TestFetchRetriesTransientThenSucceeds(t *testing.T) {
	var graphqlCalls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case graphqlPath:
			if graphqlCalls.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, profileBody)
		case submissionsPath:
			fmt.Fprint(w, submissionsPage(nil, false, ""))
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	if _, err := client.Fetch(context.Background(), "alice"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := graphqlCalls.Load(); got != 3 {
		t.Errorf("graphql calls = %d, want 3", got)
	}
}

func TestFetchRetriesExhausted(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Fetch(context.Background(), "alice")
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("err = %v, want ErrRetriesExhausted", err)
	}
	if !IsTransient(err) {
		t.Errorf("exhaustion should preserve the transient classification: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestFetchPermanentFailsFast(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Fetch(context.Background(), "alice")
	if !IsPermanent(err) {
		t.Fatalf("err = %v, want permanent", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (no retries on permanent failures)", got)
	}
}

func TestFetchUnknownUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, unknownUserBody)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Fetch(context.Background(), "nobody")
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("err = %v, want ErrUnknownUser", err)
	}
	if !IsPermanent(err) {
		t.Errorf("unknown user should be permanent: %v", err)
	}
}

func TestFetchEmptyKey(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0")

	if _, err := client.Fetch(context.Background(), ""); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("err = %v, want ErrEmptyKey", err)
	}
}

func TestFetchHonorsRetryAfter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var graphqlCalls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case graphqlPath:
			if graphqlCalls.Add(1) == 1 {
				w.Header().Set("Retry-After", "7")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, profileBody)
		case submissionsPath:
			fmt.Fprint(w, submissionsPage(nil, false, ""))
		}
	}))
	defer server.Close()

	mClock := quartz.NewMock(t)
	trap := mClock.Trap().NewTimer()
	defer trap.Close()

	// A large computed delay proves the server hint takes precedence.
	client := newTestClient(server.URL,
		WithClock(mClock),
		WithPolicy(backoff.NewPolicy(
			backoff.WithBaseDelay(time.Minute),
			backoff.WithJitter(func(time.Duration) time.Duration { return 0 }),
		)),
	)

	errCh := make(chan error, 1)
	go func() {
		_, err := client.Fetch(ctx, "alice")
		errCh <- err
	}()

	call := trap.MustWait(ctx)
	if call.Duration != 7*time.Second {
		t.Errorf("retry delay = %v, want 7s from the Retry-After hint", call.Duration)
	}
	call.MustRelease(ctx)
	mClock.Advance(7 * time.Second).MustWait(ctx)

	if err := <-errCh; err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := graphqlCalls.Load(); got != 2 {
		t.Errorf("graphql calls = %d, want 2", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		value string
		want  int64
	}{
		{name: "seconds", value: "7", want: 7},
		{name: "absent", value: "", want: 0},
		{name: "negative", value: "-3", want: 0},
		{name: "http date", value: now.Add(30 * time.Second).Format(http.TimeFormat), want: 30},
		{name: "past date", value: now.Add(-time.Minute).Format(http.TimeFormat), want: 0},
		{name: "garbage", value: "soon", want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseRetryAfter(tc.value, now); got != tc.want {
				t.Errorf("parseRetryAfter(%q) = %d, want %d", tc.value, got, tc.want)
			}
		})
	}
}
