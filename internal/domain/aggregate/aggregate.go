// Package aggregate normalizes raw upstream activity into ActivityRecord snapshots.
package aggregate

import (
	"sort"
	"strconv"
	"time"

	"github.com/devquest-io/analytics/internal/domain/model"
)

// Default aggregation configuration constants.
const (
	defaultRecentLimit = 10

	statusAccepted = "Accepted"
)

// Submission is one raw submission entry as reported by the upstream API.
type Submission struct {
	ID            int64
	QuestionID    int64
	Title         string
	TitleSlug     string
	StatusDisplay string
	Timestamp     int64 // unix seconds
	Lang          string
}

// Accepted reports whether the submission passed all tests upstream.
func (s Submission) Accepted() bool { return s.StatusDisplay == statusAccepted }

// Aggregator builds ActivityRecord snapshots from raw upstream data.
// It is pure: no clock, no I/O; the caller supplies the fetch time.
type Aggregator struct {
	recentLimit int
}

// New creates an Aggregator with configuration options.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		recentLimit: defaultRecentLimit,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Build collapses raw submissions and tag statistics into a wholesale
// ActivityRecord replacement for key.
//
// Submissions collapse to one entry per question; a question counts as
// solved when any of its submissions was accepted. Topic counts flatten
// the tag buckets by slug. Difficulty counts are passed through from the
// upstream profile query.
func (a *Aggregator) Build(
	key model.UserKey,
	subs []Submission,
	tags model.TagStats,
	byDifficulty map[string]int,
	now time.Time,
) model.ActivityRecord {
	type question struct {
		latest Submission // newest submission for the question
		solved Submission // newest accepted submission, if any
		ok     bool       // solved is set
	}

	questions := make(map[int64]*question)
	for _, sub := range subs {
		q, ok := questions[sub.QuestionID]
		if !ok {
			q = &question{latest: sub}
			questions[sub.QuestionID] = q
		} else if sub.Timestamp > q.latest.Timestamp {
			q.latest = sub
		}
		if sub.Accepted() && (!q.ok || sub.Timestamp > q.solved.Timestamp) {
			q.solved = sub
			q.ok = true
		}
	}

	var solves []model.Solve
	for _, q := range questions {
		if !q.ok {
			continue
		}
		solves = append(solves, model.Solve{
			QuestionID: strconv.FormatInt(q.solved.QuestionID, 10),
			Title:      q.solved.Title,
			TitleSlug:  q.solved.TitleSlug,
			SolvedAt:   time.Unix(q.solved.Timestamp, 0).UTC(),
		})
	}
	sort.Slice(solves, func(i, j int) bool {
		return solves[i].SolvedAt.After(solves[j].SolvedAt)
	})

	total := len(solves)
	if a.recentLimit > 0 && len(solves) > a.recentLimit {
		solves = solves[:a.recentLimit]
	}

	return model.ActivityRecord{
		User:         key,
		TotalSolved:  total,
		ByDifficulty: copyCounts(byDifficulty),
		ByTopic:      topicCounts(tags),
		TagStats:     tags,
		RecentSolves: solves,
		FetchedAt:    now.UTC(),
	}
}

// topicCounts flattens the proficiency buckets into one slug -> solved map.
func topicCounts(tags model.TagStats) map[string]int {
	buckets := [][]model.TagStat{tags.Advanced, tags.Intermediate, tags.Fundamental}
	counts := make(map[string]int)
	for _, bucket := range buckets {
		for _, tag := range bucket {
			counts[tag.Slug] = tag.Solved
		}
	}
	if len(counts) == 0 {
		return nil
	}
	return counts
}

func copyCounts(in map[string]int) map[string]int {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
