// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// UserKey identifies a tracked external account. Immutable once assigned.
type UserKey string

// String returns the raw key value.
func (k UserKey) String() string { return string(k) }

// Valid reports whether the key is usable as an upstream identifier.
func (k UserKey) Valid() bool { return k != "" }

// TagStat counts problems solved under one topic tag.
type TagStat struct {
	Name   string `json:"tag_name"`
	Slug   string `json:"tag_slug"`
	Solved int    `json:"problems_solved"`
}

// TagStats groups topic tags by upstream proficiency bucket.
type TagStats struct {
	Advanced     []TagStat `json:"advanced,omitempty"`
	Intermediate []TagStat `json:"intermediate,omitempty"`
	Fundamental  []TagStat `json:"fundamental,omitempty"`
}

// Solve references a recently accepted submission.
type Solve struct {
	QuestionID string    `json:"question_id"`
	Title      string    `json:"title"`
	TitleSlug  string    `json:"title_slug"`
	SolvedAt   time.Time `json:"solved_at"`
}

// ActivityRecord is the aggregated snapshot of a user's solving history.
// It is always replaced wholesale on refresh, never partially mutated.
type ActivityRecord struct {
	User         UserKey        `json:"user"`
	TotalSolved  int            `json:"total_solved"`
	ByDifficulty map[string]int `json:"by_difficulty,omitempty"`
	ByTopic      map[string]int `json:"by_topic,omitempty"`
	TagStats     TagStats       `json:"tag_stats"`
	RecentSolves []Solve        `json:"recent_solves,omitempty"`
	FetchedAt    time.Time      `json:"fetched_at"`
}

// RefreshReason states why a refresh task was created.
type RefreshReason string

// Refresh reasons.
const (
	ReasonScheduled RefreshReason = "scheduled"
	ReasonOnDemand  RefreshReason = "on-demand"
)

// RefreshTask is one request to refresh a user's aggregated record.
// Created by the scheduler or the API trigger, consumed exactly once
// by the dispatcher's in-flight set.
type RefreshTask struct {
	ID          string
	Key         UserKey
	Reason      RefreshReason
	RequestedAt time.Time
}

// NewRefreshTask builds a task with a fresh correlation id.
func NewRefreshTask(key UserKey, reason RefreshReason, now time.Time) RefreshTask {
	return RefreshTask{
		ID:          uuid.NewString(),
		Key:         key,
		Reason:      reason,
		RequestedAt: now,
	}
}
