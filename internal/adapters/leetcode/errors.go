package leetcode

import (
	"errors"
	"fmt"
)

// Sentinel kinds for upstream client errors.
var (
	ErrEmptyKey         = errors.New("empty user key")
	ErrUnknownUser      = errors.New("unknown user")
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// FailureKind classifies an upstream failure for the retry policy.
type FailureKind string

// Failure kinds.
const (
	KindTransient FailureKind = "transient"
	KindPermanent FailureKind = "permanent"
)

// UpstreamError is a typed failure returned by the client.
type UpstreamError struct {
	Kind       FailureKind
	Status     int   // HTTP status when one was received, 0 otherwise
	RetryAfter int64 // server retry hint in seconds, 0 when absent
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("upstream %s failure (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("upstream %s failure: %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retry-eligible upstream failure.
func IsTransient(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Kind == KindTransient
}

// IsPermanent reports whether err is a terminal upstream failure.
func IsPermanent(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Kind == KindPermanent
}

func transient(status int, err error) *UpstreamError {
	return &UpstreamError{Kind: KindTransient, Status: status, Err: err}
}

func permanent(status int, err error) *UpstreamError {
	return &UpstreamError{Kind: KindPermanent, Status: status, Err: err}
}
