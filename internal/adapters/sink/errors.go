package sink

import "errors"

// Sentinel errors returned by sink backends.
var (
	ErrEmptyKey    = errors.New("record has no user key")
	ErrUnavailable = errors.New("sink unavailable")
)
