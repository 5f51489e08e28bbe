package cache

import "errors"

// Sentinel errors returned by cache backends.
var (
	ErrUnavailable = errors.New("cache unavailable")
	ErrEncoding    = errors.New("cache encoding failure")
)
