package dispatch

import "errors"

// ErrEmptyKey rejects refresh requests without a user key.
var ErrEmptyKey = errors.New("empty user key")
