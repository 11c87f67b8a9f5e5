package tree

import "errors"

// ErrConstruction is reported when the constructor fails for a key.
// The key is skipped for the current pass and retried on the next one.
var ErrConstruction = errors.New("wrapper construction failed")

// ErrInvariantViolation is returned when more than one live wrapper is found for a key.
// It indicates a bug in the cache, so the pass is aborted.
var ErrInvariantViolation = errors.New("tree invariant violated")
