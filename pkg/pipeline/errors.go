package pipeline

import "errors"

// ErrItemFetch is returned when the item source cannot produce a branch's items.
// The branch then has no children and its cache is left untouched.
var ErrItemFetch = errors.New("item fetch failed")

// ErrStage is reported when a stage returns an error or panics.
// The stage's output is discarded; the computation continues.
var ErrStage = errors.New("stage failed")
