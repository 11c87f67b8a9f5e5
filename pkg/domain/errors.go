package domain

import "errors"

// ErrGroupNotFound is returned when a group name is unknown to the item source.
var ErrGroupNotFound = errors.New("group not found")

// ErrInvalidBookmark is returned when a bookmark lacks the fields its kind requires.
var ErrInvalidBookmark = errors.New("invalid bookmark")
