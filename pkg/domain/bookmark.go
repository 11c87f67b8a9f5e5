package domain

import (
	"fmt"
	"path"
	"strconv"
)

// Kind tells what a bookmark points at.
type Kind string

const (
	KindLine Kind = "line"
	KindFile Kind = "file"
	KindURL  Kind = "url"
)

// Group is a named collection of bookmarks.
type Group struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Default     bool   `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

// Bookmark is a single entry of a group.
type Bookmark struct {
	// ID optionally pins the bookmark's identity. When empty, Key derives it from the target.
	ID          string `json:"id,omitempty" yaml:"id,omitempty" mapstructure:"id"`
	Kind        Kind   `json:"kind" yaml:"kind" mapstructure:"kind"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
	Line        int    `json:"line,omitempty" yaml:"line,omitempty" mapstructure:"line"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

// Key returns the stable identity of the bookmark.
// Two bookmarks with the same key are the same row in the tree, whatever else changed.
func (b Bookmark) Key() string {
	if b.ID != "" {
		return b.ID
	}
	switch b.Kind {
	case KindLine:
		return string(KindLine) + ":" + b.Path + ":" + strconv.Itoa(b.Line)
	case KindURL:
		return string(KindURL) + ":" + b.URL
	default:
		return string(b.Kind) + ":" + b.Path
	}
}

// Validate checks that the bookmark carries what its kind needs.
func (b Bookmark) Validate() error {
	switch b.Kind {
	case KindLine:
		if b.Path == "" {
			return fmt.Errorf("%w: line bookmark without path", ErrInvalidBookmark)
		}
		if b.Line < 1 {
			return fmt.Errorf("%w: line bookmark %s has line %d", ErrInvalidBookmark, b.Path, b.Line)
		}
	case KindFile:
		if b.Path == "" {
			return fmt.Errorf("%w: file bookmark without path", ErrInvalidBookmark)
		}
	case KindURL:
		if b.URL == "" {
			return fmt.Errorf("%w: url bookmark without url", ErrInvalidBookmark)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidBookmark, b.Kind)
	}
	return nil
}

// Name is the short label of the bookmark target.
func (b Bookmark) Name() string {
	switch b.Kind {
	case KindURL:
		return b.URL
	case KindLine:
		return path.Base(b.Path) + ":" + strconv.Itoa(b.Line)
	default:
		return path.Base(b.Path)
	}
}

// IsLine reports whether b is a line bookmark, the only kind the popup shows.
func IsLine(b Bookmark) bool {
	return b.Kind == KindLine
}
