package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// ItemSource defines how the tree retrieves bookmarks.
// Calls are synchronous and return a consistent, point-in-time ordered sequence.
type ItemSource interface {
	// Groups lists the groups, in display order.
	Groups(ctx context.Context) ([]domain.Group, error)

	// Items returns the bookmarks of a group, in display order.
	// Returns domain.ErrGroupNotFound if the group does not exist.
	Items(ctx context.Context, group string) ([]domain.Bookmark, error)
}

// ItemStore is an ItemSource that can be written to.
type ItemStore interface {
	ItemSource

	// PutGroup creates or replaces a group and its bookmarks.
	PutGroup(ctx context.Context, group domain.Group, bookmarks []domain.Bookmark) error

	// DeleteGroup removes a group. Deleting an unknown group is not an error.
	DeleteGroup(ctx context.Context, name string) error
}

// Watchable defines an interface for sources that can notify about backend changes.
type Watchable interface {
	// Watch returns a channel that yields the name of every group that changed.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
