package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Source implements ports.ItemStore and ports.Watchable in memory.
// Safe for concurrent use.
type Source struct {
	mu       sync.RWMutex
	groups   []domain.Group
	items    map[string][]domain.Bookmark
	watchers map[chan string]struct{}
}

// NewSource creates a new empty in-memory source.
func NewSource() *Source {
	return &Source{
		items:    make(map[string][]domain.Bookmark),
		watchers: make(map[chan string]struct{}),
	}
}

// Groups lists the groups in insertion order.
func (s *Source) Groups(ctx context.Context) ([]domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.groups), nil
}

// Items returns a copy of the group's bookmarks, so callers cannot mutate the store.
func (s *Source) Items(ctx context.Context, group string) ([]domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, ok := s.items[group]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	return slices.Clone(items), nil
}

// PutGroup creates or replaces a group. A replaced group keeps its position.
func (s *Source) PutGroup(ctx context.Context, group domain.Group, bookmarks []domain.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.groups, func(g domain.Group) bool { return g.Name == group.Name })
	if idx >= 0 {
		s.groups[idx] = group
	} else {
		s.groups = append(s.groups, group)
	}
	s.items[group.Name] = slices.Clone(bookmarks)
	s.notify(group.Name)
	return nil
}

// DeleteGroup removes a group.
func (s *Source) DeleteGroup(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[name]; !ok {
		return nil
	}
	s.groups = slices.DeleteFunc(s.groups, func(g domain.Group) bool { return g.Name == name })
	delete(s.items, name)
	s.notify(name)
	return nil
}

// Watch yields the name of every group that is put or deleted after the call.
// Slow readers miss notifications rather than block writers.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 16)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

// notify must be called with s.mu held.
func (s *Source) notify(group string) {
	for ch := range s.watchers {
		select {
		case ch <- group:
		default:
		}
	}
}
