package tree

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/aretw0/arbor/internal/logging"
)

// KeyFunc derives the stable key of an item.
// It must be total and deterministic for the lifetime of the cache.
type KeyFunc[K comparable, I any] func(item I) K

// Constructor builds the Node for a key seen for the first time.
// It may be expensive; the cache calls it at most once per key until the key is evicted.
type Constructor[K comparable, I any] func(key K, item I) (Node, error)

// Option configures a Cache.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report construction failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Cache maps stable keys to wrappers and reuses them across reconciliations.
type Cache[K comparable, I any] struct {
	keyOf     KeyFunc[K, I]
	construct Constructor[K, I]
	entries   map[K]*Wrapper[K, I]
	order     []K
	logger    *slog.Logger
}

// Reconciliation is the outcome of one Reconcile pass.
type Reconciliation[K comparable, I any] struct {
	// Wrappers follows the order of the input items.
	Wrappers []*Wrapper[K, I]
	Created  int
	Reused   int
	// Evicted holds the wrappers whose keys were absent from the input.
	// The owner decides when to dispose of them.
	Evicted []*Wrapper[K, I]
	// Failures holds one ErrConstruction per key that could not be built.
	Failures []error
}

// NewCache creates an empty cache.
func NewCache[K comparable, I any](keyOf KeyFunc[K, I], construct Constructor[K, I], opts ...Option) *Cache[K, I] {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, I]{
		keyOf:     keyOf,
		construct: construct,
		entries:   make(map[K]*Wrapper[K, I]),
		logger:    o.logger,
	}
}

// Reconcile synchronizes the cache with a fresh, ordered list of items.
//
// The result holds one wrapper per distinct key, in input order. Known keys keep
// their wrapper, rebound to the new item instance; unknown keys get a new wrapper.
// When a key repeats within items, its wrapper keeps the first position and
// represents the last item. Keys absent from items are evicted.
//
// Construction failures only skip their key and are listed in Failures.
// The returned error is non-nil only for ErrInvariantViolation, in which case
// the mapping is left as it was before the call.
func (c *Cache[K, I]) Reconcile(items []I) (Reconciliation[K, I], error) {
	var rec Reconciliation[K, I]

	next := make(map[K]*Wrapper[K, I], len(items))
	out := make([]*Wrapper[K, I], 0, len(items))
	var failed map[K]struct{}

	for _, item := range items {
		key := c.keyOf(item)

		if w, ok := next[key]; ok {
			w.rebind(item)
			continue
		}
		if _, ok := failed[key]; ok {
			continue
		}

		if w, ok := c.entries[key]; ok {
			w.rebind(item)
			next[key] = w
			out = append(out, w)
			rec.Reused++
			continue
		}

		node, err := c.build(key, item)
		if err != nil {
			if failed == nil {
				failed = make(map[K]struct{})
			}
			failed[key] = struct{}{}
			rec.Failures = append(rec.Failures, err)
			c.logger.Warn("Skipping item", "key", key, "err", err)
			continue
		}

		w := &Wrapper[K, I]{key: key, item: item, node: node}
		next[key] = w
		out = append(out, w)
		rec.Created++
	}

	if err := verify(out, next); err != nil {
		return Reconciliation[K, I]{}, err
	}

	for _, key := range c.order {
		if _, ok := next[key]; !ok {
			rec.Evicted = append(rec.Evicted, c.entries[key])
		}
	}

	order := make([]K, len(out))
	for i, w := range out {
		order[i] = w.key
	}
	c.entries = next
	c.order = order

	rec.Wrappers = out
	return rec, nil
}

func (c *Cache[K, I]) build(key K, item I) (node Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			node = nil
			err = fmt.Errorf("%w: key %v: panic: %v", ErrConstruction, key, r)
		}
	}()

	node, err = c.construct(key, item)
	if err != nil {
		return nil, fmt.Errorf("%w: key %v: %w", ErrConstruction, key, err)
	}
	return node, nil
}

// verify checks that every output wrapper is the single live wrapper of its key.
func verify[K comparable, I any](out []*Wrapper[K, I], live map[K]*Wrapper[K, I]) error {
	if len(out) != len(live) {
		return fmt.Errorf("%w: %d wrappers for %d keys", ErrInvariantViolation, len(out), len(live))
	}
	seen := make(map[*Wrapper[K, I]]struct{}, len(out))
	for _, w := range out {
		if live[w.key] != w {
			return fmt.Errorf("%w: duplicate wrapper for key %v", ErrInvariantViolation, w.key)
		}
		if _, dup := seen[w]; dup {
			return fmt.Errorf("%w: wrapper for key %v listed twice", ErrInvariantViolation, w.key)
		}
		seen[w] = struct{}{}
	}
	return nil
}

// Get returns the live wrapper for key.
func (c *Cache[K, I]) Get(key K) (*Wrapper[K, I], bool) {
	w, ok := c.entries[key]
	return w, ok
}

// Len returns the number of live wrappers.
func (c *Cache[K, I]) Len() int {
	return len(c.entries)
}

// Keys returns the live keys in the order of the last reconciliation.
func (c *Cache[K, I]) Keys() []K {
	return slices.Clone(c.order)
}

// Clear drops every wrapper and returns them, in last reconciliation order, for disposal.
func (c *Cache[K, I]) Clear() []*Wrapper[K, I] {
	dropped := make([]*Wrapper[K, I], 0, len(c.order))
	for _, key := range c.order {
		dropped = append(dropped, c.entries[key])
	}
	c.entries = make(map[K]*Wrapper[K, I])
	c.order = nil
	return dropped
}
