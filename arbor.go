package arbor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/pipeline"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/refresh"
	"github.com/aretw0/arbor/pkg/stages"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/aretw0/arbor/pkg/view"
)

var (
	// ErrClosed is returned by a Tree after Close.
	ErrClosed = errors.New("tree is closed")

	// ErrNotWatchable is returned by WatchSource when the source cannot report changes.
	ErrNotWatchable = errors.New("item source does not support watching")
)

// RootBranch is the branch name RequestRefresh and Refresh use for the group list.
const RootBranch = ""

// rootLock serializes root reconciliations. Group names are never empty, so it
// cannot collide with a branch lock.
const rootLock = ":roots"

// Result is the outcome of a branch computation.
type Result = pipeline.Result[string, domain.Bookmark]

// Refresh is what Run hands to its callback for each recomputed branch.
type Refresh struct {
	// Group is the refreshed branch, or RootBranch for the group list.
	Group string
	// Roots is set when Group is RootBranch.
	Roots []*view.GroupEntry
	// Result holds the children of Group.
	Result Result
	Err    error
}

// Tree is the bookmark tree. It owns one cache per branch and serializes the
// computations of each branch; different branches compute concurrently.
type Tree struct {
	id     string
	source ports.ItemSource
	stages *stages.Registry
	runner *pipeline.Runner[string, domain.Bookmark]
	coord  *refresh.Coordinator
	filter func(domain.Bookmark) bool
	hooks  pipeline.Hooks
	locker ports.DistributedLocker
	logger *slog.Logger

	mu       sync.Mutex
	roots    *tree.Cache[string, domain.Group]
	branches map[string]*tree.Cache[string, domain.Bookmark]
	closed   bool
}

// Option defines a functional option for configuring the Tree.
type Option func(*Tree)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tree) {
		t.logger = logger
	}
}

// WithStages replaces the default stage registry.
// A registry holds per-branch state, so it must not be shared between trees.
func WithStages(reg *stages.Registry) Option {
	return func(t *Tree) {
		t.stages = reg
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks pipeline.Hooks) Option {
	return func(t *Tree) {
		t.hooks = hooks
	}
}

// WithPopup restricts every branch to line bookmarks.
func WithPopup() Option {
	return WithFilter(domain.IsLine)
}

// WithFilter sets the visibility predicate applied before reconciliation.
func WithFilter(filter func(domain.Bookmark) bool) Option {
	return func(t *Tree) {
		t.filter = filter
	}
}

// WithLocker serializes branch refreshes across replicas sharing the source.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(t *Tree) {
		t.locker = locker
	}
}

// New creates a Tree over source.
func New(source ports.ItemSource, opts ...Option) (*Tree, error) {
	if source == nil {
		return nil, fmt.Errorf("item source is required")
	}

	t := &Tree{
		id:       uuid.NewString(),
		source:   source,
		branches: make(map[string]*tree.Cache[string, domain.Bookmark]),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logging.NewNop()
	}
	t.logger = t.logger.With("tree", t.id)
	if t.stages == nil {
		t.stages = stages.Default()
	}

	coordOpts := []refresh.Option{refresh.WithLogger(t.logger)}
	if t.locker != nil {
		coordOpts = append(coordOpts, refresh.WithLocker(t.locker))
	}
	t.coord = refresh.NewCoordinator(coordOpts...)
	t.runner = pipeline.NewRunner(t.stages,
		pipeline.WithLogger(t.logger),
		pipeline.WithHooks(t.hooks),
	)
	t.roots = tree.NewCache(func(g domain.Group) string { return g.Name }, view.NewGroup, tree.WithLogger(t.logger))
	return t, nil
}

// ID identifies this Tree instance in logs.
func (t *Tree) ID() string {
	return t.id
}

// Source returns the item source the tree reads from.
func (t *Tree) Source() ports.ItemSource {
	return t.source
}

// Roots returns the group rows. Groups that are still present keep their
// wrapper; branches of groups that disappeared are disposed.
func (t *Tree) Roots(ctx context.Context) ([]*view.GroupEntry, error) {
	var roots []*view.GroupEntry
	err := t.coord.WithLock(ctx, rootLock, func(ctx context.Context) error {
		var err error
		roots, err = t.computeRoots(ctx)
		return err
	})
	return roots, err
}

func (t *Tree) computeRoots(ctx context.Context) ([]*view.GroupEntry, error) {
	if t.isClosed() {
		return nil, ErrClosed
	}
	groups, err := t.source.Groups(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: groups: %w", pipeline.ErrItemFetch, err)
	}

	rec, err := t.roots.Reconcile(groups)
	if err != nil {
		return nil, err
	}
	for _, failure := range rec.Failures {
		t.logger.Warn("Group row skipped", "err", failure)
	}
	for _, gone := range rec.Evicted {
		t.logger.Debug("Group removed", "group", gone.Key())
		if err := t.Dispose(ctx, gone.Key()); err != nil {
			t.logger.Warn("Failed to dispose removed group", "group", gone.Key(), "err", err)
		}
	}
	tree.Dispose(rec.Evicted)
	return rec.Wrappers, nil
}

// Children returns the rows of a group.
//
// A failing source yields no rows and no error; the failure is logged and
// reported through the fetch hooks. An unknown group yields domain.ErrGroupNotFound.
func (t *Tree) Children(ctx context.Context, group string) ([]*view.Entry, error) {
	res, err := t.Compute(ctx, group)
	if err != nil {
		if errors.Is(err, pipeline.ErrItemFetch) && !errors.Is(err, domain.ErrGroupNotFound) {
			return []*view.Entry{}, nil
		}
		return nil, err
	}
	return res.Children, nil
}

// Compute runs the pipeline for a group and returns everything it produced,
// including diagnostics and fetch errors.
func (t *Tree) Compute(ctx context.Context, group string) (Result, error) {
	var res Result
	err := t.coord.WithLock(ctx, group, func(ctx context.Context) error {
		var err error
		res, err = t.computeBranch(ctx, group)
		return err
	})
	return res, err
}

func (t *Tree) computeBranch(ctx context.Context, group string) (Result, error) {
	cache, created, err := t.branchCache(group)
	if err != nil {
		return Result{}, err
	}

	res, err := t.runner.ComputeChildren(ctx, pipeline.SourceFunc[domain.Bookmark](t.source.Items), pipeline.Branch[string, domain.Bookmark]{
		ID:     group,
		Filter: t.filter,
		Cache:  cache,
	})
	if err != nil {
		// A cache whose first computation failed is not kept.
		if created {
			t.dropBranchCache(group, cache)
		}
		return Result{}, err
	}
	tree.Dispose(res.Evicted)
	for _, d := range res.Diagnostics {
		t.logger.Debug("Branch diagnostic", "group", group, "err", d)
	}
	return res, nil
}

// branchCache returns the cache of group, creating it on first use. The
// boolean reports whether this call added it.
func (t *Tree) branchCache(group string) (*tree.Cache[string, domain.Bookmark], bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, false, ErrClosed
	}
	cache, ok := t.branches[group]
	if !ok {
		cache = tree.NewCache(domain.Bookmark.Key, view.NewBookmark, tree.WithLogger(t.logger.With("branch", group)))
		t.branches[group] = cache
	}
	return cache, !ok, nil
}

func (t *Tree) dropBranchCache(group string, cache *tree.Cache[string, domain.Bookmark]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.branches[group] == cache {
		delete(t.branches, group)
	}
}

// RequestRefresh queues a recomputation of group, or of the group list for
// RootBranch. It never blocks; requests for an already queued branch are folded.
func (t *Tree) RequestRefresh(group string) {
	if t.coord.Request(group) {
		t.logger.Debug("Refresh requested", "group", group)
	}
}

// Run recomputes queued branches until ctx is done and hands each outcome to onRefresh.
func (t *Tree) Run(ctx context.Context, onRefresh func(context.Context, Refresh)) error {
	return t.coord.Run(ctx, func(ctx context.Context, branch string) error {
		out := Refresh{Group: branch}
		if branch == RootBranch {
			out.Roots, out.Err = t.Roots(ctx)
		} else {
			out.Result, out.Err = t.computeBranch(ctx, branch)
		}
		if onRefresh != nil {
			onRefresh(ctx, out)
		}
		return out.Err
	})
}

// WatchSource forwards the source's change notifications into RequestRefresh
// until ctx is done or the source stops watching. Every change also refreshes
// the group list, since groups may have been added or removed.
func (t *Tree) WatchSource(ctx context.Context) error {
	w, ok := t.source.(ports.Watchable)
	if !ok {
		return ErrNotWatchable
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch source: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case group, ok := <-changes:
			if !ok {
				return ctx.Err()
			}
			t.RequestRefresh(RootBranch)
			if group != "" {
				t.RequestRefresh(group)
			}
		}
	}
}

// Dispose drops the cache of a group, disposes its nodes and lets stages
// release their state for it. The next Children call starts from scratch.
func (t *Tree) Dispose(ctx context.Context, group string) error {
	return t.coord.WithLock(ctx, group, func(ctx context.Context) error {
		t.disposeBranch(group)
		return nil
	})
}

func (t *Tree) disposeBranch(group string) {
	t.mu.Lock()
	cache, ok := t.branches[group]
	delete(t.branches, group)
	t.mu.Unlock()

	if ok {
		tree.Dispose(cache.Clear())
	}
	t.stages.Forget(group)
}

// Close disposes every branch. Later calls fail with ErrClosed.
func (t *Tree) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	groups := make([]string, 0, len(t.branches))
	for g := range t.branches {
		groups = append(groups, g)
	}
	t.mu.Unlock()

	ctx := context.Background()
	var errs []error
	for _, g := range groups {
		errs = append(errs, t.Dispose(ctx, g))
	}
	errs = append(errs, t.coord.WithLock(ctx, rootLock, func(ctx context.Context) error {
		tree.Dispose(t.roots.Clear())
		return nil
	}))
	return errors.Join(errs...)
}

func (t *Tree) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
