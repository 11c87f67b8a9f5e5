package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/tree"
)

// Source produces the current, ordered items of a branch.
type Source[I any] interface {
	Items(ctx context.Context, branchID string) ([]I, error)
}

// SourceFunc adapts a function into a Source.
type SourceFunc[I any] func(ctx context.Context, branchID string) ([]I, error)

// Items calls f.
func (f SourceFunc[I]) Items(ctx context.Context, branchID string) ([]I, error) {
	return f(ctx, branchID)
}

// Branch is the computation context of one branch node.
type Branch[K comparable, I any] struct {
	ID string
	// Filter reports whether an item is visible in the branch's presentation context.
	// A nil Filter shows every item.
	Filter func(I) bool
	// Cache is owned by the branch and must not be shared with other branches.
	Cache *tree.Cache[K, I]
}

// Result holds the children of a branch and what went wrong without failing it.
type Result[K comparable, I any] struct {
	Children []*tree.Wrapper[K, I]
	// Evicted wrappers left the branch during this computation; the owner disposes of them.
	Evicted     []*tree.Wrapper[K, I]
	Diagnostics []error
}

// Option configures a Runner.
type Option func(*config)

type config struct {
	logger *slog.Logger
	hooks  Hooks
}

// WithLogger sets a structured logger for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks Hooks) Option {
	return func(c *config) {
		c.hooks = hooks
	}
}

// Runner orchestrates fetch, filter, reconcile and the stage fold.
// It holds no per-branch state; callers serialize computations of the same branch.
type Runner[K comparable, I any] struct {
	stages *Registry[*tree.Wrapper[K, I]]
	logger *slog.Logger
	hooks  Hooks
}

// NewRunner creates a runner over the given stage registry.
// A nil registry means no stages.
func NewRunner[K comparable, I any](stages *Registry[*tree.Wrapper[K, I]], opts ...Option) *Runner[K, I] {
	c := config{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&c)
	}
	if stages == nil {
		stages = NewRegistry[*tree.Wrapper[K, I]]()
	}
	return &Runner[K, I]{
		stages: stages,
		logger: c.logger,
		hooks:  c.hooks,
	}
}

// Stages returns the registry the runner folds through.
func (r *Runner[K, I]) Stages() *Registry[*tree.Wrapper[K, I]] {
	return r.stages
}

// ComputeChildren returns the visible children of a branch.
//
// A fetch failure yields an error wrapping ErrItemFetch and leaves the cache
// untouched. A broken cache invariant yields tree.ErrInvariantViolation. Any other
// failure (construction, stage) is listed in Result.Diagnostics.
func (r *Runner[K, I]) ComputeChildren(ctx context.Context, src Source[I], branch Branch[K, I]) (Result[K, I], error) {
	if branch.Cache == nil {
		return Result[K, I]{}, fmt.Errorf("branch %q has no cache", branch.ID)
	}
	start := time.Now()
	ctx = ContextWithBranch(ctx, branch.ID)
	logger := r.logger.With("branch", branch.ID)

	items, err := src.Items(ctx, branch.ID)
	if err != nil {
		err = fmt.Errorf("%w: branch %q: %w", ErrItemFetch, branch.ID, err)
		logger.Warn("Fetching items failed, branch shown empty", "err", err)
		if r.hooks.OnFetchFailure != nil {
			r.hooks.OnFetchFailure(ctx, &FailureEvent{EventBase: base(EventFetchFailure, branch.ID), Err: err})
		}
		return Result[K, I]{}, err
	}

	visible := items
	if branch.Filter != nil {
		visible = slices.DeleteFunc(slices.Clone(items), func(it I) bool { return !branch.Filter(it) })
	}

	rec, err := branch.Cache.Reconcile(visible)
	if err != nil {
		logger.Error("Reconciliation aborted", "err", err)
		return Result[K, I]{}, err
	}

	res := Result[K, I]{Evicted: rec.Evicted}
	for _, failure := range rec.Failures {
		res.Diagnostics = append(res.Diagnostics, failure)
		if r.hooks.OnConstructionFailure != nil {
			r.hooks.OnConstructionFailure(ctx, &FailureEvent{EventBase: base(EventConstruction, branch.ID), Err: failure})
		}
	}
	if r.hooks.OnReconcile != nil {
		r.hooks.OnReconcile(ctx, &ReconcileEvent{
			EventBase: base(EventReconcile, branch.ID),
			Fetched:   len(items),
			Visible:   len(visible),
			Created:   rec.Created,
			Reused:    rec.Reused,
			Evicted:   len(rec.Evicted),
			Failed:    len(rec.Failures),
		})
	}
	logger.Debug("Reconciled",
		"fetched", len(items),
		"visible", len(visible),
		"created", rec.Created,
		"reused", rec.Reused,
		"evicted", len(rec.Evicted),
	)

	res.Children = r.fold(ctx, logger, branch.ID, rec.Wrappers, &res)

	if r.hooks.OnCompute != nil {
		r.hooks.OnCompute(ctx, &ComputeEvent{
			EventBase:   base(EventCompute, branch.ID),
			Children:    len(res.Children),
			Diagnostics: len(res.Diagnostics),
			Duration:    time.Since(start),
		})
	}
	return res, nil
}

func (r *Runner[K, I]) fold(ctx context.Context, logger *slog.Logger, branchID string, entries []*tree.Wrapper[K, I], res *Result[K, I]) []*tree.Wrapper[K, I] {
	for _, s := range r.stages.Stages() {
		restore := tree.SaveMarks(entries)
		out, err := apply(ctx, s, slices.Clone(entries))
		if err != nil {
			restore()
			res.Diagnostics = append(res.Diagnostics, err)
			logger.Warn("Stage failed, keeping its input", "stage", s.Name, "err", err)
			if r.hooks.OnStageFailure != nil {
				r.hooks.OnStageFailure(ctx, &FailureEvent{EventBase: base(EventStageFailure, branchID), Stage: s.Name, Err: err})
			}
			continue
		}
		entries = out
	}
	return entries
}

func apply[T any](ctx context.Context, s NamedStage[T], entries []T) (out []T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("%w: %s: panic: %v", ErrStage, s.Name, rec)
		}
	}()

	out, err = s.Stage.Apply(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStage, s.Name, err)
	}
	return out, nil
}
