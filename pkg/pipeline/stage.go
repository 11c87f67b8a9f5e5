package pipeline

import "context"

// Stage transforms the ordered child list of a branch.
//
// Apply may reorder, insert, remove or annotate entries. It receives its own copy
// of the list, and must not assume it is the only stage, nor that it runs once.
// A stage holding mutable state must serialize access to it, since different
// branches may be computed concurrently.
type Stage[T any] interface {
	Priority() int
	Apply(ctx context.Context, entries []T) ([]T, error)
}

// BranchForgetter is implemented by stages that keep per-branch state.
// Forget is called when the branch is disposed.
type BranchForgetter interface {
	Forget(branchID string)
}

type stageFunc[T any] struct {
	priority int
	fn       func(ctx context.Context, entries []T) ([]T, error)
}

func (s stageFunc[T]) Priority() int { return s.priority }

func (s stageFunc[T]) Apply(ctx context.Context, entries []T) ([]T, error) {
	return s.fn(ctx, entries)
}

// NewStage adapts a function into a Stage with the given priority.
func NewStage[T any](priority int, fn func(ctx context.Context, entries []T) ([]T, error)) Stage[T] {
	return stageFunc[T]{priority: priority, fn: fn}
}

type branchKey struct{}

// ContextWithBranch returns a context carrying the ID of the branch being computed.
func ContextWithBranch(ctx context.Context, branchID string) context.Context {
	return context.WithValue(ctx, branchKey{}, branchID)
}

// BranchID returns the ID of the branch being computed, if ctx carries one.
func BranchID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(branchKey{}).(string)
	return id, ok
}
