package pipeline

import (
	"cmp"
	"slices"
	"sync"
)

// NamedStage is a stage together with the name it was registered under.
type NamedStage[T any] struct {
	Name  string
	Stage Stage[T]
}

// Registry holds the stages contributed to a pipeline, in discovery order.
// It is safe for concurrent use.
type Registry[T any] struct {
	mu     sync.RWMutex
	stages []NamedStage[T]
	sorted []NamedStage[T] // nil until Stages runs after a change
}

// NewRegistry creates a new empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Register adds a stage to the registry.
// If a stage with the same name exists, it is replaced in place, keeping its discovery position.
func (r *Registry[T]) Register(name string, stage Stage[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.stages {
		if r.stages[i].Name == name {
			r.stages[i].Stage = stage
			r.sorted = nil
			return
		}
	}
	r.stages = append(r.stages, NamedStage[T]{Name: name, Stage: stage})
	r.sorted = nil
}

// Len returns the number of registered stages.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stages)
}

// Stages returns the registered stages by descending priority.
// The sort is stable, so equal priorities keep their discovery order.
// The order is computed once per registry change; callers get their own copy.
func (r *Registry[T]) Stages() []NamedStage[T] {
	r.mu.RLock()
	sorted := r.sorted
	r.mu.RUnlock()
	if sorted != nil {
		return slices.Clone(sorted)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sorted == nil {
		r.sorted = slices.Clone(r.stages)
		slices.SortStableFunc(r.sorted, func(a, b NamedStage[T]) int {
			return cmp.Compare(b.Stage.Priority(), a.Stage.Priority())
		})
	}
	return slices.Clone(r.sorted)
}

// Forget tells every stage that keeps per-branch state that the branch is gone.
func (r *Registry[T]) Forget(branchID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.stages {
		if f, ok := s.Stage.(BranchForgetter); ok {
			f.Forget(branchID)
		}
	}
}
