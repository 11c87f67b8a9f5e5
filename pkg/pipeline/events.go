package pipeline

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventReconcile    EventType = "reconcile"
	EventCompute      EventType = "compute"
	EventFetchFailure EventType = "fetch_failure"
	EventStageFailure EventType = "stage_failure"
	EventConstruction EventType = "construction_failure"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Branch    string    `json:"branch"`
}

// ReconcileEvent summarizes one cache reconciliation.
type ReconcileEvent struct {
	EventBase
	Fetched int `json:"fetched"`
	Visible int `json:"visible"`
	Created int `json:"created"`
	Reused  int `json:"reused"`
	Evicted int `json:"evicted"`
	Failed  int `json:"failed"`
}

// ComputeEvent is emitted once a branch's children are final.
type ComputeEvent struct {
	EventBase
	Children    int           `json:"children"`
	Diagnostics int           `json:"diagnostics"`
	Duration    time.Duration `json:"duration"`
}

// FailureEvent reports a fetch, stage or construction failure.
type FailureEvent struct {
	EventBase
	Stage string `json:"stage,omitempty"`
	Err   error  `json:"-"`
}

// Hooks defines callbacks for pipeline observability.
// Any of them may be nil.
type Hooks struct {
	OnReconcile           func(context.Context, *ReconcileEvent)
	OnCompute             func(context.Context, *ComputeEvent)
	OnFetchFailure        func(context.Context, *FailureEvent)
	OnStageFailure        func(context.Context, *FailureEvent)
	OnConstructionFailure func(context.Context, *FailureEvent)
}

func base(t EventType, branch string) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t, Branch: branch}
}

// MergeHooks combines several hook sets; each callback runs in argument order.
func MergeHooks(sets ...Hooks) Hooks {
	return Hooks{
		OnReconcile:           chain(sets, func(h Hooks) func(context.Context, *ReconcileEvent) { return h.OnReconcile }),
		OnCompute:             chain(sets, func(h Hooks) func(context.Context, *ComputeEvent) { return h.OnCompute }),
		OnFetchFailure:        chain(sets, func(h Hooks) func(context.Context, *FailureEvent) { return h.OnFetchFailure }),
		OnStageFailure:        chain(sets, func(h Hooks) func(context.Context, *FailureEvent) { return h.OnStageFailure }),
		OnConstructionFailure: chain(sets, func(h Hooks) func(context.Context, *FailureEvent) { return h.OnConstructionFailure }),
	}
}

func chain[E any](sets []Hooks, pick func(Hooks) func(context.Context, *E)) func(context.Context, *E) {
	var fns []func(context.Context, *E)
	for _, h := range sets {
		if fn := pick(h); fn != nil {
			fns = append(fns, fn)
		}
	}
	if len(fns) == 0 {
		return nil
	}
	return func(ctx context.Context, e *E) {
		for _, fn := range fns {
			fn(ctx, e)
		}
	}
}
