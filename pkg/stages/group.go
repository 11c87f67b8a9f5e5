package stages

import (
	"context"

	"github.com/aretw0/arbor/pkg/pipeline"
	"github.com/aretw0/arbor/pkg/view"
)

// OwningGroup sets the owning group of every entry to the branch being computed.
type OwningGroup struct {
	priority int
}

// NewOwningGroup creates the annotation stage.
func NewOwningGroup(priority int) *OwningGroup {
	return &OwningGroup{priority: priority}
}

func (g *OwningGroup) Priority() int { return g.priority }

func (g *OwningGroup) Apply(ctx context.Context, entries []*view.Entry) ([]*view.Entry, error) {
	branch, ok := pipeline.BranchID(ctx)
	if !ok {
		return entries, nil
	}
	for _, e := range entries {
		e.SetGroup(branch)
	}
	return entries, nil
}
