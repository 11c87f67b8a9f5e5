package stages

import (
	"context"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/view"
)

// KindFilter drops every entry whose bookmark kind is not allowed.
type KindFilter struct {
	priority int
	kinds    mapset.Set[domain.Kind]
}

// NewKindFilter creates a filter keeping only the given kinds.
func NewKindFilter(priority int, kinds ...domain.Kind) *KindFilter {
	return &KindFilter{priority: priority, kinds: mapset.NewSet(kinds...)}
}

func (f *KindFilter) Priority() int { return f.priority }

func (f *KindFilter) Apply(ctx context.Context, entries []*view.Entry) ([]*view.Entry, error) {
	return slices.DeleteFunc(entries, func(e *view.Entry) bool {
		return !f.kinds.Contains(e.Item().Kind)
	}), nil
}
