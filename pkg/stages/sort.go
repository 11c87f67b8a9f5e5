package stages

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/arbor/pkg/view"
)

// SortOrder selects the Sort comparison.
type SortOrder string

const (
	ByName SortOrder = "name"
	ByPath SortOrder = "path"
	ByLine SortOrder = "line"
)

// Sort orders entries. Entries that compare equal keep their relative order.
type Sort struct {
	priority int
	compare  func(a, b *view.Entry) int
}

// NewSort creates a sort stage for the given order.
func NewSort(priority int, by SortOrder) (*Sort, error) {
	var compare func(a, b *view.Entry) int
	switch by {
	case ByName, "":
		compare = func(a, b *view.Entry) int {
			return cmp.Compare(a.Item().Name(), b.Item().Name())
		}
	case ByPath:
		compare = func(a, b *view.Entry) int {
			return cmp.Or(
				cmp.Compare(a.Item().Path, b.Item().Path),
				cmp.Compare(a.Item().Line, b.Item().Line),
			)
		}
	case ByLine:
		compare = func(a, b *view.Entry) int {
			return cmp.Or(
				cmp.Compare(a.Item().Line, b.Item().Line),
				cmp.Compare(a.Item().Path, b.Item().Path),
			)
		}
	default:
		return nil, fmt.Errorf("unknown sort order %q", by)
	}
	return &Sort{priority: priority, compare: compare}, nil
}

func (s *Sort) Priority() int { return s.priority }

func (s *Sort) Apply(ctx context.Context, entries []*view.Entry) ([]*view.Entry, error) {
	slices.SortStableFunc(entries, s.compare)
	return entries, nil
}
