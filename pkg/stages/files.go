package stages

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/pipeline"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/aretw0/arbor/pkg/view"
)

// FileGrouping nests line bookmarks under a row for their file.
//
// A file bookmark already in the list becomes that row. Otherwise a synthetic file
// row takes the position of the first line bookmark of the file. Synthetic rows
// are cached per branch, so they keep their identity across runs.
type FileGrouping struct {
	priority int

	mu       sync.Mutex
	branches map[string]*tree.Cache[string, domain.Bookmark]
}

// NewFileGrouping creates the grouping stage.
func NewFileGrouping(priority int) *FileGrouping {
	return &FileGrouping{
		priority: priority,
		branches: make(map[string]*tree.Cache[string, domain.Bookmark]),
	}
}

func (g *FileGrouping) Priority() int { return g.priority }

func (g *FileGrouping) Apply(ctx context.Context, entries []*view.Entry) ([]*view.Entry, error) {
	files := make(map[string]*view.FileNode)
	lines := make(map[string][]tree.Node)
	var missing []domain.Bookmark

	for _, e := range entries {
		b := e.Item()
		switch b.Kind {
		case domain.KindFile:
			if fn, ok := e.Node().(*view.FileNode); ok {
				files[b.Path] = fn
			}
		case domain.KindLine:
			lines[b.Path] = append(lines[b.Path], e.Node())
		}
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		b := e.Item()
		if b.Kind != domain.KindLine || seen[b.Path] {
			continue
		}
		seen[b.Path] = true
		if _, ok := files[b.Path]; !ok {
			missing = append(missing, domain.Bookmark{Kind: domain.KindFile, Path: b.Path})
		}
	}

	branch, _ := pipeline.BranchID(ctx)
	synthetic, err := g.synthesize(branch, missing)
	if err != nil {
		return nil, err
	}
	bySyntheticPath := make(map[string]*view.Entry, len(synthetic))
	for _, w := range synthetic {
		bySyntheticPath[w.Item().Path] = w
	}

	out := make([]*view.Entry, 0, len(entries))
	for _, e := range entries {
		b := e.Item()
		switch b.Kind {
		case domain.KindFile:
			if fn, ok := files[b.Path]; ok {
				fn.SetChildren(lines[b.Path])
			}
			out = append(out, e)
		case domain.KindLine:
			if w, ok := bySyntheticPath[b.Path]; ok {
				w.Node().(*view.FileNode).SetChildren(lines[b.Path])
				w.SetGroup(branch)
				out = append(out, w)
				delete(bySyntheticPath, b.Path)
			}
		default:
			out = append(out, e)
		}
	}
	return out, nil
}

func (g *FileGrouping) synthesize(branch string, files []domain.Bookmark) ([]*view.Entry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cache, ok := g.branches[branch]
	if !ok {
		cache = tree.NewCache(domain.Bookmark.Key, func(key string, b domain.Bookmark) (tree.Node, error) {
			return view.NewFile(b.Path), nil
		})
		g.branches[branch] = cache
	}

	rec, err := cache.Reconcile(files)
	if err != nil {
		return nil, fmt.Errorf("file rows of %q: %w", branch, err)
	}
	tree.Dispose(rec.Evicted)
	return rec.Wrappers, nil
}

// Forget implements pipeline.BranchForgetter.
func (g *FileGrouping) Forget(branchID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cache, ok := g.branches[branchID]; ok {
		tree.Dispose(cache.Clear())
		delete(g.branches, branchID)
	}
}
