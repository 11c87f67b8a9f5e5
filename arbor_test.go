package arbor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/pipeline"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/stages"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/aretw0/arbor/pkg/view"
)

func seeded(t *testing.T) *memory.Source {
	t.Helper()
	src := memory.NewSource()
	fx := ports.SampleFixture()
	for _, g := range fx.Groups {
		require.NoError(t, src.PutGroup(context.Background(), g, fx.Bookmarks[g.Name]))
	}
	return src
}

func texts[W interface{ Node() tree.Node }](ws []W) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Node().Presentation().Text
	}
	return out
}

func TestNew_RequiresSource(t *testing.T) {
	_, err := arbor.New(nil)
	assert.Error(t, err)
}

func TestTree_Roots(t *testing.T) {
	tr, err := arbor.New(seeded(t))
	require.NoError(t, err)
	defer tr.Close()
	ctx := context.Background()

	roots, err := tr.Roots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Work", "Reading", "Empty"}, texts(roots))
	assert.Equal(t, view.DefaultGroupMarker, roots[0].Node().Presentation().Hint)

	again, err := tr.Roots(ctx)
	require.NoError(t, err)
	for i := range roots {
		assert.Same(t, roots[i], again[i], "group rows keep their wrapper")
	}
}

func TestTree_Children_DefaultStages(t *testing.T) {
	tr, err := arbor.New(seeded(t))
	require.NoError(t, err)
	defer tr.Close()

	children, err := tr.Children(context.Background(), "Work")
	require.NoError(t, err)
	require.Equal(t, []string{"main.go", "go.mod"}, texts(children))

	file, ok := children[0].Node().(*view.FileNode)
	require.True(t, ok, "line bookmarks are nested under a file row")
	require.Len(t, file.Children(), 2)
	assert.Equal(t, "main.go:12", file.Children()[0].Presentation().Text)
	assert.Equal(t, "main.go:40", file.Children()[1].Presentation().Text)

	for _, c := range children {
		assert.Equal(t, "Work", c.Group())
	}
}

func TestTree_Children_IdentityAcrossRefreshes(t *testing.T) {
	src := seeded(t)
	tr, err := arbor.New(src, arbor.WithStages(stages.NewRegistry()))
	require.NoError(t, err)
	defer tr.Close()
	ctx := context.Background()

	first, err := tr.Children(ctx, "Reading")
	require.NoError(t, err)
	require.Len(t, first, 2)

	require.NoError(t, src.PutGroup(ctx, domain.Group{Name: "Reading"}, []domain.Bookmark{
		{ID: "pinned", Kind: domain.KindFile, Path: "docs/README.md"},
		{Kind: domain.KindURL, URL: "https://go.dev/doc/effective_go"},
		{Kind: domain.KindURL, URL: "https://pkg.go.dev"},
	}))

	second, err := tr.Children(ctx, "Reading")
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.Same(t, first[1], second[0], "the pinned bookmark keeps its wrapper")
	assert.Same(t, first[0], second[1])
	assert.Equal(t, "docs/README.md", second[0].Item().Path, "the wrapper holds the new item")
	assert.Equal(t, "README.md", second[0].Node().Presentation().Text)
}

func TestTree_Children_Popup(t *testing.T) {
	tr, err := arbor.New(seeded(t), arbor.WithPopup(), arbor.WithStages(stages.NewRegistry()))
	require.NoError(t, err)
	defer tr.Close()
	ctx := context.Background()

	children, err := tr.Children(ctx, "Work")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go:12", "main.go:40"}, texts(children))

	children, err = tr.Children(ctx, "Reading")
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestTree_Children_UnknownGroup(t *testing.T) {
	tr, err := arbor.New(seeded(t))
	require.NoError(t, err)
	defer tr.Close()

	_, err = tr.Children(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
}

type flakySource struct {
	*memory.Source
	mu   sync.Mutex
	fail bool
}

func (f *flakySource) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = v
}

func (f *flakySource) Items(ctx context.Context, group string) ([]domain.Bookmark, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, errors.New("backend unavailable")
	}
	return f.Source.Items(ctx, group)
}

func TestTree_Children_FetchFailure(t *testing.T) {
	src := &flakySource{Source: seeded(t)}
	var failures int
	tr, err := arbor.New(src,
		arbor.WithStages(stages.NewRegistry()),
		arbor.WithHooks(pipeline.Hooks{
			OnFetchFailure: func(ctx context.Context, e *pipeline.FailureEvent) { failures++ },
		}),
	)
	require.NoError(t, err)
	defer tr.Close()
	ctx := context.Background()

	before, err := tr.Children(ctx, "Reading")
	require.NoError(t, err)

	src.setFail(true)
	children, err := tr.Children(ctx, "Reading")
	require.NoError(t, err)
	assert.Empty(t, children)
	assert.Equal(t, 1, failures)

	_, err = tr.Compute(ctx, "Reading")
	assert.ErrorIs(t, err, pipeline.ErrItemFetch)

	src.setFail(false)
	after, err := tr.Children(ctx, "Reading")
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Same(t, before[i], after[i], "a failed fetch leaves the cache untouched")
	}
}

func TestTree_Dispose(t *testing.T) {
	tr, err := arbor.New(seeded(t))
	require.NoError(t, err)
	defer tr.Close()
	ctx := context.Background()

	first, err := tr.Children(ctx, "Work")
	require.NoError(t, err)
	require.NoError(t, tr.Dispose(ctx, "Work"))

	file := first[0].Node().(*view.FileNode)
	assert.Empty(t, file.Children(), "disposed nodes drop their children")

	second, err := tr.Children(ctx, "Work")
	require.NoError(t, err)
	assert.NotSame(t, first[0], second[0], "a disposed branch starts from scratch")
}

func TestTree_RemovedGroupIsDisposed(t *testing.T) {
	src := seeded(t)
	tr, err := arbor.New(src)
	require.NoError(t, err)
	defer tr.Close()
	ctx := context.Background()

	_, err = tr.Roots(ctx)
	require.NoError(t, err)
	first, err := tr.Children(ctx, "Work")
	require.NoError(t, err)

	require.NoError(t, src.DeleteGroup(ctx, "Work"))
	roots, err := tr.Roots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Reading", "Empty"}, texts(roots))
	assert.Empty(t, first[0].Node().(*view.FileNode).Children())
}

func TestTree_Close(t *testing.T) {
	tr, err := arbor.New(seeded(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = tr.Children(ctx, "Work")
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, err = tr.Children(ctx, "Work")
	assert.ErrorIs(t, err, arbor.ErrClosed)
	_, err = tr.Roots(ctx)
	assert.ErrorIs(t, err, arbor.ErrClosed)
}

func TestTree_RunAndWatchSource(t *testing.T) {
	src := seeded(t)
	tr, err := arbor.New(src, arbor.WithStages(stages.NewRegistry()))
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refreshes := make(chan arbor.Refresh, 16)
	go func() {
		_ = tr.Run(ctx, func(ctx context.Context, r arbor.Refresh) { refreshes <- r })
	}()

	watching := make(chan error, 1)
	go func() { watching <- tr.WatchSource(ctx) }()

	// Watch subscribes asynchronously; keep writing until a refresh arrives.
	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	seen := map[string]arbor.Refresh{}
	for len(seen) < 2 {
		select {
		case r := <-refreshes:
			seen[r.Group] = r
		case <-tick.C:
			_ = src.PutGroup(ctx, domain.Group{Name: "Later"}, []domain.Bookmark{{Kind: domain.KindURL, URL: "https://go.dev"}})
		case <-deadline:
			t.Fatalf("timeout waiting for refreshes, got %v", seen)
		}
	}

	root := seen[arbor.RootBranch]
	require.NoError(t, root.Err)
	assert.Contains(t, texts(root.Roots), "Later")

	later := seen["Later"]
	require.NoError(t, later.Err)
	assert.Equal(t, []string{"https://go.dev"}, texts(later.Result.Children))

	cancel()
	assert.ErrorIs(t, <-watching, context.Canceled)
}

func TestTree_WatchSource_NotWatchable(t *testing.T) {
	src := &flakySource{Source: seeded(t)}
	tr, err := arbor.New(struct{ ports.ItemSource }{src})
	require.NoError(t, err)
	defer tr.Close()

	assert.ErrorIs(t, tr.WatchSource(context.Background()), arbor.ErrNotWatchable)
}
