package ports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/domain"
)

// ContractFixture is the data an ItemSource under test was seeded with.
type ContractFixture struct {
	Groups    []domain.Group
	Bookmarks map[string][]domain.Bookmark
}

// SampleFixture returns a small fixture covering every bookmark kind.
func SampleFixture() ContractFixture {
	return ContractFixture{
		Groups: []domain.Group{
			{Name: "Work", Default: true, Description: "current task"},
			{Name: "Reading"},
			{Name: "Empty"},
		},
		Bookmarks: map[string][]domain.Bookmark{
			"Work": {
				{Kind: domain.KindLine, Path: "cmd/main.go", Line: 12, Description: "entry point"},
				{Kind: domain.KindFile, Path: "go.mod"},
				{Kind: domain.KindLine, Path: "cmd/main.go", Line: 40},
			},
			"Reading": {
				{Kind: domain.KindURL, URL: "https://go.dev/doc/effective_go"},
				{ID: "pinned", Kind: domain.KindFile, Path: "README.md"},
			},
			"Empty": {},
		},
	}
}

// RunItemSourceContract verifies that a source complies with ItemSource.
// The source must hold exactly the given fixture.
func RunItemSourceContract(t *testing.T, src ItemSource, fx ContractFixture) {
	t.Helper()
	ctx := context.Background()

	t.Run("Groups", func(t *testing.T) {
		groups, err := src.Groups(ctx)
		require.NoError(t, err)
		assert.Equal(t, fx.Groups, groups)
	})

	t.Run("Items In Order", func(t *testing.T) {
		for _, g := range fx.Groups {
			items, err := src.Items(ctx, g.Name)
			require.NoError(t, err, g.Name)
			assert.Len(t, items, len(fx.Bookmarks[g.Name]), g.Name)
			for i, want := range fx.Bookmarks[g.Name] {
				if i < len(items) {
					assert.Equal(t, want, items[i], "%s[%d]", g.Name, i)
				}
			}
		}
	})

	t.Run("Unknown Group", func(t *testing.T) {
		_, err := src.Items(ctx, "no-such-group")
		assert.ErrorIs(t, err, domain.ErrGroupNotFound)
	})

	t.Run("Results Are Copies", func(t *testing.T) {
		for _, g := range fx.Groups {
			items, err := src.Items(ctx, g.Name)
			require.NoError(t, err)
			if len(items) == 0 {
				continue
			}
			items[0].Description = "mutated by caller"

			again, err := src.Items(ctx, g.Name)
			require.NoError(t, err)
			assert.Equal(t, fx.Bookmarks[g.Name][0], again[0])
		}
	})
}

// RunItemStoreContract verifies the write side of an ItemStore, starting from an empty store.
func RunItemStoreContract(t *testing.T, store ItemStore) {
	t.Helper()
	ctx := context.Background()
	fx := SampleFixture()

	for _, g := range fx.Groups {
		require.NoError(t, store.PutGroup(ctx, g, fx.Bookmarks[g.Name]))
	}
	RunItemSourceContract(t, store, fx)

	t.Run("Replace Group", func(t *testing.T) {
		replacement := []domain.Bookmark{{Kind: domain.KindURL, URL: "https://pkg.go.dev"}}
		require.NoError(t, store.PutGroup(ctx, domain.Group{Name: "Reading", Description: "docs"}, replacement))

		items, err := store.Items(ctx, "Reading")
		require.NoError(t, err)
		assert.Equal(t, replacement, items)

		groups, err := store.Groups(ctx)
		require.NoError(t, err)
		require.Len(t, groups, len(fx.Groups))
		assert.Equal(t, domain.Group{Name: "Reading", Description: "docs"}, groups[1], "replacing keeps the group position")
	})

	t.Run("Delete Group", func(t *testing.T) {
		require.NoError(t, store.DeleteGroup(ctx, "Reading"))
		require.NoError(t, store.DeleteGroup(ctx, "Reading"))

		_, err := store.Items(ctx, "Reading")
		assert.ErrorIs(t, err, domain.ErrGroupNotFound)

		groups, err := store.Groups(ctx)
		require.NoError(t, err)
		assert.Len(t, groups, len(fx.Groups)-1)
	})
}
