/*
Package arbor keeps the child lists of a bookmark tree stable across refreshes.

A Tree reads groups and bookmarks from a ports.ItemSource. Each group is a
branch; computing its children fetches the bookmarks, reconciles them against
the branch's cache so unchanged bookmarks keep their wrapper and node, and
folds the result through the registered stages by descending priority.

# Usage

	src := memory.NewSource()
	_ = src.PutGroup(ctx, domain.Group{Name: "Work", Default: true}, []domain.Bookmark{
		{Kind: domain.KindLine, Path: "main.go", Line: 12},
	})

	t, err := arbor.New(src)
	if err != nil {
		log.Fatal(err)
	}
	defer t.Close()

	groups, _ := t.Roots(ctx)
	for _, g := range groups {
		children, _ := t.Children(ctx, g.Key())
		fmt.Println(g.Node().Presentation().Text, len(children))
	}

# Refreshing

External listeners call RequestRefresh with the group that changed. Requests
are coalesced until Run recomputes the branch, one refresh per branch at a
time. WatchSource forwards change notifications of a ports.Watchable source.

# Stages

The default stages annotate each row with its owning group and nest line
bookmarks under their file. Use WithStages to supply a registry built with
stages.Build.
*/
package arbor
