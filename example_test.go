package arbor_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/stages"
	"github.com/aretw0/arbor/pkg/tree"
)

// ExampleNew builds a tree over an in-memory source and prints one group.
// Line bookmarks of the same file are nested under a row for the file.
func ExampleNew() {
	ctx := context.Background()

	src := memory.NewSource()
	err := src.PutGroup(ctx, domain.Group{Name: "Work", Default: true}, []domain.Bookmark{
		{Kind: domain.KindLine, Path: "cmd/main.go", Line: 12},
		{Kind: domain.KindURL, URL: "https://go.dev"},
		{Kind: domain.KindLine, Path: "cmd/main.go", Line: 40},
	})
	if err != nil {
		log.Fatal(err)
	}

	t, err := arbor.New(src)
	if err != nil {
		log.Fatal(err)
	}
	defer t.Close()

	children, err := t.Children(ctx, "Work")
	if err != nil {
		log.Fatal(err)
	}
	for _, c := range children {
		fmt.Println(c.Node().Presentation().Text)
		if p, ok := c.Node().(tree.Parent); ok {
			for _, n := range p.Children() {
				fmt.Println("  " + n.Presentation().Text)
			}
		}
	}

	// Output:
	// main.go
	//   main.go:12
	//   main.go:40
	// https://go.dev
}

// ExampleWithStages configures the pipeline the way arbor.yaml does.
func ExampleWithStages() {
	ctx := context.Background()

	src := memory.NewSource()
	_ = src.PutGroup(ctx, domain.Group{Name: "Reading"}, []domain.Bookmark{
		{Kind: domain.KindFile, Path: "b.md"},
		{Kind: domain.KindURL, URL: "https://go.dev"},
		{Kind: domain.KindFile, Path: "a.md"},
	})

	reg, err := stages.Build([]stages.Spec{
		{Name: stages.NameKinds, Options: map[string]any{"kinds": []string{"file"}}},
		{Name: stages.NameSort, Options: map[string]any{"by": "name"}},
	})
	if err != nil {
		log.Fatal(err)
	}

	t, err := arbor.New(src, arbor.WithStages(reg))
	if err != nil {
		log.Fatal(err)
	}
	defer t.Close()

	children, _ := t.Children(ctx, "Reading")
	for _, c := range children {
		fmt.Println(c.Node().Presentation().Text)
	}

	// Output:
	// a.md
	// b.md
}
