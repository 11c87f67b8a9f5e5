package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/tui"
	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
)

// Output formats of the tree command.
const (
	FormatText    = "text"
	FormatMermaid = "mermaid"
	FormatJSON    = "json"
)

// ValidateFormat rejects unknown output formats.
func ValidateFormat(format string) error {
	switch format {
	case FormatText, FormatMermaid, FormatJSON:
		return nil
	}
	return fmt.Errorf("unknown format %q (want %s, %s or %s)", format, FormatText, FormatMermaid, FormatJSON)
}

// snapshot computes every group with its rows.
// Groups removed while the snapshot is taken are left out.
func snapshot(ctx context.Context, t *arbor.Tree) ([]graph.Branch, error) {
	roots, err := t.Roots(ctx)
	if err != nil {
		return nil, err
	}
	branches := make([]graph.Branch, 0, len(roots))
	for _, root := range roots {
		rows, err := t.Children(ctx, root.Key())
		if errors.Is(err, domain.ErrGroupNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", root.Key(), err)
		}
		branches = append(branches, graph.Branch{Group: root.Node(), Rows: rows})
	}
	return branches, nil
}

// render writes branches in the given format.
func render(w io.Writer, p *tui.Printer, format string, branches []graph.Branch) error {
	switch format {
	case FormatMermaid:
		_, err := io.WriteString(w, graph.GenerateMermaid(branches))
		return err
	case FormatJSON:
		out := make([]arborhttp.Node, len(branches))
		for i, b := range branches {
			pr := b.Group.Presentation()
			out[i] = arborhttp.Node{Key: pr.Text, Presentation: pr, Children: arborhttp.MapEntries(b.Rows)}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		renderText(p, branches)
		return nil
	}
}

func renderText(p *tui.Printer, branches []graph.Branch) {
	if len(branches) == 0 {
		p.Message("no groups")
		return
	}
	for _, b := range branches {
		p.Group(b.Group)
		if len(b.Rows) == 0 {
			p.Message("(empty)")
			continue
		}
		nodes := make([]tree.Node, len(b.Rows))
		for i, row := range b.Rows {
			nodes[i] = row.Node()
		}
		p.Rows(nodes)
	}
}
