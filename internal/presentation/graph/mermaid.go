package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/tree"
	"github.com/aretw0/arbor/pkg/view"
)

// Branch is one group row with its computed children.
type Branch struct {
	Group tree.Node
	Rows  []*view.Entry
}

// GenerateMermaid produces a Mermaid flowchart of the tree.
// Shapes follow the row icon:
// - Group: ([Stadium])
// - File: [[Subroutine]]
// - Link: >Flag]
// - Bookmark: [Rectangle]
// The default group is highlighted.
func GenerateMermaid(branches []Branch) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	var defaults []string
	for i, b := range branches {
		id := fmt.Sprintf("g%d", i)
		p := b.Group.Presentation()
		writeNode(&sb, id, p)
		if p.Hint == view.DefaultGroupMarker {
			defaults = append(defaults, id)
		}
		for j, row := range b.Rows {
			writeTree(&sb, id, fmt.Sprintf("%s_%d", id, j), row.Node())
		}
	}

	if len(defaults) > 0 {
		sb.WriteString("\n    %% Default group\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef default_group fill:#d1fae5,stroke:#047857,stroke-width:2px,color:#000;\n")
		for _, id := range defaults {
			sb.WriteString(fmt.Sprintf("    class %s default_group;\n", id))
		}
	}

	return sb.String()
}

func writeTree(sb *strings.Builder, parentID, id string, n tree.Node) {
	writeNode(sb, id, n.Presentation())
	sb.WriteString(fmt.Sprintf("    %s --> %s\n", parentID, id))
	if p, ok := n.(tree.Parent); ok {
		for k, c := range p.Children() {
			writeTree(sb, id, fmt.Sprintf("%s_%d", id, k), c)
		}
	}
}

func writeNode(sb *strings.Builder, id string, p tree.Presentation) {
	opener, closer := "[", "]"
	switch p.Icon {
	case view.IconGroup:
		opener, closer = "([", "])"
	case view.IconFile:
		opener, closer = "[[", "]]"
	case view.IconLink:
		opener, closer = ">", "]"
	}
	// Escape double quotes for the Mermaid label
	label := strings.ReplaceAll(p.Text, "\"", "'")
	sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, label, closer))
}
