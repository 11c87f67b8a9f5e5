package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/aretw0/arbor/pkg/tree"
	"github.com/aretw0/arbor/pkg/view"
)

var icons = map[string]string{
	view.IconGroup:    "▸",
	view.IconFile:     "□",
	view.IconBookmark: "•",
	view.IconLink:     "↗",
}

// Printer draws tree rows as an indented outline.
type Printer struct {
	Out     io.Writer
	Profile termenv.Profile
	// Width truncates rows to the terminal width. Zero disables truncation.
	Width int
}

// NewPrinter creates a printer for w using the color profile of the terminal.
func NewPrinter(w io.Writer, width int) *Printer {
	return &Printer{Out: w, Profile: termenv.ColorProfile(), Width: width}
}

// Group prints a group row.
func (p *Printer) Group(n tree.Node) {
	p.row(0, n.Presentation(), true)
}

// Rows prints nodes one level below their group, children nested further.
func (p *Printer) Rows(nodes []tree.Node) {
	for _, n := range nodes {
		p.node(1, n)
	}
}

// Message prints a dimmed line at row depth, e.g. for an empty or failed group.
func (p *Printer) Message(format string, args ...any) {
	line := p.truncate("    " + fmt.Sprintf(format, args...))
	fmt.Fprintln(p.Out, p.Profile.String(line).Faint())
}

func (p *Printer) node(depth int, n tree.Node) {
	p.row(depth, n.Presentation(), false)
	if parent, ok := n.(tree.Parent); ok {
		for _, c := range parent.Children() {
			p.node(depth+1, c)
		}
	}
}

func (p *Printer) row(depth int, pr tree.Presentation, group bool) {
	icon, ok := icons[pr.Icon]
	if !ok {
		icon = "-"
	}
	prefix := strings.Repeat("  ", depth) + icon + " "
	text := p.truncate(prefix + pr.Text)

	var hint string
	if pr.Hint != "" {
		if room := p.Width - runewidth.StringWidth(text) - 2; p.Width == 0 || room > 0 {
			hint = pr.Hint
			if p.Width > 0 {
				hint = runewidth.Truncate(hint, room, "…")
			}
		}
	}

	label := p.Profile.String(text)
	if group {
		label = label.Bold().Foreground(p.Profile.Color("#10b981"))
	}
	if hint == "" {
		fmt.Fprintln(p.Out, label)
		return
	}
	fmt.Fprintf(p.Out, "%s  %s\n", label, p.Profile.String(hint).Foreground(p.Profile.Color("#6b7280")))
}

func (p *Printer) truncate(s string) string {
	if p.Width <= 0 {
		return s
	}
	return runewidth.Truncate(s, p.Width, "…")
}
