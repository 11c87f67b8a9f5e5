package view

import (
	"strconv"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
)

// Icons understood by the renderers.
const (
	IconGroup    = "group"
	IconBookmark = "bookmark"
	IconFile     = "file"
	IconLink     = "link"
)

// DefaultGroupMarker is the hint shown next to the default group.
const DefaultGroupMarker = "default"

// Entry is a bookmark wrapper as it flows through the pipeline.
type Entry = tree.Wrapper[string, domain.Bookmark]

// GroupEntry is a group wrapper at the root of the tree.
type GroupEntry = tree.Wrapper[string, domain.Group]

// GroupNode is the row of a bookmark group.
type GroupNode struct {
	group domain.Group
}

// NewGroup is the root cache constructor.
func NewGroup(key string, g domain.Group) (tree.Node, error) {
	return &GroupNode{group: g}, nil
}

// Group returns the represented group.
func (n *GroupNode) Group() domain.Group { return n.group }

// Rebind implements tree.Rebinder.
func (n *GroupNode) Rebind(g domain.Group) { n.group = g }

// Presentation implements tree.Node.
func (n *GroupNode) Presentation() tree.Presentation {
	p := tree.Presentation{Icon: IconGroup, Text: n.group.Name}
	if n.group.Default {
		p.Hint = DefaultGroupMarker
	}
	return p
}

// BookmarkNode is the row of a single bookmark.
type BookmarkNode struct {
	bookmark domain.Bookmark
}

// NewBookmark is the branch cache constructor. Invalid bookmarks fail construction.
func NewBookmark(key string, b domain.Bookmark) (tree.Node, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.Kind == domain.KindFile {
		return &FileNode{BookmarkNode: BookmarkNode{bookmark: b}}, nil
	}
	return &BookmarkNode{bookmark: b}, nil
}

// Bookmark returns the represented bookmark.
func (n *BookmarkNode) Bookmark() domain.Bookmark { return n.bookmark }

// Rebind implements tree.Rebinder.
func (n *BookmarkNode) Rebind(b domain.Bookmark) { n.bookmark = b }

// Presentation implements tree.Node.
func (n *BookmarkNode) Presentation() tree.Presentation {
	b := n.bookmark
	p := tree.Presentation{Text: b.Name(), Hint: b.Description}
	switch b.Kind {
	case domain.KindURL:
		p.Icon = IconLink
	case domain.KindFile:
		p.Icon = IconFile
	default:
		p.Icon = IconBookmark
		if p.Hint == "" {
			p.Hint = b.Path + ":" + strconv.Itoa(b.Line)
		}
	}
	return p
}

// FileNode is a file row. Stages may nest the line bookmarks of the file under it.
type FileNode struct {
	BookmarkNode
	children []tree.Node
}

// NewFile creates a file row for path that no bookmark points at directly.
func NewFile(path string) *FileNode {
	return &FileNode{BookmarkNode: BookmarkNode{bookmark: domain.Bookmark{Kind: domain.KindFile, Path: path}}}
}

// Children implements tree.Parent.
func (n *FileNode) Children() []tree.Node { return n.children }

// SetChildren replaces the nested rows.
func (n *FileNode) SetChildren(children []tree.Node) { n.children = children }

// Dispose implements tree.Disposable.
func (n *FileNode) Dispose() { n.children = nil }
