package loam

import (
	"github.com/aretw0/arbor/pkg/domain"
)

// GroupMetadata is the frontmatter of a group document.
// The document body, when present, is the group description.
type GroupMetadata struct {
	// Name defaults to the document ID without extension.
	Name        string `json:"name" mapstructure:"name"`
	Default     bool   `json:"default" mapstructure:"default"`
	Description string `json:"description" mapstructure:"description"`

	// Order places the group among its siblings; ties fall back to the name.
	Order int `json:"order" mapstructure:"order"`

	Bookmarks []domain.Bookmark `json:"bookmarks" mapstructure:"bookmarks"`
}
