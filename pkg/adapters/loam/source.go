package loam

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/arbor/pkg/domain"
)

// Source adapts a Loam repository to ports.ItemSource and ports.Watchable.
// Every document is one group.
type Source struct {
	Repo *loam.TypedRepository[GroupMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[GroupMetadata]) *Source {
	return &Source{
		Repo: repo,
	}
}

type groupDoc struct {
	id    string
	group domain.Group
	meta  GroupMetadata
}

func (s *Source) load(ctx context.Context) ([]groupDoc, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string, len(docs))
	groups := make([]groupDoc, 0, len(docs))
	for _, doc := range docs {
		name := groupName(doc.ID, doc.Data)
		if existing, ok := seen[name]; ok {
			return nil, fmt.Errorf("collision detected: group '%s' is defined in both '%s' and '%s'", name, existing, doc.ID)
		}
		seen[name] = doc.ID

		description := doc.Data.Description
		if description == "" {
			description = strings.TrimSpace(doc.Content)
		}
		groups = append(groups, groupDoc{
			id: doc.ID,
			group: domain.Group{
				Name:        name,
				Default:     doc.Data.Default,
				Description: description,
			},
			meta: doc.Data,
		})
	}

	slices.SortStableFunc(groups, func(a, b groupDoc) int {
		if c := cmp.Compare(a.meta.Order, b.meta.Order); c != 0 {
			return c
		}
		return strings.Compare(a.group.Name, b.group.Name)
	})
	return groups, nil
}

// Groups lists the groups by their order field, then by name.
func (s *Source) Groups(ctx context.Context) ([]domain.Group, error) {
	docs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	groups := make([]domain.Group, len(docs))
	for i, d := range docs {
		groups[i] = d.group
	}
	return groups, nil
}

// Items returns the bookmarks listed in the group's frontmatter.
func (s *Source) Items(ctx context.Context, group string) ([]domain.Bookmark, error) {
	docs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.group.Name == group {
			return slices.Clone(d.meta.Bookmarks), nil
		}
	}
	return nil, domain.ErrGroupNotFound
}

// Watch implements ports.Watchable. It yields the name of the group whose
// document changed. Deleted documents resolve to their ID without extension.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	events, err := s.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				name := trimExtension(evt.ID)
				if doc, err := s.Repo.Get(ctx, evt.ID); err == nil {
					name = groupName(doc.ID, doc.Data)
				}
				select {
				case ch <- name:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

func groupName(docID string, meta GroupMetadata) string {
	if meta.Name != "" {
		return meta.Name
	}
	return trimExtension(docID)
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
