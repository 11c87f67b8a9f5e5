package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/arbor/pkg/domain"
)

// Document is the on-disk layout of a bookmarks file.
type Document struct {
	Groups []GroupDocument `yaml:"groups" json:"groups"`
}

// GroupDocument is one group with its bookmarks.
type GroupDocument struct {
	domain.Group `yaml:",inline"`
	Bookmarks    []domain.Bookmark `yaml:"bookmarks" json:"bookmarks"`
}

// Source implements ports.ItemStore on a single YAML or JSON file.
// The file is read on every call, so edits show up on the next refresh.
// A missing file is an empty source.
type Source struct {
	Path string

	mu sync.Mutex // serializes writers
}

// New creates a source for the file at path. The extension selects the format:
// ".json" is JSON, anything else is YAML.
func New(path string) *Source {
	return &Source{Path: path}
}

// Groups lists the groups in file order.
func (s *Source) Groups(ctx context.Context) ([]domain.Group, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	groups := make([]domain.Group, len(doc.Groups))
	for i, g := range doc.Groups {
		groups[i] = g.Group
	}
	return groups, nil
}

// Items returns the bookmarks of a group in file order.
func (s *Source) Items(ctx context.Context, group string) ([]domain.Bookmark, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, g := range doc.Groups {
		if g.Name == group {
			return g.Bookmarks, nil
		}
	}
	return nil, domain.ErrGroupNotFound
}

// PutGroup creates or replaces a group and rewrites the file atomically.
func (s *Source) PutGroup(ctx context.Context, group domain.Group, bookmarks []domain.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	entry := GroupDocument{Group: group, Bookmarks: slices.Clone(bookmarks)}
	idx := slices.IndexFunc(doc.Groups, func(g GroupDocument) bool { return g.Name == group.Name })
	if idx >= 0 {
		doc.Groups[idx] = entry
	} else {
		doc.Groups = append(doc.Groups, entry)
	}
	return s.write(doc)
}

// DeleteGroup removes a group and rewrites the file atomically.
func (s *Source) DeleteGroup(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	before := len(doc.Groups)
	doc.Groups = slices.DeleteFunc(doc.Groups, func(g GroupDocument) bool { return g.Name == name })
	if len(doc.Groups) == before {
		return nil
	}
	return s.write(doc)
}

func (s *Source) isJSON() bool {
	return strings.ToLower(filepath.Ext(s.Path)) == ".json"
}

func (s *Source) read() (*Document, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("failed to read bookmarks file: %w", err)
	}

	var doc Document
	if s.isJSON() {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(s.Path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(s.Path), err)
		}
	}

	seen := make(map[string]bool, len(doc.Groups))
	for i, g := range doc.Groups {
		if g.Name == "" {
			return nil, fmt.Errorf("%s: group %d has no name", filepath.Base(s.Path), i)
		}
		if seen[g.Name] {
			return nil, fmt.Errorf("%s: group %q is defined twice", filepath.Base(s.Path), g.Name)
		}
		seen[g.Name] = true
	}
	return &doc, nil
}

// write replaces the file through a temp file in the same directory, fsync and rename.
func (s *Source) write(doc *Document) error {
	var (
		data []byte
		err  error
	)
	if s.isJSON() {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal bookmarks: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure bookmarks directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "tmp-"+filepath.Base(s.Path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Windows cannot rename over an existing file.
	if _, err := os.Stat(s.Path); err == nil {
		if err := os.Remove(s.Path); err != nil {
			return fmt.Errorf("failed to remove existing bookmarks file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
