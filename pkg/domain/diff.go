package domain

import (
	"maps"
	"slices"
)

// GroupState is a group together with its bookmarks, as read at one point in time.
type GroupState struct {
	Group     Group
	Bookmarks []Bookmark
}

// Snapshot maps group names to their state.
type Snapshot map[string]GroupState

// SnapshotDiff lists the groups that differ between two snapshots.
// Names are sorted.
type SnapshotDiff struct {
	Added   []string
	Removed []string
	// Changed holds groups present in both snapshots whose group fields or
	// bookmarks differ. Bookmark order counts.
	Changed []string
}

// Diff calculates the difference between oldSnap and newSnap.
// A nil oldSnap reports every group of newSnap as added (initial load).
func Diff(oldSnap, newSnap Snapshot) SnapshotDiff {
	var diff SnapshotDiff

	for _, name := range slices.Sorted(maps.Keys(newSnap)) {
		oldState, exists := oldSnap[name]
		if !exists {
			diff.Added = append(diff.Added, name)
			continue
		}
		newState := newSnap[name]
		if oldState.Group != newState.Group || !slices.Equal(oldState.Bookmarks, newState.Bookmarks) {
			diff.Changed = append(diff.Changed, name)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(oldSnap)) {
		if _, exists := newSnap[name]; !exists {
			diff.Removed = append(diff.Removed, name)
		}
	}
	return diff
}

// IsEmpty checks if the diff contains any change.
func (d SnapshotDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Refreshed returns the groups whose children need recomputing: added and
// changed ones. Removed groups only affect the group list.
func (d SnapshotDiff) Refreshed() []string {
	out := make([]string, 0, len(d.Added)+len(d.Changed))
	out = append(out, d.Added...)
	return append(out, d.Changed...)
}
