package file

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch implements ports.Watchable. Every change to the file reports all of
// its groups, since any of them may have been edited. If the file cannot be
// parsed after a change, an empty name is reported so that only the group
// list is refreshed.
//
// The parent directory is watched rather than the file, so editors that
// replace the file by renaming keep being followed.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	dir := filepath.Dir(s.Path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.Path)
	out := make(chan string)
	go func() {
		defer close(out)
		defer w.Close()

		send := func(name string) bool {
			select {
			case out <- name:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op == fsnotify.Chmod {
					continue
				}
				groups, err := s.Groups(ctx)
				if err != nil || len(groups) == 0 {
					if !send("") {
						return
					}
					continue
				}
				for _, g := range groups {
					if !send(g.Name) {
						return
					}
				}
			}
		}
	}()
	return out, nil
}
