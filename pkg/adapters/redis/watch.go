package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/arbor/pkg/domain"
)

// Snapshot reads every group with its bookmarks.
func (s *Source) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	groups, err := s.Groups(ctx)
	if err != nil {
		return nil, err
	}
	snap := make(domain.Snapshot, len(groups))
	if len(groups) == 0 {
		return snap, nil
	}

	pipe := s.client.Pipeline()
	gets := make([]*backend.StringCmd, len(groups))
	for i, g := range groups {
		gets[i] = pipe.Get(ctx, s.itemsKey(g.Name))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	for i, g := range groups {
		state := domain.GroupState{Group: g}
		val, err := gets[i].Result()
		switch {
		case errors.Is(err, backend.Nil):
		case err != nil:
			return nil, fmt.Errorf("failed to get bookmarks of %q: %w", g.Name, err)
		default:
			if err := json.Unmarshal([]byte(val), &state.Bookmarks); err != nil {
				return nil, fmt.Errorf("failed to unmarshal bookmarks of %q: %w", g.Name, err)
			}
		}
		snap[g.Name] = state
	}
	return snap, nil
}

// Watch implements ports.Watchable by polling: every interval the current
// snapshot is compared to the previous one. Added and changed groups are
// reported by name; removals alone are reported as an empty name, which only
// refreshes the group list. Read errors are retried on the next tick.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	last, err := s.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read initial snapshot: %w", err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			snap, err := s.Snapshot(ctx)
			if err != nil {
				continue
			}
			diff := domain.Diff(last, snap)
			last = snap
			if diff.IsEmpty() {
				continue
			}

			names := diff.Refreshed()
			if len(names) == 0 {
				names = []string{""}
			}
			for _, name := range names {
				select {
				case out <- name:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
