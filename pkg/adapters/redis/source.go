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

// DefaultPrefix is prepended to every key the adapter writes.
const DefaultPrefix = "arbor:"

// DefaultPollInterval is the Watch polling period.
const DefaultPollInterval = 2 * time.Second

// Source implements ports.ItemStore and ports.Watchable using Redis.
//
// Layout, relative to the prefix:
//
//	groups          ZSET of group names, scored by creation order
//	group           HASH name -> group JSON
//	items:<name>    bookmarks of a group as a JSON array
type Source struct {
	client       *backend.Client
	prefix       string
	pollInterval time.Duration
}

type Option func(*Source)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Source) {
		s.prefix = prefix
	}
}

// WithPollInterval sets how often Watch compares snapshots.
func WithPollInterval(d time.Duration) Option {
	return func(s *Source) {
		s.pollInterval = d
	}
}

// New creates a new Redis source with options.
func New(address, password string, db int, opts ...Option) *Source {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis source from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Source {
	s := &Source{
		client:       client,
		prefix:       DefaultPrefix,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Source) Client() *backend.Client {
	return s.client
}

func (s *Source) indexKey() string {
	return s.prefix + "groups"
}

func (s *Source) metaKey() string {
	return s.prefix + "group"
}

func (s *Source) itemsKey(group string) string {
	return s.prefix + "items:" + group
}

// Groups lists the groups in creation order.
func (s *Source) Groups(ctx context.Context) ([]domain.Group, error) {
	names, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	if len(names) == 0 {
		return []domain.Group{}, nil
	}

	raw, err := s.client.HMGet(ctx, s.metaKey(), names...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}

	groups := make([]domain.Group, 0, len(names))
	for i, name := range names {
		group := domain.Group{Name: name}
		if val, ok := raw[i].(string); ok {
			if err := json.Unmarshal([]byte(val), &group); err != nil {
				return nil, fmt.Errorf("failed to unmarshal group %q: %w", name, err)
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// Items returns the bookmarks of a group.
func (s *Source) Items(ctx context.Context, group string) ([]domain.Bookmark, error) {
	pipe := s.client.Pipeline()
	score := pipe.ZScore(ctx, s.indexKey(), group)
	items := pipe.Get(ctx, s.itemsKey(group))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	if err := score.Err(); err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	val, err := items.Result()
	if errors.Is(err, backend.Nil) {
		return []domain.Bookmark{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}

	var bookmarks []domain.Bookmark
	if err := json.Unmarshal([]byte(val), &bookmarks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookmarks: %w", err)
	}
	return bookmarks, nil
}

// PutGroup creates or replaces a group. A replaced group keeps its position.
func (s *Source) PutGroup(ctx context.Context, group domain.Group, bookmarks []domain.Bookmark) error {
	meta, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("failed to marshal group: %w", err)
	}
	if bookmarks == nil {
		bookmarks = []domain.Bookmark{}
	}
	data, err := json.Marshal(bookmarks)
	if err != nil {
		return fmt.Errorf("failed to marshal bookmarks: %w", err)
	}

	last, err := s.client.ZRevRangeWithScores(ctx, s.indexKey(), 0, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to read group index: %w", err)
	}
	score := 0.0
	if len(last) > 0 {
		score = last[0].Score + 1
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.metaKey(), group.Name, meta)
	pipe.Set(ctx, s.itemsKey(group.Name), data, 0)
	// NX keeps the score, and so the position, of an existing group.
	pipe.ZAddNX(ctx, s.indexKey(), backend.Z{Score: score, Member: group.Name})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// DeleteGroup removes a group and its bookmarks.
func (s *Source) DeleteGroup(ctx context.Context, name string) error {
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, s.indexKey(), name)
	pipe.HDel(ctx, s.metaKey(), name)
	pipe.Del(ctx, s.itemsKey(name))
	_, err := pipe.Exec(ctx)
	return err
}

// Close closes the redis client.
func (s *Source) Close() error {
	return s.client.Close()
}
