package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed branch lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Coordinator serializes work per branch and queues refresh requests.
// It uses reference counting to garbage collect unused locks.
type Coordinator struct {
	mu    sync.Mutex
	locks map[string]*lockEntry

	pendingMu sync.Mutex
	pending   mapset.Set[string]
	order     []string
	notify    chan struct{}

	locker ports.DistributedLocker
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *Coordinator) {
		c.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(c *Coordinator) {
		c.ttl = ttl
	}
}

// WithLogger configures a logger for the Coordinator.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		locks:   make(map[string]*lockEntry),
		pending: mapset.NewThreadUnsafeSet[string](),
		notify:  make(chan struct{}, 1),
		ttl:     DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu, and call release(branch) after unlocking.
func (c *Coordinator) acquire(branch string) *lockEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.locks[branch]
	if !exists {
		entry = &lockEntry{}
		c.locks[branch] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (c *Coordinator) release(branch string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.locks[branch]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(c.locks, branch)
	}
}

// WithLock executes fn while holding the lock for the branch.
func (c *Coordinator) WithLock(ctx context.Context, branch string, fn func(context.Context) error) error {
	entry := c.acquire(branch)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		c.release(branch)
	}()

	if c.locker != nil {
		unlock, err := c.locker.Lock(ctx, branch, c.ttl)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				c.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"branch", branch,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Request queues a refresh of the branch. Requests for a branch that is
// already pending are folded into the queued one; Request reports whether
// the branch was newly queued. It never blocks.
func (c *Coordinator) Request(branch string) bool {
	c.pendingMu.Lock()
	added := c.pending.Add(branch)
	if added {
		c.order = append(c.order, branch)
	}
	c.pendingMu.Unlock()

	if added {
		select {
		case c.notify <- struct{}{}:
		default:
		}
	}
	return added
}

// Pending drains the queue, returning branches in the order they were first requested.
func (c *Coordinator) Pending() []string {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	out := c.order
	c.order = nil
	c.pending.Clear()
	return out
}

// Run refreshes queued branches until ctx is done, calling fn under the
// branch lock for each. Errors from fn are logged and do not stop the loop.
func (c *Coordinator) Run(ctx context.Context, fn func(ctx context.Context, branch string) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.notify:
		}

		for _, branch := range c.Pending() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			err := c.WithLock(ctx, branch, func(ctx context.Context) error {
				return fn(ctx, branch)
			})
			if err != nil {
				c.logger.Error("Branch refresh failed", "branch", branch, "err", err)
			}
		}
	}
}
