package dashboard

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/shared"
)

// CollectionSnapshot is the full set of non-deleted rows of a collection.
type CollectionSnapshot[T any] struct {
	Rows []T `json:"rows"`
	// Loaded is true once a load has succeeded.
	Loaded  bool      `json:"loaded"`
	State   LoadState `json:"state"`
	Err     error     `json:"-"`
	Version uint64    `json:"version"`
	// Generation counts completed loads, successful or not.
	Generation uint64 `json:"-"`
}

// Collection keeps an unpaginated snapshot of a collection. It feeds
// aggregations that need every row rather than the current page.
type Collection[T any] struct {
	name   string
	filter gateway.Filter
	decode RowDecoder[T]
	opts   options
	logger *zap.Logger

	publishMu sync.Mutex
	mu        sync.RWMutex
	snap      CollectionSnapshot[T]
	tracker   fetchTracker

	gw        gateway.Reader
	sub       gateway.Subscription
	stop      context.CancelFunc
	lifeCtx   context.Context
	listeners *listenerSet[CollectionSnapshot[T]]
}

// NewCollection creates an unloaded collection.
func NewCollection[T any](name string, filter gateway.Filter, decode RowDecoder[T], opts ...Option) *Collection[T] {
	o := newOptions(opts)
	logger := o.logger.With(zap.String("collection", name), zap.String("view", "all"))
	return &Collection[T]{
		name:      name,
		filter:    filter,
		decode:    decode,
		opts:      o,
		logger:    logger,
		snap:      CollectionSnapshot[T]{Rows: []T{}, State: StateUninitialized},
		tracker:   fetchTracker{ordering: o.ordering},
		listeners: newListenerSet[CollectionSnapshot[T]](logger, name),
	}
}

// Start attaches the gateway and subscribes to change notifications. It
// does not load; call Load or EnsureLoaded for that.
func (c *Collection[T]) Start(ctx context.Context, gw gateway.Gateway) error {
	c.mu.Lock()
	if c.gw != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s collection already started", shared.ErrInvalidState, c.name)
	}
	c.gw = gw
	c.lifeCtx, c.stop = context.WithCancel(context.WithoutCancel(ctx))
	c.mu.Unlock()

	sub, err := gw.SubscribeToChanges(c.name, c.onChange)
	if err != nil {
		c.logger.Warn("change subscription failed", zap.Error(err))
		return err
	}
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()
	return nil
}

// Stop releases the change subscription.
func (c *Collection[T]) Stop() {
	c.mu.Lock()
	sub, stop := c.sub, c.stop
	c.sub, c.stop = nil, nil
	c.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if stop != nil {
		stop()
	}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Subscribe registers fn to receive every published snapshot.
func (c *Collection[T]) Subscribe(fn func(CollectionSnapshot[T])) (unsubscribe func()) {
	return c.listeners.add(fn)
}

// Snapshot returns the current snapshot.
func (c *Collection[T]) Snapshot() CollectionSnapshot[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copySnapshot()
}

// EnsureLoaded loads the collection unless a load already succeeded.
func (c *Collection[T]) EnsureLoaded(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.snap.Loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	return c.Load(ctx)
}

// Load fetches every non-deleted row and publishes the result. On failure
// the previous rows are kept and the error is recorded and returned.
func (c *Collection[T]) Load(ctx context.Context) error {
	c.mu.RLock()
	gw := c.gw
	c.mu.RUnlock()
	if gw == nil {
		return ErrNotStarted
	}

	seq := c.begin()
	rows, err := c.fetch(ctx, gw)
	c.finish(seq, rows, err)
	return err
}

// Mark returns the number of the most recently begun load. Pass it to
// ReloadSince to skip a reload that a change notification already did.
func (c *Collection[T]) Mark() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tracker.issued
}

// ReloadSince loads the collection unless a load begun after mark has
// already been applied. It reports whether it loaded.
func (c *Collection[T]) ReloadSince(ctx context.Context, mark uint64) (bool, error) {
	c.mu.RLock()
	applied := c.tracker.applied
	c.mu.RUnlock()
	if applied > mark {
		return false, nil
	}
	return true, c.Load(ctx)
}

// Find returns the first row matching match from the current snapshot.
func (c *Collection[T]) Find(match func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, row := range c.snap.Rows {
		if match(row) {
			return row, true
		}
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) onChange() {
	c.mu.RLock()
	ctx := c.lifeCtx
	c.mu.RUnlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if err := c.Load(ctx); err != nil {
		c.logger.Error("reload after change notification failed", zap.Error(err))
	}
}

func (c *Collection[T]) fetch(ctx context.Context, gw gateway.Reader) ([]T, error) {
	ctx, cancel := withFetchTimeout(ctx, c.opts.fetchTimeout)
	defer cancel()

	raw, err := gw.FetchAll(ctx, c.name, c.filter.NotDeleted(), gateway.NewestFirst)
	if err != nil {
		return nil, asFetchError("fetch_all", c.name, err)
	}
	rows, err := decodeRows(raw, c.decode)
	if err != nil {
		return nil, shared.NewDataFetchError("decode", c.name, err)
	}
	return rows, nil
}

func (c *Collection[T]) begin() uint64 {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	seq := c.tracker.begin()
	c.snap.State = c.tracker.state()
	snap := c.copySnapshot()
	c.mu.Unlock()

	c.listeners.publish(snap)
	return seq
}

func (c *Collection[T]) finish(seq uint64, rows []T, err error) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	prevState := c.snap.State
	if !c.tracker.finish(seq) {
		c.snap.State = c.tracker.state()
		snap, changed := c.copySnapshot(), c.snap.State != prevState
		c.mu.Unlock()
		c.logger.Debug("discarded stale collection result", zap.Uint64("seq", seq))
		if changed {
			c.listeners.publish(snap)
		}
		return
	}
	c.snap.Generation++
	if err != nil {
		c.snap.Err = err
	} else {
		c.snap.Rows = rows
		c.snap.Err = nil
		c.snap.Loaded = true
		c.snap.Version++
	}
	c.snap.State = c.tracker.state()
	snap := c.copySnapshot()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("collection load failed", zap.Error(err))
	}
	c.listeners.publish(snap)
}

// copySnapshot must be called with mu held.
func (c *Collection[T]) copySnapshot() CollectionSnapshot[T] {
	snap := c.snap
	snap.Rows = make([]T, len(c.snap.Rows))
	copy(snap.Rows, c.snap.Rows)
	return snap
}
