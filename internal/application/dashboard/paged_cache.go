package dashboard

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/shared"
)

// PageQuery describes which rows a paginated cache presents.
type PageQuery struct {
	Collection string
	// Filter is extended with deleted = false on every read.
	Filter gateway.Filter
	// Order defaults to created_at descending.
	Order gateway.Order
}

// PageSnapshot is one consistent view of a paginated cache.
type PageSnapshot[T any] struct {
	Rows       []T       `json:"rows"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
	TotalRows  int64     `json:"total_rows"`
	PageSize   int       `json:"page_size"`
	State      LoadState `json:"state"`
	// Err is the most recent fetch failure. Rows still hold the last good
	// page when it is set.
	Err error  `json:"-"`
	Seq uint64 `json:"-"`
}

// PagedCache holds the current page of a collection and keeps it fresh.
// Create it with NewPagedCache, then call Start to attach a gateway.
type PagedCache[T any] struct {
	query  PageQuery
	decode RowDecoder[T]
	opts   options
	logger *zap.Logger

	// publishMu serialises state transitions with their delivery so that
	// listeners observe snapshots in order.
	publishMu sync.Mutex
	mu        sync.RWMutex
	snap      PageSnapshot[T]
	tracker   fetchTracker

	gw        gateway.Reader
	sub       gateway.Subscription
	stop      context.CancelFunc
	lifeCtx   context.Context
	listeners *listenerSet[PageSnapshot[T]]
}

// NewPagedCache creates a cache without touching any gateway.
func NewPagedCache[T any](query PageQuery, decode RowDecoder[T], opts ...Option) *PagedCache[T] {
	o := newOptions(opts)
	if query.Order.Field == "" {
		query.Order = gateway.NewestFirst
	}
	logger := o.logger.With(zap.String("collection", query.Collection))
	return &PagedCache[T]{
		query:     query,
		decode:    decode,
		opts:      o,
		logger:    logger,
		snap:      PageSnapshot[T]{Rows: []T{}, Page: 1, PageSize: o.pageSize, State: StateUninitialized},
		tracker:   fetchTracker{ordering: o.ordering},
		listeners: newListenerSet[PageSnapshot[T]](logger, query.Collection),
	}
}

// Start subscribes to change notifications and loads the first page.
// When the subscription cannot be established the failure is recorded in
// the snapshot and returned. A failed initial load is returned as well;
// the subscription stays active.
func (c *PagedCache[T]) Start(ctx context.Context, gw gateway.Gateway) error {
	c.mu.Lock()
	if c.gw != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s page cache already started", shared.ErrInvalidState, c.query.Collection)
	}
	c.gw = gw
	c.lifeCtx, c.stop = context.WithCancel(context.WithoutCancel(ctx))
	c.mu.Unlock()

	sub, err := gw.SubscribeToChanges(c.query.Collection, c.onChange)
	if err != nil {
		c.logger.Warn("change subscription failed", zap.Error(err))
		c.fail(err)
		return err
	}
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	return c.FetchPage(ctx, 1)
}

// Stop releases the change subscription. It is safe to call more than once.
func (c *PagedCache[T]) Stop() {
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

// Subscribe registers fn to receive every published snapshot.
func (c *PagedCache[T]) Subscribe(fn func(PageSnapshot[T])) (unsubscribe func()) {
	return c.listeners.add(fn)
}

// Snapshot returns the current snapshot.
func (c *PagedCache[T]) Snapshot() PageSnapshot[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copySnapshot()
}

// Collection returns the name of the cached collection.
func (c *PagedCache[T]) Collection() string {
	return c.query.Collection
}

// FetchPage counts the matching rows, loads page n and publishes both as one
// snapshot. On failure the previous rows are kept and the error is recorded
// in the snapshot and returned.
func (c *PagedCache[T]) FetchPage(ctx context.Context, n int) error {
	if n < 1 {
		return shared.InvalidInputf("page must be >= 1, got %d", n)
	}
	c.mu.RLock()
	gw := c.gw
	c.mu.RUnlock()
	if gw == nil {
		return ErrNotStarted
	}

	seq := c.begin()

	rows, total, err := c.load(ctx, gw, n)
	if err != nil {
		c.finishWithError(seq, err)
		return err
	}
	c.finishWithPage(seq, n, rows, total)
	return nil
}

// NextPage loads the following page. It does nothing on the last page.
func (c *PagedCache[T]) NextPage(ctx context.Context) error {
	snap := c.Snapshot()
	if snap.Page >= snap.TotalPages {
		return nil
	}
	return c.FetchPage(ctx, snap.Page+1)
}

// PreviousPage loads the preceding page. It does nothing on the first page.
func (c *PagedCache[T]) PreviousPage(ctx context.Context) error {
	snap := c.Snapshot()
	if snap.Page <= 1 {
		return nil
	}
	return c.FetchPage(ctx, snap.Page-1)
}

// GoToPage loads page n. Pages outside [1, TotalPages] are ignored without a
// gateway call.
func (c *PagedCache[T]) GoToPage(ctx context.Context, n int) error {
	snap := c.Snapshot()
	if n < 1 || n > snap.TotalPages {
		return nil
	}
	return c.FetchPage(ctx, n)
}

// Refresh reloads the current page.
func (c *PagedCache[T]) Refresh(ctx context.Context) error {
	return c.FetchPage(ctx, c.Snapshot().Page)
}

func (c *PagedCache[T]) onChange() {
	c.mu.RLock()
	ctx := c.lifeCtx
	c.mu.RUnlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if err := c.Refresh(ctx); err != nil {
		c.logger.Error("refresh after change notification failed", zap.Error(err))
	}
}

func (c *PagedCache[T]) load(ctx context.Context, gw gateway.Reader, n int) ([]T, int64, error) {
	ctx, cancel := withFetchTimeout(ctx, c.opts.fetchTimeout)
	defer cancel()

	filter := c.query.Filter.NotDeleted()
	total, err := gw.Count(ctx, c.query.Collection, filter)
	if err != nil {
		return nil, 0, asFetchError("count", c.query.Collection, err)
	}

	offset, _ := shared.PageBounds(n, c.opts.pageSize)
	raw, err := gw.FetchRange(ctx, c.query.Collection, filter, c.query.Order, offset, c.opts.pageSize)
	if err != nil {
		return nil, 0, asFetchError("fetch_range", c.query.Collection, err)
	}
	rows, err := decodeRows(raw, c.decode)
	if err != nil {
		return nil, 0, shared.NewDataFetchError("decode", c.query.Collection, err)
	}
	return rows, total, nil
}

func (c *PagedCache[T]) begin() uint64 {
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

func (c *PagedCache[T]) finishWithPage(seq uint64, page int, rows []T, total int64) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	prevState := c.snap.State
	if !c.tracker.finish(seq) {
		c.snap.State = c.tracker.state()
		snap, changed := c.copySnapshot(), c.snap.State != prevState
		c.mu.Unlock()
		c.logger.Debug("discarded stale page result", zap.Uint64("seq", seq), zap.Int("page", page))
		if changed {
			c.listeners.publish(snap)
		}
		return
	}
	c.snap = PageSnapshot[T]{
		Rows:       rows,
		Page:       page,
		TotalPages: shared.TotalPages(total, c.opts.pageSize),
		TotalRows:  total,
		PageSize:   c.opts.pageSize,
		State:      c.tracker.state(),
		Seq:        seq,
	}
	snap := c.copySnapshot()
	c.mu.Unlock()

	c.listeners.publish(snap)
}

func (c *PagedCache[T]) finishWithError(seq uint64, err error) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	prevState := c.snap.State
	if !c.tracker.finish(seq) {
		c.snap.State = c.tracker.state()
		snap, changed := c.copySnapshot(), c.snap.State != prevState
		c.mu.Unlock()
		c.logger.Debug("discarded stale page error", zap.Uint64("seq", seq), zap.Error(err))
		if changed {
			c.listeners.publish(snap)
		}
		return
	}
	c.snap.Err = err
	c.snap.Seq = seq
	c.snap.State = c.tracker.state()
	snap := c.copySnapshot()
	c.mu.Unlock()

	c.logger.Warn("page fetch failed", zap.Int("page", snap.Page), zap.Error(err))
	c.listeners.publish(snap)
}

// fail records err without a fetch, for failures before any fetch is issued.
func (c *PagedCache[T]) fail(err error) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	c.tracker.completed = true
	c.snap.Err = err
	c.snap.State = c.tracker.state()
	snap := c.copySnapshot()
	c.mu.Unlock()

	c.listeners.publish(snap)
}

// copySnapshot must be called with mu held.
func (c *PagedCache[T]) copySnapshot() PageSnapshot[T] {
	snap := c.snap
	if c.snap.Rows != nil {
		snap.Rows = make([]T, len(c.snap.Rows))
		copy(snap.Rows, c.snap.Rows)
	}
	return snap
}
