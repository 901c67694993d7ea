// Package realtime delivers per-collection change notifications to the
// dashboard caches.
package realtime

import (
	"context"
	"sort"
	"sync"

	"github.com/irdash/backend/internal/domain/gateway"
	"go.uber.org/zap"
)

// DefaultChannel is the notification channel shared by the database trigger
// and the Redis fan-out.
const DefaultChannel = "row_changes"

// Feed is a change feed that writers can also announce changes on.
type Feed interface {
	gateway.ChangeFeed
	// Publish announces that collection changed.
	Publish(ctx context.Context, collection string) error
	Close() error
}

// hub keeps the local subscribers of every feed implementation.
type hub struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]func()
	nextID uint64
	logger *zap.Logger
}

func newHub(logger *zap.Logger) *hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &hub{
		subs:   make(map[string]map[uint64]func()),
		logger: logger,
	}
}

func (h *hub) subscribe(collection string, onChange func()) gateway.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[uint64]func())
	}
	h.subs[collection][id] = onChange

	var once sync.Once
	return gateway.SubscriptionFunc(func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[collection], id)
			if len(h.subs[collection]) == 0 {
				delete(h.subs, collection)
			}
		})
	})
}

// dispatch calls the subscribers of collection in subscription order.
func (h *hub) dispatch(collection string) {
	h.mu.RLock()
	ids := make([]uint64, 0, len(h.subs[collection]))
	for id := range h.subs[collection] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	callbacks := make([]func(), 0, len(ids))
	for _, id := range ids {
		callbacks = append(callbacks, h.subs[collection][id])
	}
	h.mu.RUnlock()

	for _, cb := range callbacks {
		h.call(collection, cb)
	}
}

// dispatchAll notifies every collection, used after a listener reconnect when
// notifications may have been lost.
func (h *hub) dispatchAll() {
	h.mu.RLock()
	collections := make([]string, 0, len(h.subs))
	for c := range h.subs {
		collections = append(collections, c)
	}
	h.mu.RUnlock()

	sort.Strings(collections)
	for _, c := range collections {
		h.dispatch(c)
	}
}

func (h *hub) call(collection string, cb func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("change subscriber panicked",
				zap.String("collection", collection),
				zap.Any("panic", r),
			)
		}
	}()
	cb()
}

func (h *hub) subscriberCount(collection string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[collection])
}
