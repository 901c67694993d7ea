package realtime

import (
	"context"

	"github.com/irdash/backend/internal/domain/gateway"
	"go.uber.org/zap"
)

// MemoryFeed delivers changes within one process. Publish notifies the
// subscribers synchronously before returning.
type MemoryFeed struct {
	hub *hub
}

// NewMemoryFeed creates an in-process feed
func NewMemoryFeed(logger *zap.Logger) *MemoryFeed {
	return &MemoryFeed{hub: newHub(logger)}
}

// SubscribeToChanges implements gateway.ChangeFeed
func (f *MemoryFeed) SubscribeToChanges(collection string, onChange func()) (gateway.Subscription, error) {
	return f.hub.subscribe(collection, onChange), nil
}

// Publish implements Feed
func (f *MemoryFeed) Publish(_ context.Context, collection string) error {
	f.hub.dispatch(collection)
	return nil
}

// Close implements Feed
func (f *MemoryFeed) Close() error { return nil }

// SubscriberCount returns the number of live subscriptions on collection
func (f *MemoryFeed) SubscriberCount(collection string) int {
	return f.hub.subscriberCount(collection)
}

var _ Feed = (*MemoryFeed)(nil)
