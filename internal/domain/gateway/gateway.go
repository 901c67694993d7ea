// Package gateway defines the contract of the remote data gateway that the
// dashboard reads collections from, writes changes to and listens on for
// change notifications.
package gateway

import (
	"context"
	"time"
)

// Collection names served by the gateway.
const (
	CollectionPerson     = "person"
	CollectionItem       = "item"
	CollectionCommitment = "commitment"
)

// Common column names.
const (
	ColumnID        = "id"
	ColumnDeleted   = "deleted"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// Row is a single record as returned by the gateway.
type Row map[string]any

// Filter holds equality predicates combined with AND.
type Filter map[string]any

// NotDeleted returns a copy of f that also requires deleted = false.
func (f Filter) NotDeleted() Filter {
	out := make(Filter, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[ColumnDeleted] = false
	return out
}

// Order is a single-column ordering.
type Order struct {
	Field      string
	Descending bool
}

// NewestFirst orders by created_at descending.
var NewestFirst = Order{Field: ColumnCreatedAt, Descending: true}

// Reader reads collections.
type Reader interface {
	// Count returns the number of rows matching filter.
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
	// FetchRange returns at most limit rows starting at offset.
	FetchRange(ctx context.Context, collection string, filter Filter, order Order, offset, limit int) ([]Row, error)
	// FetchAll returns every row matching filter.
	FetchAll(ctx context.Context, collection string, filter Filter, order Order) ([]Row, error)
}

// Writer changes collections. Implementations never delete rows physically.
type Writer interface {
	Insert(ctx context.Context, collection string, row Row) (Row, error)
	Update(ctx context.Context, collection, id string, patch Row) (Row, error)
	SoftDelete(ctx context.Context, collection, id string) error
}

// Subscription is an active change subscription.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

// Unsubscribe calls f.
func (f SubscriptionFunc) Unsubscribe() { f() }

// ChangeFeed delivers "something changed" notifications for a collection.
// The callback carries no payload; subscribers re-read what they need.
type ChangeFeed interface {
	SubscribeToChanges(collection string, onChange func()) (Subscription, error)
}

// Gateway is the full remote data gateway.
type Gateway interface {
	Reader
	Writer
	ChangeFeed
}

// Session is an authenticated user session.
type Session struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Authenticator signs users in and out.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	// GetSession returns nil and no error when there is no active session.
	GetSession(ctx context.Context, accessToken string) (*Session, error)
}
