// Package dashboard holds the reactive data services behind the investor
// dashboard: paginated caches, full collection snapshots and the committed
// volume stream derived from them.
package dashboard

import (
	"time"

	"go.uber.org/zap"

	"github.com/irdash/backend/internal/domain/investor"
)

// DefaultPageSize is the number of rows per page in every paginated cache.
const DefaultPageSize = 5

// FetchOrdering decides which of several overlapping fetches determines the
// published snapshot.
type FetchOrdering int

const (
	// FetchOrderingSequenced numbers every fetch when it is issued and drops
	// a result that completes after a later-issued fetch was already applied.
	FetchOrderingSequenced FetchOrdering = iota
	// FetchOrderingLastCompleted applies every result as it completes, so
	// the last fetch to finish wins even when it was issued first.
	FetchOrderingLastCompleted
)

func (o FetchOrdering) String() string {
	switch o {
	case FetchOrderingSequenced:
		return "sequenced"
	case FetchOrderingLastCompleted:
		return "last_completed"
	}
	return "unknown"
}

// ParseFetchOrdering parses the configuration spelling of an ordering.
// Unknown values fall back to FetchOrderingSequenced.
func ParseFetchOrdering(s string) FetchOrdering {
	if s == "last_completed" {
		return FetchOrderingLastCompleted
	}
	return FetchOrderingSequenced
}

type options struct {
	logger           *zap.Logger
	pageSize         int
	fetchTimeout     time.Duration
	ordering         FetchOrdering
	memberTypePolicy investor.MemberTypePolicy
	sessionIdle      time.Duration
}

// Option configures caches, collections, services and the dashboard.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPageSize overrides DefaultPageSize.
func WithPageSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

// WithFetchTimeout bounds every gateway read. A read that exceeds it fails
// with a data fetch error. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.fetchTimeout = d
	}
}

// WithFetchOrdering selects how overlapping fetches are resolved.
func WithFetchOrdering(ordering FetchOrdering) Option {
	return func(o *options) {
		o.ordering = ordering
	}
}

// WithMemberTypePolicy sets the policy used to resolve person member types.
func WithMemberTypePolicy(policy investor.MemberTypePolicy) Option {
	return func(o *options) {
		o.memberTypePolicy = policy
	}
}

// WithSessionIdle sets how long an unused session page set is kept. Zero
// or less keeps page sets until they are closed.
func WithSessionIdle(d time.Duration) Option {
	return func(o *options) {
		o.sessionIdle = d
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:           zap.NewNop(),
		pageSize:         DefaultPageSize,
		ordering:         FetchOrderingSequenced,
		memberTypePolicy: investor.DefaultMemberTypePolicy,
		sessionIdle:      DefaultSessionIdle,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
