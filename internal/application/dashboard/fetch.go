package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/shared"
)

// RowDecoder converts a gateway row into a typed value.
type RowDecoder[T any] func(gateway.Row) (T, error)

// LoadState is the lifecycle state of a cache or collection.
type LoadState string

const (
	StateUninitialized LoadState = "uninitialized"
	StateLoading       LoadState = "loading"
	StateLoaded        LoadState = "loaded"
)

// ErrNotStarted is returned by operations that need a gateway before Start.
var ErrNotStarted = shared.NewDomainError("INVALID_STATE", "Cache has not been started")

// fetchTracker numbers fetches and decides whether a completed fetch may be
// applied. It is not safe for concurrent use; callers hold their own lock.
type fetchTracker struct {
	ordering  FetchOrdering
	issued    uint64
	applied   uint64
	inflight  int
	completed bool
}

func (t *fetchTracker) begin() uint64 {
	t.issued++
	t.inflight++
	return t.issued
}

// finish reports whether the result of fetch seq should be published.
func (t *fetchTracker) finish(seq uint64) bool {
	t.inflight--
	if t.ordering == FetchOrderingSequenced && seq < t.applied {
		return false
	}
	t.applied = seq
	t.completed = true
	return true
}

func (t *fetchTracker) state() LoadState {
	switch {
	case t.inflight > 0:
		return StateLoading
	case t.completed:
		return StateLoaded
	default:
		return StateUninitialized
	}
}

func withFetchTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// asFetchError keeps classified gateway errors intact and wraps anything
// else, including timeouts, as a data fetch error.
func asFetchError(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	if isClassified(err) {
		return err
	}
	return shared.NewDataFetchError(op, collection, err)
}

// asMutationError is the write-side counterpart of asFetchError.
func asMutationError(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	if isClassified(err) {
		return err
	}
	return shared.NewMutationError(op, collection, err)
}

func isClassified(err error) bool {
	var gwErr *shared.GatewayError
	return errors.As(err, &gwErr)
}

func decodeRows[T any](rows []gateway.Row, decode RowDecoder[T]) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		v, err := decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
