package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/irdash/backend/gateway"

// InstrumentedGateway records a counter and a latency histogram for every
// gateway call, labelled by operation, collection and error kind.
type InstrumentedGateway struct {
	next     gateway.Gateway
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	changes  metric.Int64Counter
}

// NewInstrumentedGateway wraps next with metrics from mp
func NewInstrumentedGateway(next gateway.Gateway, mp *MeterProvider) (*InstrumentedGateway, error) {
	meter := mp.Meter(meterName)

	calls, err := meter.Int64Counter("irdash.gateway.calls",
		metric.WithDescription("Remote data gateway calls"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create calls counter: %w", err)
	}
	duration, err := meter.Float64Histogram("irdash.gateway.duration",
		metric.WithDescription("Remote data gateway call latency"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000))
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	changes, err := meter.Int64Counter("irdash.gateway.change_notifications",
		metric.WithDescription("Change notifications delivered to subscribers"),
		metric.WithUnit("{notification}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create notifications counter: %w", err)
	}

	return &InstrumentedGateway{next: next, calls: calls, duration: duration, changes: changes}, nil
}

func (g *InstrumentedGateway) record(ctx context.Context, op, collection string, start time.Time, err error) {
	outcome := "ok"
	if kind := shared.ErrorKind(err); kind != nil {
		outcome = kind.Code
	} else if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("collection", collection),
		attribute.String("outcome", outcome),
	)
	g.calls.Add(ctx, 1, attrs)
	g.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
}

// Count implements gateway.Reader
func (g *InstrumentedGateway) Count(ctx context.Context, collection string, filter gateway.Filter) (int64, error) {
	start := time.Now()
	n, err := g.next.Count(ctx, collection, filter)
	g.record(ctx, "count", collection, start, err)
	return n, err
}

// FetchRange implements gateway.Reader
func (g *InstrumentedGateway) FetchRange(ctx context.Context, collection string, filter gateway.Filter, order gateway.Order, offset, limit int) ([]gateway.Row, error) {
	start := time.Now()
	rows, err := g.next.FetchRange(ctx, collection, filter, order, offset, limit)
	g.record(ctx, "fetch_range", collection, start, err)
	return rows, err
}

// FetchAll implements gateway.Reader
func (g *InstrumentedGateway) FetchAll(ctx context.Context, collection string, filter gateway.Filter, order gateway.Order) ([]gateway.Row, error) {
	start := time.Now()
	rows, err := g.next.FetchAll(ctx, collection, filter, order)
	g.record(ctx, "fetch_all", collection, start, err)
	return rows, err
}

// Insert implements gateway.Writer
func (g *InstrumentedGateway) Insert(ctx context.Context, collection string, row gateway.Row) (gateway.Row, error) {
	start := time.Now()
	out, err := g.next.Insert(ctx, collection, row)
	g.record(ctx, "insert", collection, start, err)
	return out, err
}

// Update implements gateway.Writer
func (g *InstrumentedGateway) Update(ctx context.Context, collection, id string, patch gateway.Row) (gateway.Row, error) {
	start := time.Now()
	out, err := g.next.Update(ctx, collection, id, patch)
	g.record(ctx, "update", collection, start, err)
	return out, err
}

// SoftDelete implements gateway.Writer
func (g *InstrumentedGateway) SoftDelete(ctx context.Context, collection, id string) error {
	start := time.Now()
	err := g.next.SoftDelete(ctx, collection, id)
	g.record(ctx, "soft_delete", collection, start, err)
	return err
}

// SubscribeToChanges implements gateway.ChangeFeed and counts deliveries.
func (g *InstrumentedGateway) SubscribeToChanges(collection string, onChange func()) (gateway.Subscription, error) {
	attrs := metric.WithAttributes(attribute.String("collection", collection))
	return g.next.SubscribeToChanges(collection, func() {
		g.changes.Add(context.Background(), 1, attrs)
		onChange()
	})
}

var _ gateway.Gateway = (*InstrumentedGateway)(nil)
