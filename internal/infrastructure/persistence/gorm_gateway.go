package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/shared"
	"github.com/irdash/backend/internal/infrastructure/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormGateway implements gateway.Gateway on a gorm database. Writes announce
// the changed collection on the feed once they succeed.
type GormGateway struct {
	db     *gorm.DB
	feed   realtime.Feed
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// GatewayOption configures a GormGateway
type GatewayOption func(*GormGateway)

// WithGatewayLogger sets the logger
func WithGatewayLogger(logger *zap.Logger) GatewayOption {
	return func(g *GormGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithClock sets the time source for created_at and updated_at
func WithClock(now func() time.Time) GatewayOption {
	return func(g *GormGateway) {
		g.now = now
	}
}

// WithIDGenerator sets the id generator used by Insert
func WithIDGenerator(newID func() string) GatewayOption {
	return func(g *GormGateway) {
		g.newID = newID
	}
}

// NewGormGateway creates a gateway over db. A nil feed uses an in-memory one.
func NewGormGateway(db *gorm.DB, feed realtime.Feed, opts ...GatewayOption) *GormGateway {
	g := &GormGateway{
		db:     db,
		feed:   feed,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.feed == nil {
		g.feed = realtime.NewMemoryFeed(g.logger)
	}
	return g
}

// scope starts a statement on collection with the equality filter applied.
func (g *GormGateway) scope(ctx context.Context, collection string, filter gateway.Filter) *gorm.DB {
	tx := g.db.WithContext(ctx).Table(collection)
	if len(filter) > 0 {
		tx = tx.Where(map[string]any(filter))
	}
	return tx
}

func (g *GormGateway) readable(collection string, filter gateway.Filter, order *gateway.Order) (string, error) {
	cols, err := columnsOf(collection)
	if err != nil {
		return "", err
	}
	if err := cols.check(filter); err != nil {
		return "", err
	}
	if order == nil {
		return "", nil
	}
	return cols.orderClause(*order)
}

// Count implements gateway.Reader
func (g *GormGateway) Count(ctx context.Context, collection string, filter gateway.Filter) (int64, error) {
	if _, err := g.readable(collection, filter, nil); err != nil {
		return 0, shared.NewDataFetchError("count", collection, err)
	}

	var n int64
	if err := g.scope(ctx, collection, filter).Count(&n).Error; err != nil {
		return 0, shared.NewDataFetchError("count", collection, err)
	}
	return n, nil
}

// FetchRange implements gateway.Reader
func (g *GormGateway) FetchRange(ctx context.Context, collection string, filter gateway.Filter, order gateway.Order, offset, limit int) ([]gateway.Row, error) {
	orderBy, err := g.readable(collection, filter, &order)
	if err == nil && (offset < 0 || limit < 1) {
		err = shared.InvalidInputf("invalid range offset=%d limit=%d", offset, limit)
	}
	if err != nil {
		return nil, shared.NewDataFetchError("fetch_range", collection, err)
	}

	var rows []map[string]any
	if err := g.scope(ctx, collection, filter).Order(orderBy).Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, shared.NewDataFetchError("fetch_range", collection, err)
	}
	return toRows(rows), nil
}

// FetchAll implements gateway.Reader
func (g *GormGateway) FetchAll(ctx context.Context, collection string, filter gateway.Filter, order gateway.Order) ([]gateway.Row, error) {
	orderBy, err := g.readable(collection, filter, &order)
	if err != nil {
		return nil, shared.NewDataFetchError("fetch_all", collection, err)
	}

	var rows []map[string]any
	if err := g.scope(ctx, collection, filter).Order(orderBy).Find(&rows).Error; err != nil {
		return nil, shared.NewDataFetchError("fetch_all", collection, err)
	}
	return toRows(rows), nil
}

// Insert implements gateway.Writer. It fills id, created_at, updated_at and
// deleted when the row does not carry them.
func (g *GormGateway) Insert(ctx context.Context, collection string, row gateway.Row) (gateway.Row, error) {
	cols, err := columnsOf(collection)
	if err == nil {
		err = cols.check(row)
	}
	if err != nil {
		return nil, shared.NewMutationError("insert", collection, err)
	}

	now := g.now()
	values := make(map[string]any, len(row)+4)
	for k, v := range row {
		values[k] = v
	}
	setDefault(values, gateway.ColumnID, g.newID())
	setDefault(values, gateway.ColumnCreatedAt, now)
	setDefault(values, gateway.ColumnUpdatedAt, now)
	setDefault(values, gateway.ColumnDeleted, false)

	if err := g.db.WithContext(ctx).Table(collection).Create(values).Error; err != nil {
		return nil, shared.NewMutationError("insert", collection, err)
	}

	g.announce(ctx, collection)
	return gateway.Row(values), nil
}

// Update implements gateway.Writer and returns the row as stored.
func (g *GormGateway) Update(ctx context.Context, collection, id string, patch gateway.Row) (gateway.Row, error) {
	cols, err := columnsOf(collection)
	if err == nil {
		err = cols.check(patch)
	}
	if err == nil {
		for k := range patch {
			if immutableColumns[k] {
				err = shared.InvalidInputf("column %q cannot be updated", k)
				break
			}
		}
	}
	if err != nil {
		return nil, shared.NewMutationError("update", collection, err)
	}

	values := make(map[string]any, len(patch)+1)
	for k, v := range patch {
		values[k] = v
	}
	values[gateway.ColumnUpdatedAt] = g.now()

	if err := g.updateByID(ctx, collection, id, values); err != nil {
		return nil, shared.NewMutationError("update", collection, err)
	}

	var stored map[string]any
	err = g.db.WithContext(ctx).Table(collection).Where(gateway.ColumnID+" = ?", id).Take(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = shared.ErrNotFound
	}
	if err != nil {
		return nil, shared.NewMutationError("update", collection, err)
	}

	g.announce(ctx, collection)
	return normalize(stored), nil
}

// SoftDelete implements gateway.Writer
func (g *GormGateway) SoftDelete(ctx context.Context, collection, id string) error {
	if _, err := columnsOf(collection); err != nil {
		return shared.NewMutationError("soft_delete", collection, err)
	}

	err := g.updateByID(ctx, collection, id, map[string]any{
		gateway.ColumnDeleted:   true,
		gateway.ColumnUpdatedAt: g.now(),
	})
	if err != nil {
		return shared.NewMutationError("soft_delete", collection, err)
	}

	g.announce(ctx, collection)
	return nil
}

func (g *GormGateway) updateByID(ctx context.Context, collection, id string, values map[string]any) error {
	res := g.db.WithContext(ctx).Table(collection).Where(gateway.ColumnID+" = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SubscribeToChanges implements gateway.ChangeFeed
func (g *GormGateway) SubscribeToChanges(collection string, onChange func()) (gateway.Subscription, error) {
	if _, err := columnsOf(collection); err != nil {
		return nil, shared.NewDataFetchError("subscribe", collection, err)
	}
	sub, err := g.feed.SubscribeToChanges(collection, onChange)
	if err != nil {
		return nil, shared.NewDataFetchError("subscribe", collection, err)
	}
	return sub, nil
}

// Ping checks the database connection
func (g *GormGateway) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// announce publishes a change after a successful write. The write already
// happened, so a failure is only logged.
func (g *GormGateway) announce(ctx context.Context, collection string) {
	if err := g.feed.Publish(ctx, collection); err != nil {
		g.logger.Warn("failed to announce change",
			zap.String("collection", collection),
			zap.Error(err),
		)
	}
}

func setDefault(values map[string]any, key string, v any) {
	if cur, ok := values[key]; !ok || cur == nil {
		values[key] = v
	}
}

func toRows(rows []map[string]any) []gateway.Row {
	out := make([]gateway.Row, len(rows))
	for i, r := range rows {
		out[i] = normalize(r)
	}
	return out
}

// normalize turns driver byte slices into strings so that rows decode the
// same way regardless of driver.
func normalize(r map[string]any) gateway.Row {
	for k, v := range r {
		if b, ok := v.([]byte); ok {
			r[k] = string(b)
		}
	}
	return gateway.Row(r)
}

var _ gateway.Gateway = (*GormGateway)(nil)
