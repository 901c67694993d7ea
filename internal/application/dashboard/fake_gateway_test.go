package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/shared"
)

type rangeCall struct {
	collection string
	filter     gateway.Filter
	offset     int
	limit      int
}

// fakeGateway is an in-memory gateway with call recording and failure
// injection.
type fakeGateway struct {
	mu     sync.Mutex
	tables map[string][]gateway.Row
	subs   map[string]map[int]func()
	nextID int

	counts     int
	ranges     []rangeCall
	fetchAlls  map[string]int
	readErr    error
	writeErr   error
	subErr     error
	rangeHook  func(ctx context.Context, offset int) error
	fetchAllFn func(collection string) error
	clock      time.Time
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		tables:    make(map[string][]gateway.Row),
		subs:      make(map[string]map[int]func()),
		fetchAlls: make(map[string]int),
		clock:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (g *fakeGateway) tick() time.Time {
	g.clock = g.clock.Add(time.Minute)
	return g.clock
}

// seed appends a row, filling id, deleted and created_at when missing.
func (g *fakeGateway) seed(collection string, row gateway.Row) gateway.Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seedLocked(collection, row)
}

func (g *fakeGateway) seedLocked(collection string, row gateway.Row) gateway.Row {
	out := gateway.Row{}
	for k, v := range row {
		out[k] = v
	}
	if _, ok := out["id"]; !ok {
		out["id"] = uuid.NewString()
	}
	if _, ok := out["deleted"]; !ok {
		out["deleted"] = false
	}
	if _, ok := out["created_at"]; !ok {
		out["created_at"] = g.tick()
	}
	g.tables[collection] = append(g.tables[collection], out)
	return out
}

func (g *fakeGateway) seedPersons(n int) {
	for i := 0; i < n; i++ {
		g.seed(gateway.CollectionPerson, gateway.Row{
			"id":         fmt.Sprintf("p%02d", i),
			"email":      fmt.Sprintf("p%02d@example.com", i),
			"first_name": fmt.Sprintf("Person%02d", i),
		})
	}
}

func (g *fakeGateway) setReadErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.readErr = err
}

func (g *fakeGateway) setRangeHook(fn func(ctx context.Context, offset int) error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rangeHook = fn
}

func (g *fakeGateway) callCount() (counts, ranges int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts, len(g.ranges)
}

func (g *fakeGateway) lastRange() rangeCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ranges[len(g.ranges)-1]
}

func (g *fakeGateway) fetchAllCount(collection string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetchAlls[collection]
}

func (g *fakeGateway) subscriberCount(collection string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs[collection])
}

// notify fires every change callback of collection synchronously.
func (g *fakeGateway) notify(collection string) {
	g.mu.Lock()
	ids := make([]int, 0, len(g.subs[collection]))
	for id := range g.subs[collection] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	callbacks := make([]func(), 0, len(ids))
	for _, id := range ids {
		callbacks = append(callbacks, g.subs[collection][id])
	}
	g.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

func matches(row gateway.Row, filter gateway.Filter) bool {
	for k, v := range filter {
		got, ok := row[k]
		if !ok && k == "deleted" {
			got = false
		}
		if fmt.Sprint(got) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

func (g *fakeGateway) selectLocked(collection string, filter gateway.Filter) []gateway.Row {
	var out []gateway.Row
	for _, row := range g.tables[collection] {
		if matches(row, filter) {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := out[i]["created_at"].(time.Time)
		b, _ := out[j]["created_at"].(time.Time)
		return a.After(b)
	})
	return out
}

func (g *fakeGateway) Count(_ context.Context, collection string, filter gateway.Filter) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counts++
	if g.readErr != nil {
		return 0, shared.NewDataFetchError("count", collection, g.readErr)
	}
	return int64(len(g.selectLocked(collection, filter))), nil
}

func (g *fakeGateway) FetchRange(ctx context.Context, collection string, filter gateway.Filter, _ gateway.Order, offset, limit int) ([]gateway.Row, error) {
	g.mu.Lock()
	g.ranges = append(g.ranges, rangeCall{collection: collection, filter: filter, offset: offset, limit: limit})
	hook := g.rangeHook
	g.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, offset); err != nil {
			return nil, err
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readErr != nil {
		return nil, shared.NewDataFetchError("fetch_range", collection, g.readErr)
	}
	rows := g.selectLocked(collection, filter)
	if offset >= len(rows) {
		return []gateway.Row{}, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (g *fakeGateway) FetchAll(_ context.Context, collection string, filter gateway.Filter, _ gateway.Order) ([]gateway.Row, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetchAlls[collection]++
	if g.fetchAllFn != nil {
		if err := g.fetchAllFn(collection); err != nil {
			return nil, shared.NewDataFetchError("fetch_all", collection, err)
		}
	}
	if g.readErr != nil {
		return nil, shared.NewDataFetchError("fetch_all", collection, g.readErr)
	}
	return g.selectLocked(collection, filter), nil
}

func (g *fakeGateway) Insert(_ context.Context, collection string, row gateway.Row) (gateway.Row, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writeErr != nil {
		return nil, shared.NewMutationError("insert", collection, g.writeErr)
	}
	return g.seedLocked(collection, row), nil
}

func (g *fakeGateway) Update(_ context.Context, collection, id string, patch gateway.Row) (gateway.Row, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writeErr != nil {
		return nil, shared.NewMutationError("update", collection, g.writeErr)
	}
	for _, row := range g.tables[collection] {
		if row["id"] == id {
			for k, v := range patch {
				row[k] = v
			}
			return row, nil
		}
	}
	return nil, shared.NewMutationError("update", collection, shared.ErrNotFound)
}

func (g *fakeGateway) SoftDelete(_ context.Context, collection, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writeErr != nil {
		return shared.NewMutationError("soft_delete", collection, g.writeErr)
	}
	for _, row := range g.tables[collection] {
		if row["id"] == id {
			row["deleted"] = true
			return nil
		}
	}
	return shared.NewMutationError("soft_delete", collection, shared.ErrNotFound)
}

func (g *fakeGateway) SubscribeToChanges(collection string, onChange func()) (gateway.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.subErr != nil {
		return nil, g.subErr
	}
	g.nextID++
	id := g.nextID
	if g.subs[collection] == nil {
		g.subs[collection] = make(map[int]func())
	}
	g.subs[collection][id] = onChange
	return gateway.SubscriptionFunc(func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.subs[collection], id)
	}), nil
}

var _ gateway.Gateway = (*fakeGateway)(nil)
