package dashboard

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/investor"
	"github.com/irdash/backend/internal/domain/shared"
)

// ItemService serves the deals, content, events and engagement tabs.
type ItemService struct {
	All *Collection[investor.Item]

	pages  map[investor.ItemType]*PagedCache[investor.Item]
	logger *zap.Logger

	mu sync.RWMutex
	gw gateway.Gateway
}

// NewItemService creates one paginated cache per item type plus the full
// item collection.
func NewItemService(opts ...Option) *ItemService {
	o := newOptions(opts)
	return &ItemService{
		All:    NewCollection(gateway.CollectionItem, nil, investor.DecodeItem, opts...),
		pages:  newItemPages(opts),
		logger: o.logger.With(zap.String("service", "item")),
	}
}

// Start attaches gw and loads the first page of every item type.
func (s *ItemService) Start(ctx context.Context, gw gateway.Gateway) error {
	s.mu.Lock()
	s.gw = gw
	s.mu.Unlock()

	errs := []error{s.All.Start(ctx, gw)}
	for _, t := range investor.AllItemTypes {
		errs = append(errs, s.pages[t].Start(ctx, gw))
	}
	return errors.Join(errs...)
}

// Stop releases all change subscriptions.
func (s *ItemService) Stop() {
	s.All.Stop()
	for _, page := range s.pages {
		page.Stop()
	}
}

// Page returns the paginated cache for item type t.
func (s *ItemService) Page(t investor.ItemType) (*PagedCache[investor.Item], error) {
	page, ok := s.pages[t]
	if !ok {
		return nil, shared.InvalidInputf("unknown item type %q", t)
	}
	return page, nil
}

// Deals returns the paginated deal cache.
func (s *ItemService) Deals() *PagedCache[investor.Item] {
	return s.pages[investor.ItemTypeDeal]
}

// GetItemByID looks in the loaded collection first and asks the gateway
// only on a miss.
func (s *ItemService) GetItemByID(ctx context.Context, id string) (investor.Item, error) {
	if item, ok := s.All.Find(func(i investor.Item) bool { return i.ID == id }); ok {
		return item, nil
	}
	gw, err := s.gateway()
	if err != nil {
		return investor.Item{}, err
	}
	rows, err := gw.FetchAll(ctx, gateway.CollectionItem,
		gateway.Filter{gateway.ColumnID: id}.NotDeleted(), gateway.NewestFirst)
	if err != nil {
		return investor.Item{}, asFetchError("get_item", gateway.CollectionItem, err)
	}
	if len(rows) == 0 {
		return investor.Item{}, shared.ErrNotFound
	}
	item, err := investor.DecodeItem(rows[0])
	if err != nil {
		return investor.Item{}, shared.NewDataFetchError("decode", gateway.CollectionItem, err)
	}
	return item, nil
}

// CreateItem inserts a new item. Local state is only refreshed after the
// gateway confirms the insert.
func (s *ItemService) CreateItem(ctx context.Context, draft investor.ItemDraft) (investor.Item, error) {
	if err := draft.Validate(); err != nil {
		return investor.Item{}, err
	}
	gw, err := s.gateway()
	if err != nil {
		return investor.Item{}, err
	}
	mark := s.All.Mark()
	row, err := gw.Insert(ctx, gateway.CollectionItem, draft.Row())
	if err != nil {
		return investor.Item{}, asMutationError("insert", gateway.CollectionItem, err)
	}
	return s.confirmed(ctx, "insert", row, mark)
}

// UpdateItem applies patch to item id.
func (s *ItemService) UpdateItem(ctx context.Context, id string, patch investor.ItemPatch) (investor.Item, error) {
	if err := patch.Validate(); err != nil {
		return investor.Item{}, err
	}
	gw, err := s.gateway()
	if err != nil {
		return investor.Item{}, err
	}
	mark := s.All.Mark()
	row, err := gw.Update(ctx, gateway.CollectionItem, id, patch.Row())
	if err != nil {
		return investor.Item{}, asMutationError("update", gateway.CollectionItem, err)
	}
	return s.confirmed(ctx, "update", row, mark)
}

// DeleteItem soft deletes item id.
func (s *ItemService) DeleteItem(ctx context.Context, id string) error {
	gw, err := s.gateway()
	if err != nil {
		return err
	}
	mark := s.All.Mark()
	if err := gw.SoftDelete(ctx, gateway.CollectionItem, id); err != nil {
		return asMutationError("soft_delete", gateway.CollectionItem, err)
	}
	s.reload(ctx, mark)
	return nil
}

func (s *ItemService) confirmed(ctx context.Context, op string, row gateway.Row, mark uint64) (investor.Item, error) {
	item, err := investor.DecodeItem(row)
	if err != nil {
		return investor.Item{}, shared.NewMutationError(op, gateway.CollectionItem, err)
	}
	s.reload(ctx, mark)
	return item, nil
}

// reload refreshes the full collection after a confirmed mutation. A
// synchronous change feed has usually done so already.
func (s *ItemService) reload(ctx context.Context, mark uint64) {
	if _, err := s.All.ReloadSince(ctx, mark); err != nil {
		s.logger.Error("reload after mutation failed", zap.Error(err))
	}
}

func (s *ItemService) gateway() (gateway.Gateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.gw == nil {
		return nil, ErrNotStarted
	}
	return s.gw, nil
}
