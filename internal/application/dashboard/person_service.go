package dashboard

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/investor"
	"github.com/irdash/backend/internal/domain/shared"
)

// PersonService serves the members tab.
type PersonService struct {
	Page *PagedCache[investor.Person]
	All  *Collection[investor.Person]

	logger *zap.Logger
}

// NewPersonService creates the member caches. Nothing is fetched until Start.
func NewPersonService(opts ...Option) *PersonService {
	o := newOptions(opts)
	return &PersonService{
		Page:   newPersonPage(opts),
		All:    NewCollection(gateway.CollectionPerson, nil, investor.PersonDecoder(o.memberTypePolicy), opts...),
		logger: o.logger,
	}
}

// Start attaches gw and loads the first page of members.
func (s *PersonService) Start(ctx context.Context, gw gateway.Gateway) error {
	return errors.Join(
		s.Page.Start(ctx, gw),
		s.All.Start(ctx, gw),
	)
}

// Stop releases all change subscriptions.
func (s *PersonService) Stop() {
	s.Page.Stop()
	s.All.Stop()
}

// FindByID returns a non-deleted person from the full collection.
func (s *PersonService) FindByID(ctx context.Context, id string) (investor.Person, error) {
	if err := s.All.EnsureLoaded(ctx); err != nil {
		return investor.Person{}, err
	}
	p, ok := s.All.Find(func(p investor.Person) bool { return p.ID == id })
	if !ok {
		return investor.Person{}, shared.ErrNotFound
	}
	return p, nil
}
