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

// CommitmentService serves commitments and the per-deal views built on them.
type CommitmentService struct {
	Page *PagedCache[investor.Commitment]
	All  *Collection[investor.Commitment]

	logger *zap.Logger

	mu sync.RWMutex
	gw gateway.Gateway
}

// NewCommitmentService creates the commitment caches.
func NewCommitmentService(opts ...Option) *CommitmentService {
	o := newOptions(opts)
	return &CommitmentService{
		Page:   newCommitmentPage(opts),
		All:    NewCollection(gateway.CollectionCommitment, nil, investor.DecodeCommitment, opts...),
		logger: o.logger.With(zap.String("service", "commitment")),
	}
}

// Start attaches gw and loads the first page of commitments.
func (s *CommitmentService) Start(ctx context.Context, gw gateway.Gateway) error {
	s.mu.Lock()
	s.gw = gw
	s.mu.Unlock()

	return errors.Join(
		s.Page.Start(ctx, gw),
		s.All.Start(ctx, gw),
	)
}

// Stop releases all change subscriptions.
func (s *CommitmentService) Stop() {
	s.Page.Stop()
	s.All.Stop()
}

// GetCommitmentByID looks in the loaded collection first and asks the
// gateway only on a miss.
func (s *CommitmentService) GetCommitmentByID(ctx context.Context, id string) (investor.Commitment, error) {
	if c, ok := s.All.Find(func(c investor.Commitment) bool { return c.ID == id }); ok {
		return c, nil
	}
	found, err := s.query(ctx, "get_commitment", gateway.Filter{gateway.ColumnID: id})
	if err != nil {
		return investor.Commitment{}, err
	}
	if len(found) == 0 {
		return investor.Commitment{}, shared.ErrNotFound
	}
	return found[0], nil
}

// GetCommitmentsByDealID returns the non-deleted commitments on a deal.
func (s *CommitmentService) GetCommitmentsByDealID(ctx context.Context, dealID string) ([]investor.Commitment, error) {
	return s.query(ctx, "by_deal", gateway.Filter{"deal_id": dealID})
}

// GetCommitmentsByPersonID returns the non-deleted commitments of a person.
func (s *CommitmentService) GetCommitmentsByPersonID(ctx context.Context, personID string) ([]investor.Commitment, error) {
	return s.query(ctx, "by_person", gateway.Filter{"person_id": personID})
}

// TotalTicketsByDeal sums the ticket counts committed to a deal.
func (s *CommitmentService) TotalTicketsByDeal(ctx context.Context, dealID string) (int64, error) {
	commitments, err := s.GetCommitmentsByDealID(ctx, dealID)
	if err != nil {
		return 0, err
	}
	return investor.TotalTickets(commitments), nil
}

// CreateCommitment inserts a new commitment.
func (s *CommitmentService) CreateCommitment(ctx context.Context, draft investor.CommitmentDraft) (investor.Commitment, error) {
	if err := draft.Validate(); err != nil {
		return investor.Commitment{}, err
	}
	gw, err := s.gateway()
	if err != nil {
		return investor.Commitment{}, err
	}
	mark := s.All.Mark()
	row, err := gw.Insert(ctx, gateway.CollectionCommitment, draft.Row())
	if err != nil {
		return investor.Commitment{}, asMutationError("insert", gateway.CollectionCommitment, err)
	}
	return s.confirmed(ctx, "insert", row, mark)
}

// UpdateCommitment applies patch to commitment id.
func (s *CommitmentService) UpdateCommitment(ctx context.Context, id string, patch investor.CommitmentPatch) (investor.Commitment, error) {
	if err := patch.Validate(); err != nil {
		return investor.Commitment{}, err
	}
	gw, err := s.gateway()
	if err != nil {
		return investor.Commitment{}, err
	}
	mark := s.All.Mark()
	row, err := gw.Update(ctx, gateway.CollectionCommitment, id, patch.Row())
	if err != nil {
		return investor.Commitment{}, asMutationError("update", gateway.CollectionCommitment, err)
	}
	return s.confirmed(ctx, "update", row, mark)
}

// DeleteCommitment soft deletes commitment id.
func (s *CommitmentService) DeleteCommitment(ctx context.Context, id string) error {
	gw, err := s.gateway()
	if err != nil {
		return err
	}
	mark := s.All.Mark()
	if err := gw.SoftDelete(ctx, gateway.CollectionCommitment, id); err != nil {
		return asMutationError("soft_delete", gateway.CollectionCommitment, err)
	}
	s.reload(ctx, mark)
	return nil
}

func (s *CommitmentService) query(ctx context.Context, op string, filter gateway.Filter) ([]investor.Commitment, error) {
	gw, err := s.gateway()
	if err != nil {
		return nil, err
	}
	rows, err := gw.FetchAll(ctx, gateway.CollectionCommitment, filter.NotDeleted(), gateway.NewestFirst)
	if err != nil {
		return nil, asFetchError(op, gateway.CollectionCommitment, err)
	}
	out, err := decodeRows(rows, investor.DecodeCommitment)
	if err != nil {
		return nil, shared.NewDataFetchError("decode", gateway.CollectionCommitment, err)
	}
	return out, nil
}

func (s *CommitmentService) confirmed(ctx context.Context, op string, row gateway.Row, mark uint64) (investor.Commitment, error) {
	c, err := investor.DecodeCommitment(row)
	if err != nil {
		return investor.Commitment{}, shared.NewMutationError(op, gateway.CollectionCommitment, err)
	}
	s.reload(ctx, mark)
	return c, nil
}

// reload refreshes the full collection after a confirmed mutation. A
// synchronous change feed has usually done so already.
func (s *CommitmentService) reload(ctx context.Context, mark uint64) {
	if _, err := s.All.ReloadSince(ctx, mark); err != nil {
		s.logger.Error("reload after mutation failed", zap.Error(err))
	}
}

func (s *CommitmentService) gateway() (gateway.Gateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.gw == nil {
		return nil, ErrNotStarted
	}
	return s.gw, nil
}
