package dashboard

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/investor"
	"github.com/irdash/backend/internal/domain/shared"
)

// DefaultTopInvestors is the length of the top investor list in key metrics.
const DefaultTopInvestors = 5

// Dashboard groups the data services, the committed volume stream built on
// their full collections, and the page sets of every client session. The
// services' own Page caches serve single-session callers such as the CLI.
type Dashboard struct {
	Persons     *PersonService
	Items       *ItemService
	Commitments *CommitmentService
	Volumes     *CommittedVolumeStream
	Sessions    *SessionPages

	logger *zap.Logger
}

// NewDashboard creates every service and obtains the volume stream from
// registry. Nothing is fetched until Start.
func NewDashboard(registry *VolumeStreamRegistry, opts ...Option) *Dashboard {
	o := newOptions(opts)
	d := &Dashboard{
		Persons:     NewPersonService(opts...),
		Items:       NewItemService(opts...),
		Commitments: NewCommitmentService(opts...),
		Sessions:    NewSessionPages(opts...),
		logger:      o.logger,
	}
	d.Volumes = registry.Get(d.Persons.All, d.Items.All, d.Commitments.All)
	return d
}

// Start attaches gw to every service and starts the volume stream. Failures
// are returned joined; each cache also records its own failure, so a
// partially available gateway still serves whatever loaded.
func (d *Dashboard) Start(ctx context.Context, gw gateway.Gateway) error {
	d.Sessions.Start(ctx, gw)
	err := errors.Join(
		d.Persons.Start(ctx, gw),
		d.Items.Start(ctx, gw),
		d.Commitments.Start(ctx, gw),
		d.Volumes.Start(ctx),
	)
	if err != nil {
		d.logger.Warn("dashboard started with errors", zap.Error(err))
		return err
	}
	d.logger.Info("dashboard started")
	return nil
}

// Stop detaches the stream and releases every subscription.
func (d *Dashboard) Stop() {
	d.Volumes.Stop()
	d.Sessions.Stop()
	d.Persons.Stop()
	d.Items.Stop()
	d.Commitments.Stop()
	d.logger.Info("dashboard stopped")
}

// KeyMetrics summarises the current collections and committed volumes.
// topN <= 0 uses DefaultTopInvestors.
func (d *Dashboard) KeyMetrics(topN int) (investor.KeyMetrics, error) {
	if topN <= 0 {
		topN = DefaultTopInvestors
	}
	update, ok := d.Volumes.LatestUpdate()
	if !ok {
		return investor.KeyMetrics{}, shared.ErrInvalidState
	}
	if update.Err != nil {
		return investor.KeyMetrics{}, update.Err
	}
	persons := d.Persons.All.Snapshot()
	items := d.Items.All.Snapshot()
	return investor.SummarizeKeyMetrics(persons.Rows, items.Rows, update.Volumes, topN), nil
}
