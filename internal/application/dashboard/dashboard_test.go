package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/investor"
	"github.com/irdash/backend/internal/domain/shared"
)

func TestDashboard_StartComputesKeyMetrics(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.seed(gateway.CollectionPerson, gateway.Row{"id": "A", "first_name": "Ada", "member_type": "Internal"})
	gw.seed(gateway.CollectionPerson, gateway.Row{"id": "B", "first_name": "Bo"})
	gw.seed(gateway.CollectionItem, gateway.Row{"id": "d1", "type": "Deal", "ticket_size": "100"})
	gw.seed(gateway.CollectionItem, gateway.Row{"id": "e1", "type": "Event"})
	gw.seed(gateway.CollectionCommitment, gateway.Row{"person_id": "B", "deal_id": "d1", "ticket_count": 3})

	registry := NewVolumeStreamRegistry()
	d := NewDashboard(registry)
	require.NoError(t, d.Start(ctx, gw))
	defer d.Stop()

	assert.Same(t, d.Volumes, registry.Get(d.Persons.All, d.Items.All, d.Commitments.All))

	m, err := d.KeyMetrics(0)
	require.NoError(t, err)
	assert.Equal(t, 2, m.TotalMembers)
	assert.Equal(t, 1, m.MembersByType[investor.MemberTypeInternal])
	assert.Equal(t, 1, m.MembersByType[investor.MemberTypeCoInvestor])
	assert.Equal(t, 1, m.TotalDeals)
	assert.Equal(t, "300", m.TotalCommittedVolume.String())
	require.Len(t, m.TopInvestors, 2)
	assert.Equal(t, "B", m.TopInvestors[0].PersonID)
}

func TestDashboard_Unconfigured(t *testing.T) {
	d := NewDashboard(NewVolumeStreamRegistry())

	err := d.Start(context.Background(), gateway.Unconfigured{})

	assert.ErrorIs(t, err, shared.ErrConfiguration)
	assert.ErrorIs(t, d.Persons.Page.Snapshot().Err, shared.ErrConfiguration)
	_, err = d.KeyMetrics(3)
	assert.ErrorIs(t, err, shared.ErrConfiguration)
	d.Stop()
}

func TestDashboard_StopReleasesEverySubscription(t *testing.T) {
	gw := newFakeGateway()
	d := NewDashboard(NewVolumeStreamRegistry())
	require.NoError(t, d.Start(context.Background(), gw))

	d.Stop()

	for _, c := range []string{gateway.CollectionPerson, gateway.CollectionItem, gateway.CollectionCommitment} {
		assert.Zero(t, gw.subscriberCount(c), c)
	}
}
