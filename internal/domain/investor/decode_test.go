package investor

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irdash/backend/internal/domain/gateway"
)

func TestDecodePerson(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	p, err := DecodePerson(gateway.Row{
		"id":          "p1",
		"deleted":     false,
		"email":       "ada@example.com",
		"first_name":  "Ada",
		"last_name":   "Lovelace",
		"member_type": "internal",
		"created_at":  created,
		"unknown_col": "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, MemberTypeInternal, p.MemberType)
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, "Ada Lovelace", p.FullName())
	assert.Equal(t, "AL", p.Initials())
}

func TestDecodePerson_MissingMemberTypeUsesPolicy(t *testing.T) {
	p, err := DecodePerson(gateway.Row{"id": "p1", "member_type": nil})
	require.NoError(t, err)
	assert.Equal(t, MemberTypeCoInvestor, p.MemberType)

	p, err = PersonDecoder(MemberTypePolicy{Default: MemberTypeInternal})(gateway.Row{"id": "p2"})
	require.NoError(t, err)
	assert.Equal(t, MemberTypeInternal, p.MemberType)
}

func TestDecodeItem_LooseTypes(t *testing.T) {
	i, err := DecodeItem(gateway.Row{
		"id":          "d1",
		"type":        "Deal",
		"title":       "Fund I",
		"ticket_size": []byte("250000.50"),
		"deleted":     int64(0),
		"created_at":  "2025-03-01 10:00:00",
	})
	require.NoError(t, err)

	require.NotNil(t, i.TicketSize)
	assert.True(t, decimal.RequireFromString("250000.50").Equal(*i.TicketSize))
	assert.False(t, i.Deleted)
	assert.True(t, i.IsDeal())
	assert.Equal(t, 2025, i.CreatedAt.Year())
}

func TestDecodeItem_NullTicketSize(t *testing.T) {
	i, err := DecodeItem(gateway.Row{"id": "d2", "type": "Deal", "ticket_size": nil})
	require.NoError(t, err)
	assert.Nil(t, i.TicketSize)
}

func TestDecodeCommitment(t *testing.T) {
	c, err := DecodeCommitment(gateway.Row{
		"id":           "c1",
		"person_id":    "p1",
		"deal_id":      "d1",
		"ticket_count": float64(3),
		"deleted":      true,
		"created_at":   "2025-03-01T10:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.TicketCount)
	assert.True(t, c.Deleted)
}

func TestDecodeCommitment_BadTimestamp(t *testing.T) {
	_, err := DecodeCommitment(gateway.Row{"id": "c1", "created_at": "yesterday"})
	assert.Error(t, err)
}
