package investor

import (
	"strings"
	"time"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/shared"
)

// Commitment records a person taking a number of tickets in a deal.
type Commitment struct {
	ID          string     `json:"id"`
	PersonID    string     `json:"person_id"`
	DealID      string     `json:"deal_id"`
	TicketCount int64      `json:"ticket_count"`
	Deleted     bool       `json:"deleted"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// CommitmentDraft holds the fields of a new commitment.
type CommitmentDraft struct {
	PersonID    string `json:"person_id"`
	DealID      string `json:"deal_id"`
	TicketCount int64  `json:"ticket_count"`
}

// Validate checks the draft before it is sent to the gateway.
func (d CommitmentDraft) Validate() error {
	if strings.TrimSpace(d.PersonID) == "" {
		return shared.InvalidInputf("person_id is required")
	}
	if strings.TrimSpace(d.DealID) == "" {
		return shared.InvalidInputf("deal_id is required")
	}
	if d.TicketCount <= 0 {
		return shared.InvalidInputf("ticket_count must be positive")
	}
	return nil
}

// Row converts the draft to a gateway row.
func (d CommitmentDraft) Row() gateway.Row {
	return gateway.Row{
		"person_id":    d.PersonID,
		"deal_id":      d.DealID,
		"ticket_count": d.TicketCount,
	}
}

// CommitmentPatch holds the fields to change on an existing commitment.
type CommitmentPatch struct {
	DealID      *string `json:"deal_id,omitempty"`
	TicketCount *int64  `json:"ticket_count,omitempty"`
}

// Validate checks the patch before it is sent to the gateway.
func (p CommitmentPatch) Validate() error {
	if p.DealID != nil && strings.TrimSpace(*p.DealID) == "" {
		return shared.InvalidInputf("deal_id must not be empty")
	}
	if p.TicketCount != nil && *p.TicketCount <= 0 {
		return shared.InvalidInputf("ticket_count must be positive")
	}
	if p.DealID == nil && p.TicketCount == nil {
		return shared.InvalidInputf("nothing to update")
	}
	return nil
}

// Row converts the patch to a gateway row.
func (p CommitmentPatch) Row() gateway.Row {
	row := gateway.Row{}
	if p.DealID != nil {
		row["deal_id"] = *p.DealID
	}
	if p.TicketCount != nil {
		row["ticket_count"] = *p.TicketCount
	}
	return row
}

// TotalTickets sums ticket counts of the non-deleted commitments.
func TotalTickets(commitments []Commitment) int64 {
	var total int64
	for _, c := range commitments {
		if !c.Deleted {
			total += c.TicketCount
		}
	}
	return total
}
