package investor

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/shared"
)

// ItemType distinguishes the kinds of items published to members.
type ItemType string

const (
	ItemTypeDeal       ItemType = "Deal"
	ItemTypeContent    ItemType = "Content"
	ItemTypeEvent      ItemType = "Event"
	ItemTypeEngagement ItemType = "Engagement"
)

// AllItemTypes lists item types in tab order.
var AllItemTypes = []ItemType{ItemTypeDeal, ItemTypeContent, ItemTypeEvent, ItemTypeEngagement}

// IsValid reports whether t is a known item type.
func (t ItemType) IsValid() bool {
	switch t {
	case ItemTypeDeal, ItemTypeContent, ItemTypeEvent, ItemTypeEngagement:
		return true
	}
	return false
}

// ParseItemType matches s case-insensitively against the known item types.
func ParseItemType(s string) (ItemType, error) {
	for _, t := range AllItemTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", shared.InvalidInputf("unknown item type %q", s)
}

// Item is a deal, content piece, event or engagement. Only deals carry a
// ticket size.
type Item struct {
	ID         string           `json:"id"`
	Type       ItemType         `json:"type"`
	Title      string           `json:"title,omitempty"`
	Status     string           `json:"status,omitempty"`
	Sector     string           `json:"sector,omitempty"`
	TicketSize *decimal.Decimal `json:"ticket_size,omitempty"`
	Deleted    bool             `json:"deleted"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  *time.Time       `json:"updated_at,omitempty"`
}

// IsDeal reports whether the item is a deal.
func (i Item) IsDeal() bool {
	return i.Type == ItemTypeDeal
}

// ItemDraft holds the fields of a new item.
type ItemDraft struct {
	Type       ItemType         `json:"type"`
	Title      string           `json:"title"`
	Status     string           `json:"status,omitempty"`
	Sector     string           `json:"sector,omitempty"`
	TicketSize *decimal.Decimal `json:"ticket_size,omitempty"`
}

// Validate checks the draft before it is sent to the gateway.
func (d ItemDraft) Validate() error {
	if !d.Type.IsValid() {
		return shared.InvalidInputf("unknown item type %q", d.Type)
	}
	if strings.TrimSpace(d.Title) == "" {
		return shared.InvalidInputf("item title is required")
	}
	if d.TicketSize != nil && d.TicketSize.IsNegative() {
		return shared.InvalidInputf("ticket size must not be negative")
	}
	return nil
}

// Row converts the draft to a gateway row.
func (d ItemDraft) Row() gateway.Row {
	row := gateway.Row{
		"type":  string(d.Type),
		"title": d.Title,
	}
	if d.Status != "" {
		row["status"] = d.Status
	}
	if d.Sector != "" {
		row["sector"] = d.Sector
	}
	if d.TicketSize != nil {
		row["ticket_size"] = *d.TicketSize
	}
	return row
}

// ItemPatch holds the fields to change on an existing item. Nil fields are
// left untouched.
type ItemPatch struct {
	Title      *string          `json:"title,omitempty"`
	Status     *string          `json:"status,omitempty"`
	Sector     *string          `json:"sector,omitempty"`
	TicketSize *decimal.Decimal `json:"ticket_size,omitempty"`
}

// Validate checks the patch before it is sent to the gateway.
func (p ItemPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return shared.InvalidInputf("item title must not be empty")
	}
	if p.TicketSize != nil && p.TicketSize.IsNegative() {
		return shared.InvalidInputf("ticket size must not be negative")
	}
	if len(p.Row()) == 0 {
		return shared.InvalidInputf("nothing to update")
	}
	return nil
}

// Row converts the patch to a gateway row.
func (p ItemPatch) Row() gateway.Row {
	row := gateway.Row{}
	if p.Title != nil {
		row["title"] = *p.Title
	}
	if p.Status != nil {
		row["status"] = *p.Status
	}
	if p.Sector != nil {
		row["sector"] = *p.Sector
	}
	if p.TicketSize != nil {
		row["ticket_size"] = *p.TicketSize
	}
	return row
}
