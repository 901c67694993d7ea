package persistence

import (
	"strings"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/shared"
)

// columnSet is the whitelist of columns a collection may be filtered,
// ordered or written by.
type columnSet map[string]bool

var baseColumns = []string{
	gateway.ColumnID,
	gateway.ColumnDeleted,
	gateway.ColumnCreatedAt,
	gateway.ColumnUpdatedAt,
}

func newColumnSet(cols ...string) columnSet {
	set := make(columnSet, len(cols)+len(baseColumns))
	for _, c := range baseColumns {
		set[c] = true
	}
	for _, c := range cols {
		set[c] = true
	}
	return set
}

// collectionColumns lists the collections served by the gateway.
var collectionColumns = map[string]columnSet{
	gateway.CollectionPerson: newColumnSet(
		"email", "first_name", "last_name", "username", "member_type",
		"member_status", "phone", "linkedin_url", "organization_id", "short_bio",
	),
	gateway.CollectionItem: newColumnSet(
		"type", "title", "status", "sector", "ticket_size",
	),
	gateway.CollectionCommitment: newColumnSet(
		"person_id", "deal_id", "ticket_count",
	),
}

// immutableColumns cannot be changed by Update.
var immutableColumns = map[string]bool{
	gateway.ColumnID:        true,
	gateway.ColumnCreatedAt: true,
}

func columnsOf(collection string) (columnSet, error) {
	cols, ok := collectionColumns[collection]
	if !ok {
		return nil, shared.InvalidInputf("unknown collection %q", collection)
	}
	return cols, nil
}

func (s columnSet) check(keys map[string]any) error {
	for k := range keys {
		if !s[k] {
			return shared.InvalidInputf("unknown column %q", k)
		}
	}
	return nil
}

// orderClause returns the ORDER BY expression for order, defaulting to
// created_at descending. The column is always taken from the whitelist.
func (s columnSet) orderClause(order gateway.Order) (string, error) {
	field := strings.TrimSpace(order.Field)
	if field == "" {
		field = gateway.ColumnCreatedAt
		order.Descending = true
	}
	if !s[field] {
		return "", shared.InvalidInputf("unknown order column %q", field)
	}
	dir := "ASC"
	if order.Descending {
		dir = "DESC"
	}
	// id breaks ties so that page boundaries are stable.
	if field == gateway.ColumnID {
		return field + " " + dir, nil
	}
	return field + " " + dir + ", id " + dir, nil
}
