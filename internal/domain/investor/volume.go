package investor

import (
	"slices"

	"github.com/shopspring/decimal"
)

// VolumeMap maps person id to total committed volume.
type VolumeMap map[string]decimal.Decimal

// Total sums all volumes.
func (v VolumeMap) Total() decimal.Decimal {
	total := decimal.Zero
	for _, vol := range v {
		total = total.Add(vol)
	}
	return total
}

// ComputeCommittedVolume returns the committed volume of every non-deleted
// person. A commitment contributes ticket_count * ticket_size when it and
// its deal are not deleted and the deal has a ticket size; otherwise it
// contributes nothing. Persons without commitments map to zero.
func ComputeCommittedVolume(persons []Person, items []Item, commitments []Commitment) VolumeMap {
	volumes := make(VolumeMap, len(persons))
	for _, p := range persons {
		if !p.Deleted {
			volumes[p.ID] = decimal.Zero
		}
	}

	ticketSizes := make(map[string]decimal.Decimal, len(items))
	for _, item := range items {
		if item.Deleted || item.TicketSize == nil {
			continue
		}
		ticketSizes[item.ID] = *item.TicketSize
	}

	for _, c := range commitments {
		if c.Deleted {
			continue
		}
		total, ok := volumes[c.PersonID]
		if !ok {
			continue
		}
		size, ok := ticketSizes[c.DealID]
		if !ok {
			continue
		}
		volumes[c.PersonID] = total.Add(size.Mul(decimal.NewFromInt(c.TicketCount)))
	}
	return volumes
}

// InvestorVolume pairs a person with their committed volume.
type InvestorVolume struct {
	PersonID string          `json:"person_id"`
	Name     string          `json:"name"`
	Volume   decimal.Decimal `json:"volume"`
}

// RankInvestors returns the n persons with the highest committed volume,
// highest first. Ties are broken by person id. n <= 0 returns everyone.
func RankInvestors(persons []Person, volumes VolumeMap, n int) []InvestorVolume {
	ranked := make([]InvestorVolume, 0, len(volumes))
	for _, p := range persons {
		vol, ok := volumes[p.ID]
		if !ok {
			continue
		}
		ranked = append(ranked, InvestorVolume{PersonID: p.ID, Name: p.FullName(), Volume: vol})
	}
	slices.SortFunc(ranked, func(a, b InvestorVolume) int {
		if c := b.Volume.Cmp(a.Volume); c != 0 {
			return c
		}
		if a.PersonID < b.PersonID {
			return -1
		}
		if a.PersonID > b.PersonID {
			return 1
		}
		return 0
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
