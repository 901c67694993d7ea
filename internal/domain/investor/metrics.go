package investor

import "github.com/shopspring/decimal"

// KeyMetrics is the headline summary shown on the key metrics tab.
type KeyMetrics struct {
	TotalMembers         int                `json:"total_members"`
	MembersByType        map[MemberType]int `json:"members_by_type"`
	TotalDeals           int                `json:"total_deals"`
	TotalCommittedVolume decimal.Decimal    `json:"total_committed_volume"`
	TopInvestors         []InvestorVolume   `json:"top_investors"`
}

// SummarizeKeyMetrics derives the key metrics from full collection
// snapshots and a committed volume map. Deleted rows are ignored.
func SummarizeKeyMetrics(persons []Person, items []Item, volumes VolumeMap, topN int) KeyMetrics {
	m := KeyMetrics{
		MembersByType: make(map[MemberType]int, len(AllMemberTypes)),
	}
	for _, t := range AllMemberTypes {
		m.MembersByType[t] = 0
	}
	for _, p := range persons {
		if p.Deleted {
			continue
		}
		m.TotalMembers++
		m.MembersByType[p.MemberType]++
	}
	for _, i := range items {
		if !i.Deleted && i.IsDeal() {
			m.TotalDeals++
		}
	}
	m.TotalCommittedVolume = volumes.Total()
	m.TopInvestors = RankInvestors(persons, volumes, topN)
	return m
}
