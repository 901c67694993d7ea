package investor

import "strings"

// MemberType classifies a person's relationship to the fund.
type MemberType string

const (
	MemberTypeInternal   MemberType = "Internal"
	MemberTypeCoCreator  MemberType = "Co-Creator"
	MemberTypeCoInvestor MemberType = "Co-Investor"
)

// AllMemberTypes lists member types in display order.
var AllMemberTypes = []MemberType{MemberTypeInternal, MemberTypeCoCreator, MemberTypeCoInvestor}

// IsValid reports whether m is one of the known member types.
func (m MemberType) IsValid() bool {
	switch m {
	case MemberTypeInternal, MemberTypeCoCreator, MemberTypeCoInvestor:
		return true
	}
	return false
}

// MemberTypePolicy maps stored member type values to MemberType.
// Values that are missing or not recognised map to Default.
type MemberTypePolicy struct {
	Default MemberType
}

// DefaultMemberTypePolicy treats unknown members as co-investors.
var DefaultMemberTypePolicy = MemberTypePolicy{Default: MemberTypeCoInvestor}

// Parse is total: it never fails and always returns a valid member type.
// Matching is case-insensitive and accepts hyphen, underscore or no
// separator between "co" and the role.
func (p MemberTypePolicy) Parse(raw string) MemberType {
	switch normalizeMemberType(raw) {
	case "internal":
		return MemberTypeInternal
	case "cocreator":
		return MemberTypeCoCreator
	case "coinvestor":
		return MemberTypeCoInvestor
	}
	if p.Default.IsValid() {
		return p.Default
	}
	return MemberTypeCoInvestor
}

// ParseMemberType parses raw with DefaultMemberTypePolicy.
func ParseMemberType(raw string) MemberType {
	return DefaultMemberTypePolicy.Parse(raw)
}

func normalizeMemberType(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return strings.ReplaceAll(s, " ", "")
}
