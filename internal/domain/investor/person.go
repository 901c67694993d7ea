package investor

import (
	"strings"
	"time"
)

// Person is a member of the investor community.
type Person struct {
	ID             string     `json:"id"`
	Deleted        bool       `json:"deleted"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name,omitempty"`
	LastName       string     `json:"last_name,omitempty"`
	Username       string     `json:"username,omitempty"`
	MemberType     MemberType `json:"member_type"`
	MemberStatus   string     `json:"member_status,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	LinkedinURL    string     `json:"linkedin_url,omitempty"`
	OrganizationID string     `json:"organization_id,omitempty"`
	ShortBio       string     `json:"short_bio,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// FullName joins first and last name, falling back to the username and
// then the email address.
func (p Person) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	switch {
	case name != "":
		return name
	case p.Username != "":
		return p.Username
	default:
		return p.Email
	}
}

// Initials returns up to two upper-case initials for avatar rendering.
func (p Person) Initials() string {
	var out []rune
	for _, part := range strings.Fields(p.FullName()) {
		for _, r := range part {
			out = append(out, r)
			break
		}
		if len(out) == 2 {
			break
		}
	}
	return strings.ToUpper(string(out))
}
