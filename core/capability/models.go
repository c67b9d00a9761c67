// Package capability holds the organization capability grants and the pure
// functions deriving what a session may see from them.
package capability

import (
	"strings"
	"time"
)

// Roles
const (
	RoleCINAdmin Role = "cin_admin" // network-wide super admin
	RoleOrgAdmin Role = "org_admin" // admin of one organization
	RolePlayer   Role = "player"    // end user
)

// Grant types
const (
	GrantPlayerOrg      GrantType = "player_org"
	GrantMissionCreator GrantType = "mission_creator"
	GrantRewardCreator  GrantType = "reward_creator"
)

// Grant statuses
const (
	StatusPending  GrantStatus = "pending"
	StatusApproved GrantStatus = "approved"
	StatusRejected GrantStatus = "rejected"
)

var (
	AllRoles      = []Role{RoleCINAdmin, RoleOrgAdmin, RolePlayer}
	AllGrantTypes = []GrantType{GrantPlayerOrg, GrantMissionCreator, GrantRewardCreator}
	AllStatuses   = []GrantStatus{StatusPending, StatusApproved, StatusRejected}

	// privilege scheme names, kept as aliases of the capability scheme
	grantTypeAliases = map[string]GrantType{
		"mobilizing_partners": GrantPlayerOrg,
		"mission_partners":    GrantMissionCreator,
		"reward_partners":     GrantRewardCreator,
	}

	rolePriorities = map[Role]int{
		RoleCINAdmin: 30,
		RoleOrgAdmin: 20,
		RolePlayer:   10,
	}
)

type (
	Role        string
	GrantType   string
	GrantStatus string

	// Grant is one requested capability of an organization and its approval state.
	Grant struct {
		ID             string      `json:"id"`
		OrganizationID string      `json:"organization_id"`
		Type           GrantType   `json:"type"`
		Status         GrantStatus `json:"status"`
		Note           string      `json:"note,omitempty"`
		DecidedBy      string      `json:"decided_by,omitempty"`
		RequestedAt    time.Time   `json:"requested_at"`
		DecidedAt      time.Time   `json:"decided_at"`
	}

	// Organization is what the resolver reads of an organization.
	Organization struct {
		ID     string  `json:"id"`
		Name   string  `json:"name"`
		Grants []Grant `json:"grants"`
	}
)

// ParseRole maps s to a Role. Unknown or empty values map to RolePlayer (least privilege).
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCINAdmin, RoleOrgAdmin:
		return r
	default:
		return RolePlayer
	}
}

func (r Role) IsValid() bool {
	_, ok := rolePriorities[r]
	return ok
}

func (r Role) Priority() int {
	return rolePriorities[r]
}

func (r Role) String() string {
	return string(r)
}

// IsOrgScoped reports whether users with this role must belong to an organization.
func (r Role) IsOrgScoped() bool {
	return r == RoleOrgAdmin || r == RolePlayer
}

// ParseGrantType maps both the capability and the privilege naming schemes to a canonical GrantType.
func ParseGrantType(s string) (GrantType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch t := GrantType(s); t {
	case GrantPlayerOrg, GrantMissionCreator, GrantRewardCreator:
		return t, true
	}
	t, ok := grantTypeAliases[s]
	return t, ok
}

func (t GrantType) IsValid() bool {
	_, ok := ParseGrantType(string(t))
	return ok
}

// Canonical returns the capability scheme name of t, or "" if t is unknown.
func (t GrantType) Canonical() GrantType {
	ct, _ := ParseGrantType(string(t))
	return ct
}

func (s GrantStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s GrantStatus) IsApproved() bool {
	return s == StatusApproved
}

// IsDecided reports whether s is terminal.
func (s GrantStatus) IsDecided() bool {
	return s == StatusApproved || s == StatusRejected
}
