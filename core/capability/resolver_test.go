package capability

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func grant(t GrantType, s GrantStatus) Grant {
	return Grant{Type: t, Status: s}
}

func org(grants ...Grant) *Organization {
	return &Organization{ID: "org-1", Name: "Green Org", Grants: grants}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		role Role
		org  *Organization
		want VisibleFeatureSet
	}{
		{name: "player, no org", role: RolePlayer, want: VisibleFeatureSet{}},
		{name: "org_admin, no org", role: RoleOrgAdmin, want: VisibleFeatureSet{}},
		{name: "unknown role, no org", role: Role("root"), want: VisibleFeatureSet{}},
		{name: "org_admin, no grants", role: RoleOrgAdmin, org: org(), want: VisibleFeatureSet{}},
		{
			name: "approved mission_creator",
			role: RoleOrgAdmin,
			org:  org(grant(GrantMissionCreator, StatusApproved)),
			want: VisibleFeatureSet{HasMissionCreator: true},
		},
		{name: "pending mission_creator", role: RoleOrgAdmin, org: org(grant(GrantMissionCreator, StatusPending))},
		{name: "rejected mission_creator", role: RoleOrgAdmin, org: org(grant(GrantMissionCreator, StatusRejected))},
		{
			name: "approved + pending",
			role: RoleOrgAdmin,
			org:  org(grant(GrantMissionCreator, StatusApproved), grant(GrantRewardCreator, StatusPending)),
			want: VisibleFeatureSet{HasMissionCreator: true},
		},
		{
			name: "duplicates: rejected then approved",
			role: RoleOrgAdmin,
			org:  org(grant(GrantPlayerOrg, StatusRejected), grant(GrantPlayerOrg, StatusApproved)),
			want: VisibleFeatureSet{HasPlayerOrg: true},
		},
		{
			name: "duplicates: approved then rejected",
			role: RoleOrgAdmin,
			org:  org(grant(GrantPlayerOrg, StatusApproved), grant(GrantPlayerOrg, StatusRejected)),
			want: VisibleFeatureSet{HasPlayerOrg: true},
		},
		{
			name: "all approved",
			role: RolePlayer,
			org: org(
				grant(GrantPlayerOrg, StatusApproved),
				grant(GrantMissionCreator, StatusApproved),
				grant(GrantRewardCreator, StatusApproved),
			),
			want: VisibleFeatureSet{HasPlayerOrg: true, HasMissionCreator: true, HasRewardCreator: true},
		},
		{
			name: "privilege scheme names",
			role: RoleOrgAdmin,
			org: org(
				grant("mobilizing_partners", StatusApproved),
				grant("mission_partners", StatusApproved),
				grant("reward_partners", StatusPending),
			),
			want: VisibleFeatureSet{HasPlayerOrg: true, HasMissionCreator: true},
		},
		{
			name: "unknown grant type is ignored",
			role: RoleOrgAdmin,
			org:  org(grant("time_traveler", StatusApproved), grant(GrantRewardCreator, StatusApproved)),
			want: VisibleFeatureSet{HasRewardCreator: true},
		},
		{
			name: "unknown status is not approved",
			role: RoleOrgAdmin,
			org:  org(grant(GrantRewardCreator, "APPROVED")),
		},
		{
			name: "cin_admin, no org",
			role: RoleCINAdmin,
			want: VisibleFeatureSet{CanManageStakeholders: true, CanReviewSubmissions: true, CanBrowseOrganizations: true},
		},
		{
			name: "cin_admin does not bypass organization grants",
			role: RoleCINAdmin,
			org:  org(grant(GrantMissionCreator, StatusPending), grant(GrantRewardCreator, StatusApproved)),
			want: VisibleFeatureSet{
				HasRewardCreator:       true,
				CanManageStakeholders:  true,
				CanReviewSubmissions:   true,
				CanBrowseOrganizations: true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.role, tt.org); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolve_idempotent(t *testing.T) {
	o := org(
		grant(GrantPlayerOrg, StatusRejected),
		grant(GrantPlayerOrg, StatusApproved),
		grant(GrantMissionCreator, StatusPending),
	)
	before := make([]Grant, len(o.Grants))
	copy(before, o.Grants)

	first := Resolve(RoleOrgAdmin, o)
	second := Resolve(RoleOrgAdmin, o)

	assert.Equal(t, first, second)
	assert.Equal(t, before, o.Grants, "Resolve() must not mutate its input")
}

func TestResolve_nilOrgNonAdminAllFalse(t *testing.T) {
	for _, role := range []Role{RoleOrgAdmin, RolePlayer, "", "superuser"} {
		fs := Resolve(role, nil)
		if enabled := fs.Enabled(); len(enabled) != 0 {
			t.Errorf("Resolve(%q, nil).Enabled() = %v, want none", role, enabled)
		}
	}
}

func TestVisibleFeatureSet_Has(t *testing.T) {
	fs := VisibleFeatureSet{HasMissionCreator: true, CanReviewSubmissions: true}

	assert.True(t, fs.Has(FeatureMissionCreator))
	assert.True(t, fs.Has(FeatureReviewSubmissions))
	assert.False(t, fs.Has(FeaturePlayerOrg))
	assert.False(t, fs.Has(Feature("hasEverything")))
	assert.Equal(t, []Feature{FeatureMissionCreator, FeatureReviewSubmissions}, fs.Enabled())
	assert.True(t, fs.AnyNetwork())
	assert.False(t, VisibleFeatureSet{HasPlayerOrg: true}.AnyNetwork())
}

func TestParseGrantType(t *testing.T) {
	tests := []struct {
		in     string
		want   GrantType
		wantOk bool
	}{
		{in: "player_org", want: GrantPlayerOrg, wantOk: true},
		{in: "mission_creator", want: GrantMissionCreator, wantOk: true},
		{in: " Reward_Creator ", want: GrantRewardCreator, wantOk: true},
		{in: "mobilizing_partners", want: GrantPlayerOrg, wantOk: true},
		{in: "mission_partners", want: GrantMissionCreator, wantOk: true},
		{in: "REWARD_PARTNERS", want: GrantRewardCreator, wantOk: true},
		{in: ""},
		{in: "lol"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseGrantType(tt.in)
			if got != tt.want || ok != tt.wantOk {
				t.Errorf("ParseGrantType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{in: "cin_admin", want: RoleCINAdmin},
		{in: " ORG_ADMIN", want: RoleOrgAdmin},
		{in: "player", want: RolePlayer},
		{in: "", want: RolePlayer},
		{in: "owner", want: RolePlayer},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	assert.Greater(t, RoleCINAdmin.Priority(), RoleOrgAdmin.Priority())
	assert.Greater(t, RoleOrgAdmin.Priority(), RolePlayer.Priority())
	assert.False(t, Role("owner").IsValid())
}
