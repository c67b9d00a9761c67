package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shownGroups(groups []NavGroup) []string {
	keys := make([]string, 0, len(groups))
	for _, g := range groups {
		if g.Show {
			keys = append(keys, g.Key)
		}
	}
	return keys
}

func TestProject(t *testing.T) {
	tests := []struct {
		name string
		role Role
		org  *Organization
		want []string
	}{
		{name: "player without org", role: RolePlayer, want: []string{"overview"}},
		{name: "org_admin without grants", role: RoleOrgAdmin, org: org(), want: []string{"overview", "organization"}},
		{
			name: "org_admin with approved mission_creator",
			role: RoleOrgAdmin,
			org:  org(grant(GrantMissionCreator, StatusApproved), grant(GrantRewardCreator, StatusPending)),
			want: []string{"overview", "organization", "missions"},
		},
		{
			name: "org_admin with everything",
			role: RoleOrgAdmin,
			org: org(
				grant(GrantPlayerOrg, StatusApproved),
				grant(GrantMissionCreator, StatusApproved),
				grant(GrantRewardCreator, StatusApproved),
			),
			want: []string{"overview", "organization", "players", "missions", "rewards"},
		},
		{name: "cin_admin", role: RoleCINAdmin, want: []string{"overview", "organization", "administration"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := Project(tt.role, Resolve(tt.role, tt.org))
			assert.Equal(t, tt.want, shownGroups(groups))
		})
	}
}

func TestProject_orderAndHiddenItems(t *testing.T) {
	groups := Project(RolePlayer, VisibleFeatureSet{})

	keys := make([]string, 0, len(groups))
	for _, g := range groups {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"overview", "organization", "players", "missions", "rewards", "administration"}, keys)

	for _, g := range groups[1:] {
		assert.False(t, g.Show, g.Key)
		for _, it := range g.Items {
			assert.False(t, it.Show, "%s/%s", g.Key, it.Key)
		}
	}
}

func TestProject_administrationItemsFollowFlags(t *testing.T) {
	groups := Project(RoleCINAdmin, VisibleFeatureSet{CanReviewSubmissions: true})
	admin := groups[len(groups)-1]
	require.Equal(t, "administration", admin.Key)
	assert.True(t, admin.Show)

	shown := make(map[string]bool)
	for _, it := range admin.Items {
		shown[it.Key] = it.Show
	}
	assert.Equal(t, map[string]bool{
		"stakeholders":           false,
		"submission-review":      true,
		"organization-directory": false,
	}, shown)
}

func TestVisible(t *testing.T) {
	groups := Visible(Project(RoleCINAdmin, VisibleFeatureSet{CanBrowseOrganizations: true}))

	require.Len(t, groups, 3)
	assert.Equal(t, "administration", groups[2].Key)
	require.Len(t, groups[2].Items, 1)
	assert.Equal(t, "organization-directory", groups[2].Items[0].Key)
}
