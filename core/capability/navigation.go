package capability

type (
	NavItem struct {
		Key   string `json:"key"`
		Title string `json:"title"`
		Path  string `json:"path"`
		Show  bool   `json:"show"`
	}

	NavGroup struct {
		Key   string    `json:"key"`
		Title string    `json:"title"`
		Show  bool      `json:"show"`
		Items []NavItem `json:"items"`
	}
)

// Project builds the ordered navigation tree of a session.
// A group is shown when its own condition holds and at least one of its items is shown.
func Project(role Role, fs VisibleFeatureSet) []NavGroup {
	isAdmin := role == RoleCINAdmin || role == RoleOrgAdmin

	groups := []NavGroup{
		newGroup("overview", "Overview", true,
			NavItem{Key: "dashboard", Title: "Dashboard", Path: "/dashboard", Show: true},
			NavItem{Key: "profile", Title: "Profile", Path: "/profile", Show: true},
		),
		newGroup("organization", "Organization", isAdmin,
			NavItem{Key: "organization-settings", Title: "Settings", Path: "/organization", Show: true},
			NavItem{Key: "organization-capabilities", Title: "Capabilities", Path: "/organization/capabilities", Show: true},
		),
		newGroup("players", "Players", fs.HasPlayerOrg,
			NavItem{Key: "members", Title: "Members", Path: "/players", Show: true},
			NavItem{Key: "leaderboard", Title: "Leaderboard", Path: "/players/leaderboard", Show: true},
		),
		newGroup("missions", "Missions", fs.HasMissionCreator,
			NavItem{Key: "missions", Title: "Missions", Path: "/missions", Show: true},
			NavItem{Key: "submissions", Title: "Submissions", Path: "/missions/submissions", Show: true},
		),
		newGroup("rewards", "Rewards", fs.HasRewardCreator,
			NavItem{Key: "rewards", Title: "Rewards", Path: "/rewards", Show: true},
			NavItem{Key: "redemptions", Title: "Redemptions", Path: "/rewards/redemptions", Show: true},
			NavItem{Key: "scan", Title: "Scan QR", Path: "/rewards/scan", Show: true},
		),
		newGroup("administration", "Administration", fs.AnyNetwork(),
			NavItem{Key: "stakeholders", Title: "Stakeholders", Path: "/admin/stakeholders", Show: fs.CanManageStakeholders},
			NavItem{Key: "submission-review", Title: "Submission review", Path: "/admin/submissions", Show: fs.CanReviewSubmissions},
			NavItem{Key: "organization-directory", Title: "Organizations", Path: "/admin/organizations", Show: fs.CanBrowseOrganizations},
		),
	}
	return groups
}

func newGroup(key, title string, show bool, items ...NavItem) NavGroup {
	g := NavGroup{Key: key, Title: title, Items: items}
	if !show {
		for i := range g.Items {
			g.Items[i].Show = false
		}
		return g
	}
	for _, it := range g.Items {
		if it.Show {
			g.Show = true
			break
		}
	}
	return g
}

// Visible drops the hidden groups & items of a navigation tree.
func Visible(groups []NavGroup) []NavGroup {
	res := make([]NavGroup, 0, len(groups))
	for _, g := range groups {
		if !g.Show {
			continue
		}
		items := make([]NavItem, 0, len(g.Items))
		for _, it := range g.Items {
			if it.Show {
				items = append(items, it)
			}
		}
		g.Items = items
		res = append(res, g)
	}
	return res
}
