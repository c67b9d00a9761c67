package capability

// Features
const (
	// organization-scoped: need an approved grant
	FeaturePlayerOrg      Feature = "hasPlayerOrg"
	FeatureMissionCreator Feature = "hasMissionCreator"
	FeatureRewardCreator  Feature = "hasRewardCreator"

	// network-wide: cin_admin only
	FeatureManageStakeholders  Feature = "canManageStakeholders"
	FeatureReviewSubmissions   Feature = "canReviewSubmissions"
	FeatureBrowseOrganizations Feature = "canBrowseOrganizations"
)

var (
	OrganizationFeatures = []Feature{FeaturePlayerOrg, FeatureMissionCreator, FeatureRewardCreator}
	NetworkFeatures      = []Feature{FeatureManageStakeholders, FeatureReviewSubmissions, FeatureBrowseOrganizations}

	grantFeatures = map[GrantType]Feature{
		GrantPlayerOrg:      FeaturePlayerOrg,
		GrantMissionCreator: FeatureMissionCreator,
		GrantRewardCreator:  FeatureRewardCreator,
	}
)

type Feature string

// FeatureFor returns the organization feature unlocked by an approved grant of type t.
func FeatureFor(t GrantType) (Feature, bool) {
	f, ok := grantFeatures[t.Canonical()]
	return f, ok
}

// VisibleFeatureSet tells which features a session may see.
type VisibleFeatureSet struct {
	HasPlayerOrg      bool `json:"hasPlayerOrg"`
	HasMissionCreator bool `json:"hasMissionCreator"`
	HasRewardCreator  bool `json:"hasRewardCreator"`

	CanManageStakeholders  bool `json:"canManageStakeholders"`
	CanReviewSubmissions   bool `json:"canReviewSubmissions"`
	CanBrowseOrganizations bool `json:"canBrowseOrganizations"`
}

// Resolve derives the visible features of a session from its role and organization.
//
// Organization features need an approved grant of the matching type; any approved grant
// of a type is enough, whatever the other grants of that type say.
// Network features are given by the cin_admin role alone, with or without an organization.
// org may be nil: all organization features are then off.
func Resolve(role Role, org *Organization) VisibleFeatureSet {
	var fs VisibleFeatureSet

	if org != nil {
		for _, g := range org.Grants {
			if !g.Status.IsApproved() {
				continue
			}
			if f, ok := FeatureFor(g.Type); ok {
				fs.set(f)
			}
		}
	}

	if role == RoleCINAdmin {
		for _, f := range NetworkFeatures {
			fs.set(f)
		}
	}
	return fs
}

func (fs *VisibleFeatureSet) set(f Feature) {
	switch f {
	case FeaturePlayerOrg:
		fs.HasPlayerOrg = true
	case FeatureMissionCreator:
		fs.HasMissionCreator = true
	case FeatureRewardCreator:
		fs.HasRewardCreator = true
	case FeatureManageStakeholders:
		fs.CanManageStakeholders = true
	case FeatureReviewSubmissions:
		fs.CanReviewSubmissions = true
	case FeatureBrowseOrganizations:
		fs.CanBrowseOrganizations = true
	}
}

// Has reports whether feature f is visible. Unknown features are not.
func (fs VisibleFeatureSet) Has(f Feature) bool {
	switch f {
	case FeaturePlayerOrg:
		return fs.HasPlayerOrg
	case FeatureMissionCreator:
		return fs.HasMissionCreator
	case FeatureRewardCreator:
		return fs.HasRewardCreator
	case FeatureManageStakeholders:
		return fs.CanManageStakeholders
	case FeatureReviewSubmissions:
		return fs.CanReviewSubmissions
	case FeatureBrowseOrganizations:
		return fs.CanBrowseOrganizations
	}
	return false
}

// Enabled lists the visible features, organization ones first.
func (fs VisibleFeatureSet) Enabled() []Feature {
	enabled := make([]Feature, 0, len(OrganizationFeatures)+len(NetworkFeatures))
	for _, f := range OrganizationFeatures {
		if fs.Has(f) {
			enabled = append(enabled, f)
		}
	}
	for _, f := range NetworkFeatures {
		if fs.Has(f) {
			enabled = append(enabled, f)
		}
	}
	return enabled
}

// AnyNetwork reports whether at least one network feature is visible.
func (fs VisibleFeatureSet) AnyNetwork() bool {
	return fs.CanManageStakeholders || fs.CanReviewSubmissions || fs.CanBrowseOrganizations
}
