package inmemdb

import (
	"context"
	"sort"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/organization"
)

type organizationRepository struct {
	db *DB
}

func NewOrganizationRepository(db *DB) organization.Repository {
	return &organizationRepository{db: db}
}

// withGrants attaches its grants, oldest request first, to org. Callers hold the lock.
func (repo *organizationRepository) withGrants(org organization.Organization) organization.Organization {
	grants := make([]capability.Grant, 0)
	for _, g := range repo.db.grants {
		if g.OrganizationID == org.ID {
			grants = append(grants, g)
		}
	}
	sort.SliceStable(grants, func(i, j int) bool { return grants[i].RequestedAt.Before(grants[j].RequestedAt) })
	org.Grants = grants
	return org
}

func (repo *organizationRepository) CreateOrganization(_ context.Context, org organization.Organization) (organization.Organization, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	org.ID = newID()
	org.Grants = nil
	repo.db.organizations[org.ID] = org
	return repo.withGrants(org), nil
}

func (repo *organizationRepository) QueryOrganizations(
	_ context.Context,
	filter *organization.QueryFilter,
	ordering []core.DBOrdering,
) ([]organization.Organization, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	orgs := make([]organization.Organization, 0, len(repo.db.organizations))
	for _, org := range repo.db.organizations {
		if filter != nil && filter.Search != "" &&
			!(containsFold(org.Name, filter.Search) || containsFold(org.ContactEmail, filter.Search)) {
			continue
		}
		orgs = append(orgs, repo.withGrants(org))
	}

	sortItems(len(orgs), func(i, j int) { orgs[i], orgs[j] = orgs[j], orgs[i] }, ordering, map[string]comparator{
		"name":       func(i, j int) int { return cmpString(orgs[i].Name, orgs[j].Name) },
		"created_at": func(i, j int) int { return cmpTime(orgs[i].CreatedAt, orgs[j].CreatedAt) },
		"updated_at": func(i, j int) int { return cmpTime(orgs[i].UpdatedAt, orgs[j].UpdatedAt) },
	})
	return orgs, nil
}

func (repo *organizationRepository) GetOrganization(_ context.Context, id string) (organization.Organization, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if org, ok := repo.db.organizations[id]; ok {
		return repo.withGrants(org), nil
	}
	return organization.Organization{}, organization.ErrNotFound
}

func (repo *organizationRepository) UpdateOrganization(_ context.Context, org organization.Organization) (organization.Organization, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.organizations[org.ID]
	if !ok {
		return organization.Organization{}, organization.ErrNotFound
	}
	orig.Name = org.Name
	orig.Description = org.Description
	orig.ContactEmail = org.ContactEmail
	orig.UpdatedAt = org.UpdatedAt
	repo.db.organizations[org.ID] = orig
	return repo.withGrants(orig), nil
}

func (repo *organizationRepository) DeleteOrganization(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.organizations[id]; !ok {
		return organization.ErrNotFound
	}
	for _, usr := range repo.db.users {
		if usr.OrganizationID == id {
			return organization.ErrInUse
		}
	}
	for _, m := range repo.db.missions {
		if m.OrganizationID == id {
			return organization.ErrInUse
		}
	}
	for _, r := range repo.db.rewards {
		if r.OrganizationID == id {
			return organization.ErrInUse
		}
	}

	for gid, g := range repo.db.grants {
		if g.OrganizationID == id {
			delete(repo.db.grants, gid)
		}
	}
	delete(repo.db.organizations, id)
	return nil
}

func (repo *organizationRepository) CreateGrant(_ context.Context, grant capability.Grant) (capability.Grant, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.organizations[grant.OrganizationID]; !ok {
		return capability.Grant{}, organization.ErrNotFound
	}
	for _, g := range repo.db.grants {
		if g.OrganizationID == grant.OrganizationID && g.Type == grant.Type &&
			(g.Status == capability.StatusPending || g.Status.IsApproved()) {
			return capability.Grant{}, organization.ErrGrantExists
		}
	}

	grant.ID = newID()
	repo.db.grants[grant.ID] = grant
	return grant, nil
}

func (repo *organizationRepository) QueryGrants(_ context.Context, filter *organization.GrantFilter) ([]capability.Grant, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	grants := make([]capability.Grant, 0)
	for _, g := range repo.db.grants {
		if filter != nil {
			if filter.OrganizationID != "" && g.OrganizationID != filter.OrganizationID {
				continue
			}
			if filter.Type != "" && g.Type != filter.Type {
				continue
			}
			if filter.Status != "" && g.Status != filter.Status {
				continue
			}
		}
		grants = append(grants, g)
	}
	sort.SliceStable(grants, func(i, j int) bool { return grants[i].RequestedAt.Before(grants[j].RequestedAt) })
	return grants, nil
}

func (repo *organizationRepository) GetGrant(_ context.Context, id string) (capability.Grant, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if g, ok := repo.db.grants[id]; ok {
		return g, nil
	}
	return capability.Grant{}, organization.ErrGrantNotFound
}

func (repo *organizationRepository) DecideGrant(_ context.Context, grant capability.Grant) (capability.Grant, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.grants[grant.ID]
	if !ok {
		return capability.Grant{}, organization.ErrGrantNotFound
	}
	if orig.Status.IsDecided() {
		return capability.Grant{}, organization.ErrGrantDecided
	}
	orig.Status = grant.Status
	orig.Note = grant.Note
	orig.DecidedBy = grant.DecidedBy
	orig.DecidedAt = grant.DecidedAt
	repo.db.grants[grant.ID] = orig
	return orig, nil
}
