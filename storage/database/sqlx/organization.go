package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/organization"
)

type (
	organizationRow struct {
		ID           string    `db:"id"`
		Name         string    `db:"name"`
		Description  string    `db:"description"`
		ContactEmail string    `db:"contact_email"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
	}

	grantRow struct {
		ID             string      `db:"id"`
		OrganizationID string      `db:"organization_id"`
		Type           string      `db:"type"`
		Status         string      `db:"status"`
		Note           string      `db:"note"`
		DecidedBy      null.String `db:"decided_by"`
		RequestedAt    time.Time   `db:"requested_at"`
		DecidedAt      null.Time   `db:"decided_at"`
	}
)

func (row organizationRow) toOrganization(grants []capability.Grant) organization.Organization {
	if grants == nil {
		grants = []capability.Grant{}
	}
	return organization.Organization{
		ID:           row.ID,
		Name:         row.Name,
		Description:  row.Description,
		ContactEmail: row.ContactEmail,
		Grants:       grants,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func (row grantRow) toGrant() capability.Grant {
	return capability.Grant{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		Type:           capability.GrantType(row.Type),
		Status:         capability.GrantStatus(row.Status),
		Note:           row.Note,
		DecidedBy:      row.DecidedBy.String,
		RequestedAt:    row.RequestedAt.UTC(),
		DecidedAt:      timeOrZero(row.DecidedAt),
	}
}

var organizationColumns = map[string]string{
	"name":       "lower(name)",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type organizationRepository struct {
	db *sqlx.DB
}

func NewOrganizationRepository(db *sqlx.DB) organization.Repository {
	return &organizationRepository{db: db}
}

// grantsOf returns the grants of the organizations, oldest request first, keyed by organization.
func (repo *organizationRepository) grantsOf(ctx context.Context, orgIDs ...string) (map[string][]capability.Grant, error) {
	grants := make(map[string][]capability.Grant, len(orgIDs))
	if len(orgIDs) == 0 {
		return grants, nil
	}

	var rows []grantRow
	q := `SELECT * FROM capability_grant WHERE organization_id IN (?) ORDER BY requested_at, id`
	if err := selectIn(ctx, repo.db, &rows, q, orgIDs); err != nil {
		return nil, errors.Wrap(err, "selecting grants")
	}
	for _, row := range rows {
		grants[row.OrganizationID] = append(grants[row.OrganizationID], row.toGrant())
	}
	return grants, nil
}

func (repo *organizationRepository) CreateOrganization(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	row := organizationRow{
		ID:           newID(),
		Name:         org.Name,
		Description:  org.Description,
		ContactEmail: org.ContactEmail,
		CreatedAt:    org.CreatedAt.UTC(),
		UpdatedAt:    org.UpdatedAt.UTC(),
	}
	q := `INSERT INTO organization (id, name, description, contact_email, created_at, updated_at)
		VALUES (:id, :name, :description, :contact_email, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return organization.Organization{}, errors.Wrap(err, "inserting organization")
	}
	return row.toOrganization(nil), nil
}

func (repo *organizationRepository) QueryOrganizations(
	ctx context.Context,
	filter *organization.QueryFilter,
	ordering []core.DBOrdering,
) ([]organization.Organization, error) {
	var conds conditions
	if filter != nil && filter.Search != "" {
		pattern := likePattern(filter.Search)
		conds.add("(name ILIKE ? OR contact_email ILIKE ?)", pattern, pattern)
	}

	var rows []organizationRow
	q := repo.db.Rebind("SELECT * FROM organization" + conds.where() + orderBy(ordering, organizationColumns))
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "selecting organizations")
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	grants, err := repo.grantsOf(ctx, ids...)
	if err != nil {
		return nil, err
	}

	orgs := make([]organization.Organization, len(rows))
	for i, row := range rows {
		orgs[i] = row.toOrganization(grants[row.ID])
	}
	return orgs, nil
}

func (repo *organizationRepository) GetOrganization(ctx context.Context, id string) (organization.Organization, error) {
	if !isUUID(id) {
		return organization.Organization{}, organization.ErrNotFound
	}

	var row organizationRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM organization WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return organization.Organization{}, organization.ErrNotFound
		}
		return organization.Organization{}, errors.Wrap(err, "selecting organization")
	}
	grants, err := repo.grantsOf(ctx, id)
	if err != nil {
		return organization.Organization{}, err
	}
	return row.toOrganization(grants[id]), nil
}

func (repo *organizationRepository) UpdateOrganization(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	if !isUUID(org.ID) {
		return organization.Organization{}, organization.ErrNotFound
	}

	q := `UPDATE organization SET name = $1, description = $2, contact_email = $3, updated_at = $4 WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, q, org.Name, org.Description, org.ContactEmail, org.UpdatedAt.UTC(), org.ID)
	if err != nil {
		return organization.Organization{}, errors.Wrap(err, "updating organization")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return organization.Organization{}, organization.ErrNotFound
	}
	return repo.GetOrganization(ctx, org.ID)
}

func (repo *organizationRepository) DeleteOrganization(ctx context.Context, id string) error {
	if !isUUID(id) {
		return organization.ErrNotFound
	}

	res, err := repo.db.ExecContext(ctx, `DELETE FROM organization WHERE id = $1`, id)
	if err != nil {
		if code, _ := pqError(err); code == foreignKeyViolation {
			return organization.ErrInUse
		}
		return errors.Wrap(err, "deleting organization")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return organization.ErrNotFound
	}
	return nil
}

func (repo *organizationRepository) CreateGrant(ctx context.Context, grant capability.Grant) (capability.Grant, error) {
	if !isUUID(grant.OrganizationID) {
		return capability.Grant{}, organization.ErrNotFound
	}

	grant.ID = newID()
	q := `INSERT INTO capability_grant (id, organization_id, type, status, note, decided_by, requested_at, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.ExecContext(
		ctx, q,
		grant.ID, grant.OrganizationID, string(grant.Type), string(grant.Status), grant.Note,
		nullString(grant.DecidedBy), grant.RequestedAt.UTC(), nullTime(grant.DecidedAt),
	)
	if err != nil {
		switch code, _ := pqError(err); code {
		case uniqueViolation:
			return capability.Grant{}, organization.ErrGrantExists
		case foreignKeyViolation:
			return capability.Grant{}, organization.ErrNotFound
		}
		return capability.Grant{}, errors.Wrap(err, "inserting grant")
	}
	return grant, nil
}

func (repo *organizationRepository) QueryGrants(ctx context.Context, filter *organization.GrantFilter) ([]capability.Grant, error) {
	var conds conditions
	if filter != nil {
		if filter.OrganizationID != "" {
			if !isUUID(filter.OrganizationID) {
				return []capability.Grant{}, nil
			}
			conds.add("organization_id = ?", filter.OrganizationID)
		}
		if filter.Type != "" {
			conds.add("type = ?", string(filter.Type))
		}
		if filter.Status != "" {
			conds.add("status = ?", string(filter.Status))
		}
	}

	var rows []grantRow
	q := repo.db.Rebind("SELECT * FROM capability_grant" + conds.where() + " ORDER BY requested_at, id")
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "selecting grants")
	}
	grants := make([]capability.Grant, len(rows))
	for i, row := range rows {
		grants[i] = row.toGrant()
	}
	return grants, nil
}

func (repo *organizationRepository) GetGrant(ctx context.Context, id string) (capability.Grant, error) {
	if !isUUID(id) {
		return capability.Grant{}, organization.ErrGrantNotFound
	}

	var row grantRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM capability_grant WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return capability.Grant{}, organization.ErrGrantNotFound
		}
		return capability.Grant{}, errors.Wrap(err, "selecting grant")
	}
	return row.toGrant(), nil
}

func (repo *organizationRepository) DecideGrant(ctx context.Context, grant capability.Grant) (capability.Grant, error) {
	orig, err := repo.GetGrant(ctx, grant.ID)
	if err != nil {
		return capability.Grant{}, err
	}

	q := `UPDATE capability_grant SET status = $1, note = $2, decided_by = $3, decided_at = $4
		WHERE id = $5 AND status = $6`
	res, err := repo.db.ExecContext(
		ctx, q,
		string(grant.Status), grant.Note, nullString(grant.DecidedBy), nullTime(grant.DecidedAt),
		orig.ID, string(capability.StatusPending),
	)
	if err != nil {
		return capability.Grant{}, errors.Wrap(err, "updating grant")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return capability.Grant{}, organization.ErrGrantDecided
	}
	return repo.GetGrant(ctx, orig.ID)
}
