package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/mission"
)

type missionRow struct {
	ID             string      `db:"id"`
	OrganizationID string      `db:"organization_id"`
	Title          string      `db:"title"`
	Description    string      `db:"description"`
	Points         int         `db:"points"`
	Badge          string      `db:"badge"`
	StartsAt       null.Time   `db:"starts_at"`
	EndsAt         null.Time   `db:"ends_at"`
	IsActive       bool        `db:"is_active"`
	CreatedBy      null.String `db:"created_by"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func newMissionRow(m mission.Mission) missionRow {
	return missionRow{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Title:          m.Title,
		Description:    m.Description,
		Points:         m.Points,
		Badge:          m.Badge,
		StartsAt:       nullTimePtr(m.StartsAt),
		EndsAt:         nullTimePtr(m.EndsAt),
		IsActive:       m.IsActive,
		CreatedBy:      nullString(m.CreatedBy),
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

func (row missionRow) toMission() mission.Mission {
	return mission.Mission{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		Title:          row.Title,
		Description:    row.Description,
		Points:         row.Points,
		Badge:          row.Badge,
		StartsAt:       timePtr(row.StartsAt),
		EndsAt:         timePtr(row.EndsAt),
		IsActive:       row.IsActive,
		CreatedBy:      row.CreatedBy.String,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

var missionColumns = map[string]string{
	"title":      "lower(title)",
	"points":     "points",
	"is_active":  "is_active",
	"starts_at":  "starts_at",
	"ends_at":    "ends_at",
	"created_at": "created_at",
}

type missionRepository struct {
	db *sqlx.DB
}

func NewMissionRepository(db *sqlx.DB) mission.Repository {
	return &missionRepository{db: db}
}

func (repo *missionRepository) CreateMission(ctx context.Context, m mission.Mission) (mission.Mission, error) {
	m.ID = newID()
	row := newMissionRow(m)
	q := `INSERT INTO mission (
			id, organization_id, title, description, points, badge, starts_at, ends_at,
			is_active, created_by, created_at, updated_at
		) VALUES (
			:id, :organization_id, :title, :description, :points, :badge, :starts_at, :ends_at,
			:is_active, :created_by, :created_at, :updated_at
		)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return mission.Mission{}, errors.Wrap(err, "inserting mission")
	}
	return row.toMission(), nil
}

func (repo *missionRepository) QueryMissions(ctx context.Context, filter *mission.QueryFilter, ordering []core.DBOrdering) ([]mission.Mission, error) {
	var conds conditions
	if filter != nil {
		if filter.Search != "" {
			conds.add("title ILIKE ?", likePattern(filter.Search))
		}
		if filter.OrganizationID != "" {
			if !isUUID(filter.OrganizationID) {
				return []mission.Mission{}, nil
			}
			conds.add("organization_id = ?", filter.OrganizationID)
		}
		if filter.IsActive != nil {
			conds.add("is_active = ?", *filter.IsActive)
		}
	}

	var rows []missionRow
	q := repo.db.Rebind("SELECT * FROM mission" + conds.where() + orderBy(ordering, missionColumns))
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "selecting missions")
	}
	missions := make([]mission.Mission, len(rows))
	for i, row := range rows {
		missions[i] = row.toMission()
	}
	return missions, nil
}

func (repo *missionRepository) GetMission(ctx context.Context, id string) (mission.Mission, error) {
	if !isUUID(id) {
		return mission.Mission{}, mission.ErrNotFound
	}

	var row missionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM mission WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return mission.Mission{}, mission.ErrNotFound
		}
		return mission.Mission{}, errors.Wrap(err, "selecting mission")
	}
	return row.toMission(), nil
}

func (repo *missionRepository) UpdateMission(ctx context.Context, m mission.Mission) (mission.Mission, error) {
	if !isUUID(m.ID) {
		return mission.Mission{}, mission.ErrNotFound
	}

	q := `UPDATE mission SET
			title = :title, description = :description, points = :points, badge = :badge,
			starts_at = :starts_at, ends_at = :ends_at, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newMissionRow(m))
	if err != nil {
		return mission.Mission{}, errors.Wrap(err, "updating mission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mission.Mission{}, mission.ErrNotFound
	}
	return repo.GetMission(ctx, m.ID)
}

func (repo *missionRepository) DeleteMission(ctx context.Context, id string) error {
	if !isUUID(id) {
		return mission.ErrNotFound
	}

	res, err := repo.db.ExecContext(ctx, `DELETE FROM mission WHERE id = $1`, id)
	if err != nil {
		if code, _ := pqError(err); code == foreignKeyViolation {
			return mission.ErrInUse
		}
		return errors.Wrap(err, "deleting mission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mission.ErrNotFound
	}
	return nil
}
