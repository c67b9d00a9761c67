package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/submission"
	"github.com/cinetwork/cin/backend/core/user"
)

type submissionRow struct {
	ID             string      `db:"id"`
	MissionID      string      `db:"mission_id"`
	OrganizationID string      `db:"organization_id"`
	UserID         string      `db:"user_id"`
	Evidence       string      `db:"evidence"`
	EvidenceURL    string      `db:"evidence_url"`
	Status         string      `db:"status"`
	ReviewedBy     null.String `db:"reviewed_by"`
	ReviewNote     string      `db:"review_note"`
	ReviewedAt     null.Time   `db:"reviewed_at"`
	AwardedPoints  int         `db:"awarded_points"`
	CreatedAt      time.Time   `db:"created_at"`
}

func (row submissionRow) toSubmission() submission.Submission {
	return submission.Submission{
		ID:             row.ID,
		MissionID:      row.MissionID,
		OrganizationID: row.OrganizationID,
		UserID:         row.UserID,
		Evidence:       row.Evidence,
		EvidenceURL:    row.EvidenceURL,
		Status:         submission.Status(row.Status),
		ReviewedBy:     row.ReviewedBy.String,
		ReviewNote:     row.ReviewNote,
		ReviewedAt:     timePtr(row.ReviewedAt),
		AwardedPoints:  row.AwardedPoints,
		CreatedAt:      row.CreatedAt.UTC(),
	}
}

var submissionColumns = map[string]string{
	"status":      "status",
	"reviewed_at": "reviewed_at",
	"created_at":  "created_at",
}

type submissionRepository struct {
	db *sqlx.DB
}

func NewSubmissionRepository(db *sqlx.DB) submission.Repository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	s.ID = newID()
	q := `INSERT INTO submission (
			id, mission_id, organization_id, user_id, evidence, evidence_url, status,
			reviewed_by, review_note, reviewed_at, awarded_points, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := repo.db.ExecContext(
		ctx, q,
		s.ID, s.MissionID, s.OrganizationID, s.UserID, s.Evidence, s.EvidenceURL, string(s.Status),
		nullString(s.ReviewedBy), s.ReviewNote, nullTimePtr(s.ReviewedAt), s.AwardedPoints, s.CreatedAt.UTC(),
	)
	if err != nil {
		if code, _ := pqError(err); code == uniqueViolation {
			return submission.Submission{}, submission.ErrAlreadySubmitted
		}
		return submission.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return s, nil
}

func (repo *submissionRepository) QuerySubmissions(
	ctx context.Context,
	filter *submission.QueryFilter,
	ordering []core.DBOrdering,
) ([]submission.Submission, error) {
	var conds conditions
	if filter != nil {
		for col, id := range map[string]string{
			"mission_id":      filter.MissionID,
			"organization_id": filter.OrganizationID,
			"user_id":         filter.UserID,
		} {
			if id == "" {
				continue
			}
			if !isUUID(id) {
				return []submission.Submission{}, nil
			}
			conds.add(col+" = ?", id)
		}
		if filter.Status != "" {
			conds.add("status = ?", string(filter.Status))
		}
	}

	var rows []submissionRow
	q := repo.db.Rebind("SELECT * FROM submission" + conds.where() + orderBy(ordering, submissionColumns))
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "selecting submissions")
	}
	subs := make([]submission.Submission, len(rows))
	for i, row := range rows {
		subs[i] = row.toSubmission()
	}
	return subs, nil
}

func getSubmission(ctx context.Context, db sqlx.QueryerContext, id string, forUpdate bool) (submissionRow, error) {
	var row submissionRow
	if !isUUID(id) {
		return row, submission.ErrNotFound
	}

	q := `SELECT * FROM submission WHERE id = $1`
	if forUpdate {
		q += " FOR UPDATE"
	}
	if err := sqlx.GetContext(ctx, db, &row, q, id); err != nil {
		if isNoRows(err) {
			return row, submission.ErrNotFound
		}
		return row, errors.Wrap(err, "selecting submission")
	}
	return row, nil
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, id string) (submission.Submission, error) {
	row, err := getSubmission(ctx, repo.db, id, false)
	if err != nil {
		return submission.Submission{}, err
	}
	return row.toSubmission(), nil
}

func (repo *submissionRepository) ReviewSubmission(
	ctx context.Context,
	s submission.Submission,
	award submission.Award,
) (submission.Submission, error) {
	var reviewed submissionRow
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		orig, err := getSubmission(ctx, tx, s.ID, true)
		if err != nil {
			return err
		}
		if submission.Status(orig.Status) != submission.StatusPending {
			return submission.ErrAlreadyReviewed
		}

		if s.Status == submission.StatusApproved {
			q := `UPDATE "user" SET
					points = points + $1,
					badges = CASE WHEN $2 = '' OR $2 = ANY(badges) THEN badges ELSE array_append(badges, $2) END
				WHERE id = $3`
			res, err := tx.ExecContext(ctx, q, award.Points, award.Badge, orig.UserID)
			if err != nil {
				return errors.Wrap(err, "crediting award")
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return user.ErrNotFound
			}
		}

		q := `UPDATE submission SET status = $1, reviewed_by = $2, review_note = $3, reviewed_at = $4, awarded_points = $5
			WHERE id = $6`
		_, err = tx.ExecContext(
			ctx, q,
			string(s.Status), nullString(s.ReviewedBy), s.ReviewNote, nullTimePtr(s.ReviewedAt), award.Points, orig.ID,
		)
		if err != nil {
			return errors.Wrap(err, "updating submission")
		}
		reviewed, err = getSubmission(ctx, tx, orig.ID, false)
		return err
	})
	if err != nil {
		return submission.Submission{}, err
	}
	return reviewed.toSubmission(), nil
}
