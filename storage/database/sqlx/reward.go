package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/reward"
	"github.com/cinetwork/cin/backend/core/user"
)

type (
	rewardRow struct {
		ID             string    `db:"id"`
		OrganizationID string    `db:"organization_id"`
		Name           string    `db:"name"`
		Description    string    `db:"description"`
		Cost           int       `db:"cost"`
		Stock          null.Int  `db:"stock"`
		IsActive       bool      `db:"is_active"`
		CreatedAt      time.Time `db:"created_at"`
		UpdatedAt      time.Time `db:"updated_at"`
	}

	redemptionRow struct {
		ID             string      `db:"id"`
		RewardID       string      `db:"reward_id"`
		OrganizationID string      `db:"organization_id"`
		UserID         string      `db:"user_id"`
		Code           string      `db:"code"`
		Status         string      `db:"status"`
		Cost           int         `db:"cost"`
		ReviewedBy     null.String `db:"reviewed_by"`
		ReviewNote     string      `db:"review_note"`
		ReviewedAt     null.Time   `db:"reviewed_at"`
		CreatedAt      time.Time   `db:"created_at"`
	}
)

func newRewardRow(r reward.Reward) rewardRow {
	return rewardRow{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		Name:           r.Name,
		Description:    r.Description,
		Cost:           r.Cost,
		Stock:          null.IntFromPtr(r.Stock),
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

func (row rewardRow) toReward() reward.Reward {
	return reward.Reward{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		Name:           row.Name,
		Description:    row.Description,
		Cost:           row.Cost,
		Stock:          row.Stock.Ptr(),
		IsActive:       row.IsActive,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

func (row redemptionRow) toRedemption() reward.Redemption {
	return reward.Redemption{
		ID:             row.ID,
		RewardID:       row.RewardID,
		OrganizationID: row.OrganizationID,
		UserID:         row.UserID,
		Code:           row.Code,
		Status:         reward.Status(row.Status),
		Cost:           row.Cost,
		ReviewedBy:     row.ReviewedBy.String,
		ReviewNote:     row.ReviewNote,
		ReviewedAt:     timePtr(row.ReviewedAt),
		CreatedAt:      row.CreatedAt.UTC(),
	}
}

var (
	rewardColumns = map[string]string{
		"name":       "lower(name)",
		"cost":       "cost",
		"is_active":  "is_active",
		"created_at": "created_at",
	}
	redemptionColumns = map[string]string{
		"status":     "status",
		"cost":       "cost",
		"created_at": "created_at",
	}
)

type rewardRepository struct {
	db *sqlx.DB
}

func NewRewardRepository(db *sqlx.DB) reward.Repository {
	return &rewardRepository{db: db}
}

func (repo *rewardRepository) CreateReward(ctx context.Context, r reward.Reward) (reward.Reward, error) {
	r.ID = newID()
	row := newRewardRow(r)
	q := `INSERT INTO reward (id, organization_id, name, description, cost, stock, is_active, created_at, updated_at)
		VALUES (:id, :organization_id, :name, :description, :cost, :stock, :is_active, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return reward.Reward{}, errors.Wrap(err, "inserting reward")
	}
	return row.toReward(), nil
}

func (repo *rewardRepository) QueryRewards(ctx context.Context, filter *reward.QueryFilter, ordering []core.DBOrdering) ([]reward.Reward, error) {
	var conds conditions
	if filter != nil {
		if filter.Search != "" {
			conds.add("name ILIKE ?", likePattern(filter.Search))
		}
		if filter.OrganizationID != "" {
			if !isUUID(filter.OrganizationID) {
				return []reward.Reward{}, nil
			}
			conds.add("organization_id = ?", filter.OrganizationID)
		}
		if filter.IsActive != nil {
			conds.add("is_active = ?", *filter.IsActive)
		}
	}

	var rows []rewardRow
	q := repo.db.Rebind("SELECT * FROM reward" + conds.where() + orderBy(ordering, rewardColumns))
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "selecting rewards")
	}
	rewards := make([]reward.Reward, len(rows))
	for i, row := range rows {
		rewards[i] = row.toReward()
	}
	return rewards, nil
}

func (repo *rewardRepository) GetReward(ctx context.Context, id string) (reward.Reward, error) {
	if !isUUID(id) {
		return reward.Reward{}, reward.ErrNotFound
	}

	var row rewardRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM reward WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return reward.Reward{}, reward.ErrNotFound
		}
		return reward.Reward{}, errors.Wrap(err, "selecting reward")
	}
	return row.toReward(), nil
}

func (repo *rewardRepository) UpdateReward(ctx context.Context, r reward.Reward) (reward.Reward, error) {
	if !isUUID(r.ID) {
		return reward.Reward{}, reward.ErrNotFound
	}

	q := `UPDATE reward SET
			name = :name, description = :description, cost = :cost, stock = :stock,
			is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newRewardRow(r))
	if err != nil {
		return reward.Reward{}, errors.Wrap(err, "updating reward")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reward.Reward{}, reward.ErrNotFound
	}
	return repo.GetReward(ctx, r.ID)
}

func (repo *rewardRepository) DeleteReward(ctx context.Context, id string) error {
	if !isUUID(id) {
		return reward.ErrNotFound
	}

	res, err := repo.db.ExecContext(ctx, `DELETE FROM reward WHERE id = $1`, id)
	if err != nil {
		if code, _ := pqError(err); code == foreignKeyViolation {
			return reward.ErrInUse
		}
		return errors.Wrap(err, "deleting reward")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reward.ErrNotFound
	}
	return nil
}

func (repo *rewardRepository) CreateRedemption(ctx context.Context, r reward.Redemption) (reward.Redemption, error) {
	if !isUUID(r.RewardID) {
		return reward.Redemption{}, reward.ErrNotFound
	}

	r.ID = newID()
	q := `INSERT INTO redemption (
			id, reward_id, organization_id, user_id, code, status, cost,
			reviewed_by, review_note, reviewed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := repo.db.ExecContext(
		ctx, q,
		r.ID, r.RewardID, r.OrganizationID, r.UserID, r.Code, string(r.Status), r.Cost,
		nullString(r.ReviewedBy), r.ReviewNote, nullTimePtr(r.ReviewedAt), r.CreatedAt.UTC(),
	)
	if err != nil {
		if code, constraint := pqError(err); code == foreignKeyViolation && constraint == "redemption_reward_id_fkey" {
			return reward.Redemption{}, reward.ErrNotFound
		}
		return reward.Redemption{}, errors.Wrap(err, "inserting redemption")
	}
	return r, nil
}

func (repo *rewardRepository) QueryRedemptions(
	ctx context.Context,
	filter *reward.RedemptionFilter,
	ordering []core.DBOrdering,
) ([]reward.Redemption, error) {
	var conds conditions
	if filter != nil {
		for col, id := range map[string]string{
			"reward_id":       filter.RewardID,
			"organization_id": filter.OrganizationID,
			"user_id":         filter.UserID,
		} {
			if id == "" {
				continue
			}
			if !isUUID(id) {
				return []reward.Redemption{}, nil
			}
			conds.add(col+" = ?", id)
		}
		if filter.Status != "" {
			conds.add("status = ?", string(filter.Status))
		}
	}

	var rows []redemptionRow
	q := repo.db.Rebind("SELECT * FROM redemption" + conds.where() + orderBy(ordering, redemptionColumns))
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "selecting redemptions")
	}
	rds := make([]reward.Redemption, len(rows))
	for i, row := range rows {
		rds[i] = row.toRedemption()
	}
	return rds, nil
}

func getRedemption(ctx context.Context, db sqlx.QueryerContext, column, value string, forUpdate bool) (redemptionRow, error) {
	var row redemptionRow
	q := `SELECT * FROM redemption WHERE ` + column + ` = $1`
	if forUpdate {
		q += " FOR UPDATE"
	}
	if err := sqlx.GetContext(ctx, db, &row, q, value); err != nil {
		if isNoRows(err) {
			return row, reward.ErrRedemptionNotFound
		}
		return row, errors.Wrap(err, "selecting redemption")
	}
	return row, nil
}

func (repo *rewardRepository) GetRedemption(ctx context.Context, id string) (reward.Redemption, error) {
	if !isUUID(id) {
		return reward.Redemption{}, reward.ErrRedemptionNotFound
	}
	row, err := getRedemption(ctx, repo.db, "id", id, false)
	if err != nil {
		return reward.Redemption{}, err
	}
	return row.toRedemption(), nil
}

func (repo *rewardRepository) GetRedemptionByCode(ctx context.Context, code string) (reward.Redemption, error) {
	row, err := getRedemption(ctx, repo.db, "code", code, false)
	if err != nil {
		return reward.Redemption{}, err
	}
	return row.toRedemption(), nil
}

// debit takes the cost of the redemption from its player and one item out of stock.
func debit(ctx context.Context, tx *sqlx.Tx, rd redemptionRow) error {
	res, err := tx.ExecContext(ctx, `UPDATE "user" SET points = points - $1 WHERE id = $2 AND points >= $1`, rd.Cost, rd.UserID)
	if err != nil {
		return errors.Wrap(err, "debiting points")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err = tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM "user" WHERE id = $1)`, rd.UserID); err != nil {
			return errors.Wrap(err, "checking user")
		}
		if !exists {
			return user.ErrNotFound
		}
		return reward.ErrInsufficientPoints
	}

	res, err = tx.ExecContext(ctx, `UPDATE reward SET stock = stock - 1 WHERE id = $1 AND (stock IS NULL OR stock > 0)`, rd.RewardID)
	if err != nil {
		return errors.Wrap(err, "taking out of stock")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err = tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM reward WHERE id = $1)`, rd.RewardID); err != nil {
			return errors.Wrap(err, "checking reward")
		}
		if !exists {
			return reward.ErrNotFound
		}
		return reward.ErrOutOfStock
	}
	return nil
}

func (repo *rewardRepository) ReviewRedemption(ctx context.Context, r reward.Redemption) (reward.Redemption, error) {
	if !isUUID(r.ID) {
		return reward.Redemption{}, reward.ErrRedemptionNotFound
	}

	var reviewed redemptionRow
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		orig, err := getRedemption(ctx, tx, "id", r.ID, true)
		if err != nil {
			return err
		}
		if reward.Status(orig.Status) != reward.StatusPending {
			return reward.ErrAlreadyReviewed
		}

		if r.Status == reward.StatusApproved {
			if err = debit(ctx, tx, orig); err != nil {
				return err
			}
		}

		q := `UPDATE redemption SET status = $1, reviewed_by = $2, review_note = $3, reviewed_at = $4 WHERE id = $5`
		_, err = tx.ExecContext(ctx, q, string(r.Status), nullString(r.ReviewedBy), r.ReviewNote, nullTimePtr(r.ReviewedAt), orig.ID)
		if err != nil {
			return errors.Wrap(err, "updating redemption")
		}
		reviewed, err = getRedemption(ctx, tx, "id", orig.ID, false)
		return err
	})
	if err != nil {
		return reward.Redemption{}, err
	}
	return reviewed.toRedemption(), nil
}
