package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
	"github.com/cinetwork/cin/backend/core/user"
)

type userRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	Username       null.String    `db:"username"`
	Email          null.String    `db:"email"`
	IsActive       null.Bool      `db:"is_active"`
	Role           string         `db:"role"`
	OrganizationID null.String    `db:"organization_id"`
	Points         int            `db:"points"`
	Badges         pq.StringArray `db:"badges"`
	PasswordHash   []byte         `db:"password_hash"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	LastLogin      null.Time      `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	badges := pq.StringArray(usr.Badges)
	if badges == nil {
		badges = pq.StringArray{}
	}
	hash := usr.PasswordHash
	if hash == nil {
		hash = []byte{}
	}
	return userRow{
		ID:             usr.ID,
		Name:           usr.Name,
		Username:       nullString(usr.Username),
		Email:          nullString(usr.Email),
		IsActive:       null.BoolFromPtr(usr.IsActive),
		Role:           string(usr.Role),
		OrganizationID: nullString(usr.OrganizationID),
		Points:         usr.Points,
		Badges:         badges,
		PasswordHash:   hash,
		CreatedAt:      usr.CreatedAt.UTC(),
		UpdatedAt:      usr.UpdatedAt.UTC(),
		LastLogin:      nullTime(usr.LastLogin),
	}
}

func (row userRow) toUser() user.User {
	badges := []string(row.Badges)
	if badges == nil {
		badges = []string{}
	}
	return user.User{
		ID:             row.ID,
		Name:           row.Name,
		Username:       row.Username.String,
		Email:          row.Email.String,
		IsActive:       row.IsActive.Ptr(),
		Role:           capability.Role(row.Role),
		OrganizationID: row.OrganizationID.String,
		Points:         row.Points,
		Badges:         badges,
		PasswordHash:   row.PasswordHash,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
		LastLogin:      timeOrZero(row.LastLogin),
	}
}

var userColumns = map[string]string{
	"name":       "lower(name)",
	"username":   "lower(username)",
	"email":      "lower(email)",
	"role":       "role",
	"points":     "points",
	"is_active":  "coalesce(is_active, true)",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"last_login": "last_login",
}

// uniquenessError maps a unique constraint violation to its domain error.
func uniquenessError(err error) error {
	code, constraint := pqError(err)
	if code != uniqueViolation {
		return nil
	}
	switch constraint {
	case "user_username_key":
		return user.ErrUsernameExists
	case "user_email_key":
		return user.ErrEmailExists
	}
	return nil
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email, excludedID string) error {
	if username == "" && email == "" {
		return nil
	}

	var conds conditions
	conds.add("(username = ? OR email = ?)", nullString(username), nullString(email))
	if isUUID(excludedID) {
		conds.add("id <> ?", excludedID)
	}

	var rows []struct {
		Username null.String `db:"username"`
		Email    null.String `db:"email"`
	}
	q := repo.db.Rebind(`SELECT username, email FROM "user"` + conds.where())
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) OrganizationExists(ctx context.Context, id string) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	var exists bool
	err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM organization WHERE id = $1)`, id)
	return exists, errors.Wrap(err, "checking organization")
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = newID()
	row := newUserRow(usr)
	q := `INSERT INTO "user" (
			id, name, username, email, is_active, role, organization_id, points, badges,
			password_hash, created_at, updated_at, last_login
		) VALUES (
			:id, :name, :username, :email, :is_active, :role, :organization_id, :points, :badges,
			:password_hash, :created_at, :updated_at, :last_login
		)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if uErr := uniquenessError(err); uErr != nil {
			return user.User{}, uErr
		}
		if code, _ := pqError(err); code == foreignKeyViolation {
			return user.User{}, user.ErrUnknownOrganization
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var conds conditions
	if filter != nil {
		if filter.Search != "" {
			pattern := likePattern(filter.Search)
			conds.add("(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)", pattern, pattern, pattern)
		}
		if len(filter.Roles) > 0 {
			conds.add("role IN (?)", filter.Roles)
		}
		if filter.OrganizationID != "" {
			if !isUUID(filter.OrganizationID) {
				return []user.User{}, nil
			}
			conds.add("organization_id = ?", filter.OrganizationID)
		}
		if filter.IsActive != nil {
			if *filter.IsActive {
				conds.add("is_active IS NOT FALSE")
			} else {
				conds.add("is_active IS FALSE")
			}
		}
		if !filter.CreatedFrom.IsZero() {
			conds.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			conds.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	var rows []userRow
	q := `SELECT * FROM "user"` + conds.where() + orderBy(ordering, userColumns)
	if err := selectIn(ctx, repo.db, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, len(rows))
	for i, row := range rows {
		users[i] = row.toUser()
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var conds conditions
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		conds.add("id = ?", filter.ID)
	default:
		unames := make([]string, 0, len(filter.UsernameOrEmail))
		for _, uname := range filter.UsernameOrEmail {
			if uname != "" {
				unames = append(unames, uname)
			}
		}
		if len(unames) == 0 {
			return user.User{}, user.ErrNotFound
		}
		conds.add("(username IN (?) OR email IN (?))", unames, unames)
	}

	var rows []userRow
	q := `SELECT * FROM "user"` + conds.where() + " LIMIT 1"
	if err := selectIn(ctx, repo.db, &rows, q, conds.args...); err != nil {
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	if len(rows) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return rows[0].toUser(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if !isUUID(usr.ID) {
		return user.User{}, user.ErrNotFound
	}

	q := `UPDATE "user" SET
			name = :name, username = :username, email = :email, is_active = :is_active, role = :role,
			organization_id = :organization_id, password_hash = :password_hash,
			updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newUserRow(usr))
	if err != nil {
		if uErr := uniquenessError(err); uErr != nil {
			return user.User{}, uErr
		}
		if code, _ := pqError(err); code == foreignKeyViolation {
			return user.User{}, user.ErrUnknownOrganization
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo *userRepository) DeleteUsers(ctx context.Context, ids ...string) error {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	q, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, valid)
	if err != nil {
		return errors.Wrap(err, "expanding query")
	}
	_, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	return errors.Wrap(err, "deleting users")
}
