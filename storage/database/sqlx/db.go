// Package sqlxrepos implements the domain repositories on Postgres.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cinetwork/cin/backend/core"
)

// postgres error codes
const (
	foreignKeyViolation = "foreign_key_violation"
	uniqueViolation     = "unique_violation"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func newID() string {
	return uuid.New().String()
}

// isUUID reports whether id may be looked up. Other values match no row.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// pqError returns the name of the postgres error code of err, and the violated constraint.
func pqError(err error) (code, constraint string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name(), pqErr.Constraint
	}
	return "", ""
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// conditions builds a WHERE clause with `?` bind vars.
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(clause string, args ...interface{}) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// orderBy maps orderings to the sortable column expressions; defaults to newest first.
func orderBy(ordering []core.DBOrdering, columns map[string]string) string {
	clauses := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := columns[ord.Field]; ok {
			clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(clauses) == 0 {
		clauses = append(clauses, "created_at DESC")
	}
	return " ORDER BY " + strings.Join(clauses, ", ") + ", id"
}

// selectIn runs a query whose args may hold slices.
func selectIn(ctx context.Context, db sqlx.QueryerContext, dest interface{}, query string, args ...interface{}) error {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "expanding query")
	}
	return sqlx.SelectContext(ctx, db, dest, sqlx.Rebind(sqlx.DOLLAR, query), args...)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func nullTime(t time.Time) null.Time {
	return null.NewTime(t.UTC(), !t.IsZero())
}

func nullTimePtr(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return nullTime(*t)
}

func timeOrZero(t null.Time) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

func timePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}
