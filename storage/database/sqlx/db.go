// Package sqlxrepos implements the repositories on PostgreSQL through sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches s anywhere in an ILIKE operand, with wildcards in s taken literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// validID reports whether id can be compared against a UUID column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func validIDs(ids []string) []string {
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			res = append(res, id)
		}
	}
	return res
}

// trapNoRowsErr maps psql "no rows" err to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// inTx runs fn in a transaction, committed only if fn succeeds.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
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

// where accumulates AND-ed conditions written with `?` bindvars.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy renders an ORDER BY clause from the allowed orderings, falling back to def.
func orderBy(orderings []core.DBOrdering, def string, allowed ...string) string {
	if ords := core.OrderingsIn(orderings, allowed...); len(ords) > 0 {
		return " ORDER BY " + core.JoinOrderings(ords)
	}
	if def != "" {
		return " ORDER BY " + def
	}
	return ""
}

// selectWhere runs `base + where + suffix` into dest.
// Slice args are expanded for `IN (?)` then `?` is rebound for the driver.
func selectWhere(ctx context.Context, db sqlx.QueryerContext, dest interface{}, base string, w *where, suffix string) error {
	q, args, err := sqlx.In(base+w.String()+suffix, w.args...)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, db, dest, sqlx.Rebind(sqlx.DOLLAR, q), args...)
}

func rowsAffected(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

func isPQError(err error, code pq.ErrorCode) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == code
}

func isUniqueViolation(err error) bool     { return isPQError(err, "23505") }
func isForeignKeyViolation(err error) bool { return isPQError(err, "23503") }
