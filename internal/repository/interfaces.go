package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// insertReturningID runs an INSERT and reports the new row id. Postgres
// needs RETURNING; MySQL exposes LastInsertId. The query is written with ?
// placeholders and rebound for the active driver.
func insertReturningID(ctx context.Context, tx *sqlx.Tx, driver, query string, args ...interface{}) (int64, error) {
	if driver == "postgres" {
		var id int64
		err := tx.QueryRowxContext(ctx, tx.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
