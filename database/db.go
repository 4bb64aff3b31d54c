package database

import (
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx so queries can run inside
// or outside a transaction.
type DBTX interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	NamedExec(query string, arg interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Rebind(query string) string
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// Storage layouts for dates and timestamps. Plain TEXT keeps sqlite
// comparisons and ORDER BY lexicographic, which both FEFO and the expiring
// report rely on.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func FormatDateTime(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}
