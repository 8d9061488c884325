package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// SQLiteDialect implements Dialect for SQLite
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

// DSN adds a busy timeout, foreign keys and BEGIN IMMEDIATE so that a
// transaction holds the write lock from its first statement.
func (d *SQLiteDialect) DSN(source string) (string, error) {
	sep := "?"
	if strings.Contains(source, "?") {
		sep = "&"
	}
	return source + sep + "_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", nil
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}
	return nil
}

func (d *SQLiteDialect) InsertIgnore(table string, columns, conflictColumns []string) string {
	return onConflictDoNothing(table, columns, conflictColumns)
}

// LockClause is empty: an immediate transaction already excludes other writers.
func (d *SQLiteDialect) LockClause() string {
	return ""
}

func (d *SQLiteDialect) SupportsReturning() bool {
	return false
}

func (d *SQLiteDialect) IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
