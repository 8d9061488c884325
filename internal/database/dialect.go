package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// Dialect hides the SQL differences between the supported databases.
// Queries elsewhere are written with ? placeholders and passed through
// sqlx Rebind, so dialects only deal with what Rebind cannot.
type Dialect interface {
	// Name is the short name used for migration directories and config.
	Name() string

	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN turns the configured source into a driver DSN.
	DSN(source string) (string, error)

	// ConfigureConnection applies pool and session settings.
	ConfigureConnection(db *sql.DB) error

	// InsertIgnore builds an INSERT that silently skips rows violating the
	// unique key made of conflictColumns.
	InsertIgnore(table string, columns, conflictColumns []string) string

	// LockClause is appended to a SELECT to lock the selected rows for the
	// rest of the transaction.
	LockClause() string

	// SupportsReturning reports whether INSERT ... RETURNING id is needed to
	// learn a generated key. Drivers without it report LastInsertId.
	SupportsReturning() bool

	// IsUniqueViolation reports whether err came from a UNIQUE constraint.
	IsUniqueViolation(err error) bool
}

// DialectFor returns the dialect for a DB_TYPE value.
func DialectFor(dbType string) (Dialect, error) {
	switch strings.ToLower(dbType) {
	case "postgres", "postgresql":
		return NewPostgresDialect(), nil
	case "mysql":
		return NewMySQLDialect(), nil
	case "sqlite", "sqlite3", "":
		return NewSQLiteDialect(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

func insertValues(table string, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)
}

// onConflictDoNothing is shared by postgres and sqlite.
func onConflictDoNothing(table string, columns, conflictColumns []string) string {
	return fmt.Sprintf("INSERT %s ON CONFLICT (%s) DO NOTHING",
		insertValues(table, columns), strings.Join(conflictColumns, ", "))
}
