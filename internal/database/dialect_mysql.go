package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLDialect implements Dialect for MySQL
type MySQLDialect struct{}

// NewMySQLDialect creates a new MySQL dialect
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) Name() string {
	return "mysql"
}

func (d *MySQLDialect) DriverName() string {
	return "mysql"
}

// DSN forces multiStatements, which the migration files rely on.
func (d *MySQLDialect) DSN(source string) (string, error) {
	cfg, err := mysql.ParseDSN(source)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.MultiStatements = true
	return cfg.FormatDSN(), nil
}

func (d *MySQLDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return nil
}

// InsertIgnore ignores conflicts on any unique key; conflictColumns only
// document which one is expected to fire.
func (d *MySQLDialect) InsertIgnore(table string, columns, conflictColumns []string) string {
	return "INSERT IGNORE " + insertValues(table, columns)
}

func (d *MySQLDialect) LockClause() string {
	return " FOR UPDATE"
}

func (d *MySQLDialect) SupportsReturning() bool {
	return false
}

// IsUniqueViolation matches ER_DUP_ENTRY.
func (d *MySQLDialect) IsUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
