package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationFiles embed.FS

// Migrate applies every pending migration for the connection's dialect.
//
// The postgres and mysql drivers run on a *sql.Conn taken here and returned
// to the pool once Up finishes. The migrate instance is never closed: for
// sqlite its Close would also close the shared pool.
func (db *DB) Migrate(ctx context.Context) error {
	src, err := iofs.New(migrationFiles, "migrations/"+db.Dialect.Name())
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	var conn *sql.Conn
	if db.Dialect.Name() != "sqlite" {
		if conn, err = db.Conn(ctx); err != nil {
			return fmt.Errorf("migration connection: %w", err)
		}
		defer conn.Close()
	}

	var driver migratedb.Driver
	switch db.Dialect.Name() {
	case "postgres":
		driver, err = postgres.WithConnection(ctx, conn, &postgres.Config{})
	case "mysql":
		driver, err = mysql.WithConnection(ctx, conn, &mysql.Config{})
	default:
		driver, err = sqlite3.WithInstance(db.DB.DB, &sqlite3.Config{})
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, db.Dialect.Name(), driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
