package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spellbuddy/backend/internal/config"
	"github.com/spellbuddy/backend/internal/logger"
)

// DB wraps the sqlx connection with the dialect it was opened with.
type DB struct {
	*sqlx.DB
	Dialect Dialect
}

// Open connects to the database described by cfg and runs pending migrations.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*DB, error) {
	dialect, err := DialectFor(cfg.DatabaseType)
	if err != nil {
		return nil, err
	}

	source := cfg.DatabaseURL
	if dialect.Name() == "sqlite" {
		source = cfg.DatabasePath
	}
	db, err := Connect(ctx, dialect, source)
	if err != nil {
		return nil, err
	}

	log.Info("Running migrations", "dialect", dialect.Name())
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Connect opens and configures a connection without migrating.
func Connect(ctx context.Context, dialect Dialect, source string) (*DB, error) {
	dsn, err := dialect.DSN(source)
	if err != nil {
		return nil, fmt.Errorf("build dsn: %w", err)
	}

	db, err := sqlx.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := dialect.ConfigureConnection(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure connection: %w", err)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

// WithTx runs fn inside a transaction. The transaction is rolled back when
// fn returns an error or panics, committed otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// InsertID runs an INSERT through q and returns the generated id column.
func (db *DB) InsertID(ctx context.Context, q sqlx.ExtContext, query string, args ...interface{}) (int64, error) {
	if db.Dialect.SupportsReturning() {
		var id int64
		err := q.QueryRowxContext(ctx, db.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := q.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
