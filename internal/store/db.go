package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// OpenPostgres creates a Postgres pool through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, connString string) (*sql.DB, error) {
	return open(ctx, "pgx", connString, func(db *sql.DB) {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	})
}

// OpenSQLite opens an embedded database file, or an in-memory one for DSNs like
// "file:name?mode=memory&cache=shared".
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	return open(ctx, "sqlite", dsn, func(db *sql.DB) {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	})
}

func open(ctx context.Context, driver, dsn string, tune func(*sql.DB)) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	tune(db)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}
