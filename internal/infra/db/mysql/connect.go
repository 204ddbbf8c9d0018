package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Pool sizes the connection pool; zero fields keep the defaults.
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens the pool and checks that analysis_reports is reachable.
// The table itself is provisioned out of band (see schema.sql).
func Connect(ctx context.Context, dsn string, pool Pool) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(orDefault(pool.MaxOpenConns, 25))
	db.SetMaxIdleConns(orDefault(pool.MaxIdleConns, 10))
	lifetime := pool.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 30 * time.Minute
	}
	db.SetConnMaxLifetime(lifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	if err := CheckSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// CheckSchema fails when analysis_reports is missing or unreadable.
func CheckSchema(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "SELECT seq, "+reportColumns+" FROM analysis_reports LIMIT 0")
	if err != nil {
		return fmt.Errorf("analysis_reports not usable, apply schema.sql: %w", err)
	}
	return rows.Close()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
