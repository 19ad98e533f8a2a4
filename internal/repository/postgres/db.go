// Package postgres implements the campaign repository, the analytics reader
// and the optimization action queue over database/sql. Campaigns and actions
// live in PostgreSQL; analytics may be read from PostgreSQL or Snowflake.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PoolConfig sizes a connection pool. Zero fields keep database/sql defaults.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open opens and pings a database. The driver must already be registered by
// the caller (lib/pq registers "postgres", gosnowflake registers "snowflake").
func Open(ctx context.Context, driver, dsn string, pool PoolConfig) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s: dsn is required", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}
