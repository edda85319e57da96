// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database types
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// pingTimeout bounds the connection check in Open.
const pingTimeout = 5 * time.Second

// Open connects to the database and verifies the connection.
// dbType is SQLite or Postgres; an empty type means SQLite.
func Open(dbType, url string) (*sql.DB, error) {
	if dbType == "" {
		dbType = SQLite
	}
	if dbType != SQLite && dbType != Postgres {
		return nil, fmt.Errorf("unsupported database type %q (use sqlite or postgres)", dbType)
	}
	if url == "" {
		return nil, fmt.Errorf("database URL required")
	}

	conn, err := sql.Open(dbType, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbType == SQLite {
		// A single writer avoids SQLITE_BUSY between pooled connections.
		conn.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return conn, nil
}
