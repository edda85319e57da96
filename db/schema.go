// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The schema sticks to types and defaults shared by SQLite and PostgreSQL.
const schema = `
-- Device identity
CREATE TABLE IF NOT EXISTS device_identity (
    device_key TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    voter_id TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    last_seen_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Vote log (append-only)
CREATE TABLE IF NOT EXISTS vote_log (
    id TEXT PRIMARY KEY,
    voter_id TEXT NOT NULL,
    ticket_id TEXT NOT NULL,
    image_id INTEGER NOT NULL,
    variant INTEGER NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vote_log_voter ON vote_log(voter_id, recorded_at);
`
