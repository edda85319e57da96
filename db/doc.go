// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db persists the little state a survey client keeps between runs.

# Connecting

Open accepts SQLite (modernc.org/sqlite, the default) or PostgreSQL
(github.com/lib/pq):

	conn, err := db.Open(db.SQLite, "survey.db")
	if err != nil {
		log.Fatal(err)
	}
	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call CreateSchema multiple times - uses IF NOT EXISTS for all tables
and indexes.

# Tables

  - device_identity: Anonymous device key, display name and last voter id
  - vote_log: Append-only record of accepted votes

# Device Identity

IdentityStore.LoadOrCreate returns the same device key on every run, creating
a UUID and an "anon-xxxxxxxx" display name the first time.

# Vote Log

VoteLog implements survey.VoteRecorder. It is a local record only; the
scoring backend remains the authority on votes.
*/
package db
