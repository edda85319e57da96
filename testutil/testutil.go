// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-survey/client"
	"github.com/danielhkuo/quickly-survey/db"
	"github.com/danielhkuo/quickly-survey/fakeapi"
	"github.com/danielhkuo/quickly-survey/pairs"
	"github.com/danielhkuo/quickly-survey/survey"
)

// TestVoterName is the display name used for test sessions
const TestVoterName = "anon-test"

// QuietLogger discards everything
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetupTestDB creates a fresh SQLite database with the full schema in a
// temporary directory
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.SQLite, filepath.Join(t.TempDir(), "survey.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// FakeBackend serves a fakeapi.Server over HTTP and returns a client for it
func FakeBackend(t *testing.T, cfg fakeapi.Config) (*fakeapi.Server, *client.Client) {
	t.Helper()

	srv := fakeapi.New(cfg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return srv, client.New(ts.URL, client.WithTimeout(5*time.Second))
}

// NewController returns an unregistered controller talking to a fresh fake
// backend. A valid rng pins the session range.
func NewController(t *testing.T, cfg fakeapi.Config, rng pairs.Range, opts ...survey.Option) (*survey.Controller, *fakeapi.Server) {
	t.Helper()

	srv, c := FakeBackend(t, cfg)

	session := survey.NewSession(TestVoterName)
	if rng.Valid() {
		session.WithRange(rng)
	}

	opts = append([]survey.Option{survey.WithLogger(QuietLogger())}, opts...)
	ctrl := survey.NewController(c, session, opts...)
	t.Cleanup(ctrl.Close)

	return ctrl, srv
}

// RegisteredController is NewController followed by a successful Register
func RegisteredController(t *testing.T, cfg fakeapi.Config, rng pairs.Range, opts ...survey.Option) (*survey.Controller, *fakeapi.Server) {
	t.Helper()

	ctrl, srv := NewController(t, cfg, rng, opts...)
	if err := ctrl.Register(context.Background(), ""); err != nil {
		t.Fatalf("Failed to register test session: %v", err)
	}

	return ctrl, srv
}
