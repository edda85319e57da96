// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-survey/auth"
	"github.com/danielhkuo/quickly-survey/survey"
)

func setupTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "survey.db")
	conn, err := Open(SQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, CreateSchema(conn))
	return conn, path
}

func TestOpen_Validation(t *testing.T) {
	tests := []struct {
		name   string
		dbType string
		url    string
		errMsg string
	}{
		{"unsupported type", "mysql", "x", "unsupported database type"},
		{"missing url", SQLite, "", "database URL required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.dbType, tt.url)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestCreateSchema_Idempotent(t *testing.T) {
	conn, _ := setupTestDB(t)
	require.NoError(t, CreateSchema(conn))
	require.NoError(t, CreateSchema(conn))
}

func TestIdentityStore_LoadOrCreate(t *testing.T) {
	ctx := context.Background()
	conn, path := setupTestDB(t)
	store := NewIdentityStore(conn)

	first, err := store.LoadOrCreate(ctx)
	require.NoError(t, err)
	assert.True(t, first.IsNew)
	assert.True(t, auth.ValidDeviceKey(first.DeviceKey))
	assert.True(t, strings.HasPrefix(first.DisplayName, "anon-"))
	assert.Empty(t, first.VoterID)

	second, err := store.LoadOrCreate(ctx)
	require.NoError(t, err)
	assert.False(t, second.IsNew)
	assert.Equal(t, first.DeviceKey, second.DeviceKey)
	assert.Equal(t, first.DisplayName, second.DisplayName)

	// Survives reopening the database
	conn.Close()
	reopened, err := Open(SQLite, path)
	require.NoError(t, err)
	defer reopened.Close()

	third, err := NewIdentityStore(reopened).LoadOrCreate(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.DeviceKey, third.DeviceKey)
}

func TestIdentityStore_RememberVoter(t *testing.T) {
	ctx := context.Background()
	conn, _ := setupTestDB(t)
	store := NewIdentityStore(conn)

	id, err := store.LoadOrCreate(ctx)
	require.NoError(t, err)

	require.NoError(t, store.RememberVoter(ctx, id.DeviceKey, "bob", "voter-1"))

	again, err := store.LoadOrCreate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob", again.DisplayName)
	assert.Equal(t, "voter-1", again.VoterID)

	err = store.RememberVoter(ctx, "missing", "bob", "voter-1")
	assert.ErrorIs(t, err, ErrUnknownDevice)
}

func TestVoteLog(t *testing.T) {
	ctx := context.Background()
	conn, _ := setupTestDB(t)
	log := NewVoteLog(conn)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, log.RecordVote(ctx, survey.Vote{
			TicketID:      "t" + string(rune('a'+i)),
			ImageID:       i,
			ChosenVariant: i % 3,
			VoterID:       "voter-1",
			RecordedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, log.RecordVote(ctx, survey.Vote{
		TicketID:   "other",
		VoterID:    "voter-2",
		RecordedAt: base,
	}))

	recent, err := log.Recent(ctx, "voter-1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []int{4, 3, 2}, []int{recent[0].ImageID, recent[1].ImageID, recent[2].ImageID})
	assert.Equal(t, "te", recent[0].TicketID)
	assert.Equal(t, 1, recent[0].ChosenVariant)
	assert.True(t, recent[0].RecordedAt.Equal(base.Add(4*time.Minute)))

	n, err := log.Count(ctx, "voter-1")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = log.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	none, err := log.Recent(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
