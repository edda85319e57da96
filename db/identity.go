// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/quickly-survey/auth"
)

var ErrUnknownDevice = errors.New("unknown device key")

// Identity is the anonymous identity of this device.
type Identity struct {
	DeviceKey   string
	DisplayName string
	VoterID     string
	CreatedAt   time.Time
	IsNew       bool
}

// IdentityStore keeps one identity per device across restarts.
type IdentityStore struct {
	db *sql.DB
}

func NewIdentityStore(db *sql.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

// LoadOrCreate returns the stored identity, creating one on first run.
func (s *IdentityStore) LoadOrCreate(ctx context.Context) (Identity, error) {
	var id Identity
	var voterID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT device_key, display_name, voter_id, created_at
		FROM device_identity
		ORDER BY created_at
		LIMIT 1
	`).Scan(&id.DeviceKey, &id.DisplayName, &voterID, &id.CreatedAt)

	if err == nil {
		id.VoterID = voterID.String

		// Existing device, update last_seen_at
		_, err = s.db.ExecContext(ctx, `
			UPDATE device_identity SET last_seen_at = $1 WHERE device_key = $2
		`, time.Now().UTC(), id.DeviceKey)
		if err != nil {
			slog.Error("failed to update device last_seen_at", "error", err)
		}

		slog.Debug("device identity loaded", "device_key", id.DeviceKey)
		return id, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return Identity{}, fmt.Errorf("failed to query device identity: %w", err)
	}

	// Create new identity
	key := auth.NewDeviceKey()
	now := time.Now().UTC()
	id = Identity{
		DeviceKey:   key,
		DisplayName: auth.DisplayNameFor(key),
		CreatedAt:   now,
		IsNew:       true,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO device_identity (device_key, display_name, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4)
	`, id.DeviceKey, id.DisplayName, now, now)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to insert device identity: %w", err)
	}

	slog.Info("device identity created", "device_key", id.DeviceKey, "display_name", id.DisplayName)
	return id, nil
}

// RememberVoter caches the name and voter id of the last registration.
func (s *IdentityStore) RememberVoter(ctx context.Context, deviceKey, displayName, voterID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE device_identity
		SET display_name = $1, voter_id = $2, last_seen_at = $3
		WHERE device_key = $4
	`, displayName, voterID, time.Now().UTC(), deviceKey)
	if err != nil {
		return fmt.Errorf("failed to update device identity: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, deviceKey)
	}

	return nil
}
