// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/danielhkuo/quickly-survey/survey"
)

// VoteLog is an append-only local record of accepted votes. It implements
// survey.VoteRecorder.
type VoteLog struct {
	db *sql.DB
}

func NewVoteLog(db *sql.DB) *VoteLog {
	return &VoteLog{db: db}
}

// RecordVote appends v to the log.
func (l *VoteLog) RecordVote(ctx context.Context, v survey.Vote) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO vote_log (id, voter_id, ticket_id, image_id, variant, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), v.VoterID, v.TicketID, v.ImageID, v.ChosenVariant, v.RecordedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

// Recent returns up to limit votes of voterID, newest first.
func (l *VoteLog) Recent(ctx context.Context, voterID string, limit int) ([]survey.Vote, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT ticket_id, voter_id, image_id, variant, recorded_at
		FROM vote_log
		WHERE voter_id = $1
		ORDER BY recorded_at DESC, id
		LIMIT $2
	`, voterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	var votes []survey.Vote
	for rows.Next() {
		var v survey.Vote
		if err := rows.Scan(&v.TicketID, &v.VoterID, &v.ImageID, &v.ChosenVariant, &v.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}

	return votes, nil
}

// Count returns how many votes voterID cast. An empty voterID counts every
// vote on this device.
func (l *VoteLog) Count(ctx context.Context, voterID string) (int, error) {
	var n int
	var err error
	if voterID == "" {
		err = l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vote_log`).Scan(&n)
	} else {
		err = l.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM vote_log WHERE voter_id = $1
		`, voterID).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}
