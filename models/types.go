// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Request types

type RegisterVoterRequest struct {
	VoterName string `json:"voter_name"`
	StartIdx  string `json:"start_idx"`
	EndIdx    string `json:"end_idx"`
}

type TicketRequest struct {
	ImageID string `json:"image_id"`
	VoterID string `json:"voter_id"`
	Idx1    string `json:"idx1"`
	Idx2    string `json:"idx2"`
}

type VoteRequest struct {
	TicketID string `json:"ticket_id"`
	Vote     string `json:"vote"`
	VoterID  string `json:"voter_id"`
}

// NewTicketRequest stringifies the round coordinates.
func NewTicketRequest(imageID int, voterID string, idx1, idx2 int) TicketRequest {
	return TicketRequest{
		ImageID: strconv.Itoa(imageID),
		VoterID: voterID,
		Idx1:    strconv.Itoa(idx1),
		Idx2:    strconv.Itoa(idx2),
	}
}

// NewVoteRequest stringifies the chosen variant.
func NewVoteRequest(ticketID string, vote int, voterID string) VoteRequest {
	return VoteRequest{
		TicketID: ticketID,
		Vote:     strconv.Itoa(vote),
		VoterID:  voterID,
	}
}

// Response types

// RegisterVoterResponse carries the voter identifier under whichever key the
// backend chose to use.
type RegisterVoterResponse struct {
	VoterID      string `json:"voter_id,omitempty"`
	VoterIDCamel string `json:"voterId,omitempty"`
	ID           string `json:"id,omitempty"`
}

// UnmarshalJSON accepts string or numeric identifiers under each key.
func (r *RegisterVoterResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		VoterID      json.RawMessage `json:"voter_id"`
		VoterIDCamel json.RawMessage `json:"voterId"`
		ID           json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out RegisterVoterResponse
	for _, f := range []struct {
		name string
		src  json.RawMessage
		dst  *string
	}{
		{"voter_id", raw.VoterID, &out.VoterID},
		{"voterId", raw.VoterIDCamel, &out.VoterIDCamel},
		{"id", raw.ID, &out.ID},
	} {
		v, err := scalarString(f.src)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}

	*r = out
	return nil
}

// Identifier returns the first non-empty of voter_id, voterId and id.
func (r RegisterVoterResponse) Identifier() string {
	for _, id := range []string{r.VoterID, r.VoterIDCamel, r.ID} {
		if s := strings.TrimSpace(id); s != "" {
			return s
		}
	}
	return ""
}

// VoterParams refines the provisional session parameters. Every field is
// optional.
type VoterParams struct {
	VoterName string      `json:"voter_name,omitempty"`
	NVariants OptionalInt `json:"n_variants"`
	StartIdx  OptionalInt `json:"start_idx"`
	EndIdx    OptionalInt `json:"end_idx"`
}

type TicketResponse struct {
	TicketID string `json:"ticket_id"`
	Image    string `json:"image"`
	QR1      string `json:"qr1"`
	QR2      string `json:"qr2"`
}

// UnmarshalJSON accepts the object form, the legacy "ticket" key, and a bare
// string holding just the ticket id.
func (t *TicketResponse) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*t = TicketResponse{TicketID: id}
		return nil
	}

	var raw struct {
		TicketID json.RawMessage `json:"ticket_id"`
		Ticket   json.RawMessage `json:"ticket"`
		Image    string          `json:"image"`
		QR1      string          `json:"qr1"`
		QR2      string          `json:"qr2"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := scalarString(raw.TicketID)
	if err != nil {
		return fmt.Errorf("ticket_id: %w", err)
	}
	if id == "" {
		if id, err = scalarString(raw.Ticket); err != nil {
			return fmt.Errorf("ticket: %w", err)
		}
	}

	*t = TicketResponse{TicketID: id, Image: raw.Image, QR1: raw.QR1, QR2: raw.QR2}
	return nil
}

// VoteResponse is whatever the backend acknowledges a vote with: an object,
// a string, a number or nothing at all.
type VoteResponse = json.RawMessage

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// OptionalInt is an integer that may be absent, null, a JSON number, or a
// numeric string.
type OptionalInt struct {
	Value int
	Set   bool
}

// Int returns a set OptionalInt.
func Int(v int) OptionalInt {
	return OptionalInt{Value: v, Set: true}
}

func (o OptionalInt) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(o.Value)), nil
}

func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	s, err := scalarString(data)
	if err != nil {
		return err
	}
	if s == "" {
		*o = OptionalInt{}
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// Accept integral floats such as 5.0
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return fmt.Errorf("not an integer: %s", s)
		}
		v = int(f)
	}
	*o = OptionalInt{Value: v, Set: true}
	return nil
}

// scalarString renders a JSON string, number or null as a Go string.
func scalarString(data json.RawMessage) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", data)
	}
	return n.String(), nil
}
