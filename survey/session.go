// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"time"

	"github.com/danielhkuo/quickly-survey/pairs"
)

// State of a Controller.
type State int

const (
	StateUnregistered State = iota
	StateRegistering
	StateActive
	StateAdvancing
	StateSubmitting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistering:
		return "registering"
	case StateActive:
		return "active"
	case StateAdvancing:
		return "advancing"
	case StateSubmitting:
		return "submitting"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// Side identifies which of the two displayed variants the user picked.
type Side int

const (
	SideNone Side = iota
	SideFirst
	SideSecond
)

func (s Side) String() string {
	switch s {
	case SideFirst:
		return "first"
	case SideSecond:
		return "second"
	}
	return "none"
}

// Session holds one voter's identity and range/variant configuration. It is
// created by the caller and handed to NewController; the controller owns it
// until Close.
type Session struct {
	VoterID      string
	DisplayName  string
	Range        pairs.Range
	VariantCount int

	// RangeConfigured marks Range as chosen by the caller rather than drawn
	// provisionally at registration.
	RangeConfigured bool
}

// NewSession returns a session with default variant count. A zero range is
// replaced by a provisional one at registration.
func NewSession(displayName string) *Session {
	return &Session{
		DisplayName:  displayName,
		VariantCount: pairs.DefaultVariantCount,
	}
}

// WithRange pins the session to r instead of a provisional range.
func (s *Session) WithRange(r pairs.Range) *Session {
	s.Range = r
	s.RangeConfigured = true
	return s
}

// Registered reports whether the backend has assigned an identifier.
func (s *Session) Registered() bool {
	return s != nil && s.VoterID != ""
}

// TotalPairs is n·(n-1)/2 for the current variant count.
func (s *Session) TotalPairs() int {
	return pairs.TotalPairs(s.VariantCount)
}

// Round is one presented (base image, variant pair) unit.
type Round struct {
	ImageID  int
	Pair     pairs.Pair
	TicketID string

	// Raw image payloads, passed through from the backend unmodified.
	Original string
	Variants [2]string

	seq uint64
}

// VariantFor maps a side to the concrete variant index.
func (r *Round) VariantFor(side Side) (int, bool) {
	switch side {
	case SideFirst:
		return r.Pair.A, true
	case SideSecond:
		return r.Pair.B, true
	}
	return 0, false
}

// Vote is an accepted vote. Votes are appended to history and never changed.
type Vote struct {
	TicketID      string
	ImageID       int
	ChosenVariant int
	VoterID       string
	RecordedAt    time.Time
}
