// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package fakeapi

import (
	"sync"
	"time"

	"github.com/danielhkuo/quickly-survey/pairs"
)

// Config shapes the backend's answers.
type Config struct {
	// Variants is n_variants reported for every voter. Defaults to 5.
	Variants int

	// Range, when valid, overrides the range sent at registration.
	Range pairs.Range

	// VoterIDKey is the JSON key used for the registration response:
	// "voter_id" (default), "voterId" or "id".
	VoterIDKey string

	// FailParams makes GET voter/{id} answer 503.
	FailParams bool
}

type voter struct {
	id        string
	name      string
	rng       pairs.Range
	createdAt time.Time
}

type ticket struct {
	id      string
	voterID string
	imageID int
	pair    pairs.Pair
	used    bool
}

// RecordedVote is a vote accepted by the fake backend.
type RecordedVote struct {
	TicketID string
	VoterID  string
	ImageID  int
	Variant  int
	At       time.Time
}

// Server is an in-memory survey backend. It is safe for concurrent use.
type Server struct {
	cfg Config

	mu          sync.Mutex
	voters      map[string]*voter
	tickets     map[string]*ticket
	votes       []RecordedVote
	failTickets int
	images      map[string]string
}

// New returns a backend configured by cfg.
func New(cfg Config) *Server {
	if cfg.Variants == 0 {
		cfg.Variants = pairs.DefaultVariantCount
	}
	if cfg.VoterIDKey == "" {
		cfg.VoterIDKey = "voter_id"
	}
	return &Server{
		cfg:     cfg,
		voters:  make(map[string]*voter),
		tickets: make(map[string]*ticket),
		images:  make(map[string]string),
	}
}

// FailNextTickets makes the next n getTicket calls answer 503.
func (s *Server) FailNextTickets(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failTickets = n
}

// SetFailParams toggles failure of the parameters endpoint.
func (s *Server) SetFailParams(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.FailParams = fail
}

// Votes returns the accepted votes in order.
func (s *Server) Votes() []RecordedVote {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedVote, len(s.votes))
	copy(out, s.votes)
	return out
}

// TicketCount returns how many tickets have been issued.
func (s *Server) TicketCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}

// VoterCount returns how many voters registered.
func (s *Server) VoterCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voters)
}
