// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package fakeapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/quickly-survey/auth"
	"github.com/danielhkuo/quickly-survey/middleware"
	"github.com/danielhkuo/quickly-survey/models"
	"github.com/danielhkuo/quickly-survey/pairs"
)

// RegisterVoter handles POST /registerVoter
func (s *Server) RegisterVoter(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterVoterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	name := strings.TrimSpace(req.VoterName)
	if name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "voter_name is required")
		return
	}
	if len(name) > 64 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "voter_name must be at most 64 characters")
		return
	}

	// Unparseable indices fall back to the default range
	start, startErr := strconv.Atoi(req.StartIdx)
	end, endErr := strconv.Atoi(req.EndIdx)
	rng := pairs.Range{Start: start, End: end}
	if startErr != nil || endErr != nil {
		rng = pairs.DefaultRange
	}
	if s.cfg.Range.Valid() {
		rng = s.cfg.Range
	}

	voterID, err := auth.GenerateID(12)
	if err != nil {
		slog.Error("failed to generate voter id", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voter")
		return
	}

	s.mu.Lock()
	s.voters[voterID] = &voter{
		id:        voterID,
		name:      name,
		rng:       rng.OrDefault(),
		createdAt: time.Now(),
	}
	s.mu.Unlock()

	slog.Debug("voter registered", "voter_id", voterID, "voter_name", name, "range", rng.String())

	middleware.JSONResponse(w, http.StatusCreated, map[string]string{
		s.cfg.VoterIDKey: voterID,
	})
}

// GetVoter handles GET /voter/{id}
func (s *Server) GetVoter(w http.ResponseWriter, r *http.Request) {
	voterID := r.PathValue("id")
	if voterID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	s.mu.Lock()
	fail := s.cfg.FailParams
	v, ok := s.voters[voterID]
	s.mu.Unlock()

	if fail {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Voter parameters unavailable")
		return
	}
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "Voter not found")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoterParams{
		VoterName: v.name,
		NVariants: models.Int(s.cfg.Variants),
		StartIdx:  models.Int(v.rng.Start),
		EndIdx:    models.Int(v.rng.End),
	})
}

// GetTicket handles POST /getTicket
func (s *Server) GetTicket(w http.ResponseWriter, r *http.Request) {
	var req models.TicketRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	imageID, err := strconv.Atoi(req.ImageID)
	if err != nil || imageID < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "image_id must be a non-negative integer")
		return
	}
	idx1, err1 := strconv.Atoi(req.Idx1)
	idx2, err2 := strconv.Atoi(req.Idx2)
	if err1 != nil || err2 != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "idx1 and idx2 must be integers")
		return
	}
	if idx1 == idx2 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "idx1 and idx2 must differ")
		return
	}
	if idx1 < 0 || idx2 < 0 || idx1 >= s.cfg.Variants || idx2 >= s.cfg.Variants {
		middleware.ErrorResponse(w, http.StatusBadRequest, "variant index out of range")
		return
	}

	ticketID, err := auth.GenerateID(8)
	if err != nil {
		slog.Error("failed to generate ticket id", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to issue ticket")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failTickets > 0 {
		s.failTickets--
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Image service busy")
		return
	}
	if _, ok := s.voters[req.VoterID]; !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "Voter not found")
		return
	}

	s.tickets[ticketID] = &ticket{
		id:      ticketID,
		voterID: req.VoterID,
		imageID: imageID,
		pair:    pairs.Pair{A: idx1, B: idx2},
	}

	middleware.JSONResponse(w, http.StatusOK, models.TicketResponse{
		TicketID: ticketID,
		Image:    originalImage(imageID),
		QR1:      s.variantImage(imageID, idx1),
		QR2:      s.variantImage(imageID, idx2),
	})
}

// RegisterVote handles POST /registerVote
func (s *Server) RegisterVote(w http.ResponseWriter, r *http.Request) {
	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.TicketID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ticket_id is required")
		return
	}
	vote, err := strconv.Atoi(req.Vote)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "vote must be an integer")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[req.TicketID]
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "Ticket not found")
		return
	}
	if t.voterID != req.VoterID {
		middleware.ErrorResponse(w, http.StatusForbidden, "Ticket belongs to another voter")
		return
	}
	if !t.pair.Contains(vote) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "vote must be one of the ticket's variants")
		return
	}
	if t.used {
		middleware.ErrorResponse(w, http.StatusConflict, "Ticket already used")
		return
	}

	t.used = true
	s.votes = append(s.votes, RecordedVote{
		TicketID: t.id,
		VoterID:  t.voterID,
		ImageID:  t.imageID,
		Variant:  vote,
		At:       time.Now(),
	})

	slog.Debug("vote registered", "ticket_id", t.id, "image_id", t.imageID, "variant", vote)

	middleware.JSONResponse(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
