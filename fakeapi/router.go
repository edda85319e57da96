// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package fakeapi

import (
	"net/http"

	"github.com/danielhkuo/quickly-survey/middleware"
)

// NewRouter exposes s under the default client endpoint layout.
func NewRouter(s *Server) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Voter registration
	mux.HandleFunc("POST /registerVoter", middleware.WithLogging(s.RegisterVoter))
	mux.HandleFunc("GET /voter/{id}", middleware.WithLogging(s.GetVoter))

	// Rounds and votes
	mux.HandleFunc("POST /getTicket", middleware.WithLogging(s.GetTicket))
	mux.HandleFunc("POST /registerVote", middleware.WithLogging(s.RegisterVote))

	return mux
}

// Handler returns the routed backend.
func (s *Server) Handler() http.Handler {
	return NewRouter(s)
}
