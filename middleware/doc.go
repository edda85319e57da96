// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides the HTTP helpers used by the in-process survey
backend (package fakeapi).

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("POST /getTicket", middleware.WithLogging(h.GetTicket))

Logs method, path, status and duration_ms at debug level, so a demo session
in the terminal is not interleaved with request lines unless asked for.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies:

	var req models.TicketRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
*/
package middleware
