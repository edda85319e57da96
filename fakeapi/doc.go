// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package fakeapi is an in-memory stand-in for the survey scoring backend. It
backs the client and controller tests and the CLI's -demo mode; it is not a
scoring service.

# Routes

	GET  /health
	POST /registerVoter  → {voter_id}
	GET  /voter/{id}     → {voter_name, n_variants, start_idx, end_idx}
	POST /getTicket      → {ticket_id, image, qr1, qr2}
	POST /registerVote   → {status}

# Payloads

image is a path ("/images/7.png"); qr1 and qr2 are raw base64 PNGs without a
data URI prefix, so clients exercise all payload forms they must handle.

# Ticket Rules

  - Tickets are bound to the voter and pair they were issued for
  - Unknown ticket: 404
  - Ticket of another voter: 403
  - Vote outside the ticket's pair: 400
  - Ticket already used: 409

# Failure Injection

	srv := fakeapi.New(fakeapi.Config{Variants: 3, FailParams: true})
	srv.FailNextTickets(2)
	ts := httptest.NewServer(srv.Handler())
*/
package fakeapi
