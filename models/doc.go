// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the JSON payloads exchanged with the scoring backend.

# Request Types

Numeric fields are sent as strings, matching what the backend expects:

  - RegisterVoterRequest: voter_name, start_idx, end_idx
  - TicketRequest: image_id, voter_id, idx1, idx2
  - VoteRequest: ticket_id, vote, voter_id

# Response Types

  - RegisterVoterResponse: voter_id (also accepted as voterId or id)
  - VoterParams: voter_name, n_variants, start_idx, end_idx (all optional)
  - TicketResponse: ticket_id, image, qr1, qr2
  - VoteResponse: opaque acknowledgement
  - ErrorResponse: error, message

# Lenient Decoding

The backend is not strict about its own types. OptionalInt accepts a JSON
number, a numeric string, or null:

	{"n_variants": 5}
	{"n_variants": "5"}

TicketResponse also accepts the legacy "ticket" key and a bare JSON string
body holding only the ticket id. Image fields are never interpreted here;
they may hold a path, a data URI, or raw base64.
*/
package models
