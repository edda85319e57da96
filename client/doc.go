// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package client is the HTTP transport for the survey scoring backend. A Client
satisfies survey.Backend.

# Endpoints

Paths are relative to the base URL (see DefaultEndpoints):

	POST registerVoter  → RegisterVoter  {voter_name, start_idx, end_idx}
	GET  voter/{id}     → VoterParams
	POST getTicket      → FetchRound     {image_id, voter_id, idx1, idx2}
	POST registerVote   → RegisterVote   {ticket_id, vote, voter_id}

# Errors

Non-2xx responses return *StatusError with the status code and the start of
the body. Transport errors are wrapped with the method and path. No retries
are attempted here; the survey controller leaves its state retryable.

# Example

	c := client.New("https://tools.qrplus.ai/api/v1/survey", client.WithTimeout(10*time.Second))
	ctrl := survey.NewController(c, survey.NewSession("ann"))
*/
package client
