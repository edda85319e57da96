// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package survey implements the session controller behind the variant survey
widget: it decides which base image and variant pair to show next, tracks the
pairs already shown, and submits the user's choice.

# Lifecycle

	unregistered → registering → active ⇄ (advancing | submitting) → terminated

A Session is created by the caller and handed to the controller:

	sess := survey.NewSession("ann")
	ctrl := survey.NewController(backend, sess, survey.WithLogger(logger))
	defer ctrl.Close()

	if err := ctrl.Register(ctx, ""); err != nil {
		// ErrRegistrationFailed: retry Register
		// ErrFetchFailed: registered, retry with RequestNextPair
	}

# Rounds

Each displayed pair is a Round carrying the ticket needed to vote on it.
RequestNextPair picks a pair not yet shown for the current image; once all
n·(n-1)/2 pairs were shown it calls AdvanceBaseImage, the only operation that
changes the image id. The unseen-pair search gives up after 20 draws and
accepts a repeat rather than stalling.

	vote, err := ctrl.RecordVote(ctx, survey.SideFirst)

# Errors

  - ErrInvalidConfiguration: arithmetic precondition (fewer than 2 variants)
  - ErrRegistrationFailed: no voter id was issued
  - ErrDegradedParameters: warning only, see Warnings
  - ErrFetchFailed: network or server failure, state unchanged, retryable
  - ErrNotReady: operation not valid now, e.g. voting without a selection

# Concurrency

A Controller is driven from one goroutine. While a request is in flight
Loading reports true and further RequestNextPair calls are ignored. Responses
that arrive after Close or after a newer fetch are discarded.
*/
package survey
