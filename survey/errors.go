// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"errors"

	"github.com/danielhkuo/quickly-survey/pairs"
)

var (
	// ErrInvalidConfiguration reports a violated arithmetic precondition,
	// such as fewer than two variants.
	ErrInvalidConfiguration = pairs.ErrInvalidConfiguration

	// ErrRegistrationFailed means registration yielded no voter id.
	ErrRegistrationFailed = errors.New("registration failed")

	// ErrDegradedParameters is reported as a warning, never returned: the
	// session keeps its provisional parameters.
	ErrDegradedParameters = errors.New("session parameters unavailable, using provisional values")

	// ErrFetchFailed wraps any round fetch or vote submission failure.
	// The controller state is unchanged and the call may be retried.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrNotReady means the operation is not valid in the current state.
	ErrNotReady = errors.New("not ready")
)
