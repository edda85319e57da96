// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth generates the identifiers used by the survey client and the
in-process test backend.

# Device Keys

A device key is the anonymous identity a widget installation keeps across
restarts. It is a random UUID:

	key := auth.NewDeviceKey()

When the user gives no display name, DisplayNameFor derives one from the key:

	name := auth.DisplayNameFor(key) // "anon-1b4e28ba"

# Opaque IDs

Random hex IDs for voters and tickets:

	id, err := auth.GenerateID(16) // 32 hex characters
*/
package auth
