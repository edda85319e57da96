// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package widget is the terminal presentation layer for a survey session.

# Commands

	1, 2   select the first or second variant
	s      submit the selection
	c      show another pair for the same image
	n      advance to the next base image
	h      list recent votes
	q      quit

Each new round is rendered with an "Original Image (id/last)" header followed
by the two variants.

# Idle Timer

IdleTimer belongs to the presentation layer, not the controller. When a round
sits for the idle interval (5s by default) without a selection, Runner asks
the controller for another pair. The timer is suspended while a request is in
flight, stopped while a selection is pending, and restarted when the round
changes.

# Image Payloads

Backends return images in several forms. Classify sniffs them in order:

  - "data:image..." is used as is
  - longer than 100 characters is raw base64 PNG data
  - a leading "/" or "http" is a path or URL
  - anything else falls back to DefaultImage

With WithImageDir, embedded payloads are written to PNG files so they can be
opened from the terminal.
*/
package widget
