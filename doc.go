// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Quickly Survey terminal client.

Quickly Survey shows an original image next to two generated variants and
asks which variant is better. Votes go to a scoring backend; the client keeps
track of which variant pairs were already shown and walks through the base
images assigned to the voter.

# Starting the Client

Point the client at a survey API:

	SURVEY_API_URL=https://tools.qrplus.ai/api/v1/survey go run .

Or try it against the built-in fake backend:

	go run . -demo

# Configuration

Required settings:

  - SURVEY_API_URL (-u): Survey API base URL, unless -demo is given

Optional settings:

  - VOTER_NAME (-n): Display name (default: anon-xxxxxxxx derived from the device key)
  - DATABASE_URL (-d): Local database (default: survey.db)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - IDLE_INTERVAL (-idle): Show a new pair after this long without a selection (default: 5s)
  - IMAGE_DIR (-images): Save embedded variant images here

# Architecture

  - survey: Session controller (registration, pair selection, voting)
  - pairs: Pair and image range arithmetic
  - client: HTTP client for the survey API
  - widget: Terminal event loop, idle timer, image payload handling
  - db: Device identity and local vote log
  - fakeapi: In-memory survey API for tests and -demo
  - middleware: JSON helpers and request logging for fakeapi
  - models: Request/response types
  - auth: Identifier generation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
