// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-u          Survey API base URL
	-n          Display name
	-d          Database URL (default: survey.db)
	-t          Database type, sqlite or postgres (default: sqlite)
	-idle       Idle interval before a new pair is shown (default: 5s, 0 disables)
	-timeout    HTTP request timeout (default: 15s)
	-images     Directory to save embedded images to
	-log-level  debug, info, warn or error (default: info)
	-demo       Use the built-in fake backend
	-env        Environment file to load (default: .env)

# Environment Variables

Flags fall back to environment variables:

	SURVEY_API_URL → -u
	VOTER_NAME     → -n
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t
	IDLE_INTERVAL  → -idle
	HTTP_TIMEOUT   → -timeout
	IMAGE_DIR      → -images
	LOG_LEVEL      → -log-level
	SURVEY_DEMO    → -demo

Variables are also read from the -env file; variables already set in the
environment win over the file, and CLI flags take precedence over both.

# Validation

ParseFlags returns an error if:

  - neither an API URL nor -demo is given
  - the database type is not sqlite or postgres
  - a duration or the log level does not parse
*/
package cliparse
