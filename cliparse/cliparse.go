// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults
const (
	DefaultDatabaseURL  = "survey.db"
	DefaultDatabaseType = "sqlite"
	DefaultIdleInterval = 5 * time.Second
	DefaultHTTPTimeout  = 15 * time.Second
	DefaultEnvFile      = ".env"
)

type Config struct {
	APIURL       string
	VoterName    string
	DatabaseURL  string
	DatabaseType string
	IdleInterval time.Duration
	HTTPTimeout  time.Duration
	ImageDir     string
	LogLevel     slog.Level
	Demo         bool
}

// ParseFlags reads flags, then the .env file, then the environment.
// CLI flags take precedence over both.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var envFile, logLevel string

	fs := flag.NewFlagSet("quickly-survey", flag.ContinueOnError)

	// Backend
	fs.StringVar(&cfg.APIURL, "u", "", "Survey API base URL")
	fs.StringVar(&cfg.VoterName, "n", "", "Display name (defaults to an anonymous device name)")
	fs.DurationVar(&cfg.HTTPTimeout, "timeout", DefaultHTTPTimeout, "HTTP request timeout")
	fs.BoolVar(&cfg.Demo, "demo", false, "Run against a built-in fake backend")

	// Local storage
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Presentation
	fs.DurationVar(&cfg.IdleInterval, "idle", DefaultIdleInterval, "Idle interval before a new pair is shown (0 disables)")
	fs.StringVar(&cfg.ImageDir, "images", "", "Directory to save embedded images to")
	fs.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	fs.StringVar(&envFile, "env", DefaultEnvFile, "Environment file to load")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// Values already in the environment win over the file
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.APIURL == "" {
		cfg.APIURL = os.Getenv("SURVEY_API_URL")
	}
	if cfg.VoterName == "" {
		cfg.VoterName = os.Getenv("VOTER_NAME")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = DefaultDatabaseURL
		}
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = DefaultDatabaseType
		}
	}
	if cfg.ImageDir == "" {
		cfg.ImageDir = os.Getenv("IMAGE_DIR")
	}
	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
	}

	if !set["idle"] {
		d, err := envDuration("IDLE_INTERVAL", DefaultIdleInterval)
		if err != nil {
			return Config{}, err
		}
		cfg.IdleInterval = d
	}
	if !set["timeout"] {
		d, err := envDuration("HTTP_TIMEOUT", DefaultHTTPTimeout)
		if err != nil {
			return Config{}, err
		}
		cfg.HTTPTimeout = d
	}
	if !set["demo"] {
		if v := os.Getenv("SURVEY_DEMO"); v != "" {
			demo, err := strconv.ParseBool(v)
			if err != nil {
				return Config{}, errors.New("invalid SURVEY_DEMO env variable")
			}
			cfg.Demo = demo
		}
	}

	if logLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
			return Config{}, fmt.Errorf("invalid log level %q", logLevel)
		}
	}

	// Validation
	if cfg.APIURL == "" && !cfg.Demo {
		return Config{}, errors.New("survey API URL required (use -u or SURVEY_API_URL env, or -demo)")
	}
	cfg.DatabaseType = strings.ToLower(cfg.DatabaseType)
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("database type must be sqlite or postgres, got %q", cfg.DatabaseType)
	}
	if cfg.IdleInterval < 0 {
		return Config{}, errors.New("idle interval must not be negative")
	}
	if cfg.HTTPTimeout <= 0 {
		return Config{}, errors.New("HTTP timeout must be positive")
	}

	return cfg, nil
}

// loadEnvFile loads path if it exists. A missing default file is fine.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return d, nil
}
