// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/danielhkuo/quickly-survey/client"
	"github.com/danielhkuo/quickly-survey/cliparse"
	"github.com/danielhkuo/quickly-survey/db"
	"github.com/danielhkuo/quickly-survey/fakeapi"
	"github.com/danielhkuo/quickly-survey/survey"
	"github.com/danielhkuo/quickly-survey/widget"
)

// registerAttempts bounds retries of a failed registration.
const registerAttempts = 3

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	fd := os.Stdin.Fd()
	interactive := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)

	// Ctrl-C ends the session
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout, interactive); err != nil {
		slog.Error("Survey session failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliparse.Config, in io.Reader, out io.Writer, interactive bool) error {
	// Local storage
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := db.CreateSchema(dbConn); err != nil {
		return err
	}
	slog.Debug("Database schema ready", "type", cfg.DatabaseType)

	identities := db.NewIdentityStore(dbConn)
	ident, err := identities.LoadOrCreate(ctx)
	if err != nil {
		return err
	}
	votes := db.NewVoteLog(dbConn)

	// Backend
	apiURL := cfg.APIURL
	if cfg.Demo {
		url, shutdown, err := startDemoBackend()
		if err != nil {
			return err
		}
		defer shutdown()
		apiURL = url
	}

	name := cfg.VoterName
	if name == "" {
		name = ident.DisplayName
	}
	if ident.VoterID != "" {
		slog.Info("returning voter", "device_key", ident.DeviceKey, "previous_voter_id", ident.VoterID)
		fmt.Fprintf(out, "Welcome back, %s.\n", name)
	}

	api := client.New(apiURL, client.WithTimeout(cfg.HTTPTimeout))
	ctrl := survey.NewController(api, survey.NewSession(name), survey.WithVoteRecorder(votes))
	defer ctrl.Close()

	if err := register(ctx, ctrl); err != nil {
		return err
	}

	session := ctrl.Session()
	if err := identities.RememberVoter(ctx, ident.DeviceKey, session.DisplayName, session.VoterID); err != nil {
		slog.Warn("failed to remember voter", "error", err)
	}

	// The idle timer only makes sense with someone at the keyboard
	idle := cfg.IdleInterval
	if !interactive {
		idle = 0
	}

	runner := widget.NewRunner(ctrl, in, out,
		widget.WithIdleInterval(idle),
		widget.WithPrompt(interactive),
		widget.WithImageDir(cfg.ImageDir),
		widget.WithHistorySource(votes),
	)
	err = runner.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	stored, err := votes.Count(context.Background(), "")
	if err != nil {
		slog.Warn("failed to count stored votes", "error", err)
	}
	fmt.Fprintln(out, widget.Summary(ctrl, stored))
	return nil
}

// register retries failed registrations a few times. A missing first round
// is not fatal; the user can retry from the prompt.
func register(ctx context.Context, ctrl *survey.Controller) error {
	var err error
	for attempt := 1; attempt <= registerAttempts; attempt++ {
		err = ctrl.Register(ctx, "")
		if err == nil || errors.Is(err, survey.ErrFetchFailed) {
			return nil
		}
		if !errors.Is(err, survey.ErrRegistrationFailed) {
			return err
		}

		slog.Warn("registration failed", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return err
}

// startDemoBackend serves a fake backend on a loopback port.
func startDemoBackend() (string, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to start demo backend: %w", err)
	}

	server := &http.Server{
		Handler:           fakeapi.New(fakeapi.Config{}).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		err := server.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Demo backend closed", "error", err)
		}
	}()

	slog.Info("Demo backend listening", "addr", ln.Addr().String())
	return "http://" + ln.Addr().String(), func() { server.Close() }, nil
}
