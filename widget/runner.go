// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package widget

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/quickly-survey/survey"
)

// historyLimit is how many votes the h command lists.
const historyLimit = 10

// HistorySource lists a voter's most recent votes, newest first.
type HistorySource interface {
	Recent(ctx context.Context, voterID string, limit int) ([]survey.Vote, error)
}

// Runner is the terminal front end of a survey session. It reads one command
// per line and drives the controller from a single goroutine.
type Runner struct {
	ctrl     *survey.Controller
	in       io.Reader
	out      io.Writer
	timer    *IdleTimer
	imageDir string
	history  HistorySource
	prompt   bool
	log      *slog.Logger
	now      func() time.Time

	selected survey.Side
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithIdleInterval sets how long a round may sit without a selection before
// a new pair is requested. Zero disables the idle timer.
func WithIdleInterval(d time.Duration) RunnerOption {
	return func(r *Runner) { r.timer = NewIdleTimer(d) }
}

// WithImageDir saves embedded image payloads under dir.
func WithImageDir(dir string) RunnerOption {
	return func(r *Runner) { r.imageDir = dir }
}

// WithHistorySource lists history from h instead of the in-memory session.
func WithHistorySource(h HistorySource) RunnerOption {
	return func(r *Runner) { r.history = h }
}

// WithPrompt prints a prompt before each command.
func WithPrompt(on bool) RunnerOption {
	return func(r *Runner) { r.prompt = on }
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

// WithNow sets the clock used for relative times.
func WithNow(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner returns a Runner for a registered controller.
func NewRunner(ctrl *survey.Controller, in io.Reader, out io.Writer, opts ...RunnerOption) *Runner {
	r := &Runner{
		ctrl:  ctrl,
		in:    in,
		out:   out,
		timer: NewIdleTimer(DefaultIdleInterval),
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes commands until q, end of input, or ctx is done. It returns
// ctx.Err() when cancelled and nil otherwise.
func (r *Runner) Run(ctx context.Context) error {
	defer r.timer.Stop()

	done := make(chan struct{})
	defer close(done)
	lines := r.readLines(done)

	r.printf("Voting as %s. Type ? for commands.\n", r.ctrl.Session().DisplayName)
	if _, ok := r.ctrl.Round(); ok {
		r.render()
	} else {
		r.notice("No images loaded yet. Press c to retry.")
	}
	r.rearm()
	r.showPrompt()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := r.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
			r.showPrompt()

		case <-r.timer.C():
			if r.selected != survey.SideNone {
				continue
			}
			r.log.Debug("idle interval elapsed, requesting next pair")
			r.step(ctx, r.ctrl.RequestNextPair)
			r.showPrompt()
		}
	}
}

// readLines feeds input lines to the loop until EOF or done is closed.
func (r *Runner) readLines(done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		if err := sc.Err(); err != nil {
			r.log.Warn("failed to read input", "error", err)
		}
	}()
	return lines
}

// handle runs one command and reports whether the loop should stop.
func (r *Runner) handle(ctx context.Context, cmd string) bool {
	if side, ok := ParseSide(cmd); ok {
		r.selectSide(side)
		return false
	}

	switch strings.ToLower(cmd) {
	case "":
	case "s":
		r.submit(ctx)
	case "c":
		r.step(ctx, r.ctrl.RequestNextPair)
	case "n":
		r.step(ctx, r.ctrl.AdvanceBaseImage)
	case "h":
		r.showHistory(ctx)
	case "?", "help":
		r.usage()
	case "q", "quit":
		return true
	default:
		r.notice(fmt.Sprintf("Unknown command %q. Type ? for commands.", cmd))
	}
	return false
}

func (r *Runner) selectSide(side survey.Side) {
	round, ok := r.ctrl.Round()
	if !ok || round.TicketID == "" {
		r.notice("Nothing to select yet. Press c to load a pair.")
		return
	}
	variant, _ := round.VariantFor(side)
	r.selected = side
	r.timer.Stop()
	r.printf("Selected variant %d. Press s to submit.\n", variant)
}

func (r *Runner) submit(ctx context.Context) {
	before, _ := r.ctrl.Round()

	r.timer.Suspend()
	vote, err := r.ctrl.RecordVote(ctx, r.selected)
	r.timer.Resume()

	if vote.TicketID != "" {
		r.selected = survey.SideNone
		r.printf("Vote submitted: image %d, variant %d.\n", vote.ImageID, vote.ChosenVariant)
	}
	if err != nil {
		r.reportError(err)
	}
	r.afterStep(before)
}

// step runs a round-changing operation with the idle timer suspended.
func (r *Runner) step(ctx context.Context, op func(context.Context) error) {
	before, _ := r.ctrl.Round()

	r.timer.Suspend()
	err := op(ctx)
	r.timer.Resume()

	if err != nil {
		r.reportError(err)
	}
	r.afterStep(before)
}

// afterStep renders a new round and rearms the idle timer.
func (r *Runner) afterStep(before survey.Round) {
	after, ok := r.ctrl.Round()
	if ok && after.TicketID != "" && after != before {
		r.selected = survey.SideNone
		r.render()
	}
	r.rearm()
}

// rearm restarts the idle countdown unless a selection is pending.
func (r *Runner) rearm() {
	if r.selected != survey.SideNone || r.ctrl.State() != survey.StateActive {
		r.timer.Stop()
		return
	}
	r.timer.Reset()
}

func (r *Runner) reportError(err error) {
	switch {
	case errors.Is(err, survey.ErrNotReady):
		if r.selected == survey.SideNone {
			r.notice("Please select a variant first.")
		} else {
			r.notice("Not ready yet. Try again in a moment.")
		}
	case errors.Is(err, survey.ErrFetchFailed):
		r.notice("Could not reach the survey service. Press c to retry.")
	default:
		r.notice("Error: " + err.Error())
	}
	r.log.Debug("command failed", "error", err)
}

func (r *Runner) render() {
	round, ok := r.ctrl.Round()
	if !ok {
		return
	}
	last := r.ctrl.Session().Range.OrDefault().Last()

	r.printf("\nOriginal Image (%d/%d): %s\n", round.ImageID, last, r.describe(fmt.Sprintf("%d-original", round.ImageID), round.Original))
	for i, side := range []survey.Side{survey.SideFirst, survey.SideSecond} {
		variant, _ := round.VariantFor(side)
		name := fmt.Sprintf("%d-variant-%d", round.ImageID, variant)
		r.printf("  [%d] variant %d: %s\n", i+1, variant, r.describe(name, round.Variants[i]))
	}
	r.printf("  %d of %d pairs seen for this image\n", len(r.ctrl.ShownPairs()), r.ctrl.TotalPairs())
}

// describe returns something a terminal user can open for raw.
func (r *Runner) describe(name, raw string) string {
	kind := Classify(raw)
	if r.imageDir != "" && (kind == KindDataURI || kind == KindRawBase64) {
		path, err := SaveImage(r.imageDir, name, raw)
		if err == nil {
			return path
		}
		r.log.Warn("failed to save image", "name", name, "error", err)
	}
	if kind == KindDataURI || kind == KindRawBase64 {
		return fmt.Sprintf("<%s image, %s>", kind, humanize.Bytes(uint64(base64Size(raw))))
	}
	return ImageSource(raw)
}

func base64Size(raw string) int {
	if i := strings.Index(raw, ","); i >= 0 && Classify(raw) == KindDataURI {
		raw = raw[i+1:]
	}
	return len(raw) * 3 / 4
}

func (r *Runner) showHistory(ctx context.Context) {
	votes := r.ctrl.History()
	if r.history != nil {
		recent, err := r.history.Recent(ctx, r.ctrl.Session().VoterID, historyLimit)
		if err != nil {
			r.log.Warn("failed to load vote history", "error", err)
		} else {
			votes = recent
		}
	} else {
		// Newest first, like the stored log.
		rev := make([]survey.Vote, 0, len(votes))
		for i := len(votes) - 1; i >= 0 && len(rev) < historyLimit; i-- {
			rev = append(rev, votes[i])
		}
		votes = rev
	}

	r.printf("%s this session\n", plural(len(r.ctrl.History()), "vote"))
	for _, v := range votes {
		r.printf("  image %-3d variant %d  %s\n", v.ImageID, v.ChosenVariant, humanize.RelTime(v.RecordedAt, r.now(), "ago", "from now"))
	}
}

func (r *Runner) usage() {
	r.printf(`Commands:
  1, 2   select the first or second variant
  s      submit the selected variant
  c      show a different pair of variants
  n      move on to the next image
  h      show recent votes
  q      quit
`)
}

func (r *Runner) notice(msg string) {
	r.printf("! %s\n", msg)
}

func (r *Runner) showPrompt() {
	if r.prompt {
		r.printf("> ")
	}
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func plural(n int, noun string) string {
	s := humanize.Comma(int64(n)) + " " + noun
	if n != 1 {
		s += "s"
	}
	return s
}

// Summary is a one-line description of a finished session.
func Summary(ctrl *survey.Controller, stored int) string {
	s := fmt.Sprintf("Session ended after %s", plural(len(ctrl.History()), "vote"))
	if stored > 0 {
		s += " (" + plural(stored, "vote") + " recorded on this device)"
	}
	return s + "."
}

// ParseSide maps "1"/"2" to a side.
func ParseSide(s string) (survey.Side, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return survey.SideNone, false
	}
	switch n {
	case 1:
		return survey.SideFirst, true
	case 2:
		return survey.SideSecond, true
	}
	return survey.SideNone, false
}
