// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/danielhkuo/quickly-survey/models"
	"github.com/danielhkuo/quickly-survey/pairs"
)

// maxPairAttempts bounds the search for an unseen pair. When it is exhausted
// the last candidate is used even if it was shown before.
const maxPairAttempts = 20

// Backend is the remote scoring service.
type Backend interface {
	RegisterVoter(ctx context.Context, req models.RegisterVoterRequest) (models.RegisterVoterResponse, error)
	VoterParams(ctx context.Context, voterID string) (models.VoterParams, error)
	FetchRound(ctx context.Context, req models.TicketRequest) (models.TicketResponse, error)
	RegisterVote(ctx context.Context, req models.VoteRequest) error
}

// VoteRecorder receives every accepted vote. Failures are logged, not
// returned.
type VoteRecorder interface {
	RecordVote(ctx context.Context, v Vote) error
}

// errStaleRound marks a response that arrived for a superseded fetch.
var errStaleRound = errors.New("stale round response")

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithGenerator sets the random source for ids, ranges and pairs.
func WithGenerator(g *pairs.Generator) Option {
	return func(c *Controller) { c.gen = g }
}

// WithPairDrawer replaces the pair draw used by every operation.
func WithPairDrawer(draw func(variantCount int) (pairs.Pair, error)) Option {
	return func(c *Controller) { c.drawPair = draw }
}

// WithVoteRecorder registers a sink for accepted votes.
func WithVoteRecorder(r VoteRecorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithWarningHandler is called for every non-fatal condition, such as
// ErrDegradedParameters.
func WithWarningHandler(fn func(error)) Option {
	return func(c *Controller) { c.onWarning = fn }
}

// WithClock sets the time source used to stamp votes.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller sequences the rounds of one survey session: registration, pair
// selection with exhaustion tracking, base image advancement and voting.
//
// A Controller is not safe for concurrent use. Callers drive it from a single
// goroutine and must not start an operation while Loading reports true.
type Controller struct {
	backend   Backend
	session   *Session
	log       *slog.Logger
	gen       *pairs.Generator
	drawPair  func(int) (pairs.Pair, error)
	recorder  VoteRecorder
	onWarning func(error)
	now       func() time.Time

	state    State
	loading  bool
	imageID  int
	round    *Round
	shown    map[string]struct{}
	history  []Vote
	warnings []error

	// seq tags each fetch; a response is applied only if seq is unchanged.
	seq uint64
}

// NewController returns an unregistered controller for session. A nil
// session is replaced by NewSession("").
func NewController(backend Backend, session *Session, opts ...Option) *Controller {
	if session == nil {
		session = NewSession("")
	}
	c := &Controller{
		backend: backend,
		session: session,
		log:     slog.Default(),
		gen:     &pairs.Generator{},
		now:     time.Now,
		state:   StateUnregistered,
		shown:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.drawPair == nil {
		c.drawPair = c.gen.VariantPair
	}
	return c
}

// Register registers the session with the backend, refines its parameters,
// and loads the first round.
//
// ErrRegistrationFailed leaves the controller unregistered and retryable.
// A failed first round fetch returns ErrFetchFailed but the controller is
// Active, so RequestNextPair can be used to retry.
func (c *Controller) Register(ctx context.Context, displayName string) error {
	if c.state != StateUnregistered {
		return fmt.Errorf("%w: register called while %s", ErrNotReady, c.state)
	}
	if displayName != "" {
		c.session.DisplayName = displayName
	}
	if c.session.VariantCount < 2 {
		return fmt.Errorf("%w: variant count %d", ErrInvalidConfiguration, c.session.VariantCount)
	}
	if !c.session.RangeConfigured {
		c.session.Range = c.gen.ProvisionalRange()
	}

	c.state = StateRegistering
	c.loading = true
	resp, err := c.backend.RegisterVoter(ctx, models.RegisterVoterRequest{
		VoterName: c.session.DisplayName,
		StartIdx:  strconv.Itoa(c.session.Range.Start),
		EndIdx:    strconv.Itoa(c.session.Range.End),
	})
	c.loading = false
	if c.state == StateTerminated {
		return fmt.Errorf("%w: closed during registration", ErrNotReady)
	}
	if err != nil {
		c.state = StateUnregistered
		return fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}
	voterID := resp.Identifier()
	if voterID == "" {
		c.state = StateUnregistered
		return fmt.Errorf("%w: response carried no voter id", ErrRegistrationFailed)
	}
	c.session.VoterID = voterID

	c.refineParameters(ctx)
	c.session.Range = c.session.Range.OrDefault()

	r := c.session.Range
	c.imageID = c.gen.ValidImageID(c.imageID, r.Start, r.End)
	pair, err := c.drawPair(c.session.VariantCount)
	c.state = StateActive
	if err != nil {
		return err
	}

	c.log.Info("voter registered",
		"voter_id", voterID,
		"range", r.String(),
		"variants", c.session.VariantCount,
		"image_id", c.imageID,
	)

	round, err := c.fetchRound(ctx, c.imageID, pair)
	if err != nil {
		return c.settle(err)
	}
	c.round = round
	return nil
}

// refineParameters applies backend session parameters on top of the
// provisional ones. Any failure degrades to the provisional values.
func (c *Controller) refineParameters(ctx context.Context) {
	c.loading = true
	params, err := c.backend.VoterParams(ctx, c.session.VoterID)
	c.loading = false
	if err != nil {
		c.warn(fmt.Errorf("%w: %v", ErrDegradedParameters, err))
		return
	}

	if params.NVariants.Set {
		if params.NVariants.Value >= 2 {
			c.session.VariantCount = params.NVariants.Value
		} else {
			c.log.Warn("ignoring variant count below 2", "n_variants", params.NVariants.Value)
		}
	}

	r := c.session.Range
	if params.StartIdx.Set {
		r.Start = params.StartIdx.Value
	}
	if params.EndIdx.Set {
		r.End = params.EndIdx.Value
	}
	if r.Valid() {
		c.session.Range = r
	} else {
		c.log.Warn("ignoring invalid refined range", "range", r.String())
	}
	if c.session.DisplayName == "" && params.VoterName != "" {
		c.session.DisplayName = params.VoterName
	}
}

// RequestNextPair shows a pair not yet seen for the current image. Once every
// pair has been shown it advances to the next base image instead.
//
// It is a no-op while another request is in flight. On ErrFetchFailed the
// previous round stays current and the drawn pair is not marked as shown.
func (c *Controller) RequestNextPair(ctx context.Context) error {
	if c.loading {
		c.log.Debug("request in flight, next pair ignored")
		return nil
	}
	if err := c.requireActive("request next pair"); err != nil {
		return err
	}
	if len(c.shown) >= c.session.TotalPairs() {
		return c.AdvanceBaseImage(ctx)
	}

	pair, err := c.drawUnseenPair()
	if err != nil {
		return err
	}

	round, err := c.fetchRound(ctx, c.imageID, pair)
	if err != nil {
		return c.settle(err)
	}
	c.shown[pair.Key()] = struct{}{}
	c.round = round
	return nil
}

func (c *Controller) drawUnseenPair() (pairs.Pair, error) {
	var candidate pairs.Pair
	for attempt := 0; attempt < maxPairAttempts; attempt++ {
		p, err := c.drawPair(c.session.VariantCount)
		if err != nil {
			return pairs.Pair{}, err
		}
		candidate = p
		if _, seen := c.shown[p.Key()]; !seen {
			return p, nil
		}
	}
	c.log.Debug("no unseen pair found, repeating",
		"pair", candidate.Key(),
		"attempts", maxPairAttempts,
	)
	return candidate, nil
}

// AdvanceBaseImage moves to the next base image, wrapping to the range start
// after the last one, and shows a fresh random pair. Shown pairs are cleared
// once the new round has been served.
func (c *Controller) AdvanceBaseImage(ctx context.Context) error {
	if c.loading {
		c.log.Debug("request in flight, advance ignored")
		return nil
	}
	if err := c.requireActive("advance image"); err != nil {
		return err
	}

	r := c.session.Range
	next := pairs.NextImageID(c.imageID, r.Start, r.End)
	pair, err := c.drawPair(c.session.VariantCount)
	if err != nil {
		return err
	}

	c.state = StateAdvancing
	round, err := c.fetchRound(ctx, next, pair)
	c.restoreActive(StateAdvancing)
	if err != nil {
		return c.settle(err)
	}

	c.log.Debug("base image advanced", "from", c.imageID, "to", next, "pairs_shown", len(c.shown))
	c.imageID = next
	clear(c.shown)
	c.round = round
	return nil
}

// RecordVote submits the variant on side for the current round. On success
// the vote is appended to history and the next pair is requested; the vote is
// returned even if that follow-up request fails.
//
// ErrNotReady is returned, without contacting the backend, when no variant is
// selected, no ticketed round is current, or the session is not registered.
func (c *Controller) RecordVote(ctx context.Context, side Side) (Vote, error) {
	if c.loading {
		return Vote{}, fmt.Errorf("%w: a request is in flight", ErrNotReady)
	}
	if err := c.requireActive("vote"); err != nil {
		return Vote{}, err
	}
	if c.round == nil || c.round.TicketID == "" {
		return Vote{}, fmt.Errorf("%w: no round to vote on", ErrNotReady)
	}
	chosen, ok := c.round.VariantFor(side)
	if !ok {
		return Vote{}, fmt.Errorf("%w: please select a variant first", ErrNotReady)
	}

	round := c.round
	c.state = StateSubmitting
	c.loading = true
	err := c.backend.RegisterVote(ctx, models.NewVoteRequest(round.TicketID, chosen, c.session.VoterID))
	c.loading = false
	c.restoreActive(StateSubmitting)
	if err != nil {
		c.log.Warn("vote submission failed", "ticket_id", round.TicketID, "error", err)
		return Vote{}, fmt.Errorf("%w: vote on ticket %s: %v", ErrFetchFailed, round.TicketID, err)
	}

	vote := Vote{
		TicketID:      round.TicketID,
		ImageID:       round.ImageID,
		ChosenVariant: chosen,
		VoterID:       c.session.VoterID,
		RecordedAt:    c.now(),
	}
	c.history = append(c.history, vote)
	c.log.Info("vote recorded", "ticket_id", vote.TicketID, "image_id", vote.ImageID, "variant", chosen)

	if c.recorder != nil {
		if err := c.recorder.RecordVote(ctx, vote); err != nil {
			c.log.Warn("failed to record vote locally", "ticket_id", vote.TicketID, "error", err)
		}
	}

	// The ticket is spent; keep the images on screen until the next round.
	if c.round == round {
		consumed := *round
		consumed.TicketID = ""
		c.round = &consumed
	}

	if c.state != StateActive {
		return vote, nil
	}
	return vote, c.RequestNextPair(ctx)
}

// Close terminates the session. Responses still in flight are discarded.
func (c *Controller) Close() {
	if c.state == StateTerminated {
		return
	}
	c.state = StateTerminated
	c.seq++
	c.log.Debug("survey session closed", "voter_id", c.session.VoterID, "votes", len(c.history))
}

// fetchRound asks the backend for the round's ticket and images. State is
// not touched; callers commit the returned round.
func (c *Controller) fetchRound(ctx context.Context, imageID int, pair pairs.Pair) (*Round, error) {
	c.seq++
	seq := c.seq

	c.loading = true
	resp, err := c.backend.FetchRound(ctx, models.NewTicketRequest(imageID, c.session.VoterID, pair.A, pair.B))
	c.loading = false

	if seq != c.seq || c.state == StateTerminated {
		return nil, errStaleRound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: image %d pair %s: %v", ErrFetchFailed, imageID, pair.Key(), err)
	}
	if resp.TicketID == "" {
		c.log.Warn("round served without ticket", "image_id", imageID, "pair", pair.Key())
	}

	return &Round{
		ImageID:  imageID,
		Pair:     pair,
		TicketID: resp.TicketID,
		Original: resp.Image,
		Variants: [2]string{resp.QR1, resp.QR2},
		seq:      seq,
	}, nil
}

// settle drops stale responses and logs fetch failures.
func (c *Controller) settle(err error) error {
	if errors.Is(err, errStaleRound) {
		c.log.Debug("discarding stale round response")
		return nil
	}
	if errors.Is(err, ErrFetchFailed) {
		c.log.Warn("round fetch failed", "image_id", c.imageID, "error", err)
	}
	return err
}

func (c *Controller) restoreActive(from State) {
	if c.state == from {
		c.state = StateActive
	}
}

func (c *Controller) requireActive(op string) error {
	if c.state != StateActive || !c.session.Registered() {
		return fmt.Errorf("%w: cannot %s while %s", ErrNotReady, op, c.state)
	}
	return nil
}

func (c *Controller) warn(err error) {
	c.warnings = append(c.warnings, err)
	c.log.Warn("survey degraded", "error", err)
	if c.onWarning != nil {
		c.onWarning(err)
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Loading reports whether a backend request is in flight.
func (c *Controller) Loading() bool {
	return c.loading
}

// Session returns the session the controller was built with.
func (c *Controller) Session() *Session {
	return c.session
}

// ImageID returns the current base image id.
func (c *Controller) ImageID() int {
	return c.imageID
}

// TotalPairs returns the number of distinct pairs per base image.
func (c *Controller) TotalPairs() int {
	return c.session.TotalPairs()
}

// Round returns a copy of the current round, if any.
func (c *Controller) Round() (Round, bool) {
	if c.round == nil {
		return Round{}, false
	}
	return *c.round, true
}

// ShownPairs returns the sorted keys of pairs shown for the current image.
func (c *Controller) ShownPairs() []string {
	keys := make([]string, 0, len(c.shown))
	for k := range c.shown {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// History returns the accepted votes in submission order.
func (c *Controller) History() []Vote {
	return slices.Clone(c.history)
}

// Warnings returns the non-fatal conditions reported so far.
func (c *Controller) Warnings() []error {
	return slices.Clone(c.warnings)
}
