// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package survey

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-survey/models"
	"github.com/danielhkuo/quickly-survey/pairs"
)

type fakeBackend struct {
	registerResp models.RegisterVoterResponse
	registerErr  error
	params       models.VoterParams
	paramsErr    error
	fetchErr     error
	voteErr      error
	onFetch      func(req models.TicketRequest)

	registerReqs []models.RegisterVoterRequest
	fetches      []models.TicketRequest
	votes        []models.VoteRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		registerResp: models.RegisterVoterResponse{VoterID: "v1"},
		paramsErr:    errors.New("params endpoint unavailable"),
	}
}

func (f *fakeBackend) RegisterVoter(ctx context.Context, req models.RegisterVoterRequest) (models.RegisterVoterResponse, error) {
	f.registerReqs = append(f.registerReqs, req)
	if f.registerErr != nil {
		return models.RegisterVoterResponse{}, f.registerErr
	}
	return f.registerResp, nil
}

func (f *fakeBackend) VoterParams(ctx context.Context, voterID string) (models.VoterParams, error) {
	if f.paramsErr != nil {
		return models.VoterParams{}, f.paramsErr
	}
	return f.params, nil
}

func (f *fakeBackend) FetchRound(ctx context.Context, req models.TicketRequest) (models.TicketResponse, error) {
	f.fetches = append(f.fetches, req)
	if f.onFetch != nil {
		f.onFetch(req)
	}
	if f.fetchErr != nil {
		return models.TicketResponse{}, f.fetchErr
	}
	return models.TicketResponse{
		TicketID: "t-" + req.ImageID + "-" + req.Idx1 + "-" + req.Idx2,
		Image:    "/images/" + req.ImageID + ".png",
		QR1:      "qr-" + req.Idx1,
		QR2:      "qr-" + req.Idx2,
	}, nil
}

func (f *fakeBackend) RegisterVote(ctx context.Context, req models.VoteRequest) error {
	if f.voteErr != nil {
		return f.voteErr
	}
	f.votes = append(f.votes, req)
	return nil
}

type recorderFunc func(ctx context.Context, v Vote) error

func (f recorderFunc) RecordVote(ctx context.Context, v Vote) error { return f(ctx, v) }

// scriptedPairs returns a drawer that yields ps in order, repeating the last.
func scriptedPairs(ps ...pairs.Pair) func(int) (pairs.Pair, error) {
	i := 0
	return func(n int) (pairs.Pair, error) {
		p := ps[min(i, len(ps)-1)]
		i++
		return p, nil
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(b Backend, sess *Session, opts ...Option) *Controller {
	base := []Option{
		WithLogger(quietLogger()),
		WithGenerator(pairs.NewGenerator(rand.NewPCG(1, 2))),
	}
	return NewController(b, sess, append(base, opts...)...)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	b.paramsErr = nil
	b.params = models.VoterParams{
		NVariants: models.Int(3),
		StartIdx:  models.Int(10),
		EndIdx:    models.Int(20),
	}

	ctrl := newTestController(b, NewSession(""))
	require.Equal(t, StateUnregistered, ctrl.State())

	require.NoError(t, ctrl.Register(ctx, "ann"))

	assert.Equal(t, StateActive, ctrl.State())
	assert.False(t, ctrl.Loading())
	assert.Equal(t, "v1", ctrl.Session().VoterID)
	assert.Equal(t, 3, ctrl.Session().VariantCount)
	assert.Equal(t, 3, ctrl.TotalPairs())
	assert.Equal(t, pairs.Range{Start: 10, End: 20}, ctrl.Session().Range)
	assert.Empty(t, ctrl.Warnings())

	require.Len(t, b.registerReqs, 1)
	assert.Equal(t, "ann", b.registerReqs[0].VoterName)

	round, ok := ctrl.Round()
	require.True(t, ok)
	assert.NotEmpty(t, round.TicketID)
	assert.True(t, round.ImageID >= 10 && round.ImageID < 20, "image id %d", round.ImageID)
	assert.NotEqual(t, round.Pair.A, round.Pair.B)
	assert.Equal(t, "/images/"+strconv.Itoa(round.ImageID)+".png", round.Original)

	// The initial pair is not tracked as shown.
	assert.Empty(t, ctrl.ShownPairs())

	err := ctrl.Register(ctx, "ann")
	assert.True(t, errors.Is(err, ErrNotReady), "second register: %v", err)
}

func TestRegisterFailure(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(b *fakeBackend)
	}{
		{"transport error", func(b *fakeBackend) { b.registerErr = errors.New("connection refused") }},
		{"no identifier", func(b *fakeBackend) { b.registerResp = models.RegisterVoterResponse{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			tt.setup(b)
			ctrl := newTestController(b, NewSession("ann"))

			err := ctrl.Register(ctx, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRegistrationFailed), "got %v", err)
			assert.Equal(t, StateUnregistered, ctrl.State())
			assert.Empty(t, b.fetches)

			_, err = ctrl.RecordVote(ctx, SideFirst)
			assert.True(t, errors.Is(err, ErrNotReady), "vote before registration: %v", err)

			// Registration is retryable.
			b.registerErr = nil
			b.registerResp = models.RegisterVoterResponse{ID: "v9"}
			require.NoError(t, ctrl.Register(ctx, ""))
			assert.Equal(t, "v9", ctrl.Session().VoterID)
		})
	}
}

func TestRegisterDegradedParameters(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()

	var seen []error
	ctrl := newTestController(b, NewSession("ann"), WithWarningHandler(func(err error) {
		seen = append(seen, err)
	}))

	require.NoError(t, ctrl.Register(ctx, ""))
	assert.Equal(t, StateActive, ctrl.State())

	warnings := ctrl.Warnings()
	require.Len(t, warnings, 1)
	assert.True(t, errors.Is(warnings[0], ErrDegradedParameters))
	assert.Equal(t, warnings, seen)

	// The provisional range sent at registration is kept (or the default
	// range if the provisional draw was unusable).
	req := b.registerReqs[0]
	provisional := pairs.Range{Start: atoi(t, req.StartIdx), End: atoi(t, req.EndIdx)}
	assert.Equal(t, provisional.OrDefault(), ctrl.Session().Range)
	assert.Equal(t, pairs.DefaultVariantCount, ctrl.Session().VariantCount)
}

func TestRegisterIgnoresInvalidRefinement(t *testing.T) {
	b := newFakeBackend()
	b.paramsErr = nil
	b.params = models.VoterParams{
		NVariants: models.Int(1),
		StartIdx:  models.Int(50),
		EndIdx:    models.Int(40),
	}

	sess := NewSession("ann").WithRange(pairs.Range{Start: 0, End: 10})
	ctrl := newTestController(b, sess)
	require.NoError(t, ctrl.Register(context.Background(), ""))

	assert.Equal(t, pairs.DefaultVariantCount, ctrl.Session().VariantCount)
	assert.Equal(t, pairs.Range{Start: 0, End: 10}, ctrl.Session().Range)
}

func TestRegisterInvalidVariantCount(t *testing.T) {
	b := newFakeBackend()
	sess := NewSession("ann")
	sess.VariantCount = 1

	ctrl := newTestController(b, sess)
	err := ctrl.Register(context.Background(), "")
	assert.True(t, errors.Is(err, ErrInvalidConfiguration), "got %v", err)
	assert.Empty(t, b.registerReqs)
}

func TestRegisterFirstRoundFetchFails(t *testing.T) {
	b := newFakeBackend()
	b.fetchErr = errors.New("502 bad gateway")

	ctrl := newTestController(b, NewSession("ann"))
	err := ctrl.Register(context.Background(), "")

	assert.True(t, errors.Is(err, ErrFetchFailed), "got %v", err)
	assert.Equal(t, StateActive, ctrl.State())
	_, ok := ctrl.Round()
	assert.False(t, ok)

	// The user can retry once the backend recovers.
	b.fetchErr = nil
	require.NoError(t, ctrl.RequestNextPair(context.Background()))
	_, ok = ctrl.Round()
	assert.True(t, ok)
}

func TestPairExhaustionAdvancesImage(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	b.paramsErr = nil
	b.params = models.VoterParams{NVariants: models.Int(3)}

	draw := scriptedPairs(
		pairs.Pair{A: 1, B: 0}, // initial round
		pairs.Pair{A: 0, B: 1},
		pairs.Pair{A: 2, B: 0},
		pairs.Pair{A: 1, B: 2},
		pairs.Pair{A: 2, B: 1}, // after advance
	)
	sess := NewSession("ann").WithRange(pairs.Range{Start: 10, End: 20})
	ctrl := newTestController(b, sess, WithPairDrawer(draw))
	require.NoError(t, ctrl.Register(ctx, ""))
	require.Equal(t, 3, ctrl.TotalPairs())

	startImage := ctrl.ImageID()
	for i := 0; i < 3; i++ {
		require.NoError(t, ctrl.RequestNextPair(ctx))
		assert.Equal(t, startImage, ctrl.ImageID(), "image must not change before exhaustion")
	}
	assert.Equal(t, []string{"0-1", "0-2", "1-2"}, ctrl.ShownPairs())

	require.NoError(t, ctrl.RequestNextPair(ctx))
	assert.Equal(t, pairs.NextImageID(startImage, 10, 20), ctrl.ImageID())
	assert.NotEqual(t, startImage, ctrl.ImageID())
	assert.Empty(t, ctrl.ShownPairs())

	round, ok := ctrl.Round()
	require.True(t, ok)
	assert.Equal(t, ctrl.ImageID(), round.ImageID)
	assert.Equal(t, pairs.Pair{A: 2, B: 1}, round.Pair)
}

func TestExhaustiveDrawAdvancesAfterAllPairs(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	sess := NewSession("ann").WithRange(pairs.Range{Start: 0, End: 5})
	ctrl := newTestController(b, sess)
	require.NoError(t, ctrl.Register(ctx, ""))

	image := ctrl.ImageID()
	total := ctrl.TotalPairs()
	for len(ctrl.ShownPairs()) < total {
		before := len(ctrl.ShownPairs())
		require.NoError(t, ctrl.RequestNextPair(ctx))
		require.Equal(t, image, ctrl.ImageID())
		// Distinct pairs are found well within the attempt cap almost always,
		// but a repeat is allowed by design.
		require.GreaterOrEqual(t, len(ctrl.ShownPairs()), before)
	}

	require.NoError(t, ctrl.RequestNextPair(ctx))
	assert.NotEqual(t, image, ctrl.ImageID())
	assert.Empty(t, ctrl.ShownPairs())
}

func TestUnseenPairSearchMayRepeat(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	draw := scriptedPairs(pairs.Pair{A: 0, B: 1})
	ctrl := newTestController(b, NewSession("ann"), WithPairDrawer(draw))
	require.NoError(t, ctrl.Register(ctx, ""))

	require.NoError(t, ctrl.RequestNextPair(ctx))
	fetches := len(b.fetches)

	// Every candidate is already shown; after the attempt cap the repeat is
	// served instead of stalling.
	require.NoError(t, ctrl.RequestNextPair(ctx))
	assert.Equal(t, fetches+1, len(b.fetches))
	assert.Equal(t, []string{"0-1"}, ctrl.ShownPairs())
}

func TestFetchFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	draw := scriptedPairs(pairs.Pair{A: 0, B: 1}, pairs.Pair{A: 2, B: 3}, pairs.Pair{A: 4, B: 0})
	ctrl := newTestController(b, NewSession("ann"), WithPairDrawer(draw))
	require.NoError(t, ctrl.Register(ctx, ""))
	require.NoError(t, ctrl.RequestNextPair(ctx)) // shows 2-3

	before, _ := ctrl.Round()
	b.fetchErr = errors.New("timeout")

	err := ctrl.RequestNextPair(ctx) // draws 4-0, fetch fails
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed), "got %v", err)

	after, ok := ctrl.Round()
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{"2-3"}, ctrl.ShownPairs())
	assert.NotContains(t, ctrl.ShownPairs(), "0-4")
	assert.Equal(t, StateActive, ctrl.State())
	assert.False(t, ctrl.Loading())
}

func TestAdvanceFailureKeepsImage(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	ctrl := newTestController(b, NewSession("ann"))
	require.NoError(t, ctrl.Register(ctx, ""))
	require.NoError(t, ctrl.RequestNextPair(ctx))

	image := ctrl.ImageID()
	shown := ctrl.ShownPairs()
	b.fetchErr = errors.New("reset by peer")

	err := ctrl.AdvanceBaseImage(ctx)
	assert.True(t, errors.Is(err, ErrFetchFailed), "got %v", err)
	assert.Equal(t, image, ctrl.ImageID())
	assert.Equal(t, shown, ctrl.ShownPairs())
	assert.Equal(t, StateActive, ctrl.State())
}

func TestAdvanceWrapsAtRangeEnd(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	sess := NewSession("ann").WithRange(pairs.Range{Start: 3, End: 5})
	ctrl := newTestController(b, sess)
	require.NoError(t, ctrl.Register(ctx, ""))

	seen := map[int]bool{}
	for i := 0; i < 4; i++ {
		require.NoError(t, ctrl.AdvanceBaseImage(ctx))
		id := ctrl.ImageID()
		assert.True(t, id == 3 || id == 4, "image id %d outside [3,5)", id)
		seen[id] = true
	}
	assert.Len(t, seen, 2)
}

func TestRecordVote(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	draw := scriptedPairs(pairs.Pair{A: 3, B: 1}, pairs.Pair{A: 0, B: 2})

	var recorded []Vote
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctrl := newTestController(b, NewSession("ann"),
		WithPairDrawer(draw),
		WithClock(func() time.Time { return now }),
		WithVoteRecorder(recorderFunc(func(ctx context.Context, v Vote) error {
			recorded = append(recorded, v)
			return nil
		})),
	)
	require.NoError(t, ctrl.Register(ctx, ""))
	round, _ := ctrl.Round()

	vote, err := ctrl.RecordVote(ctx, SideSecond)
	require.NoError(t, err)

	assert.Equal(t, Vote{
		TicketID:      round.TicketID,
		ImageID:       round.ImageID,
		ChosenVariant: 1,
		VoterID:       "v1",
		RecordedAt:    now,
	}, vote)
	require.Len(t, b.votes, 1)
	assert.Equal(t, models.VoteRequest{TicketID: round.TicketID, Vote: "1", VoterID: "v1"}, b.votes[0])
	assert.Equal(t, []Vote{vote}, ctrl.History())
	assert.Equal(t, []Vote{vote}, recorded)

	// A successful vote moves on to the next pair.
	next, ok := ctrl.Round()
	require.True(t, ok)
	assert.Equal(t, pairs.Pair{A: 0, B: 2}, next.Pair)
	assert.NotEqual(t, round.TicketID, next.TicketID)
	assert.Equal(t, []string{"0-2"}, ctrl.ShownPairs())
}

func TestRecordVoteNotReady(t *testing.T) {
	ctx := context.Background()

	t.Run("no selection", func(t *testing.T) {
		b := newFakeBackend()
		ctrl := newTestController(b, NewSession("ann"))
		require.NoError(t, ctrl.Register(ctx, ""))

		_, err := ctrl.RecordVote(ctx, SideNone)
		assert.True(t, errors.Is(err, ErrNotReady), "got %v", err)
		assert.Empty(t, ctrl.History())
		assert.Empty(t, b.votes)
	})

	t.Run("no round", func(t *testing.T) {
		b := newFakeBackend()
		b.fetchErr = errors.New("down")
		ctrl := newTestController(b, NewSession("ann"))
		_ = ctrl.Register(ctx, "")

		_, err := ctrl.RecordVote(ctx, SideFirst)
		assert.True(t, errors.Is(err, ErrNotReady), "got %v", err)
		assert.Empty(t, ctrl.History())
	})

	t.Run("round without ticket", func(t *testing.T) {
		b := &ticketlessBackend{fakeBackend: newFakeBackend()}
		ctrl := newTestController(b, NewSession("ann"))
		require.NoError(t, ctrl.Register(ctx, ""))

		_, err := ctrl.RecordVote(ctx, SideFirst)
		assert.True(t, errors.Is(err, ErrNotReady), "got %v", err)
		assert.Empty(t, ctrl.History())
	})

	t.Run("after close", func(t *testing.T) {
		b := newFakeBackend()
		ctrl := newTestController(b, NewSession("ann"))
		require.NoError(t, ctrl.Register(ctx, ""))
		ctrl.Close()

		_, err := ctrl.RecordVote(ctx, SideFirst)
		assert.True(t, errors.Is(err, ErrNotReady), "got %v", err)
		assert.Equal(t, StateTerminated, ctrl.State())
	})
}

type ticketlessBackend struct {
	*fakeBackend
}

func (b *ticketlessBackend) FetchRound(ctx context.Context, req models.TicketRequest) (models.TicketResponse, error) {
	return models.TicketResponse{Image: "/images/face.png"}, nil
}

func TestRecordVoteFailureKeepsRound(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	ctrl := newTestController(b, NewSession("ann"))
	require.NoError(t, ctrl.Register(ctx, ""))

	before, _ := ctrl.Round()
	b.voteErr = errors.New("500 internal server error")

	_, err := ctrl.RecordVote(ctx, SideFirst)
	assert.True(t, errors.Is(err, ErrFetchFailed), "got %v", err)

	after, _ := ctrl.Round()
	assert.Equal(t, before, after)
	assert.Empty(t, ctrl.History())
	assert.Equal(t, StateActive, ctrl.State())

	// Retry with the same round succeeds.
	b.voteErr = nil
	_, err = ctrl.RecordVote(ctx, SideFirst)
	require.NoError(t, err)
	assert.Len(t, ctrl.History(), 1)
}

func TestRecordVoteFollowUpFetchFails(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	ctrl := newTestController(b, NewSession("ann"))
	require.NoError(t, ctrl.Register(ctx, ""))
	voted, _ := ctrl.Round()

	b.onFetch = func(models.TicketRequest) { b.fetchErr = errors.New("gone") }
	vote, err := ctrl.RecordVote(ctx, SideFirst)

	assert.True(t, errors.Is(err, ErrFetchFailed), "got %v", err)
	assert.Equal(t, voted.TicketID, vote.TicketID)
	assert.Len(t, ctrl.History(), 1)

	// The spent ticket cannot be voted on twice; images stay displayed.
	round, ok := ctrl.Round()
	require.True(t, ok)
	assert.Empty(t, round.TicketID)
	assert.Equal(t, voted.Original, round.Original)
	_, err = ctrl.RecordVote(ctx, SideFirst)
	assert.True(t, errors.Is(err, ErrNotReady), "got %v", err)
}

func TestRecorderFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	ctrl := newTestController(b, NewSession("ann"), WithVoteRecorder(recorderFunc(func(context.Context, Vote) error {
		return errors.New("disk full")
	})))
	require.NoError(t, ctrl.Register(ctx, ""))

	_, err := ctrl.RecordVote(ctx, SideFirst)
	require.NoError(t, err)
	assert.Len(t, ctrl.History(), 1)
}

func TestStaleResponseDiscarded(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	ctrl := newTestController(b, NewSession("ann"))
	require.NoError(t, ctrl.Register(ctx, ""))
	require.NoError(t, ctrl.RequestNextPair(ctx))

	before, _ := ctrl.Round()
	shown := ctrl.ShownPairs()

	// Teardown while the request is in flight.
	b.onFetch = func(models.TicketRequest) { ctrl.Close() }
	require.NoError(t, ctrl.RequestNextPair(ctx))

	after, _ := ctrl.Round()
	assert.Equal(t, before, after)
	assert.Equal(t, shown, ctrl.ShownPairs())
	assert.Equal(t, StateTerminated, ctrl.State())
}

func TestRequestWhileLoadingIsNoop(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	ctrl := newTestController(b, NewSession("ann"))
	require.NoError(t, ctrl.Register(ctx, ""))

	var nested []error
	b.onFetch = func(models.TicketRequest) {
		assert.True(t, ctrl.Loading())
		nested = append(nested, ctrl.RequestNextPair(ctx), ctrl.AdvanceBaseImage(ctx))
		_, err := ctrl.RecordVote(ctx, SideFirst)
		nested = append(nested, err)
	}
	fetches := len(b.fetches)
	require.NoError(t, ctrl.RequestNextPair(ctx))

	assert.Equal(t, fetches+1, len(b.fetches), "nested requests must not be queued")
	require.Len(t, nested, 3)
	assert.NoError(t, nested[0])
	assert.NoError(t, nested[1])
	assert.True(t, errors.Is(nested[2], ErrNotReady))
	assert.Len(t, ctrl.ShownPairs(), 1)
}

func TestOperationsRequireRegistration(t *testing.T) {
	ctx := context.Background()
	ctrl := newTestController(newFakeBackend(), nil)

	assert.True(t, errors.Is(ctrl.RequestNextPair(ctx), ErrNotReady))
	assert.True(t, errors.Is(ctrl.AdvanceBaseImage(ctx), ErrNotReady))
	_, err := ctrl.RecordVote(ctx, SideFirst)
	assert.True(t, errors.Is(err, ErrNotReady))
}

func atoi(t *testing.T, s string) int {
	t.Helper()
	v, err := strconv.Atoi(s)
	require.NoError(t, err)
	return v
}
