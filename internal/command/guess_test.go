package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/npezzotti/go-drawsync/internal/command"
	"github.com/npezzotti/go-drawsync/internal/database"
	"github.com/npezzotti/go-drawsync/internal/events"
	"github.com/npezzotti/go-drawsync/internal/game"
	"github.com/npezzotti/go-drawsync/internal/roomstate"
	"github.com/npezzotti/go-drawsync/internal/testutil"
)

func TestPoints(t *testing.T) {
	tcases := []struct {
		prior int
		want  int
	}{
		{prior: 0, want: 100},
		{prior: 1, want: 80},
		{prior: 2, want: 60},
		{prior: 3, want: 40},
		{prior: 4, want: 20},
		{prior: 5, want: 20},
		{prior: 12, want: 20},
	}
	for _, tc := range tcases {
		assert.Equal(t, tc.want, command.Points(tc.prior), "points after %d correct guesses", tc.prior)
	}
}

func TestSubmitGuess_ScoreDecays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, p, roundID := f.activeRound(t, "d", "g1", "g2", "g3", "g4", "g5", "g6")

	want := []int{100, 80, 60, 40, 20, 20}
	for i, guesser := range p[1:] {
		res := f.cmds.SubmitGuess.Handle(ctx, command.SubmitGuessInput{RoundID: roundID, PlayerID: guesser, Text: "apple"})
		require.NoError(t, res.Err())
		assert.Equal(t, want[i], res.Data.PointsAwarded, "guesser %d", i+1)
		assert.Equal(t, []events.Kind{events.KindGuessSubmitted, events.KindCorrectGuess}, kinds(res.Events))
	}
}

func TestSubmitGuess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	roomID, p, roundID := f.activeRound(t, "ada", "bob", "cy")
	_, other, otherRound := f.activeRound(t, "dan", "eve")

	tcases := []struct {
		name  string
		input command.SubmitGuessInput
		kind  command.ErrorKind
	}{
		{name: "missing round", input: command.SubmitGuessInput{PlayerID: p[1], Text: "x"}, kind: command.KindValidation},
		{name: "missing player", input: command.SubmitGuessInput{RoundID: roundID, Text: "x"}, kind: command.KindValidation},
		{name: "blank text", input: command.SubmitGuessInput{RoundID: roundID, PlayerID: p[1], Text: "  "}, kind: command.KindValidation},
		{name: "unknown round", input: command.SubmitGuessInput{RoundID: "nope", PlayerID: p[1], Text: "x"}, kind: command.KindNotFound},
		{name: "unknown player", input: command.SubmitGuessInput{RoundID: roundID, PlayerID: "nope", Text: "x"}, kind: command.KindNotFound},
		{name: "player of another room", input: command.SubmitGuessInput{RoundID: roundID, PlayerID: other[1], Text: "x"}, kind: command.KindNotAuthorized},
		{name: "drawer", input: command.SubmitGuessInput{RoundID: roundID, PlayerID: p[0], Text: "apple"}, kind: command.KindNotAuthorized},
		{name: "wrong guess", input: command.SubmitGuessInput{RoundID: roundID, PlayerID: p[1], Text: "Banana"}},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			res := f.cmds.SubmitGuess.Handle(ctx, tc.input)
			assert.Equal(t, tc.kind, res.Kind, res.Message)
			if tc.kind != "" {
				assert.Empty(t, res.Events)
				return
			}
			assert.False(t, res.Data.IsCorrect)
			assert.Zero(t, res.Data.PointsAwarded)
			assert.Equal(t, "banana", res.Data.Guess.Text, "expected guesses to be stored normalized")
			assert.Equal(t, []events.Kind{events.KindGuessSubmitted}, kinds(res.Events))
		})
	}

	rd, err := f.store.FindRoundWithGuesses(ctx, roundID)
	require.NoError(t, err)
	assert.Len(t, rd.Guesses(), 1, "expected only the accepted guess to be stored")

	require.NoError(t, f.cmds.CompleteRound.Handle(ctx, command.CompleteRoundInput{RoomID: roomID}).Err())
	late := f.cmds.SubmitGuess.Handle(ctx, command.SubmitGuessInput{RoundID: roundID, PlayerID: p[1], Text: "apple"})
	assert.Equal(t, command.KindInvalidState, late.Kind, "expected guesses on a completed round to be rejected")

	otherRd, err := f.store.FindRoundWithGuesses(ctx, otherRound)
	require.NoError(t, err)
	assert.Empty(t, otherRd.Guesses())
}

func TestSubmitGuess_CorrectGuessMasksTextOnTheWire(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, p, roundID := f.activeRound(t, "ada", "bob")

	res := f.cmds.SubmitGuess.Handle(ctx, command.SubmitGuessInput{RoundID: roundID, PlayerID: p[1], Text: "apple"})
	require.NoError(t, res.Err())

	raw, err := events.Encode(res.Events[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "apple", "expected the word to stay hidden")
	assert.Contains(t, string(raw), "[CORRECT]")
}

func TestSubmitGuess_ValidationTouchesNoStorage(t *testing.T) {
	store := &database.MockStore{}
	defer store.AssertExpectations(t)

	cmds := command.New(command.Deps{Store: store, Cache: roomstate.NewMemoryStore(), Log: testutil.TestLogger(t)})
	res := cmds.SubmitGuess.Handle(context.Background(), command.SubmitGuessInput{RoundID: "r1", PlayerID: "p2", Text: "\t"})

	assert.Equal(t, command.KindValidation, res.Kind)
	store.AssertNotCalled(t, "SaveGuess", mock.Anything, mock.Anything)
}

func TestSubmitGuess_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	store := &database.MockStore{}
	defer store.AssertExpectations(t)

	rec := game.RoundRecord{ID: "r1", RoomID: "room1", RoundNo: 1, Status: game.RoundActive, Word: "apple", DrawerID: "p1"}
	player := &game.Player{ID: "p2", UserID: "u2", RoomID: "room1", State: game.PlayerGuessing}

	store.On("FindRound", mock.Anything, "r1").Return(game.RestoreRound(rec), nil).Once()
	store.On("FindRoundWithGuesses", mock.Anything, "r1").Return(game.RestoreRound(rec), nil).Once()
	store.On("FindPlayer", mock.Anything, "p2").Return(player, nil).Once()
	store.On("HasGuessedCorrectly", mock.Anything, "r1", "p2").Return(false, nil).Once()
	store.On("FindUserByID", mock.Anything, "u2").Return(&game.User{ID: "u2", TotalScore: 40}, nil).Once()
	store.On("SaveCorrectGuess", mock.Anything, mock.AnythingOfType("*game.Guess"), "p2", "u2", 100).Return(errors.New("disk full")).Once()

	cmds := command.New(command.Deps{Store: store, Cache: roomstate.NewMemoryStore(), Log: testutil.TestLogger(t)})
	res := cmds.SubmitGuess.Handle(ctx, command.SubmitGuessInput{RoundID: "r1", PlayerID: "p2", Text: "apple"})

	assert.Equal(t, command.KindPersistence, res.Kind)
	assert.Empty(t, res.Events)
	store.AssertNotCalled(t, "SaveGuess", mock.Anything, mock.Anything)
}

func TestSubmitGuess_CreditsPlayerAndUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, p, roundID := f.activeRound(t, "ada", "bob", "cy")

	first := f.cmds.SubmitGuess.Handle(ctx, command.SubmitGuessInput{RoundID: roundID, PlayerID: p[1], Text: "apple"})
	require.NoError(t, first.Err())
	second := f.cmds.SubmitGuess.Handle(ctx, command.SubmitGuessInput{RoundID: roundID, PlayerID: p[2], Text: "apple"})
	require.NoError(t, second.Err())

	assert.Equal(t, 100, first.Data.Player.Score)
	assert.Equal(t, 80, second.Data.Player.Score)

	for _, tc := range []struct {
		playerID string
		want     int
	}{
		{playerID: p[1], want: 100},
		{playerID: p[2], want: 80},
	} {
		player, err := f.store.FindPlayer(ctx, tc.playerID)
		require.NoError(t, err)
		assert.Equal(t, tc.want, player.Score, "room score")

		user, err := f.store.FindUserByID(ctx, player.UserID)
		require.NoError(t, err)
		assert.Equal(t, tc.want, user.TotalScore, "cumulative score")
	}
}

// flakyAwardStore fails the first correct-guess write.
type flakyAwardStore struct {
	*database.MemoryStore
	failed bool
}

func (s *flakyAwardStore) SaveCorrectGuess(ctx context.Context, g *game.Guess, playerID, userID string, points int) error {
	if !s.failed {
		s.failed = true
		return errors.New("connection reset")
	}
	return s.MemoryStore.SaveCorrectGuess(ctx, g, playerID, userID, points)
}

func TestSubmitGuess_FailedAwardCanBeRetried(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, p, roundID := f.activeRound(t, "ada", "bob")

	store := &flakyAwardStore{MemoryStore: f.store}
	cmds := command.New(command.Deps{Store: store, Cache: f.cache, Log: testutil.TestLogger(t)})

	res := cmds.SubmitGuess.Handle(ctx, command.SubmitGuessInput{RoundID: roundID, PlayerID: p[1], Text: "apple"})
	require.Equal(t, command.KindPersistence, res.Kind)
	assert.Empty(t, res.Events)

	rd, err := f.store.FindRoundWithGuesses(ctx, roundID)
	require.NoError(t, err)
	assert.Empty(t, rd.Guesses(), "expected no guess to survive a failed award")

	res = cmds.SubmitGuess.Handle(ctx, command.SubmitGuessInput{RoundID: roundID, PlayerID: p[1], Text: "apple"})
	require.NoError(t, res.Err(), "expected the retry to be accepted")
	assert.True(t, res.Data.IsCorrect)
	assert.Equal(t, 100, res.Data.PointsAwarded)

	player, err := f.store.FindPlayer(ctx, p[1])
	require.NoError(t, err)
	assert.Equal(t, 100, player.Score, "expected points credited exactly once")
}
