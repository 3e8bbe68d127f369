package command_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/npezzotti/go-drawsync/internal/command"
	"github.com/npezzotti/go-drawsync/internal/database"
	"github.com/npezzotti/go-drawsync/internal/events"
	"github.com/npezzotti/go-drawsync/internal/game"
	"github.com/npezzotti/go-drawsync/internal/roomstate"
	"github.com/npezzotti/go-drawsync/internal/testutil"
)

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (plainHasher) Compare(hash, password string) bool { return hash == "hashed:"+password }

type fixture struct {
	cmds  *command.Commands
	store *database.MemoryStore
	cache roomstate.Store
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, roomstate.NewMemoryStore(), testutil.TestLogger(t))
}

func newFixtureWith(t *testing.T, cache roomstate.Store, log *zap.Logger) *fixture {
	t.Helper()
	store := database.NewMemoryStore()
	return &fixture{
		cmds: command.New(command.Deps{
			Store:  store,
			Cache:  cache,
			Hasher: plainHasher{},
			Log:    log,
		}),
		store: store,
		cache: cache,
	}
}

func (f *fixture) newUser(t *testing.T, name string) string {
	t.Helper()
	u := game.NewUser(name, name+"@example.com", "hashed:secret")
	require.NoError(t, f.store.SaveUser(context.Background(), u))
	return u.ID
}

// room creates a waiting room with one player per name and returns the room
// id and the player ids in join order.
func (f *fixture) room(t *testing.T, roundCount, maxPlayers int, names ...string) (string, []string) {
	t.Helper()
	ctx := context.Background()

	created := f.cmds.CreateRoom.Handle(ctx, command.CreateRoomInput{
		UserID:         f.newUser(t, names[0]),
		RoundCount:     testutil.Ptr(roundCount),
		PlayerMaxCount: testutil.Ptr(maxPlayers),
	})
	require.NoError(t, created.Err())

	roomID := created.Data.Room.ID()
	players := []string{created.Data.Player.ID}
	for _, name := range names[1:] {
		joined := f.cmds.JoinRoom.Handle(ctx, command.JoinRoomInput{RoomID: roomID, UserID: f.newUser(t, name)})
		require.NoError(t, joined.Err())
		players = append(players, joined.Data.Player.ID)
	}
	return roomID, players
}

// activeRound builds an in-progress room whose first round is active with
// the word "apple". The first player draws.
func (f *fixture) activeRound(t *testing.T, names ...string) (string, []string, string) {
	t.Helper()
	ctx := context.Background()

	roomID, players := f.room(t, 3, 8, names...)
	require.NoError(t, f.cmds.StartGame.Handle(ctx, command.StartGameInput{RoomID: roomID}).Err())
	started := f.cmds.StartRound.Handle(ctx, command.StartRoundInput{RoomID: roomID, Word: "apple"})
	require.NoError(t, started.Err())
	return roomID, players, started.Data.Round.ID()
}

func (f *fixture) state(t *testing.T, roomID string) roomstate.RoomState {
	t.Helper()
	s, err := f.cache.GetRoomState(context.Background(), roomID)
	require.NoError(t, err)
	return s
}

func kinds(evs []events.Event) []events.Kind {
	out := make([]events.Kind, len(evs))
	for i, e := range evs {
		out[i] = e.Kind
	}
	return out
}

func line(points ...float64) []command.PointInput {
	var in []command.PointInput
	for i := 0; i+1 < len(points); i += 2 {
		in = append(in, command.PointInput{X: points[i], Y: points[i+1]})
	}
	return in
}

var red = command.StyleInput{Color: "#ff0000", LineWidth: 3}

func TestFullGame(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	roomID, p := f.room(t, 2, 4, "ada", "bob", "cy")

	res := f.cmds.StartGame.Handle(ctx, command.StartGameInput{RoomID: roomID, PlayerID: p[0]})
	require.NoError(t, res.Err())
	assert.Equal(t, []events.Kind{events.KindGameStarted}, kinds(res.Events))

	round1 := f.cmds.StartRound.Handle(ctx, command.StartRoundInput{RoomID: roomID, Word: "Apple"})
	require.NoError(t, round1.Err())
	assert.Equal(t, p[0], round1.Data.DrawerID, "expected the first player to draw round 1")
	assert.Equal(t, []command.PlayerStateView{
		{PlayerID: p[0], State: game.PlayerDrawing},
		{PlayerID: p[1], State: game.PlayerGuessing},
		{PlayerID: p[2], State: game.PlayerGuessing},
	}, round1.Data.PlayerStates)
	require.Len(t, round1.Events, 1)
	assert.Equal(t, "apple", round1.Events[0].Data.(events.RoundStartedData).Word)

	st := f.state(t, roomID)
	assert.Equal(t, p[0], st.LockOwnerID)
	assert.Equal(t, game.RoundActive, st.RoundStatus)

	stroke := f.cmds.ApplyStroke.Handle(ctx, command.ApplyStrokeInput{RoomID: roomID, PlayerID: p[0], Points: line(1, 2, 3, 4), Style: red})
	require.NoError(t, stroke.Err())
	assert.Equal(t, 1, stroke.Data.StrokeEvent.Seq)

	notDrawer := f.cmds.ApplyStroke.Handle(ctx, command.ApplyStrokeInput{RoomID: roomID, PlayerID: p[1], Points: line(1, 2), Style: red})
	assert.Equal(t, command.KindNotAuthorized, notDrawer.Kind)

	roundID := round1.Data.Round.ID()
	guesses := []struct {
		player  string
		text    string
		kind    command.ErrorKind
		correct bool
		points  int
	}{
		{player: p[1], text: "banana"},
		{player: p[1], text: " APPLE ", correct: true, points: 100},
		{player: p[2], text: "apple", correct: true, points: 80},
		{player: p[2], text: "apple", kind: command.KindAlreadyGuessed},
		{player: p[0], text: "apple", kind: command.KindNotAuthorized},
	}
	for _, g := range guesses {
		res := f.cmds.SubmitGuess.Handle(ctx, command.SubmitGuessInput{RoundID: roundID, PlayerID: g.player, Text: g.text})
		assert.Equal(t, g.kind, res.Kind, "unexpected outcome for guess %q", g.text)
		if g.kind == "" {
			assert.Equal(t, g.correct, res.Data.IsCorrect, "guess %q", g.text)
			assert.Equal(t, g.points, res.Data.PointsAwarded, "guess %q", g.text)
		}
	}

	done := f.cmds.CompleteRound.Handle(ctx, command.CompleteRoundInput{RoomID: roomID})
	require.NoError(t, done.Err())
	assert.Equal(t, game.RoomInProgress, done.Data.RoomStatus)
	for _, pl := range done.Data.Players {
		assert.Equal(t, game.PlayerWaiting, pl.State, "expected every player to wait between rounds")
	}
	assert.False(t, done.Events[0].Data.(events.RoundCompletedData).IsGameFinished)
	assert.Empty(t, f.state(t, roomID).LockOwnerID, "expected nobody to hold the pen between rounds")

	afterRound := f.cmds.ApplyStroke.Handle(ctx, command.ApplyStrokeInput{RoomID: roomID, PlayerID: p[0], Points: line(1, 2), Style: red})
	assert.Equal(t, command.KindNotAuthorized, afterRound.Kind)

	round2 := f.cmds.StartRound.Handle(ctx, command.StartRoundInput{RoomID: roomID, Word: "pear"})
	require.NoError(t, round2.Err())
	assert.Equal(t, p[1], round2.Data.DrawerID, "expected the drawer to rotate")
	assert.Equal(t, 2, round2.Data.Round.RoundNo())

	last := f.cmds.CompleteRound.Handle(ctx, command.CompleteRoundInput{RoomID: roomID})
	require.NoError(t, last.Err())
	assert.Equal(t, game.RoomFinished, last.Data.RoomStatus)
	assert.True(t, last.Events[0].Data.(events.RoundCompletedData).IsGameFinished)

	extra := f.cmds.StartRound.Handle(ctx, command.StartRoundInput{RoomID: roomID, Word: "plum"})
	assert.Equal(t, command.KindInvalidState, extra.Kind)

	room := f.cmds.Queries.GetRoom(ctx, roomID)
	require.NoError(t, room.Err())
	require.Len(t, room.Data.Rounds(), 2)
	for _, rd := range room.Data.Rounds() {
		assert.Equal(t, game.RoundCompleted, rd.Status())
	}
	assert.Equal(t, 100, room.Data.Player(p[1]).Score)
	assert.Equal(t, 80, room.Data.Player(p[2]).Score)

	user := f.cmds.Queries.GetUser(ctx, room.Data.Player(p[1]).UserID)
	require.NoError(t, user.Err())
	assert.Equal(t, 100, user.Data.TotalScore, "expected points to reach the user's total")
}

func TestQueries_FindPlayer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	roomID, p := f.room(t, 1, 4, "ada")
	room := f.cmds.Queries.GetRoom(ctx, roomID)
	require.NoError(t, room.Err())

	found := f.cmds.Queries.FindPlayer(ctx, roomID, room.Data.Player(p[0]).UserID)
	require.NoError(t, found.Err())
	assert.Equal(t, p[0], found.Data.ID)

	stranger := f.cmds.Queries.FindPlayer(ctx, roomID, f.newUser(t, "eve"))
	assert.Equal(t, command.KindNotAuthorized, stranger.Kind)

	missing := f.cmds.Queries.GetRoom(ctx, "nope")
	assert.Equal(t, command.KindNotFound, missing.Kind)
}

func TestQueries_RebuildRoomState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	roomID, p, roundID := f.activeRound(t, "ada", "bob")

	require.NoError(t, f.cache.DeleteRoomState(ctx, roomID))
	res := f.cmds.Queries.RebuildRoomState(ctx, roomID)
	require.NoError(t, res.Err())

	assert.Equal(t, roomstate.RoomState{
		RoomID:          roomID,
		Status:          game.RoomInProgress,
		LockOwnerID:     p[0],
		CurrentRoundID:  roundID,
		ActivePlayerIDs: p,
		RoundStatus:     game.RoundActive,
	}, f.state(t, roomID))
}
