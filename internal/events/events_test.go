package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "player.joined", RoutingKey(KindPlayerJoined))
	assert.Equal(t, "room.owner.changed", RoutingKey(KindRoomOwnerChanged))
	assert.Equal(t, "stroke.applied", RoutingKey(KindStrokeApplied))
}

func TestEncodeEnvelope(t *testing.T) {
	e := PlayerJoined(PlayerJoinedData{RoomID: "r1", PlayerID: "p1", UserID: "u1", PlayerCount: 2})

	b, err := Encode(e)
	require.NoError(t, err)

	env, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, e.ID, env.EventID)
	assert.Equal(t, KindPlayerJoined, env.EventType)
	assert.Equal(t, "r1", env.RoomID)
	assert.True(t, e.OccurredAt.Equal(env.OccurredAt))
	assert.JSONEq(t, `{"roomId":"r1","playerId":"p1","userId":"u1","playerCount":2}`, string(env.Payload))
}

func TestEncodeMasksCorrectGuess(t *testing.T) {
	tcases := []struct {
		name    string
		correct bool
		want    string
	}{
		{name: "wrong guess is shown", correct: false, want: "pear"},
		{name: "correct guess is masked", correct: true, want: "[CORRECT]"},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			e := GuessSubmitted("r1", GuessSubmittedData{RoundID: "rd1", PlayerID: "p2", GuessText: "pear", IsCorrect: tc.correct})
			b, err := Encode(e)
			require.NoError(t, err)

			env, err := Decode(b)
			require.NoError(t, err)
			var payload GuessSubmittedData
			require.NoError(t, json.Unmarshal(env.Payload, &payload))
			assert.Equal(t, tc.want, payload.GuessText)
		})
	}
}

func TestRoundStartedHidesWord(t *testing.T) {
	e := RoundStarted(RoundStartedData{RoomID: "r1", RoundID: "rd1", RoundNo: 1, DrawerID: "p1", Word: "apple"})

	public, err := Encode(e)
	require.NoError(t, err)
	assert.NotContains(t, string(public), "apple", "expected word to stay secret")

	private, err := EncodeForDrawer(e)
	require.NoError(t, err)
	assert.Contains(t, string(private), "apple")

	drawer, ok := DrawerOnly(e)
	assert.True(t, ok)
	assert.Equal(t, "p1", drawer)
	_, ok = DrawerOnly(RoomDeleted("r1"))
	assert.False(t, ok)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
	_, err = Decode([]byte(`{"eventId":"x"}`))
	assert.Error(t, err, "expected missing type to fail")
}

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, Event) error { return f.err }
func (f failingPublisher) PublishMany(context.Context, []Event) error {
	return f.err
}

func TestFanout(t *testing.T) {
	var a, b Recorder
	boom := errors.New("boom")
	f := Fanout{&a, failingPublisher{err: boom}, &b, NewLogPublisher(zaptest.NewLogger(t))}

	evs := []Event{GameStarted("r1", 2), RoomDeleted("r1")}
	err := f.PublishMany(context.Background(), evs)
	assert.ErrorIs(t, err, boom, "expected failure to surface")

	assert.Equal(t, []Kind{KindGameStarted, KindRoomDeleted}, a.Kinds())
	assert.Equal(t, []Kind{KindGameStarted, KindRoomDeleted}, b.Kinds(), "expected one failure not to stop the others")
}
