package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npezzotti/go-drawsync/internal/events"
	"github.com/npezzotti/go-drawsync/internal/testutil"
)

func decodePayload(t *testing.T, msg *ServerMessage) (events.Kind, map[string]any) {
	t.Helper()
	env, err := events.Decode(msg.Event)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	return env.EventType, payload
}

func Test_subscribe_unsubscribe(t *testing.T) {
	h := newTestHub(t, testutil.TestLogger(t)).hub
	c := newTestClient(t, h, "user-1")

	h.subscribe(c, "room-1", "player-1")
	assert.Equal(t, map[*Client]string{c: "player-1"}, h.subscribers("room-1"))
	playerID, ok := c.playerIn("room-1")
	assert.True(t, ok)
	assert.Equal(t, "player-1", playerID)

	h.unsubscribe(c, "room-1")
	assert.Empty(t, h.subscribers("room-1"))
	assert.NotContains(t, h.rooms, "room-1", "expected empty rooms to be removed")
	_, ok = c.playerIn("room-1")
	assert.False(t, ok)
}

func Test_deliver(t *testing.T) {
	t.Run("only the drawer sees the word", func(t *testing.T) {
		h := newTestHub(t, testutil.TestLogger(t)).hub
		drawer := newTestClient(t, h, "user-1")
		guesser := newTestClient(t, h, "user-2")
		h.subscribe(drawer, "room-1", "player-1")
		h.subscribe(guesser, "room-1", "player-2")

		h.deliver(events.RoundStarted(events.RoundStartedData{
			RoomID:   "room-1",
			RoundID:  "round-1",
			RoundNo:  1,
			DrawerID: "player-1",
			Word:     "apple",
		}))

		kind, payload := decodePayload(t, next(t, drawer))
		assert.Equal(t, events.KindRoundStarted, kind)
		assert.Equal(t, "apple", payload["word"])

		kind, payload = decodePayload(t, next(t, guesser))
		assert.Equal(t, events.KindRoundStarted, kind)
		assert.NotContains(t, payload, "word")
		assert.Equal(t, "player-1", payload["drawerId"])
	})
	t.Run("correct guesses are masked", func(t *testing.T) {
		h := newTestHub(t, testutil.TestLogger(t)).hub
		c := newTestClient(t, h, "user-1")
		h.subscribe(c, "room-1", "player-1")

		h.deliver(events.GuessSubmitted("room-1", events.GuessSubmittedData{
			RoundID:   "round-1",
			PlayerID:  "player-2",
			GuessText: "apple",
			IsCorrect: true,
		}))

		_, payload := decodePayload(t, next(t, c))
		assert.Equal(t, "[CORRECT]", payload["guessText"])
	})
	t.Run("other rooms are not notified", func(t *testing.T) {
		h := newTestHub(t, testutil.TestLogger(t)).hub
		inRoom := newTestClient(t, h, "user-1")
		elsewhere := newTestClient(t, h, "user-2")
		h.subscribe(inRoom, "room-1", "player-1")
		h.subscribe(elsewhere, "room-2", "player-2")

		h.deliver(events.GameStarted("room-1", 2))

		next(t, inRoom)
		assertNoMessage(t, elsewhere)
	})
	t.Run("a player who left stops receiving events", func(t *testing.T) {
		h := newTestHub(t, testutil.TestLogger(t)).hub
		stays := newTestClient(t, h, "user-1")
		leaves := newTestClient(t, h, "user-2")
		h.subscribe(stays, "room-1", "player-1")
		h.subscribe(leaves, "room-1", "player-2")

		h.deliver(events.PlayerLeft(events.PlayerLeftData{RoomID: "room-1", PlayerID: "player-2", PlayerCount: 1}))

		kind, _ := decodePayload(t, next(t, leaves))
		assert.Equal(t, events.KindPlayerLeft, kind, "expected the leaving player to see their own departure")
		next(t, stays)
		assert.Equal(t, map[*Client]string{stays: "player-1"}, h.subscribers("room-1"))
		_, ok := leaves.playerIn("room-1")
		assert.False(t, ok)
	})
	t.Run("a deleted room drops every subscription", func(t *testing.T) {
		h := newTestHub(t, testutil.TestLogger(t)).hub
		c := newTestClient(t, h, "user-1")
		h.subscribe(c, "room-1", "player-1")

		h.deliver(events.RoomDeleted("room-1"))

		kind, _ := decodePayload(t, next(t, c))
		assert.Equal(t, events.KindRoomDeleted, kind)
		assert.NotContains(t, h.rooms, "room-1")
		assert.Empty(t, c.roomIDs())
	})
}

func Test_removeClient(t *testing.T) {
	h := newTestHub(t, testutil.TestLogger(t)).hub
	c := newTestClient(t, h, "user-1")
	other := newTestClient(t, h, "user-2")
	h.addClient(c)
	h.subscribe(c, "room-1", "player-1")
	h.subscribe(c, "room-2", "player-3")
	h.subscribe(other, "room-1", "player-2")

	assert.True(t, h.removeClient(c))
	assert.False(t, h.removeClient(c), "expected a second removal to report nothing removed")

	assert.Equal(t, map[*Client]string{other: "player-2"}, h.subscribers("room-1"))
	assert.NotContains(t, h.rooms, "room-2")
}
