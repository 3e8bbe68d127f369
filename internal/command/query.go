package command

import (
	"context"

	"github.com/npezzotti/go-drawsync/internal/canvas"
	"github.com/npezzotti/go-drawsync/internal/game"
	"github.com/npezzotti/go-drawsync/internal/roomstate"
)

// Queries are the read paths. They take no locks except RebuildRoomState,
// which writes.
type Queries struct{ *base }

func (q *Queries) GetRoom(ctx context.Context, roomID string) Result[*game.Room] {
	if roomID == "" {
		return Fail[*game.Room](KindValidation, "room id is required")
	}
	room, err := q.store.FindRoomFull(ctx, roomID)
	if isNotFound(err) {
		return Fail[*game.Room](KindNotFound, "room not found")
	}
	if err != nil {
		q.persistFailed("load room", err)
		return persistenceFailure[*game.Room]("room lookup", err)
	}
	return Ok(room)
}

func (q *Queries) GetUser(ctx context.Context, userID string) Result[*game.User] {
	user, err := q.store.FindUserByID(ctx, userID)
	if isNotFound(err) {
		return Fail[*game.User](KindNotFound, "user not found")
	}
	if err != nil {
		q.persistFailed("load user", err)
		return persistenceFailure[*game.User]("user lookup", err)
	}
	return Ok(user)
}

// FindPlayer maps an authenticated user to their player in a room.
func (q *Queries) FindPlayer(ctx context.Context, roomID, userID string) Result[*game.Player] {
	if roomID == "" || userID == "" {
		return Fail[*game.Player](KindValidation, "room id and user id are required")
	}
	p, err := q.store.FindPlayerInRoom(ctx, roomID, userID)
	if isNotFound(err) {
		return Fail[*game.Player](KindNotAuthorized, "user is not a player in this room")
	}
	if err != nil {
		q.persistFailed("load player", err)
		return persistenceFailure[*game.Player]("player lookup", err)
	}
	return Ok(p)
}

type CanvasData struct {
	RoundID string
	// Strokes are the visible strokes, oldest first.
	Strokes []*game.Stroke
	LastSeq int
}

// GetCanvas replays a round's stroke-event log.
func (q *Queries) GetCanvas(ctx context.Context, roundID string) Result[CanvasData] {
	if roundID == "" {
		return Fail[CanvasData](KindValidation, "round id is required")
	}
	if _, err := q.store.FindRound(ctx, roundID); err != nil {
		if isNotFound(err) {
			return Fail[CanvasData](KindNotFound, "round not found")
		}
		q.persistFailed("load round", err)
		return persistenceFailure[CanvasData]("round lookup", err)
	}

	history, err := q.store.ListStrokeEvents(ctx, roundID)
	if err != nil {
		q.persistFailed("stroke events", err)
		return persistenceFailure[CanvasData]("stroke event lookup", err)
	}
	strokes, err := q.store.ListStrokes(ctx, roundID)
	if err != nil {
		q.persistFailed("strokes", err)
		return persistenceFailure[CanvasData]("stroke lookup", err)
	}

	byID := make(map[string]*game.Stroke, len(strokes))
	for _, s := range strokes {
		byID[s.ID] = s
	}
	data := CanvasData{RoundID: roundID, LastSeq: canvas.NextSeq(history) - 1}
	for _, id := range canvas.Visible(history) {
		if s, ok := byID[id]; ok {
			data.Strokes = append(data.Strokes, s)
		}
	}
	return Ok(data)
}

// RebuildRoomState recomputes a room's cache entry from the stored aggregate.
func (q *Queries) RebuildRoomState(ctx context.Context, roomID string) Result[roomstate.RoomState] {
	unlock, failed := lockRoom[roomstate.RoomState](ctx, q.base, roomID)
	if failed != nil {
		return *failed
	}
	defer unlock()

	room, err := q.store.FindRoomFull(ctx, roomID)
	if isNotFound(err) {
		return Fail[roomstate.RoomState](KindNotFound, "room not found")
	}
	if err != nil {
		q.persistFailed("load room", err)
		return persistenceFailure[roomstate.RoomState]("room lookup", err)
	}
	state := roomstate.Project(room)
	if err := q.cache.SetRoomState(ctx, state); err != nil {
		return Failf[roomstate.RoomState](KindPersistence, "failed to write room state: %v", err)
	}
	return Ok(state)
}
