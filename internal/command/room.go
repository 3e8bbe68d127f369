package command

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/npezzotti/go-drawsync/internal/events"
	"github.com/npezzotti/go-drawsync/internal/game"
	"github.com/npezzotti/go-drawsync/internal/roomstate"
)

type CreateRoomInput struct {
	UserID         string
	RoundCount     *int
	PlayerMaxCount *int
}

type CreateRoomData struct {
	Room   *game.Room
	Player *game.Player
}

type CreateRoomHandler struct{ *base }

func (h *CreateRoomHandler) Handle(ctx context.Context, in CreateRoomInput) Result[CreateRoomData] {
	if strings.TrimSpace(in.UserID) == "" {
		return Fail[CreateRoomData](KindValidation, "user id is required")
	}
	roundCount, maxPlayers := game.DefaultRoundCount, game.DefaultPlayerMaxCount
	if in.RoundCount != nil {
		roundCount = *in.RoundCount
	}
	if in.PlayerMaxCount != nil {
		maxPlayers = *in.PlayerMaxCount
	}
	if err := game.ValidateRoomSize(roundCount, maxPlayers); err != nil {
		return Fail[CreateRoomData](KindValidation, err.Error())
	}

	if _, err := h.store.FindUserByID(ctx, in.UserID); err != nil {
		if isNotFound(err) {
			return Fail[CreateRoomData](KindNotFound, "user not found")
		}
		h.persistFailed("load user", err)
		return persistenceFailure[CreateRoomData]("user lookup", err)
	}

	room, err := game.NewRoom(roundCount, maxPlayers)
	if err != nil {
		return domainFailure[CreateRoomData](err)
	}
	player := game.NewPlayer(in.UserID, room.ID())
	if err := room.AddPlayer(player); err != nil {
		return domainFailure[CreateRoomData](err)
	}

	// The room row goes first without its owner, then the owner row that
	// references it, then the room again with the owner set.
	if err := h.store.SaveRoom(ctx, room.WithoutOwner()); err != nil {
		h.persistFailed("room", err)
		return persistenceFailure[CreateRoomData]("room", err)
	}
	if err := h.store.SavePlayer(ctx, player); err != nil {
		h.persistFailed("owner", err)
		return persistenceFailure[CreateRoomData]("room owner", err)
	}
	if err := h.store.SaveRoom(ctx, room); err != nil {
		h.persistFailed("room owner link", err)
		return persistenceFailure[CreateRoomData]("room", err)
	}
	h.project(ctx, room)

	return Ok(CreateRoomData{Room: room, Player: player},
		events.RoomCreated(events.RoomCreatedData{
			RoomID:         room.ID(),
			OwnerID:        player.ID,
			RoundCount:     room.RoundCount(),
			PlayerMaxCount: room.PlayerMaxCount(),
		}),
		events.PlayerJoined(events.PlayerJoinedData{
			RoomID:      room.ID(),
			PlayerID:    player.ID,
			UserID:      player.UserID,
			PlayerCount: 1,
		}),
	)
}

type JoinRoomInput struct {
	RoomID string
	UserID string
}

type JoinRoomData struct {
	Room   *game.Room
	Player *game.Player
}

type JoinRoomHandler struct{ *base }

func (h *JoinRoomHandler) Handle(ctx context.Context, in JoinRoomInput) Result[JoinRoomData] {
	if in.RoomID == "" {
		return Fail[JoinRoomData](KindValidation, "room id is required")
	}
	if in.UserID == "" {
		return Fail[JoinRoomData](KindValidation, "user id is required")
	}

	if _, err := h.store.FindUserByID(ctx, in.UserID); err != nil {
		if isNotFound(err) {
			return Fail[JoinRoomData](KindNotFound, "user not found")
		}
		h.persistFailed("load user", err)
		return persistenceFailure[JoinRoomData]("user lookup", err)
	}

	unlock, failed := lockRoom[JoinRoomData](ctx, h.base, in.RoomID)
	if failed != nil {
		return *failed
	}
	defer unlock()

	room, err := h.store.FindRoom(ctx, in.RoomID)
	if isNotFound(err) {
		return Fail[JoinRoomData](KindNotFound, "room not found")
	}
	if err != nil {
		h.persistFailed("load room", err)
		return persistenceFailure[JoinRoomData]("room lookup", err)
	}

	switch {
	case room.Status() != game.RoomWaiting:
		return Fail[JoinRoomData](KindInvalidState, "cannot join a room that is not waiting")
	case room.IsFull():
		return Failf[JoinRoomData](KindRoomFull, "room is full (max %d players)", room.PlayerMaxCount())
	case room.HasUser(in.UserID):
		return Fail[JoinRoomData](KindAlreadyJoined, "user is already in this room")
	}

	player := game.NewPlayer(in.UserID, room.ID())
	if err := room.AddPlayer(player); err != nil {
		return domainFailure[JoinRoomData](err)
	}
	if err := h.store.SavePlayer(ctx, player); err != nil {
		h.persistFailed("player", err)
		return persistenceFailure[JoinRoomData]("player", err)
	}

	// Only the roster changes while a room is waiting.
	if _, err := h.cache.GetRoomState(ctx, room.ID()); err == nil {
		h.cacheFailed("add player", room.ID(), h.cache.AddActivePlayer(ctx, room.ID(), player.ID))
	} else {
		if !errors.Is(err, roomstate.ErrNoState) {
			h.log.Warn("room state read failed", zap.String("room_id", room.ID()), zap.Error(err))
		}
		h.project(ctx, room)
	}

	return Ok(JoinRoomData{Room: room, Player: player},
		events.PlayerJoined(events.PlayerJoinedData{
			RoomID:      room.ID(),
			PlayerID:    player.ID,
			UserID:      player.UserID,
			PlayerCount: room.PlayerCount(),
		}),
	)
}

type LeaveRoomInput struct {
	RoomID   string
	PlayerID string
}

type LeaveRoomData struct {
	// Room is nil when the last player left and the room was deleted.
	Room          *game.Room
	RemovedPlayer *game.Player
	NewOwnerID    string
	NewDrawerID   string
	RoomDeleted   bool
}

type LeaveRoomHandler struct{ *base }

func (h *LeaveRoomHandler) Handle(ctx context.Context, in LeaveRoomInput) Result[LeaveRoomData] {
	if in.RoomID == "" || in.PlayerID == "" {
		return Fail[LeaveRoomData](KindValidation, "room id and player id are required")
	}

	unlock, failed := lockRoom[LeaveRoomData](ctx, h.base, in.RoomID)
	if failed != nil {
		return *failed
	}
	defer unlock()

	room, err := h.store.FindRoomFull(ctx, in.RoomID)
	if isNotFound(err) {
		return Fail[LeaveRoomData](KindNotFound, "room not found")
	}
	if err != nil {
		h.persistFailed("load room", err)
		return persistenceFailure[LeaveRoomData]("room lookup", err)
	}

	player := room.Player(in.PlayerID)
	if player == nil {
		return Fail[LeaveRoomData](KindNotFound, "player not found in room")
	}
	wasOwner := room.OwnerID() == in.PlayerID
	wasDrawer := player.IsDrawer()

	removed := room.RemovePlayer(in.PlayerID)
	if removed == nil {
		return Fail[LeaveRoomData](KindDomain, "failed to remove player")
	}

	evs := []events.Event{events.PlayerLeft(events.PlayerLeftData{
		RoomID:      room.ID(),
		PlayerID:    in.PlayerID,
		PlayerCount: room.PlayerCount(),
		WasOwner:    wasOwner,
	})}

	if room.PlayerCount() == 0 {
		if err := h.store.RemovePlayer(ctx, in.PlayerID); err != nil {
			h.persistFailed("remove player", err)
			return persistenceFailure[LeaveRoomData]("player removal", err)
		}
		if err := h.store.DeleteRoom(ctx, room.ID()); err != nil {
			h.persistFailed("delete room", err)
			return persistenceFailure[LeaveRoomData]("room deletion", err)
		}
		h.cacheFailed("delete", room.ID(), h.cache.DeleteRoomState(ctx, room.ID()))

		evs = append(evs, events.RoomDeleted(room.ID()))
		return Ok(LeaveRoomData{RemovedPlayer: removed, RoomDeleted: true}, evs...)
	}

	data := LeaveRoomData{Room: room, RemovedPlayer: removed}
	if wasOwner {
		data.NewOwnerID = room.OwnerID()
		evs = append(evs, events.RoomOwnerChanged(room.ID(), room.OwnerID()))
	}

	handoff := wasDrawer && room.IsInProgress()
	if handoff {
		if d := room.CurrentDrawer(); d != nil {
			data.NewDrawerID = d.ID
			evs = append(evs, events.DrawerChanged(events.DrawerChangedData{
				RoomID:   room.ID(),
				RoundID:  room.CurrentRoundID(),
				DrawerID: d.ID,
			}))
		}
	}

	if err := h.store.RemovePlayer(ctx, in.PlayerID); err != nil {
		h.persistFailed("remove player", err)
		return persistenceFailure[LeaveRoomData]("player removal", err)
	}
	if err := h.store.SaveRoom(ctx, room); err != nil {
		h.persistFailed("room", err)
		return persistenceFailure[LeaveRoomData]("room", err)
	}
	if handoff {
		for _, p := range room.Players() {
			if err := h.store.SavePlayer(ctx, p); err != nil {
				h.persistFailed("player", err)
				return persistenceFailure[LeaveRoomData]("player", err)
			}
		}
		if rd := room.CurrentRound(); rd != nil {
			if err := h.store.SaveRound(ctx, rd); err != nil {
				h.persistFailed("round", err)
				return persistenceFailure[LeaveRoomData]("round", err)
			}
		}
	}

	if _, err := h.cache.GetRoomState(ctx, room.ID()); err == nil {
		h.cacheFailed("remove player", room.ID(), h.cache.RemoveActivePlayer(ctx, room.ID(), in.PlayerID))
		if wasDrawer {
			h.cacheFailed("lock owner", room.ID(), h.cache.UpdateLockOwner(ctx, room.ID(), data.NewDrawerID))
		}
	} else {
		if !errors.Is(err, roomstate.ErrNoState) {
			h.log.Warn("room state read failed", zap.String("room_id", room.ID()), zap.Error(err))
		}
		h.project(ctx, room)
	}

	return Ok(data, evs...)
}

type StartGameInput struct {
	RoomID string
	// PlayerID, when set, must be the room owner.
	PlayerID string
}

type StartGameData struct {
	Room *game.Room
}

type StartGameHandler struct{ *base }

func (h *StartGameHandler) Handle(ctx context.Context, in StartGameInput) Result[StartGameData] {
	if in.RoomID == "" {
		return Fail[StartGameData](KindValidation, "room id is required")
	}

	unlock, failed := lockRoom[StartGameData](ctx, h.base, in.RoomID)
	if failed != nil {
		return *failed
	}
	defer unlock()

	room, err := h.store.FindRoom(ctx, in.RoomID)
	if isNotFound(err) {
		return Fail[StartGameData](KindNotFound, "room not found")
	}
	if err != nil {
		h.persistFailed("load room", err)
		return persistenceFailure[StartGameData]("room lookup", err)
	}
	if in.PlayerID != "" && in.PlayerID != room.OwnerID() {
		return Fail[StartGameData](KindNotAuthorized, "only the room owner can start the game")
	}

	if err := room.BeginGame(); err != nil {
		return domainFailure[StartGameData](err)
	}
	if err := h.store.SaveRoom(ctx, room); err != nil {
		h.persistFailed("room", err)
		return persistenceFailure[StartGameData]("room", err)
	}
	h.project(ctx, room)

	return Ok(StartGameData{Room: room}, events.GameStarted(room.ID(), room.PlayerCount()))
}

type PurgeRoomInput struct {
	RoomID string
}

type PurgeRoomHandler struct{ *base }

// Handle deletes a room with everything it owns and drops its cache entry.
func (h *PurgeRoomHandler) Handle(ctx context.Context, in PurgeRoomInput) Result[string] {
	if in.RoomID == "" {
		return Fail[string](KindValidation, "room id is required")
	}

	unlock, failed := lockRoom[string](ctx, h.base, in.RoomID)
	if failed != nil {
		return *failed
	}
	defer unlock()

	exists, err := h.store.RoomExists(ctx, in.RoomID)
	if err != nil {
		h.persistFailed("room exists", err)
		return persistenceFailure[string]("room lookup", err)
	}
	if exists {
		if err := h.store.DeleteRoom(ctx, in.RoomID); err != nil {
			h.persistFailed("delete room", err)
			return persistenceFailure[string]("room deletion", err)
		}
	}
	h.cacheFailed("delete", in.RoomID, h.cache.DeleteRoomState(ctx, in.RoomID))

	if !exists {
		return Ok(in.RoomID)
	}
	return Ok(in.RoomID, events.RoomDeleted(in.RoomID))
}
