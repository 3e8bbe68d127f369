package command

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/npezzotti/go-drawsync/internal/events"
	"github.com/npezzotti/go-drawsync/internal/game"
)

type StartRoundInput struct {
	RoomID string
	Word   string
}

type PlayerStateView struct {
	PlayerID string
	State    game.PlayerState
}

type StartRoundData struct {
	Round        *game.Round
	DrawerID     string
	PlayerStates []PlayerStateView
}

type StartRoundHandler struct{ *base }

func (h *StartRoundHandler) Handle(ctx context.Context, in StartRoundInput) Result[StartRoundData] {
	if in.RoomID == "" {
		return Fail[StartRoundData](KindValidation, "room id is required")
	}
	if len([]rune(strings.TrimSpace(in.Word))) < 2 {
		return Fail[StartRoundData](KindValidation, "word must be at least 2 characters")
	}

	unlock, failed := lockRoom[StartRoundData](ctx, h.base, in.RoomID)
	if failed != nil {
		return *failed
	}
	defer unlock()

	room, err := h.store.FindRoomFull(ctx, in.RoomID)
	if isNotFound(err) {
		return Fail[StartRoundData](KindNotFound, "room not found")
	}
	if err != nil {
		h.persistFailed("load room", err)
		return persistenceFailure[StartRoundData]("room lookup", err)
	}

	switch room.Status() {
	case game.RoomFinished:
		return Fail[StartRoundData](KindInvalidState, "cannot start a round in a finished room")
	case game.RoomWaiting:
		return Fail[StartRoundData](KindInvalidState, "game has not started")
	}

	active, err := h.store.FindActiveRound(ctx, room.ID())
	if err != nil && !isNotFound(err) {
		h.persistFailed("load active round", err)
		return persistenceFailure[StartRoundData]("round lookup", err)
	}
	if active != nil {
		return Fail[StartRoundData](KindInvalidState, "another round is already active")
	}

	rd, err := room.CreateNextRound()
	if err != nil {
		return domainFailure[StartRoundData](err)
	}
	if err := rd.SetWord(in.Word); err != nil {
		return domainFailure[StartRoundData](err)
	}
	if err := rd.Start(); err != nil {
		return domainFailure[StartRoundData](err)
	}

	// The round row must exist before the room points at it.
	if err := h.store.SaveRound(ctx, rd); err != nil {
		h.persistFailed("round", err)
		return persistenceFailure[StartRoundData]("round", err)
	}
	if err := h.store.SaveRoom(ctx, room); err != nil {
		h.persistFailed("room", err)
		return persistenceFailure[StartRoundData]("room", err)
	}
	states := make([]PlayerStateView, 0, room.PlayerCount())
	for _, p := range room.Players() {
		if err := h.store.SavePlayer(ctx, p); err != nil {
			h.persistFailed("player", err)
			return persistenceFailure[StartRoundData]("player", err)
		}
		states = append(states, PlayerStateView{PlayerID: p.ID, State: p.State})
	}
	h.project(ctx, room)

	return Ok(StartRoundData{Round: rd, DrawerID: rd.DrawerID(), PlayerStates: states},
		events.RoundStarted(events.RoundStartedData{
			RoomID:   room.ID(),
			RoundID:  rd.ID(),
			RoundNo:  rd.RoundNo(),
			DrawerID: rd.DrawerID(),
			Word:     rd.Word(),
		}),
	)
}

type CompleteRoundInput struct {
	RoomID string
}

type CompleteRoundData struct {
	Round      *game.Round
	RoomStatus game.RoomStatus
	Players    []*game.Player
}

type CompleteRoundHandler struct{ *base }

func (h *CompleteRoundHandler) Handle(ctx context.Context, in CompleteRoundInput) Result[CompleteRoundData] {
	if in.RoomID == "" {
		return Fail[CompleteRoundData](KindValidation, "room id is required")
	}

	unlock, failed := lockRoom[CompleteRoundData](ctx, h.base, in.RoomID)
	if failed != nil {
		return *failed
	}
	defer unlock()

	room, err := h.store.FindRoomFull(ctx, in.RoomID)
	if isNotFound(err) {
		return Fail[CompleteRoundData](KindNotFound, "room not found")
	}
	if err != nil {
		h.persistFailed("load room", err)
		return persistenceFailure[CompleteRoundData]("room lookup", err)
	}

	rd := room.CurrentRound()
	if rd == nil {
		// Only reachable when a round was stored but the room row that points
		// at it was not.
		rd = room.ActiveRound()
		if rd == nil {
			return Fail[CompleteRoundData](KindInvalidState, "no active round found")
		}
		h.log.Warn("room has no current round pointer, recovered active round",
			zap.String("room_id", room.ID()),
			zap.String("round_id", rd.ID()),
		)
		if err := room.SetCurrentRound(rd.ID()); err != nil {
			return domainFailure[CompleteRoundData](err)
		}
	}
	if !rd.IsActive() {
		return Fail[CompleteRoundData](KindInvalidState, "no active round found")
	}

	if _, err := room.CompleteCurrentRound(); err != nil {
		return domainFailure[CompleteRoundData](err)
	}
	finished := room.Status() == game.RoomFinished

	if err := h.store.UpdateRoundStatus(ctx, rd.ID(), rd.Status()); err != nil {
		h.persistFailed("round status", err)
		return persistenceFailure[CompleteRoundData]("round completion", err)
	}
	if err := h.store.SaveRoom(ctx, room); err != nil {
		h.persistFailed("room", err)
		return persistenceFailure[CompleteRoundData]("room", err)
	}
	for _, p := range room.Players() {
		if err := h.store.SavePlayer(ctx, p); err != nil {
			h.persistFailed("player", err)
			return persistenceFailure[CompleteRoundData]("player", err)
		}
	}
	h.project(ctx, room)

	return Ok(CompleteRoundData{Round: rd, RoomStatus: room.Status(), Players: room.Players()},
		events.RoundCompleted(events.RoundCompletedData{
			RoomID:         room.ID(),
			RoundID:        rd.ID(),
			RoundNo:        rd.RoundNo(),
			IsGameFinished: finished,
		}),
	)
}
