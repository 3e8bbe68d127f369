// Package roomstate is the shared, best-effort projection of each room that
// the drawing commands authorize against. The aggregate store stays
// authoritative: every entry can be rebuilt with Project.
package roomstate

import (
	"context"
	"errors"
	"slices"

	"github.com/npezzotti/go-drawsync/internal/game"
)

var ErrNoState = errors.New("room state not found")

type RoomState struct {
	RoomID          string           `json:"roomId"`
	Status          game.RoomStatus  `json:"status"`
	LockOwnerID     string           `json:"lockOwnerId,omitempty"`
	CurrentRoundID  string           `json:"currentRoundId,omitempty"`
	ActivePlayerIDs []string         `json:"activePlayerIds"`
	RoundStatus     game.RoundStatus `json:"roundStatus,omitempty"`
}

func (s RoomState) clone() RoomState {
	s.ActivePlayerIDs = slices.Clone(s.ActivePlayerIDs)
	return s
}

// CanDraw reports whether the player holds the pen of an active round.
func (s RoomState) CanDraw(playerID string) bool {
	return s.LockOwnerID != "" && s.LockOwnerID == playerID
}

// Store is keyed by room id. Update methods do nothing when the room has no
// entry.
type Store interface {
	GetRoomState(ctx context.Context, roomID string) (RoomState, error)
	SetRoomState(ctx context.Context, state RoomState) error
	UpdateLockOwner(ctx context.Context, roomID, lockOwnerID string) error
	AddActivePlayer(ctx context.Context, roomID, playerID string) error
	RemoveActivePlayer(ctx context.Context, roomID, playerID string) error
	DeleteRoomState(ctx context.Context, roomID string) error
	RoomIDs(ctx context.Context) ([]string, error)
}

// Project derives the cache entry of a room from its aggregate. The lock
// owner is the drawer of the current round while that round is active.
func Project(room *game.Room) RoomState {
	s := RoomState{
		RoomID:          room.ID(),
		Status:          room.Status(),
		CurrentRoundID:  room.CurrentRoundID(),
		ActivePlayerIDs: room.PlayerIDs(),
	}
	if rd := room.CurrentRound(); rd != nil {
		s.RoundStatus = rd.Status()
		if rd.IsActive() {
			s.LockOwnerID = rd.DrawerID()
		}
	}
	return s
}

func addPlayer(ids []string, playerID string) []string {
	if slices.Contains(ids, playerID) {
		return ids
	}
	return append(ids, playerID)
}

func removePlayer(ids []string, playerID string) []string {
	return slices.DeleteFunc(ids, func(id string) bool { return id == playerID })
}
