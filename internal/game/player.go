package game

import (
	"fmt"
	"time"
)

// Player is a user's membership in a room.
type Player struct {
	ID       string
	UserID   string
	RoomID   string
	Score    int
	State    PlayerState
	JoinedAt time.Time
}

func NewPlayer(userID, roomID string) *Player {
	return &Player{
		ID:       NewID(),
		UserID:   userID,
		RoomID:   roomID,
		State:    PlayerWaiting,
		JoinedAt: Now(),
	}
}

func (p *Player) IsDrawer() bool {
	return p.State == PlayerDrawing
}

func (p *Player) AddScore(points int) error {
	if points < 0 {
		return fmt.Errorf("%w: points cannot be negative", ErrValidation)
	}
	p.Score += points
	return nil
}
