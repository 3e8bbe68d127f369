package game

import (
	"fmt"
	"time"
)

// StrokeEvent is one append-only entry of a round's canvas log. Seq is
// strictly increasing within a round.
type StrokeEvent struct {
	ID        string
	RoundID   string
	Seq       int
	Type      StrokeType
	StrokeID  string
	CreatedAt time.Time
}

func NewStrokeEvent(roundID string, seq int, typ StrokeType, strokeID string) (*StrokeEvent, error) {
	if seq < 1 {
		return nil, fmt.Errorf("%w: sequence numbers start at 1, got %d", ErrValidation, seq)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown stroke event type %q", ErrValidation, typ)
	}
	if (typ == StrokeDraw || typ == StrokeErase) && strokeID == "" {
		return nil, fmt.Errorf("%w: %s events must reference a stroke", ErrValidation, typ)
	}
	return &StrokeEvent{
		ID:        NewID(),
		RoundID:   roundID,
		Seq:       seq,
		Type:      typ,
		StrokeID:  strokeID,
		CreatedAt: Now(),
	}, nil
}
