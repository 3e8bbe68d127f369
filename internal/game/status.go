package game

type RoomStatus string

const (
	RoomWaiting    RoomStatus = "WAITING"
	RoomInProgress RoomStatus = "IN_PROGRESS"
	RoomFinished   RoomStatus = "FINISHED"
)

type RoundStatus string

const (
	RoundPending   RoundStatus = "PENDING"
	RoundActive    RoundStatus = "ACTIVE"
	RoundCompleted RoundStatus = "COMPLETED"
)

type PlayerState string

const (
	PlayerWaiting    PlayerState = "WAITING"
	PlayerDrawing    PlayerState = "DRAWING"
	PlayerGuessing   PlayerState = "GUESSING"
	PlayerSpectating PlayerState = "SPECTATING"
)

// StrokeType is the kind of operation recorded in a round's stroke-event log.
type StrokeType string

const (
	StrokeDraw  StrokeType = "DRAW"
	StrokeUndo  StrokeType = "UNDO"
	StrokeClear StrokeType = "CLEAR"
	StrokeErase StrokeType = "ERASE"
)

func (t StrokeType) Valid() bool {
	switch t {
	case StrokeDraw, StrokeUndo, StrokeClear, StrokeErase:
		return true
	}
	return false
}
