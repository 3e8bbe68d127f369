package game

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrInvalidState   = errors.New("invalid state")
	ErrRoomFull       = errors.New("room is full")
	ErrAlreadyJoined  = errors.New("user already joined")
	ErrAlreadyGuessed = errors.New("player already guessed correctly")
	ErrRoundLimit     = errors.New("round limit reached")
	ErrNoCurrentRound = errors.New("no current round")
)
