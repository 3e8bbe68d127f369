package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/npezzotti/go-drawsync/internal/command"
	"github.com/npezzotti/go-drawsync/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is one request from a socket. Exactly one action is set.
type ClientMessage struct {
	BaseMessage
	Subscribe   *RoomRef     `json:"subscribe,omitempty"`
	Unsubscribe *RoomRef     `json:"unsubscribe,omitempty"`
	ApplyStroke *ApplyStroke `json:"applyStroke,omitempty"`
	UndoStroke  *RoomRef     `json:"undoStroke,omitempty"`
	ClearCanvas *RoomRef     `json:"clearCanvas,omitempty"`
	SubmitGuess *SubmitGuess `json:"submitGuess,omitempty"`
}

type RoomRef struct {
	RoomId string `json:"roomId"`
}

type ApplyStroke struct {
	RoomId string        `json:"roomId"`
	Points []types.Point `json:"points"`
	Style  types.Style   `json:"style"`
}

type SubmitGuess struct {
	RoomId  string `json:"roomId"`
	RoundId string `json:"roundId"`
	Text    string `json:"text"`
}

// ServerMessage is either the response to a request or a room event.
type ServerMessage struct {
	BaseMessage
	Response *Response       `json:"response,omitempty"`
	Event    json.RawMessage `json:"event,omitempty"`
}

type Response struct {
	ResponseCode int    `json:"responseCode"`
	Kind         string `json:"kind,omitempty"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

// Subscribed is the data of a successful subscribe: the room as the player
// sees it and the canvas of its current round. Events with a seq at or
// below Canvas.LastSeq are already part of the snapshot.
type Subscribed struct {
	Room     types.Room    `json:"room"`
	PlayerId string        `json:"playerId"`
	Canvas   *types.Canvas `json:"canvas,omitempty"`
}

func EventMessage(raw []byte) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Event:       raw,
	}
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

// ErrCommand reports a failed command with its kind and message.
func ErrCommand(id int, kind command.ErrorKind, message string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: types.StatusFor(kind),
			Kind:         string(kind),
			Error:        message,
		},
	}
}

func errResponse(id, code int, msg string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        msg,
		},
	}
}

func ErrNotSubscribed(id int) *ServerMessage {
	return errResponse(id, http.StatusForbidden, "not subscribed to room")
}

func ErrInternalError(id int) *ServerMessage {
	return errResponse(id, http.StatusInternalServerError, "internal server error")
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return errResponse(id, http.StatusServiceUnavailable, "service unavailable")
}

func ErrTooManyRequests(id int) *ServerMessage {
	return errResponse(id, http.StatusTooManyRequests, "too many requests")
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := errResponse(0, http.StatusBadRequest, "invalid message format")
	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
