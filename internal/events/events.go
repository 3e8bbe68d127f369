// Package events defines the facts the game emits when its state changes and
// the port they are published through.
package events

import (
	"strings"
	"time"

	"github.com/npezzotti/go-drawsync/internal/game"
)

type Kind string

const (
	KindRoomCreated      Kind = "ROOM_CREATED"
	KindPlayerJoined     Kind = "PLAYER_JOINED"
	KindPlayerLeft       Kind = "PLAYER_LEFT"
	KindRoomDeleted      Kind = "ROOM_DELETED"
	KindRoomOwnerChanged Kind = "ROOM_OWNER_CHANGED"
	KindDrawerChanged    Kind = "DRAWER_CHANGED"
	KindGameStarted      Kind = "GAME_STARTED"
	KindRoundStarted     Kind = "ROUND_STARTED"
	KindRoundCompleted   Kind = "ROUND_COMPLETED"
	KindGuessSubmitted   Kind = "GUESS_SUBMITTED"
	KindCorrectGuess     Kind = "CORRECT_GUESS"
	KindStrokeApplied    Kind = "STROKE_APPLIED"
	KindStrokeUndone     Kind = "STROKE_UNDONE"
	KindCanvasCleared    Kind = "CANVAS_CLEARED"
	KindUserRegistered   Kind = "USER_REGISTERED"
)

// RoutingKey turns a kind into its dotted broker key, e.g. "player.joined".
func RoutingKey(k Kind) string {
	return strings.ReplaceAll(strings.ToLower(string(k)), "_", ".")
}

// Event is an immutable fact. Data holds the kind's payload struct.
type Event struct {
	ID         string
	Kind       Kind
	RoomID     string
	OccurredAt time.Time
	Data       any
}

func newEvent(kind Kind, roomID string, data any) Event {
	return Event{
		ID:         game.NewID(),
		Kind:       kind,
		RoomID:     roomID,
		OccurredAt: game.Now(),
		Data:       data,
	}
}

type RoomCreatedData struct {
	RoomID         string `json:"roomId"`
	OwnerID        string `json:"ownerId"`
	RoundCount     int    `json:"roundCount"`
	PlayerMaxCount int    `json:"playerMaxCount"`
}

type PlayerJoinedData struct {
	RoomID      string `json:"roomId"`
	PlayerID    string `json:"playerId"`
	UserID      string `json:"userId"`
	PlayerCount int    `json:"playerCount"`
}

type PlayerLeftData struct {
	RoomID      string `json:"roomId"`
	PlayerID    string `json:"playerId"`
	PlayerCount int    `json:"playerCount"`
	WasOwner    bool   `json:"wasOwner"`
}

type RoomDeletedData struct {
	RoomID string `json:"roomId"`
}

type RoomOwnerChangedData struct {
	RoomID     string `json:"roomId"`
	NewOwnerID string `json:"newOwnerId"`
}

type DrawerChangedData struct {
	RoomID   string `json:"roomId"`
	RoundID  string `json:"roundId,omitempty"`
	DrawerID string `json:"drawerId"`
}

type GameStartedData struct {
	RoomID      string `json:"roomId"`
	PlayerCount int    `json:"playerCount"`
}

// RoundStartedData carries the secret word. Only the drawer may see it, so
// the broadcast payload is RoundStartedPublic.
type RoundStartedData struct {
	RoomID   string `json:"roomId"`
	RoundID  string `json:"roundId"`
	RoundNo  int    `json:"roundNo"`
	DrawerID string `json:"drawerId"`
	Word     string `json:"word"`
}

type RoundStartedPublic struct {
	RoomID   string `json:"roomId"`
	RoundID  string `json:"roundId"`
	RoundNo  int    `json:"roundNo"`
	DrawerID string `json:"drawerId"`
}

type RoundCompletedData struct {
	RoomID         string `json:"roomId"`
	RoundID        string `json:"roundId"`
	RoundNo        int    `json:"roundNo"`
	IsGameFinished bool   `json:"isGameFinished"`
}

type GuessSubmittedData struct {
	RoundID       string `json:"roundId"`
	GuessID       string `json:"guessId"`
	PlayerID      string `json:"playerId"`
	GuessText     string `json:"guessText"`
	IsCorrect     bool   `json:"isCorrect"`
	PointsAwarded int    `json:"pointsAwarded"`
}

type CorrectGuessData struct {
	RoundID       string `json:"roundId"`
	PlayerID      string `json:"playerId"`
	PointsAwarded int    `json:"pointsAwarded"`
}

type StrokeAppliedData struct {
	RoundID  string             `json:"roundId"`
	StrokeID string             `json:"strokeId"`
	DrawerID string             `json:"drawerId"`
	Seq      int                `json:"seq"`
	Points   []game.StrokePoint `json:"points"`
	Style    game.StrokeStyle   `json:"style"`
}

type StrokeUndoneData struct {
	RoundID  string `json:"roundId"`
	DrawerID string `json:"drawerId"`
	StrokeID string `json:"strokeId"`
	Seq      int    `json:"seq"`
}

type CanvasClearedData struct {
	RoundID  string `json:"roundId"`
	DrawerID string `json:"drawerId"`
	Seq      int    `json:"seq"`
}

type UserRegisteredData struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

func RoomCreated(d RoomCreatedData) Event {
	return newEvent(KindRoomCreated, d.RoomID, d)
}

func PlayerJoined(d PlayerJoinedData) Event {
	return newEvent(KindPlayerJoined, d.RoomID, d)
}

func PlayerLeft(d PlayerLeftData) Event {
	return newEvent(KindPlayerLeft, d.RoomID, d)
}

func RoomDeleted(roomID string) Event {
	return newEvent(KindRoomDeleted, roomID, RoomDeletedData{RoomID: roomID})
}

func RoomOwnerChanged(roomID, newOwnerID string) Event {
	return newEvent(KindRoomOwnerChanged, roomID, RoomOwnerChangedData{RoomID: roomID, NewOwnerID: newOwnerID})
}

func DrawerChanged(d DrawerChangedData) Event {
	return newEvent(KindDrawerChanged, d.RoomID, d)
}

func GameStarted(roomID string, playerCount int) Event {
	return newEvent(KindGameStarted, roomID, GameStartedData{RoomID: roomID, PlayerCount: playerCount})
}

func RoundStarted(d RoundStartedData) Event {
	return newEvent(KindRoundStarted, d.RoomID, d)
}

func RoundCompleted(d RoundCompletedData) Event {
	return newEvent(KindRoundCompleted, d.RoomID, d)
}

func GuessSubmitted(roomID string, d GuessSubmittedData) Event {
	return newEvent(KindGuessSubmitted, roomID, d)
}

func CorrectGuess(roomID string, d CorrectGuessData) Event {
	return newEvent(KindCorrectGuess, roomID, d)
}

func StrokeApplied(roomID string, d StrokeAppliedData) Event {
	return newEvent(KindStrokeApplied, roomID, d)
}

func StrokeUndone(roomID string, d StrokeUndoneData) Event {
	return newEvent(KindStrokeUndone, roomID, d)
}

func CanvasCleared(roomID string, d CanvasClearedData) Event {
	return newEvent(KindCanvasCleared, roomID, d)
}

func UserRegistered(userID, email string) Event {
	return newEvent(KindUserRegistered, "", UserRegisteredData{UserID: userID, Email: email})
}
