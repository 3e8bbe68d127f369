// Package types holds the JSON shapes the HTTP API and the websocket hub
// send to clients.
package types

import (
	"net/http"
	"time"

	"github.com/npezzotti/go-drawsync/internal/command"
	"github.com/npezzotti/go-drawsync/internal/game"
)

type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	TotalScore int       `json:"totalScore"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

type Player struct {
	ID       string           `json:"id"`
	UserID   string           `json:"userId"`
	RoomID   string           `json:"roomId"`
	Score    int              `json:"score"`
	State    game.PlayerState `json:"state"`
	JoinedAt time.Time        `json:"joinedAt"`
}

type Round struct {
	ID        string           `json:"id"`
	RoomID    string           `json:"roomId"`
	RoundNo   int              `json:"roundNo"`
	Status    game.RoundStatus `json:"status"`
	DrawerID  string           `json:"drawerId,omitempty"`
	Word      string           `json:"word,omitempty"`
	StartedAt *time.Time       `json:"startedAt,omitempty"`
}

type Room struct {
	ID             string          `json:"id"`
	Status         game.RoomStatus `json:"status"`
	RoundCount     int             `json:"roundCount"`
	PlayerMaxCount int             `json:"playerMaxCount"`
	OwnerID        string          `json:"ownerId,omitempty"`
	CurrentRoundID string          `json:"currentRoundId,omitempty"`
	Players        []Player        `json:"players"`
	Rounds         []Round         `json:"rounds,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type Stroke struct {
	ID        string             `json:"id"`
	RoundID   string             `json:"roundId"`
	Points    []game.StrokePoint `json:"points"`
	Style     game.StrokeStyle   `json:"style"`
	CreatedAt time.Time          `json:"createdAt"`
}

type StrokeEvent struct {
	ID       string          `json:"id"`
	RoundID  string          `json:"roundId"`
	Seq      int             `json:"seq"`
	Type     game.StrokeType `json:"type"`
	StrokeID string          `json:"strokeId,omitempty"`
}

type Guess struct {
	ID          string    `json:"id"`
	RoundID     string    `json:"roundId"`
	PlayerID    string    `json:"playerId"`
	Text        string    `json:"text"`
	IsCorrect   bool      `json:"isCorrect"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type Canvas struct {
	RoundID string   `json:"roundId"`
	LastSeq int      `json:"lastSeq"`
	Strokes []Stroke `json:"strokes"`
}

func UserFrom(u *game.User) User {
	return User{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		TotalScore: u.TotalScore,
		CreatedAt:  u.CreatedAt,
	}
}

func PlayerFrom(p *game.Player) Player {
	return Player{
		ID:       p.ID,
		UserID:   p.UserID,
		RoomID:   p.RoomID,
		Score:    p.Score,
		State:    p.State,
		JoinedAt: p.JoinedAt,
	}
}

func PlayersFrom(ps []*game.Player) []Player {
	out := make([]Player, 0, len(ps))
	for _, p := range ps {
		out = append(out, PlayerFrom(p))
	}
	return out
}

// RoundFor renders a round as the given player sees it. The word is only
// included for the round's drawer.
func RoundFor(rd *game.Round, viewerPlayerID string) Round {
	v := Round{
		ID:       rd.ID(),
		RoomID:   rd.RoomID(),
		RoundNo:  rd.RoundNo(),
		Status:   rd.Status(),
		DrawerID: rd.DrawerID(),
	}
	if viewerPlayerID != "" && viewerPlayerID == rd.DrawerID() {
		v.Word = rd.Word()
	}
	if started := rd.StartedAt(); !started.IsZero() {
		v.StartedAt = &started
	}
	return v
}

// RoomFor renders a room with its players and rounds as the given player
// sees it.
func RoomFor(room *game.Room, viewerPlayerID string) Room {
	v := Room{
		ID:             room.ID(),
		Status:         room.Status(),
		RoundCount:     room.RoundCount(),
		PlayerMaxCount: room.PlayerMaxCount(),
		OwnerID:        room.OwnerID(),
		CurrentRoundID: room.CurrentRoundID(),
		Players:        PlayersFrom(room.Players()),
		CreatedAt:      room.CreatedAt(),
	}
	for _, rd := range room.Rounds() {
		v.Rounds = append(v.Rounds, RoundFor(rd, viewerPlayerID))
	}
	return v
}

func StrokeFrom(s *game.Stroke) Stroke {
	return Stroke{
		ID:        s.ID,
		RoundID:   s.RoundID,
		Points:    s.Points(),
		Style:     s.Style,
		CreatedAt: s.CreatedAt,
	}
}

func StrokeEventFrom(ev *game.StrokeEvent) StrokeEvent {
	return StrokeEvent{
		ID:       ev.ID,
		RoundID:  ev.RoundID,
		Seq:      ev.Seq,
		Type:     ev.Type,
		StrokeID: ev.StrokeID,
	}
}

func GuessFrom(g *game.Guess) Guess {
	return Guess{
		ID:          g.ID,
		RoundID:     g.RoundID,
		PlayerID:    g.PlayerID,
		Text:        g.Text,
		IsCorrect:   g.IsCorrect,
		SubmittedAt: g.SubmittedAt,
	}
}

func CanvasFrom(c command.CanvasData) Canvas {
	v := Canvas{RoundID: c.RoundID, LastSeq: c.LastSeq, Strokes: make([]Stroke, 0, len(c.Strokes))}
	for _, s := range c.Strokes {
		v.Strokes = append(v.Strokes, StrokeFrom(s))
	}
	return v
}

// Point and Style are the client's drawing input, before validation.
type Point struct {
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Pressure  *float64 `json:"pressure,omitempty"`
	Timestamp *int64   `json:"timestamp,omitempty"`
}

type Style struct {
	Color     string   `json:"color"`
	LineWidth float64  `json:"lineWidth"`
	LineCap   string   `json:"lineCap,omitempty"`
	Opacity   *float64 `json:"opacity,omitempty"`
}

func (s Style) Input() command.StyleInput {
	return command.StyleInput{Color: s.Color, LineWidth: s.LineWidth, LineCap: s.LineCap, Opacity: s.Opacity}
}

func PointInputs(points []Point) []command.PointInput {
	out := make([]command.PointInput, 0, len(points))
	for _, p := range points {
		out = append(out, command.PointInput{X: p.X, Y: p.Y, Pressure: p.Pressure, Timestamp: p.Timestamp})
	}
	return out
}

// StatusFor maps a command error kind to the HTTP status both transports
// report it with.
func StatusFor(kind command.ErrorKind) int {
	switch kind {
	case "":
		return http.StatusOK
	case command.KindValidation:
		return http.StatusBadRequest
	case command.KindNotFound:
		return http.StatusNotFound
	case command.KindNotAuthorized:
		return http.StatusForbidden
	case command.KindInvalidCredentials:
		return http.StatusUnauthorized
	case command.KindInvalidState, command.KindAlreadyJoined, command.KindAlreadyGuessed,
		command.KindRoomFull, command.KindEmailTaken:
		return http.StatusConflict
	case command.KindDomain:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
