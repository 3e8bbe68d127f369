package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/npezzotti/go-drawsync/internal/command"
	"github.com/npezzotti/go-drawsync/internal/events"
	"github.com/npezzotti/go-drawsync/internal/game"
	"github.com/npezzotti/go-drawsync/internal/server"
	"github.com/npezzotti/go-drawsync/internal/stats"
	"github.com/npezzotti/go-drawsync/internal/types"
)

const (
	maxBodyBytes  = 1 << 20
	healthTimeout = 2 * time.Second
)

type CreateRoomRequest struct {
	RoundCount     *int `json:"roundCount,omitempty"`
	PlayerMaxCount *int `json:"playerMaxCount,omitempty"`
}

type StartRoundRequest struct {
	Word string `json:"word"`
}

type SubmitGuessRequest struct {
	RoundId string `json:"roundId"`
	Text    string `json:"text"`
}

type ApplyStrokeRequest struct {
	Points []types.Point `json:"points"`
	Style  types.Style   `json:"style"`
}

// RoomMembership is the response to creating or joining a room.
type RoomMembership struct {
	Room   types.Room   `json:"room"`
	Player types.Player `json:"player"`
}

func (s *App) writeJson(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("json encode", zap.Error(err))
	}
}

// decodeJson reads the request body into v and reports a 400 when it cannot.
func (s *App) decodeJson(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return false
	}
	return true
}

// writeResult renders a command result and, on success, publishes its
// events.
func writeResult[T any](s *App, w http.ResponseWriter, r *http.Request, status int, res command.Result[T], view func(T) any) {
	stats.CountCommand(s.stats, res.Succeeded())
	if !res.Succeeded() {
		errResp := NewCommandError(res.Kind, res.Message)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.publish(r.Context(), res.Events)
	s.writeJson(w, status, view(res.Data))
}

func (s *App) publish(ctx context.Context, evs []events.Event) {
	if len(evs) == 0 || s.pub == nil {
		return
	}
	if err := s.pub.PublishMany(ctx, evs); err != nil {
		s.log.Error("failed to publish events", zap.Int("count", len(evs)), zap.Error(err))
	}
}

// player resolves the caller's player in the room of the request path. On
// failure the error response is already written.
func (s *App) player(w http.ResponseWriter, r *http.Request) (roomID, playerID string, ok bool) {
	userId, _ := UserId(r.Context())
	roomID = r.PathValue("roomId")

	res := s.cmds.Queries.FindPlayer(r.Context(), roomID, userId)
	if !res.Succeeded() {
		errResp := NewCommandError(res.Kind, res.Message)
		s.writeJson(w, errResp.StatusCode, errResp)
		return "", "", false
	}
	return roomID, res.Data.ID, true
}

func (s *App) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.log.Error("health check failed", zap.Error(err))
		errResp := NewServiceUnavailableError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *App) createRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if !s.decodeJson(w, r, &req) {
		return
	}
	userId, _ := UserId(r.Context())

	res := s.cmds.CreateRoom.Handle(r.Context(), command.CreateRoomInput{
		UserID:         userId,
		RoundCount:     req.RoundCount,
		PlayerMaxCount: req.PlayerMaxCount,
	})
	writeResult(s, w, r, http.StatusCreated, res, func(d command.CreateRoomData) any {
		return RoomMembership{Room: types.RoomFor(d.Room, d.Player.ID), Player: types.PlayerFrom(d.Player)}
	})
}

// getRoom is open to any signed-in user. Only the drawer sees the word.
func (s *App) getRoom(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	roomID := r.PathValue("roomId")

	res := s.cmds.Queries.GetRoom(r.Context(), roomID)
	if !res.Succeeded() {
		errResp := NewCommandError(res.Kind, res.Message)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var viewer string
	if p := res.Data.PlayerByUser(userId); p != nil {
		viewer = p.ID
	}
	s.writeJson(w, http.StatusOK, types.RoomFor(res.Data, viewer))
}

func (s *App) joinRoom(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	res := s.cmds.JoinRoom.Handle(r.Context(), command.JoinRoomInput{RoomID: r.PathValue("roomId"), UserID: userId})
	writeResult(s, w, r, http.StatusOK, res, func(d command.JoinRoomData) any {
		return RoomMembership{Room: types.RoomFor(d.Room, d.Player.ID), Player: types.PlayerFrom(d.Player)}
	})
}

func (s *App) leaveRoom(w http.ResponseWriter, r *http.Request) {
	roomID, playerID, ok := s.player(w, r)
	if !ok {
		return
	}

	res := s.cmds.LeaveRoom.Handle(r.Context(), command.LeaveRoomInput{RoomID: roomID, PlayerID: playerID})
	writeResult(s, w, r, http.StatusOK, res, func(d command.LeaveRoomData) any {
		out := map[string]any{
			"roomDeleted": d.RoomDeleted,
			"newOwnerId":  d.NewOwnerID,
			"newDrawerId": d.NewDrawerID,
		}
		if d.Room != nil {
			out["room"] = types.RoomFor(d.Room, "")
		}
		return out
	})
}

func (s *App) startGame(w http.ResponseWriter, r *http.Request) {
	roomID, playerID, ok := s.player(w, r)
	if !ok {
		return
	}

	res := s.cmds.StartGame.Handle(r.Context(), command.StartGameInput{RoomID: roomID, PlayerID: playerID})
	writeResult(s, w, r, http.StatusOK, res, func(d command.StartGameData) any {
		return types.RoomFor(d.Room, playerID)
	})
}

func (s *App) startRound(w http.ResponseWriter, r *http.Request) {
	roomID, playerID, ok := s.player(w, r)
	if !ok {
		return
	}
	var req StartRoundRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	res := s.cmds.StartRound.Handle(r.Context(), command.StartRoundInput{RoomID: roomID, Word: req.Word})
	writeResult(s, w, r, http.StatusCreated, res, func(d command.StartRoundData) any {
		states := make(map[string]game.PlayerState, len(d.PlayerStates))
		for _, ps := range d.PlayerStates {
			states[ps.PlayerID] = ps.State
		}
		return map[string]any{
			"round":        types.RoundFor(d.Round, playerID),
			"drawerId":     d.DrawerID,
			"playerStates": states,
		}
	})
}

func (s *App) completeRound(w http.ResponseWriter, r *http.Request) {
	roomID, playerID, ok := s.player(w, r)
	if !ok {
		return
	}

	res := s.cmds.CompleteRound.Handle(r.Context(), command.CompleteRoundInput{RoomID: roomID})
	writeResult(s, w, r, http.StatusOK, res, func(d command.CompleteRoundData) any {
		return map[string]any{
			"round":      types.RoundFor(d.Round, playerID),
			"roomStatus": d.RoomStatus,
			"players":    types.PlayersFrom(d.Players),
		}
	})
}

func (s *App) submitGuess(w http.ResponseWriter, r *http.Request) {
	_, playerID, ok := s.player(w, r)
	if !ok {
		return
	}
	var req SubmitGuessRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	res := s.cmds.SubmitGuess.Handle(r.Context(), command.SubmitGuessInput{
		RoundID:  req.RoundId,
		PlayerID: playerID,
		Text:     req.Text,
	})
	if res.Succeeded() {
		s.stats.Incr(stats.GuessesSubmitted)
		if res.Data.IsCorrect {
			s.stats.Incr(stats.CorrectGuesses)
		}
	}
	writeResult(s, w, r, http.StatusCreated, res, func(d command.SubmitGuessData) any {
		return map[string]any{
			"guess":         types.GuessFrom(d.Guess),
			"isCorrect":     d.IsCorrect,
			"pointsAwarded": d.PointsAwarded,
			"score":         d.Player.Score,
		}
	})
}

func (s *App) applyStroke(w http.ResponseWriter, r *http.Request) {
	roomID, playerID, ok := s.player(w, r)
	if !ok {
		return
	}
	var req ApplyStrokeRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	res := s.cmds.ApplyStroke.Handle(r.Context(), command.ApplyStrokeInput{
		RoomID:   roomID,
		PlayerID: playerID,
		Points:   types.PointInputs(req.Points),
		Style:    req.Style.Input(),
	})
	if res.Succeeded() {
		s.stats.Incr(stats.StrokesApplied)
	}
	writeResult(s, w, r, http.StatusCreated, res, func(d command.ApplyStrokeData) any {
		return map[string]any{
			"stroke":      types.StrokeFrom(d.Stroke),
			"strokeEvent": types.StrokeEventFrom(d.StrokeEvent),
		}
	})
}

func (s *App) undoStroke(w http.ResponseWriter, r *http.Request) {
	roomID, playerID, ok := s.player(w, r)
	if !ok {
		return
	}

	res := s.cmds.UndoStroke.Handle(r.Context(), command.UndoStrokeInput{RoomID: roomID, PlayerID: playerID})
	writeResult(s, w, r, http.StatusOK, res, func(d command.UndoStrokeData) any {
		return map[string]any{
			"strokeEvent":    types.StrokeEventFrom(d.StrokeEvent),
			"undoneStrokeId": d.UndoneStrokeID,
		}
	})
}

func (s *App) clearCanvas(w http.ResponseWriter, r *http.Request) {
	roomID, playerID, ok := s.player(w, r)
	if !ok {
		return
	}

	res := s.cmds.ClearCanvas.Handle(r.Context(), command.ClearCanvasInput{RoomID: roomID, PlayerID: playerID})
	writeResult(s, w, r, http.StatusOK, res, func(d command.ClearCanvasData) any {
		return map[string]any{"strokeEvent": types.StrokeEventFrom(d.StrokeEvent)}
	})
}

func (s *App) getCanvas(w http.ResponseWriter, r *http.Request) {
	res := s.cmds.Queries.GetCanvas(r.Context(), r.PathValue("roundId"))
	if !res.Succeeded() {
		errResp := NewCommandError(res.Kind, res.Message)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	s.writeJson(w, http.StatusOK, types.CanvasFrom(res.Data))
}

func (s *App) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	if res := s.cmds.Queries.GetUser(r.Context(), userId); !res.Succeeded() {
		errResp := NewCommandError(res.Kind, res.Message)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("error upgrading connection", zap.Error(err))
		return
	}

	client := server.NewClient(userId, conn, s.hub, s.log)
	s.hub.RegisterClient(client)
	go client.Write()
	go client.Read()
}
