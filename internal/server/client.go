package server

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/npezzotti/go-drawsync/internal/command"
	"github.com/npezzotti/go-drawsync/internal/stats"
	"github.com/npezzotti/go-drawsync/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	actionTimeout  = 5 * time.Second

	// A client may send actionsPerSecond requests on average, in bursts of
	// up to actionBurst.
	actionsPerSecond = 20
	actionBurst      = 40
)

type Client struct {
	conn      *websocket.Conn
	hub       *Hub
	log       *zap.Logger
	userID    string
	send      chan *ServerMessage
	rooms     map[string]string
	roomsLock sync.RWMutex
	limiter   *rate.Limiter
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewClient(userID string, conn *websocket.Conn, hub *Hub, l *zap.Logger) *Client {
	return &Client{
		conn:    conn,
		hub:     hub,
		log:     l.With(zap.String("user_id", userID)),
		userID:  userID,
		send:    make(chan *ServerMessage, 256),
		rooms:   make(map[string]string),
		limiter: rate.NewLimiter(actionsPerSecond, actionBurst),
		stop:    make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Debug("write exiting")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.Error("failed to serialize message", zap.Error(err))
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.sendMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.conn.Close()
		c.cleanup()
		c.log.Debug("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Warn("ws read", zap.Error(err))
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Debug("error parsing message", zap.Error(err))
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}
		if !c.limiter.Allow() {
			c.queueMessage(ErrTooManyRequests(msg.Id))
			continue
		}

		c.handle(ctx, &msg)
	}
}

// handle runs one request to completion and queues its response.
func (c *Client) handle(ctx context.Context, msg *ClientMessage) {
	ctx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	switch {
	case msg.Subscribe != nil:
		c.subscribe(ctx, msg.Id, msg.Subscribe.RoomId)
	case msg.Unsubscribe != nil:
		c.hub.unsubscribe(c, msg.Unsubscribe.RoomId)
		c.queueMessage(NoErrOK(msg.Id, nil))
	case msg.ApplyStroke != nil:
		a := msg.ApplyStroke
		playerID, ok := c.playerIn(a.RoomId)
		if !ok {
			c.queueMessage(ErrNotSubscribed(msg.Id))
			return
		}
		res := c.hub.cmds.ApplyStroke.Handle(ctx, command.ApplyStrokeInput{
			RoomID:   a.RoomId,
			PlayerID: playerID,
			Points:   types.PointInputs(a.Points),
			Style:    a.Style.Input(),
		})
		if res.Succeeded() {
			c.hub.stats.Incr(stats.StrokesApplied)
		}
		respond(ctx, c, msg.Id, res, func(d command.ApplyStrokeData) any {
			return map[string]any{
				"stroke":      types.StrokeFrom(d.Stroke),
				"strokeEvent": types.StrokeEventFrom(d.StrokeEvent),
			}
		})
	case msg.UndoStroke != nil:
		playerID, ok := c.playerIn(msg.UndoStroke.RoomId)
		if !ok {
			c.queueMessage(ErrNotSubscribed(msg.Id))
			return
		}
		res := c.hub.cmds.UndoStroke.Handle(ctx, command.UndoStrokeInput{RoomID: msg.UndoStroke.RoomId, PlayerID: playerID})
		respond(ctx, c, msg.Id, res, func(d command.UndoStrokeData) any {
			return map[string]any{
				"strokeEvent":    types.StrokeEventFrom(d.StrokeEvent),
				"undoneStrokeId": d.UndoneStrokeID,
			}
		})
	case msg.ClearCanvas != nil:
		playerID, ok := c.playerIn(msg.ClearCanvas.RoomId)
		if !ok {
			c.queueMessage(ErrNotSubscribed(msg.Id))
			return
		}
		res := c.hub.cmds.ClearCanvas.Handle(ctx, command.ClearCanvasInput{RoomID: msg.ClearCanvas.RoomId, PlayerID: playerID})
		respond(ctx, c, msg.Id, res, func(d command.ClearCanvasData) any {
			return map[string]any{"strokeEvent": types.StrokeEventFrom(d.StrokeEvent)}
		})
	case msg.SubmitGuess != nil:
		g := msg.SubmitGuess
		playerID, ok := c.playerIn(g.RoomId)
		if !ok {
			c.queueMessage(ErrNotSubscribed(msg.Id))
			return
		}
		res := c.hub.cmds.SubmitGuess.Handle(ctx, command.SubmitGuessInput{RoundID: g.RoundId, PlayerID: playerID, Text: g.Text})
		if res.Succeeded() {
			c.hub.stats.Incr(stats.GuessesSubmitted)
			if res.Data.IsCorrect {
				c.hub.stats.Incr(stats.CorrectGuesses)
			}
		}
		respond(ctx, c, msg.Id, res, func(d command.SubmitGuessData) any {
			return map[string]any{
				"guess":         types.GuessFrom(d.Guess),
				"isCorrect":     d.IsCorrect,
				"pointsAwarded": d.PointsAwarded,
				"score":         d.Player.Score,
			}
		})
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

// respond queues the response to a command and hands its events to the
// hub's publisher.
func respond[T any](ctx context.Context, c *Client, id int, res command.Result[T], view func(T) any) {
	stats.CountCommand(c.hub.stats, res.Succeeded())
	if !res.Succeeded() {
		c.queueMessage(ErrCommand(id, res.Kind, res.Message))
		return
	}
	c.queueMessage(NoErrOK(id, view(res.Data)))
	c.hub.publish(ctx, res.Events)
}

// subscribe resolves the user's player in the room, registers the client
// for the room's events and replies with a snapshot of the room and canvas.
func (c *Client) subscribe(ctx context.Context, id int, roomID string) {
	player := c.hub.cmds.Queries.FindPlayer(ctx, roomID, c.userID)
	if !player.Succeeded() {
		c.queueMessage(ErrCommand(id, player.Kind, player.Message))
		return
	}
	playerID := player.Data.ID

	// Register before reading the snapshot so no event falls between them.
	c.hub.subscribe(c, roomID, playerID)

	room := c.hub.cmds.Queries.GetRoom(ctx, roomID)
	if !room.Succeeded() {
		c.hub.unsubscribe(c, roomID)
		c.queueMessage(ErrCommand(id, room.Kind, room.Message))
		return
	}
	data := Subscribed{Room: types.RoomFor(room.Data, playerID), PlayerId: playerID}
	if roundID := room.Data.CurrentRoundID(); roundID != "" {
		cv := c.hub.cmds.Queries.GetCanvas(ctx, roundID)
		if !cv.Succeeded() {
			c.hub.unsubscribe(c, roomID)
			c.queueMessage(ErrCommand(id, cv.Kind, cv.Message))
			return
		}
		snapshot := types.CanvasFrom(cv.Data)
		data.Canvas = &snapshot
	}
	c.queueMessage(NoErrOK(id, data))
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Warn("failed to send message to client, channel is full")
		return false
	}

	return true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Warn("write message", zap.Error(err))
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	select {
	case c.hub.deRegisterChan <- c:
	case <-c.hub.stop:
	}
	c.stopClient()
}

func (c *Client) addRoom(roomID, playerID string) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()
	c.rooms[roomID] = playerID
}

func (c *Client) delRoom(roomID string) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()
	delete(c.rooms, roomID)
}

func (c *Client) playerIn(roomID string) (string, bool) {
	c.roomsLock.RLock()
	defer c.roomsLock.RUnlock()
	playerID, ok := c.rooms[roomID]
	return playerID, ok
}

func (c *Client) roomIDs() map[string]string {
	c.roomsLock.RLock()
	defer c.roomsLock.RUnlock()
	return maps.Clone(c.rooms)
}
