package server

import (
	"go.uber.org/zap"

	"github.com/npezzotti/go-drawsync/internal/events"
)

func (h *Hub) subscribe(c *Client, roomID, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[*Client]string)
		h.rooms[roomID] = subs
	}
	subs[c] = playerID
	c.addRoom(roomID, playerID)
}

func (h *Hub) unsubscribe(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dropSubscriber(roomID, c)
	c.delRoom(roomID)
}

// dropSubscriber requires h.mu.
func (h *Hub) dropSubscriber(roomID string, c *Client) {
	subs, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *Hub) subscribers(roomID string) map[*Client]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[*Client]string, len(h.rooms[roomID]))
	for c, playerID := range h.rooms[roomID] {
		out[c] = playerID
	}
	return out
}

// deliver sends e to the subscribers of its room. The drawer of a starting
// round gets the payload with the word; everyone else gets the public one.
func (h *Hub) deliver(e events.Event) {
	subs := h.subscribers(e.RoomID)
	if len(subs) > 0 {
		public, err := events.Encode(e)
		if err != nil {
			h.log.Error("failed to encode event", zap.String("kind", string(e.Kind)), zap.Error(err))
			return
		}
		drawerID, drawerOnly := events.DrawerOnly(e)
		var private []byte
		if drawerOnly {
			if private, err = events.EncodeForDrawer(e); err != nil {
				h.log.Error("failed to encode event", zap.String("kind", string(e.Kind)), zap.Error(err))
				return
			}
		}

		for c, playerID := range subs {
			raw := public
			if drawerOnly && playerID == drawerID {
				raw = private
			}
			c.queueMessage(EventMessage(raw))
		}
	}

	switch d := e.Data.(type) {
	case events.RoomDeletedData:
		h.closeRoom(d.RoomID)
	case events.PlayerLeftData:
		h.dropPlayer(d.RoomID, d.PlayerID)
	}
}

func (h *Hub) closeRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.rooms[roomID] {
		c.delRoom(roomID)
	}
	delete(h.rooms, roomID)
	h.log.Debug("closed room subscriptions", zap.String("room_id", roomID))
}

func (h *Hub) dropPlayer(roomID, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c, pid := range h.rooms[roomID] {
		if pid == playerID {
			h.dropSubscriber(roomID, c)
			c.delRoom(roomID)
		}
	}
}
