package server

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/npezzotti/go-drawsync/internal/command"
	"github.com/npezzotti/go-drawsync/internal/events"
	"github.com/npezzotti/go-drawsync/internal/stats"
)

var ErrHubStopped = errors.New("hub stopped")

// Hub tracks websocket clients and the rooms they subscribe to, and
// delivers room events to them. It is an events.Publisher.
type Hub struct {
	log   *zap.Logger
	cmds  *command.Commands
	stats stats.StatsProvider
	// pub receives the events of actions taken over the socket.
	pub events.Publisher

	clients map[*Client]struct{}
	// rooms maps a room id to its subscribed clients and their player ids.
	rooms map[string]map[*Client]string
	mu    sync.RWMutex

	registerChan   chan *Client
	deRegisterChan chan *Client
	eventChan      chan events.Event
	stop           chan struct{}
	stopOnce       sync.Once
	done           chan struct{}
}

func NewHub(log *zap.Logger, cmds *command.Commands, sp stats.StatsProvider) *Hub {
	h := &Hub{
		log:            log,
		cmds:           cmds,
		stats:          sp,
		clients:        make(map[*Client]struct{}),
		rooms:          make(map[string]map[*Client]string),
		registerChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		eventChan:      make(chan events.Event, 256),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	h.pub = h
	return h
}

// SetPublisher routes the events of socket actions through p, which should
// include the hub itself.
func (h *Hub) SetPublisher(p events.Publisher) {
	h.pub = p
}

func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.registerChan <- c:
	case <-h.stop:
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.registerChan:
			h.addClient(c)
			h.stats.Incr(stats.ActiveClients)
		case c := <-h.deRegisterChan:
			if h.removeClient(c) {
				h.stats.Decr(stats.ActiveClients)
			}
		case e := <-h.eventChan:
			h.deliver(e)
		case <-h.stop:
			h.log.Info("stopping websocket clients")
			h.mu.RLock()
			for c := range h.clients {
				c.stopClient()
			}
			h.mu.RUnlock()
			close(h.done)
			return
		}
	}
}

// Shutdown stops every client and waits for the run loop to exit.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.stopOnce.Do(func() { close(h.stop) })
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish queues e for the room's subscribers. Events without a room are
// ignored.
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	if e.RoomID == "" {
		return nil
	}
	select {
	case h.eventChan <- e:
		return nil
	case <-h.stop:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) PublishMany(ctx context.Context, evs []events.Event) error {
	return events.PublishEach(ctx, h, evs)
}

func (h *Hub) publish(ctx context.Context, evs []events.Event) {
	if len(evs) == 0 {
		return
	}
	if err := h.pub.PublishMany(ctx, evs); err != nil {
		h.log.Error("failed to publish events", zap.Int("count", len(evs)), zap.Error(err))
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) removeClient(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	for roomID := range c.roomIDs() {
		h.dropSubscriber(roomID, c)
	}
	return true
}
