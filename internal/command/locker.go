package command

import (
	"context"
	"sync"
)

// RoomLocker serializes work per room id while leaving distinct rooms
// independent. Entries are reference counted and dropped when unused.
type RoomLocker struct {
	mu    sync.Mutex
	rooms map[string]*roomLock
}

type roomLock struct {
	sem  chan struct{}
	refs int
}

func NewRoomLocker() *RoomLocker {
	return &RoomLocker{rooms: make(map[string]*roomLock)}
}

// Lock blocks until the room is free or ctx is done. The returned func
// releases the lock and must be called exactly once.
func (l *RoomLocker) Lock(ctx context.Context, roomID string) (func(), error) {
	l.mu.Lock()
	rl, ok := l.rooms[roomID]
	if !ok {
		rl = &roomLock{sem: make(chan struct{}, 1)}
		l.rooms[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	select {
	case rl.sem <- struct{}{}:
		return func() {
			<-rl.sem
			l.release(roomID, rl)
		}, nil
	case <-ctx.Done():
		l.release(roomID, rl)
		return nil, ctx.Err()
	}
}

func (l *RoomLocker) release(roomID string, rl *roomLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rl.refs--
	if rl.refs == 0 {
		delete(l.rooms, roomID)
	}
}

// Len is the number of rooms with a holder or waiter.
func (l *RoomLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}
