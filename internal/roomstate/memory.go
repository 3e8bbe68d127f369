package roomstate

import (
	"context"
	"sync"
)

// MemoryStore keeps room states in process. Values are copied in and out.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]RoomState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]RoomState)}
}

func (m *MemoryStore) GetRoomState(_ context.Context, roomID string) (RoomState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.states[roomID]
	if !ok {
		return RoomState{}, ErrNoState
	}
	return s.clone(), nil
}

func (m *MemoryStore) SetRoomState(_ context.Context, state RoomState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[state.RoomID] = state.clone()
	return nil
}

func (m *MemoryStore) update(roomID string, fn func(*RoomState)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.states[roomID]
	if !ok {
		return
	}
	s = s.clone()
	fn(&s)
	m.states[roomID] = s
}

func (m *MemoryStore) UpdateLockOwner(_ context.Context, roomID, lockOwnerID string) error {
	m.update(roomID, func(s *RoomState) { s.LockOwnerID = lockOwnerID })
	return nil
}

func (m *MemoryStore) AddActivePlayer(_ context.Context, roomID, playerID string) error {
	m.update(roomID, func(s *RoomState) { s.ActivePlayerIDs = addPlayer(s.ActivePlayerIDs, playerID) })
	return nil
}

func (m *MemoryStore) RemoveActivePlayer(_ context.Context, roomID, playerID string) error {
	m.update(roomID, func(s *RoomState) { s.ActivePlayerIDs = removePlayer(s.ActivePlayerIDs, playerID) })
	return nil
}

func (m *MemoryStore) DeleteRoomState(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, roomID)
	return nil
}

func (m *MemoryStore) RoomIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.states))
	for id := range m.states {
		ids = append(ids, id)
	}
	return ids, nil
}
