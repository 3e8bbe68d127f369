package database

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/npezzotti/go-drawsync/internal/command"
	"github.com/npezzotti/go-drawsync/internal/game"
)

type MockStore struct {
	mock.Mock
}

var _ command.Store = (*MockStore)(nil)

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockStore) FindUserByID(ctx context.Context, id string) (*game.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*game.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockStore) FindUserByEmail(ctx context.Context, email string) (*game.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*game.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockStore) SaveUser(ctx context.Context, u *game.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}
func (m *MockStore) FindRoom(ctx context.Context, id string) (*game.Room, error) {
	args := m.Called(ctx, id)
	if room, ok := args.Get(0).(*game.Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockStore) FindRoomFull(ctx context.Context, id string) (*game.Room, error) {
	args := m.Called(ctx, id)
	if room, ok := args.Get(0).(*game.Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockStore) RoomExists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *MockStore) ListFinishedRooms(ctx context.Context, before time.Time) ([]string, error) {
	args := m.Called(ctx, before)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockStore) SaveRoom(ctx context.Context, room *game.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}
func (m *MockStore) DeleteRoom(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockStore) FindPlayer(ctx context.Context, id string) (*game.Player, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*game.Player); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockStore) FindPlayerInRoom(ctx context.Context, roomID, userID string) (*game.Player, error) {
	args := m.Called(ctx, roomID, userID)
	if p, ok := args.Get(0).(*game.Player); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockStore) HasGuessedCorrectly(ctx context.Context, roundID, playerID string) (bool, error) {
	args := m.Called(ctx, roundID, playerID)
	return args.Bool(0), args.Error(1)
}
func (m *MockStore) SavePlayer(ctx context.Context, p *game.Player) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockStore) RemovePlayer(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockStore) FindRound(ctx context.Context, id string) (*game.Round, error) {
	args := m.Called(ctx, id)
	if rd, ok := args.Get(0).(*game.Round); ok {
		return rd, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockStore) FindRoundWithGuesses(ctx context.Context, id string) (*game.Round, error) {
	args := m.Called(ctx, id)
	if rd, ok := args.Get(0).(*game.Round); ok {
		return rd, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockStore) FindActiveRound(ctx context.Context, roomID string) (*game.Round, error) {
	args := m.Called(ctx, roomID)
	if rd, ok := args.Get(0).(*game.Round); ok {
		return rd, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockStore) SaveRound(ctx context.Context, rd *game.Round) error {
	args := m.Called(ctx, rd)
	return args.Error(0)
}
func (m *MockStore) UpdateRoundStatus(ctx context.Context, roundID string, status game.RoundStatus) error {
	args := m.Called(ctx, roundID, status)
	return args.Error(0)
}
func (m *MockStore) SaveGuess(ctx context.Context, g *game.Guess) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}
func (m *MockStore) SaveCorrectGuess(ctx context.Context, g *game.Guess, playerID, userID string, points int) error {
	args := m.Called(ctx, g, playerID, userID, points)
	return args.Error(0)
}
func (m *MockStore) NextStrokeSeq(ctx context.Context, roundID string) (int, error) {
	args := m.Called(ctx, roundID)
	return args.Int(0), args.Error(1)
}
func (m *MockStore) ListStrokeEvents(ctx context.Context, roundID string) ([]game.StrokeEvent, error) {
	args := m.Called(ctx, roundID)
	if evs, ok := args.Get(0).([]game.StrokeEvent); ok {
		return evs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockStore) ListStrokes(ctx context.Context, roundID string) ([]*game.Stroke, error) {
	args := m.Called(ctx, roundID)
	if strokes, ok := args.Get(0).([]*game.Stroke); ok {
		return strokes, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockStore) SaveStroke(ctx context.Context, s *game.Stroke) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}
func (m *MockStore) SaveStrokeEvent(ctx context.Context, ev *game.StrokeEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
