package command

import (
	"context"
	"errors"
	"time"

	"github.com/npezzotti/go-drawsync/internal/game"
)

// ErrNotFound is returned by every lookup port when the row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate")

type UserRepository interface {
	FindUserByID(ctx context.Context, id string) (*game.User, error)
	FindUserByEmail(ctx context.Context, email string) (*game.User, error)
}

type RoomRepository interface {
	// FindRoom loads a room with its players.
	FindRoom(ctx context.Context, id string) (*game.Room, error)
	// FindRoomFull loads a room with its players and rounds.
	FindRoomFull(ctx context.Context, id string) (*game.Room, error)
	RoomExists(ctx context.Context, id string) (bool, error)
	ListFinishedRooms(ctx context.Context, before time.Time) ([]string, error)
}

type PlayerRepository interface {
	FindPlayer(ctx context.Context, id string) (*game.Player, error)
	FindPlayerInRoom(ctx context.Context, roomID, userID string) (*game.Player, error)
	HasGuessedCorrectly(ctx context.Context, roundID, playerID string) (bool, error)
}

type RoundRepository interface {
	FindRound(ctx context.Context, id string) (*game.Round, error)
	// FindRoundWithGuesses loads a round with its guesses in submission order.
	FindRoundWithGuesses(ctx context.Context, id string) (*game.Round, error)
	FindActiveRound(ctx context.Context, roomID string) (*game.Round, error)
	NextStrokeSeq(ctx context.Context, roundID string) (int, error)
	ListStrokeEvents(ctx context.Context, roundID string) ([]game.StrokeEvent, error)
	ListStrokes(ctx context.Context, roundID string) ([]*game.Stroke, error)
}

type UserOperations interface {
	SaveUser(ctx context.Context, u *game.User) error
}

type RoomOperations interface {
	// SaveRoom upserts the room row only, not its players or rounds.
	SaveRoom(ctx context.Context, room *game.Room) error
	DeleteRoom(ctx context.Context, id string) error
}

type PlayerOperations interface {
	SavePlayer(ctx context.Context, p *game.Player) error
	RemovePlayer(ctx context.Context, id string) error
}

type RoundOperations interface {
	SaveRound(ctx context.Context, rd *game.Round) error
	UpdateRoundStatus(ctx context.Context, roundID string, status game.RoundStatus) error
}

type GuessOperations interface {
	SaveGuess(ctx context.Context, g *game.Guess) error
	// SaveCorrectGuess stores a correct guess and credits points to the
	// guessing player and their user in one transaction. Either all three
	// writes land or none do.
	SaveCorrectGuess(ctx context.Context, g *game.Guess, playerID, userID string, points int) error
}

type StrokeOperations interface {
	SaveStroke(ctx context.Context, s *game.Stroke) error
	SaveStrokeEvent(ctx context.Context, ev *game.StrokeEvent) error
}

// Store is every repository and operation port together, the way a single
// database backs them.
type Store interface {
	UserRepository
	RoomRepository
	PlayerRepository
	RoundRepository
	UserOperations
	RoomOperations
	PlayerOperations
	RoundOperations
	GuessOperations
	StrokeOperations
	Ping(ctx context.Context) error
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
