package command

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/npezzotti/go-drawsync/internal/auth"
	"github.com/npezzotti/go-drawsync/internal/game"
	"github.com/npezzotti/go-drawsync/internal/roomstate"
)

type Deps struct {
	Store  Store
	Cache  roomstate.Store
	Hasher auth.PasswordHasher
	Tokens auth.TokenProvider
	Locker *RoomLocker
	Log    *zap.Logger
}

// Commands is the full set of handlers sharing one store, cache and locker.
type Commands struct {
	CreateRoom    *CreateRoomHandler
	JoinRoom      *JoinRoomHandler
	LeaveRoom     *LeaveRoomHandler
	StartGame     *StartGameHandler
	StartRound    *StartRoundHandler
	CompleteRound *CompleteRoundHandler
	SubmitGuess   *SubmitGuessHandler
	ApplyStroke   *ApplyStrokeHandler
	UndoStroke    *UndoStrokeHandler
	ClearCanvas   *ClearCanvasHandler
	PurgeRoom     *PurgeRoomHandler
	Register      *RegisterHandler
	Login         *LoginHandler
	Queries       *Queries
}

func New(d Deps) *Commands {
	if d.Locker == nil {
		d.Locker = NewRoomLocker()
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	b := &base{store: d.Store, cache: d.Cache, locker: d.Locker, log: d.Log}

	return &Commands{
		CreateRoom:    &CreateRoomHandler{b},
		JoinRoom:      &JoinRoomHandler{b},
		LeaveRoom:     &LeaveRoomHandler{b},
		StartGame:     &StartGameHandler{b},
		StartRound:    &StartRoundHandler{b},
		CompleteRound: &CompleteRoundHandler{b},
		SubmitGuess:   &SubmitGuessHandler{b},
		ApplyStroke:   &ApplyStrokeHandler{b},
		UndoStroke:    &UndoStrokeHandler{b},
		ClearCanvas:   &ClearCanvasHandler{b},
		PurgeRoom:     &PurgeRoomHandler{b},
		Register:      &RegisterHandler{base: b, hasher: d.Hasher},
		Login:         &LoginHandler{base: b, hasher: d.Hasher, tokens: d.Tokens},
		Queries:       &Queries{b},
	}
}

type base struct {
	store  Store
	cache  roomstate.Store
	locker *RoomLocker
	log    *zap.Logger
}

// project writes the room's derived state to the cache. The aggregate is
// already persisted, so a failure is only logged.
func (b *base) project(ctx context.Context, room *game.Room) roomstate.RoomState {
	state := roomstate.Project(room)
	if err := b.cache.SetRoomState(ctx, state); err != nil {
		b.log.Warn("failed to write room state", zap.String("room_id", room.ID()), zap.Error(err))
	}
	return state
}

func (b *base) cacheFailed(op, roomID string, err error) {
	if err != nil {
		b.log.Warn("room state update failed",
			zap.String("op", op),
			zap.String("room_id", roomID),
			zap.Error(err),
		)
	}
}

func (b *base) persistFailed(what string, err error) {
	b.log.Error("persistence failure", zap.String("what", what), zap.Error(err))
}

// drawerRound authorizes a drawing action from the cached room state and
// returns the round being drawn on. A missing cache entry is rebuilt from the
// stored room first.
func drawerRound[T any](ctx context.Context, b *base, roomID, playerID, action string) (*game.Round, *Result[T]) {
	fail := func(r Result[T]) (*game.Round, *Result[T]) { return nil, &r }

	state, err := b.cache.GetRoomState(ctx, roomID)
	if err != nil {
		if !errors.Is(err, roomstate.ErrNoState) {
			b.log.Warn("room state read failed, rebuilding", zap.String("room_id", roomID), zap.Error(err))
		}
		room, err := b.store.FindRoomFull(ctx, roomID)
		if isNotFound(err) {
			return fail(Fail[T](KindNotFound, "room not found"))
		}
		if err != nil {
			b.persistFailed("load room", err)
			return fail(persistenceFailure[T]("room lookup", err))
		}
		b.log.Info("rebuilt missing room state", zap.String("room_id", roomID))
		state = b.project(ctx, room)
	}

	if !state.CanDraw(playerID) {
		return fail(Failf[T](KindNotAuthorized, "only the current drawer can %s", action))
	}
	if state.RoundStatus != game.RoundActive {
		return fail(Failf[T](KindInvalidState, "cannot %s when round is not active", action))
	}

	rd, err := b.store.FindRound(ctx, state.CurrentRoundID)
	if isNotFound(err) {
		return fail(Fail[T](KindNotFound, "round not found"))
	}
	if err != nil {
		b.persistFailed("load round", err)
		return fail(persistenceFailure[T]("round lookup", err))
	}
	if !rd.IsActive() {
		return fail(Fail[T](KindInvalidState, "round is not active"))
	}
	return rd, nil
}

// lockRoom takes the room's lock. The error only happens when ctx ends first.
func lockRoom[T any](ctx context.Context, b *base, roomID string) (func(), *Result[T]) {
	unlock, err := b.locker.Lock(ctx, roomID)
	if err != nil {
		r := Failf[T](KindInvalidState, "room %s is busy: %v", roomID, err)
		return nil, &r
	}
	return unlock, nil
}
