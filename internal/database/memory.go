package database

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/npezzotti/go-drawsync/internal/canvas"
	"github.com/npezzotti/go-drawsync/internal/command"
	"github.com/npezzotti/go-drawsync/internal/game"
)

type memRoom struct {
	rec       game.RoomRecord
	updatedAt time.Time
}

type memPlayer struct {
	p     game.Player
	order int
}

// MemoryStore keeps every table in maps. It behaves like PgStore, including
// unique constraints and cascading deletes, and never hands out pointers to
// its own rows.
type MemoryStore struct {
	mu sync.RWMutex

	now       func() time.Time
	joinOrder int

	users   map[string]game.User
	rooms   map[string]*memRoom
	players map[string]*memPlayer
	rounds  map[string]game.RoundRecord
	guesses map[string][]game.Guess
	strokes map[string][]*game.Stroke
	events  map[string][]game.StrokeEvent
}

var _ command.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		users:   make(map[string]game.User),
		rooms:   make(map[string]*memRoom),
		players: make(map[string]*memPlayer),
		rounds:  make(map[string]game.RoundRecord),
		guesses: make(map[string][]game.Guess),
		strokes: make(map[string][]*game.Stroke),
		events:  make(map[string][]game.StrokeEvent),
	}
}

// SetClock replaces the clock used for rooms' last-update times.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func duplicate(what string) error {
	return fmt.Errorf("%w: %s", command.ErrDuplicate, what)
}

func (s *MemoryStore) FindUserByID(_ context.Context, id string) (*game.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, command.ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*game.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, command.ErrNotFound
}

func (s *MemoryStore) SaveUser(_ context.Context, u *game.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return duplicate("users_pkey")
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return duplicate("users_email_key")
		}
	}
	s.users[u.ID] = *u
	return nil
}

// roomPlayers returns copies of a room's players in join order. Callers hold mu.
func (s *MemoryStore) roomPlayers(roomID string) []*game.Player {
	var rows []*memPlayer
	for _, mp := range s.players {
		if mp.p.RoomID == roomID {
			rows = append(rows, mp)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].order < rows[j].order })

	players := make([]*game.Player, 0, len(rows))
	for _, mp := range rows {
		p := mp.p
		players = append(players, &p)
	}
	return players
}

func (s *MemoryStore) loadRoom(id string, withRounds bool) (*game.Room, error) {
	mr, ok := s.rooms[id]
	if !ok {
		return nil, command.ErrNotFound
	}
	rec := mr.rec
	rec.Players = s.roomPlayers(id)
	rec.Rounds = nil
	if withRounds {
		for _, rr := range s.rounds {
			if rr.RoomID == id {
				rec.Rounds = append(rec.Rounds, game.RestoreRound(rr))
			}
		}
		sort.Slice(rec.Rounds, func(i, j int) bool { return rec.Rounds[i].RoundNo() < rec.Rounds[j].RoundNo() })
	}
	return game.RestoreRoom(rec), nil
}

func (s *MemoryStore) FindRoom(_ context.Context, id string) (*game.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadRoom(id, false)
}

func (s *MemoryStore) FindRoomFull(_ context.Context, id string) (*game.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadRoom(id, true)
}

func (s *MemoryStore) RoomExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[id]
	return ok, nil
}

func (s *MemoryStore) ListFinishedRooms(_ context.Context, before time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []*memRoom
	for _, mr := range s.rooms {
		if mr.rec.Status == game.RoomFinished && mr.updatedAt.Before(before) {
			found = append(found, mr)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].updatedAt.Before(found[j].updatedAt) })

	ids := make([]string, 0, len(found))
	for _, mr := range found {
		ids = append(ids, mr.rec.ID)
	}
	return ids, nil
}

func (s *MemoryStore) SaveRoom(_ context.Context, room *game.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := room.Record()
	rec.Players = nil
	rec.Rounds = nil
	s.rooms[rec.ID] = &memRoom{rec: rec, updatedAt: s.now()}
	return nil
}

func (s *MemoryStore) DeleteRoom(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, id)
	for pid, mp := range s.players {
		if mp.p.RoomID == id {
			delete(s.players, pid)
		}
	}
	for rid, rr := range s.rounds {
		if rr.RoomID == id {
			delete(s.rounds, rid)
			delete(s.guesses, rid)
			delete(s.strokes, rid)
			delete(s.events, rid)
		}
	}
	return nil
}

func (s *MemoryStore) FindPlayer(_ context.Context, id string) (*game.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mp, ok := s.players[id]
	if !ok {
		return nil, command.ErrNotFound
	}
	p := mp.p
	return &p, nil
}

func (s *MemoryStore) FindPlayerInRoom(_ context.Context, roomID, userID string) (*game.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, mp := range s.players {
		if mp.p.RoomID == roomID && mp.p.UserID == userID {
			p := mp.p
			return &p, nil
		}
	}
	return nil, command.ErrNotFound
}

func (s *MemoryStore) HasGuessedCorrectly(_ context.Context, roundID, playerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.guesses[roundID] {
		if g.PlayerID == playerID && g.IsCorrect {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) SavePlayer(_ context.Context, p *game.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mp, ok := s.players[p.ID]; ok {
		mp.p.Score = p.Score
		mp.p.State = p.State
		return nil
	}
	for _, mp := range s.players {
		if mp.p.RoomID == p.RoomID && mp.p.UserID == p.UserID {
			return duplicate("players_room_id_user_id_key")
		}
	}
	s.joinOrder++
	s.players[p.ID] = &memPlayer{p: *p, order: s.joinOrder}
	return nil
}

func (s *MemoryStore) RemovePlayer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.players, id)
	for _, mr := range s.rooms {
		if mr.rec.OwnerID == id {
			mr.rec.OwnerID = ""
		}
	}
	for rid, rr := range s.rounds {
		if rr.DrawerID == id {
			rr.DrawerID = ""
			s.rounds[rid] = rr
		}
	}
	for rid, gs := range s.guesses {
		for i := range gs {
			if gs[i].PlayerID == id {
				gs[i].PlayerID = ""
			}
		}
		s.guesses[rid] = gs
	}
	return nil
}

func (s *MemoryStore) FindRound(_ context.Context, id string) (*game.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rr, ok := s.rounds[id]
	if !ok {
		return nil, command.ErrNotFound
	}
	return game.RestoreRound(rr), nil
}

func (s *MemoryStore) FindRoundWithGuesses(_ context.Context, id string) (*game.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rr, ok := s.rounds[id]
	if !ok {
		return nil, command.ErrNotFound
	}
	for _, g := range s.guesses[id] {
		rr.Guesses = append(rr.Guesses, &g)
	}
	return game.RestoreRound(rr), nil
}

func (s *MemoryStore) FindActiveRound(_ context.Context, roomID string) (*game.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rr := range s.rounds {
		if rr.RoomID == roomID && rr.Status == game.RoundActive {
			return game.RestoreRound(rr), nil
		}
	}
	return nil, command.ErrNotFound
}

func (s *MemoryStore) SaveRound(_ context.Context, rd *game.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := rd.Record()
	rec.Strokes = nil
	rec.Guesses = nil
	for id, other := range s.rounds {
		if id == rec.ID || other.RoomID != rec.RoomID {
			continue
		}
		if other.RoundNo == rec.RoundNo {
			return duplicate("rounds_room_id_round_no_key")
		}
		if other.Status == game.RoundActive && rec.Status == game.RoundActive {
			return duplicate("rounds_one_active_per_room")
		}
	}
	s.rounds[rec.ID] = rec
	return nil
}

func (s *MemoryStore) UpdateRoundStatus(_ context.Context, roundID string, status game.RoundStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rr, ok := s.rounds[roundID]
	if !ok {
		return command.ErrNotFound
	}
	rr.Status = status
	s.rounds[roundID] = rr
	return nil
}

func (s *MemoryStore) SaveGuess(_ context.Context, g *game.Guess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkGuess(g); err != nil {
		return err
	}
	s.guesses[g.RoundID] = append(s.guesses[g.RoundID], *g)
	return nil
}

func (s *MemoryStore) SaveCorrectGuess(_ context.Context, g *game.Guess, playerID, userID string, points int) error {
	if points < 0 {
		return fmt.Errorf("score delta %d is negative", points)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkGuess(g); err != nil {
		return err
	}
	mp, ok := s.players[playerID]
	if !ok {
		return command.ErrNotFound
	}
	u, ok := s.users[userID]
	if !ok {
		return command.ErrNotFound
	}

	s.guesses[g.RoundID] = append(s.guesses[g.RoundID], *g)
	mp.p.Score += points
	u.TotalScore += points
	s.users[userID] = u
	return nil
}

// checkGuess enforces the guesses table's unique constraints. Callers hold mu.
func (s *MemoryStore) checkGuess(g *game.Guess) error {
	for _, other := range s.guesses[g.RoundID] {
		if other.ID == g.ID {
			return duplicate("guesses_pkey")
		}
		if g.IsCorrect && other.IsCorrect && g.PlayerID != "" && other.PlayerID == g.PlayerID {
			return duplicate("guesses_one_correct_per_player")
		}
	}
	return nil
}

func (s *MemoryStore) NextStrokeSeq(_ context.Context, roundID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return canvas.NextSeq(s.events[roundID]), nil
}

func (s *MemoryStore) ListStrokeEvents(_ context.Context, roundID string) ([]game.StrokeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs := slices.Clone(s.events[roundID])
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].Seq < evs[j].Seq })
	return evs, nil
}

func (s *MemoryStore) ListStrokes(_ context.Context, roundID string) ([]*game.Stroke, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	strokes := make([]*game.Stroke, 0, len(s.strokes[roundID]))
	for _, st := range s.strokes[roundID] {
		strokes = append(strokes, game.RestoreStroke(st.ID, st.RoundID, st.CreatedAt, st.Points(), st.Style))
	}
	return strokes, nil
}

func (s *MemoryStore) SaveStroke(_ context.Context, st *game.Stroke) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.strokes[st.RoundID] {
		if other.ID == st.ID {
			return duplicate("strokes_pkey")
		}
	}
	s.strokes[st.RoundID] = append(s.strokes[st.RoundID],
		game.RestoreStroke(st.ID, st.RoundID, st.CreatedAt, st.Points(), st.Style))
	return nil
}

func (s *MemoryStore) SaveStrokeEvent(_ context.Context, ev *game.StrokeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.events[ev.RoundID] {
		if other.Seq == ev.Seq {
			return duplicate("stroke_events_round_id_seq_key")
		}
	}
	s.events[ev.RoundID] = append(s.events[ev.RoundID], *ev)
	return nil
}
