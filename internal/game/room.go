package game

import (
	"fmt"
	"slices"
	"time"
)

const (
	MinRoundCount     = 1
	MaxRoundCount     = 10
	MinPlayerMaxCount = 2
	MaxPlayerMaxCount = 16

	DefaultRoundCount     = 3
	DefaultPlayerMaxCount = 8

	minPlayersToStart = 2
)

// Room is a game session. Players are kept in join order, which is the order
// the drawer rotation walks.
type Room struct {
	id             string
	status         RoomStatus
	createdAt      time.Time
	roundCount     int
	playerMaxCount int
	ownerID        string
	currentRoundID string
	players        []*Player
	rounds         []*Round
}

// RoomRecord is the storable form of a Room.
type RoomRecord struct {
	ID             string
	Status         RoomStatus
	CreatedAt      time.Time
	RoundCount     int
	PlayerMaxCount int
	OwnerID        string
	CurrentRoundID string
	Players        []*Player
	Rounds         []*Round
}

func ValidateRoomSize(roundCount, playerMaxCount int) error {
	if roundCount < MinRoundCount || roundCount > MaxRoundCount {
		return fmt.Errorf("%w: round count must be between %d and %d", ErrValidation, MinRoundCount, MaxRoundCount)
	}
	if playerMaxCount < MinPlayerMaxCount || playerMaxCount > MaxPlayerMaxCount {
		return fmt.Errorf("%w: player max count must be between %d and %d", ErrValidation, MinPlayerMaxCount, MaxPlayerMaxCount)
	}
	return nil
}

func NewRoom(roundCount, playerMaxCount int) (*Room, error) {
	if err := ValidateRoomSize(roundCount, playerMaxCount); err != nil {
		return nil, err
	}
	return &Room{
		id:             NewID(),
		status:         RoomWaiting,
		createdAt:      Now(),
		roundCount:     roundCount,
		playerMaxCount: playerMaxCount,
	}, nil
}

func RestoreRoom(rec RoomRecord) *Room {
	status := rec.Status
	if status == "" {
		status = RoomWaiting
	}
	return &Room{
		id:             rec.ID,
		status:         status,
		createdAt:      rec.CreatedAt,
		roundCount:     rec.RoundCount,
		playerMaxCount: rec.PlayerMaxCount,
		ownerID:        rec.OwnerID,
		currentRoundID: rec.CurrentRoundID,
		players:        slices.Clone(rec.Players),
		rounds:         slices.Clone(rec.Rounds),
	}
}

func (r *Room) Record() RoomRecord {
	return RoomRecord{
		ID:             r.id,
		Status:         r.status,
		CreatedAt:      r.createdAt,
		RoundCount:     r.roundCount,
		PlayerMaxCount: r.playerMaxCount,
		OwnerID:        r.ownerID,
		CurrentRoundID: r.currentRoundID,
		Players:        r.Players(),
		Rounds:         r.Rounds(),
	}
}

// WithoutOwner returns a shallow copy whose owner reference is cleared. It is
// what gets stored before the owning player row exists.
func (r *Room) WithoutOwner() *Room {
	c := *r
	c.ownerID = ""
	return &c
}

func (r *Room) ID() string { return r.id }
func (r *Room) Status() RoomStatus { return r.status }
func (r *Room) CreatedAt() time.Time { return r.createdAt }
func (r *Room) RoundCount() int { return r.roundCount }
func (r *Room) PlayerMaxCount() int { return r.playerMaxCount }
func (r *Room) OwnerID() string { return r.ownerID }
func (r *Room) CurrentRoundID() string { return r.currentRoundID }
func (r *Room) PlayerCount() int { return len(r.players) }
func (r *Room) IsFull() bool { return len(r.players) >= r.playerMaxCount }
func (r *Room) IsInProgress() bool { return r.status == RoomInProgress }
func (r *Room) Players() []*Player { return slices.Clone(r.players) }
func (r *Room) Rounds() []*Round { return slices.Clone(r.rounds) }

func (r *Room) PlayerIDs() []string {
	ids := make([]string, len(r.players))
	for i, p := range r.players {
		ids[i] = p.ID
	}
	return ids
}

func (r *Room) Player(playerID string) *Player {
	for _, p := range r.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (r *Room) PlayerByUser(userID string) *Player {
	for _, p := range r.players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r *Room) HasUser(userID string) bool {
	return r.PlayerByUser(userID) != nil
}

// CurrentDrawer is the player in the DRAWING state, or nil.
func (r *Room) CurrentDrawer() *Player {
	for _, p := range r.players {
		if p.IsDrawer() {
			return p
		}
	}
	return nil
}

func (r *Room) CurrentRound() *Round {
	if r.currentRoundID == "" {
		return nil
	}
	for _, rd := range r.rounds {
		if rd.id == r.currentRoundID {
			return rd
		}
	}
	return nil
}

// ActiveRound scans every round for one in the ACTIVE state.
func (r *Room) ActiveRound() *Round {
	for _, rd := range r.rounds {
		if rd.IsActive() {
			return rd
		}
	}
	return nil
}

// SetCurrentRound points the room at one of its own rounds.
func (r *Room) SetCurrentRound(roundID string) error {
	for _, rd := range r.rounds {
		if rd.id == roundID {
			r.currentRoundID = roundID
			return nil
		}
	}
	return fmt.Errorf("%w: round %s does not belong to room %s", ErrInvalidState, roundID, r.id)
}

func (r *Room) AddPlayer(p *Player) error {
	if r.status != RoomWaiting {
		return fmt.Errorf("%w: room %s is %s", ErrInvalidState, r.id, r.status)
	}
	if r.IsFull() {
		return fmt.Errorf("%w: max %d players", ErrRoomFull, r.playerMaxCount)
	}
	if r.HasUser(p.UserID) {
		return fmt.Errorf("%w: user %s in room %s", ErrAlreadyJoined, p.UserID, r.id)
	}

	p.RoomID = r.id
	r.players = append(r.players, p)
	if r.ownerID == "" {
		r.ownerID = p.ID
	}
	return nil
}

// RemovePlayer removes and returns the player, or nil when it is not in the
// room. The owner moves to the earliest remaining player. When the drawer of
// a game in progress leaves, the first guessing player takes over the pen and
// the active round.
func (r *Room) RemovePlayer(playerID string) *Player {
	idx := slices.IndexFunc(r.players, func(p *Player) bool { return p.ID == playerID })
	if idx < 0 {
		return nil
	}
	removed := r.players[idx]
	r.players = slices.Delete(r.players, idx, idx+1)

	if r.ownerID == playerID {
		r.ownerID = ""
		if len(r.players) > 0 {
			r.ownerID = r.players[0].ID
		}
	}

	if removed.IsDrawer() && r.status == RoomInProgress {
		for _, p := range r.players {
			if p.State == PlayerGuessing {
				p.State = PlayerDrawing
				if rd := r.CurrentRound(); rd != nil {
					rd.handOff(p.ID)
				}
				break
			}
		}
	}
	return removed
}

func (r *Room) BeginGame() error {
	if r.status != RoomWaiting {
		return fmt.Errorf("%w: room %s is %s", ErrInvalidState, r.id, r.status)
	}
	if len(r.players) < minPlayersToStart {
		return fmt.Errorf("%w: at least %d players are needed to start", ErrInvalidState, minPlayersToStart)
	}
	r.status = RoomInProgress
	return nil
}

// CreateNextRound appends a pending round whose drawer is picked round-robin
// over the current player order.
func (r *Room) CreateNextRound() (*Round, error) {
	if len(r.rounds) >= r.roundCount {
		return nil, fmt.Errorf("%w: room %s already played %d rounds", ErrRoundLimit, r.id, r.roundCount)
	}
	if len(r.players) == 0 {
		return nil, fmt.Errorf("%w: room %s has no players", ErrInvalidState, r.id)
	}

	roundNo := len(r.rounds) + 1
	drawer := r.players[(roundNo-1)%len(r.players)]
	for _, p := range r.players {
		p.State = PlayerGuessing
	}
	drawer.State = PlayerDrawing

	rd := newRound(r.id, roundNo)
	if err := rd.SetDrawer(drawer.ID); err != nil {
		return nil, err
	}
	r.rounds = append(r.rounds, rd)
	r.currentRoundID = rd.id
	return rd, nil
}

// CompleteCurrentRound completes the current round and returns every player
// to WAITING. The room finishes once all of its rounds were played.
func (r *Room) CompleteCurrentRound() (*Round, error) {
	rd := r.CurrentRound()
	if rd == nil {
		return nil, fmt.Errorf("%w: room %s", ErrNoCurrentRound, r.id)
	}
	if err := rd.Complete(); err != nil {
		return nil, err
	}
	for _, p := range r.players {
		p.State = PlayerWaiting
	}
	if len(r.rounds) >= r.roundCount {
		r.status = RoomFinished
	}
	return rd, nil
}
