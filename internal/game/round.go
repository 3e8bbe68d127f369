package game

import (
	"fmt"
	"slices"
	"time"
)

const minWordLength = 2

// Round is one turn of a room. Its state only changes through the methods
// below, which check the round's status first.
type Round struct {
	id        string
	roomID    string
	roundNo   int
	status    RoundStatus
	word      string
	startedAt time.Time
	drawerID  string
	strokes   []*Stroke
	guesses   []*Guess
}

// RoundRecord is the storable form of a Round.
type RoundRecord struct {
	ID        string
	RoomID    string
	RoundNo   int
	Status    RoundStatus
	Word      string
	StartedAt time.Time
	DrawerID  string
	Strokes   []*Stroke
	Guesses   []*Guess
}

func newRound(roomID string, roundNo int) *Round {
	return &Round{
		id:        NewID(),
		roomID:    roomID,
		roundNo:   roundNo,
		status:    RoundPending,
		startedAt: Now(),
	}
}

func RestoreRound(rec RoundRecord) *Round {
	status := rec.Status
	if status == "" {
		status = RoundPending
	}
	return &Round{
		id:        rec.ID,
		roomID:    rec.RoomID,
		roundNo:   rec.RoundNo,
		status:    status,
		word:      rec.Word,
		startedAt: rec.StartedAt,
		drawerID:  rec.DrawerID,
		strokes:   slices.Clone(rec.Strokes),
		guesses:   slices.Clone(rec.Guesses),
	}
}

func (r *Round) Record() RoundRecord {
	return RoundRecord{
		ID:        r.id,
		RoomID:    r.roomID,
		RoundNo:   r.roundNo,
		Status:    r.status,
		Word:      r.word,
		StartedAt: r.startedAt,
		DrawerID:  r.drawerID,
		Strokes:   r.Strokes(),
		Guesses:   r.Guesses(),
	}
}

func (r *Round) ID() string { return r.id }
func (r *Round) RoomID() string { return r.roomID }
func (r *Round) RoundNo() int { return r.roundNo }
func (r *Round) Status() RoundStatus { return r.status }
func (r *Round) Word() string { return r.word }
func (r *Round) StartedAt() time.Time { return r.startedAt }
func (r *Round) DrawerID() string { return r.drawerID }
func (r *Round) IsActive() bool { return r.status == RoundActive }
func (r *Round) Strokes() []*Stroke { return slices.Clone(r.strokes) }
func (r *Round) Guesses() []*Guess { return slices.Clone(r.guesses) }

func (r *Round) CorrectGuesses() []*Guess {
	var correct []*Guess
	for _, g := range r.guesses {
		if g.IsCorrect {
			correct = append(correct, g)
		}
	}
	return correct
}

// HasCorrectGuess reports whether the player already guessed the word.
func (r *Round) HasCorrectGuess(playerID string) bool {
	return slices.ContainsFunc(r.guesses, func(g *Guess) bool {
		return g.PlayerID == playerID && g.IsCorrect
	})
}

func (r *Round) requireStatus(want RoundStatus) error {
	if r.status != want {
		return fmt.Errorf("%w: round %s is %s, expected %s", ErrInvalidState, r.id, r.status, want)
	}
	return nil
}

func (r *Round) SetWord(word string) error {
	if err := r.requireStatus(RoundPending); err != nil {
		return err
	}
	w := NormalizeWord(word)
	if len([]rune(w)) < minWordLength {
		return fmt.Errorf("%w: word must be at least %d characters", ErrValidation, minWordLength)
	}
	r.word = w
	return nil
}

func (r *Round) SetDrawer(playerID string) error {
	if err := r.requireStatus(RoundPending); err != nil {
		return err
	}
	if playerID == "" {
		return fmt.Errorf("%w: drawer id is required", ErrValidation)
	}
	r.drawerID = playerID
	return nil
}

func (r *Round) Start() error {
	if err := r.requireStatus(RoundPending); err != nil {
		return err
	}
	if r.word == "" {
		return fmt.Errorf("%w: word must be set before starting", ErrInvalidState)
	}
	if r.drawerID == "" {
		return fmt.Errorf("%w: drawer must be set before starting", ErrInvalidState)
	}
	r.status = RoundActive
	r.startedAt = Now()
	return nil
}

func (r *Round) Complete() error {
	if err := r.requireStatus(RoundActive); err != nil {
		return err
	}
	r.status = RoundCompleted
	return nil
}

func (r *Round) AddStroke(s *Stroke) error {
	if err := r.requireStatus(RoundActive); err != nil {
		return err
	}
	r.strokes = append(r.strokes, s)
	return nil
}

// AddGuess records the guess and reports whether it matched the word.
func (r *Round) AddGuess(g *Guess) (bool, error) {
	if err := r.requireStatus(RoundActive); err != nil {
		return false, err
	}
	if r.HasCorrectGuess(g.PlayerID) {
		return false, fmt.Errorf("%w: player %s", ErrAlreadyGuessed, g.PlayerID)
	}
	g.RoundID = r.id
	r.guesses = append(r.guesses, g)
	return g.check(r.word), nil
}

// handOff moves the pen of an active round to another player.
func (r *Round) handOff(playerID string) {
	if r.status == RoundActive {
		r.drawerID = playerID
	}
}
