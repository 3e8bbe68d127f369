package command

import (
	"context"
	"strings"

	"github.com/npezzotti/go-drawsync/internal/events"
	"github.com/npezzotti/go-drawsync/internal/game"
)

const (
	basePoints     = 100
	pointDecrement = 20
	minPoints      = 20
)

// Points is the award of a correct guess given how many correct guesses the
// round already had.
func Points(priorCorrect int) int {
	return max(basePoints-pointDecrement*priorCorrect, minPoints)
}

type SubmitGuessInput struct {
	RoundID  string
	PlayerID string
	Text     string
}

type SubmitGuessData struct {
	Guess         *game.Guess
	IsCorrect     bool
	PointsAwarded int
	// Player carries the guesser's room score after the award.
	Player *game.Player
}

type SubmitGuessHandler struct{ *base }

func (h *SubmitGuessHandler) Handle(ctx context.Context, in SubmitGuessInput) Result[SubmitGuessData] {
	if in.RoundID == "" {
		return Fail[SubmitGuessData](KindValidation, "round id is required")
	}
	if in.PlayerID == "" {
		return Fail[SubmitGuessData](KindValidation, "player id is required")
	}
	if strings.TrimSpace(in.Text) == "" {
		return Fail[SubmitGuessData](KindValidation, "guess text is required")
	}

	// The round names the room to lock; it is read again under the lock.
	peek, err := h.store.FindRound(ctx, in.RoundID)
	if isNotFound(err) {
		return Fail[SubmitGuessData](KindNotFound, "round not found")
	}
	if err != nil {
		h.persistFailed("load round", err)
		return persistenceFailure[SubmitGuessData]("round lookup", err)
	}

	unlock, failed := lockRoom[SubmitGuessData](ctx, h.base, peek.RoomID())
	if failed != nil {
		return *failed
	}
	defer unlock()

	rd, err := h.store.FindRoundWithGuesses(ctx, in.RoundID)
	if isNotFound(err) {
		return Fail[SubmitGuessData](KindNotFound, "round not found")
	}
	if err != nil {
		h.persistFailed("load round", err)
		return persistenceFailure[SubmitGuessData]("round lookup", err)
	}

	player, err := h.store.FindPlayer(ctx, in.PlayerID)
	if isNotFound(err) {
		return Fail[SubmitGuessData](KindNotFound, "player not found")
	}
	if err != nil {
		h.persistFailed("load player", err)
		return persistenceFailure[SubmitGuessData]("player lookup", err)
	}

	switch {
	case player.RoomID != rd.RoomID():
		return Fail[SubmitGuessData](KindNotAuthorized, "player is not in this round's room")
	case !rd.IsActive():
		return Fail[SubmitGuessData](KindInvalidState, "round is not active")
	case rd.DrawerID() == in.PlayerID:
		return Fail[SubmitGuessData](KindNotAuthorized, "drawer cannot guess")
	}

	guessed, err := h.store.HasGuessedCorrectly(ctx, rd.ID(), in.PlayerID)
	if err != nil {
		h.persistFailed("guess lookup", err)
		return persistenceFailure[SubmitGuessData]("guess lookup", err)
	}
	if guessed {
		return Fail[SubmitGuessData](KindAlreadyGuessed, "player has already guessed correctly")
	}

	guess := game.NewGuess(rd.ID(), in.PlayerID, in.Text)
	correct, err := rd.AddGuess(guess)
	if err != nil {
		return domainFailure[SubmitGuessData](err)
	}

	points := 0
	if correct {
		points = Points(len(rd.CorrectGuesses()) - 1)
		if res := h.award(ctx, guess, player, points); res != nil {
			return *res
		}
	} else if err := h.store.SaveGuess(ctx, guess); err != nil {
		h.persistFailed("guess", err)
		return persistenceFailure[SubmitGuessData]("guess", err)
	}

	evs := []events.Event{events.GuessSubmitted(rd.RoomID(), events.GuessSubmittedData{
		RoundID:       rd.ID(),
		GuessID:       guess.ID,
		PlayerID:      in.PlayerID,
		GuessText:     guess.Text,
		IsCorrect:     correct,
		PointsAwarded: points,
	})}
	if correct {
		evs = append(evs, events.CorrectGuess(rd.RoomID(), events.CorrectGuessData{
			RoundID:       rd.ID(),
			PlayerID:      in.PlayerID,
			PointsAwarded: points,
		}))
	}

	return Ok(SubmitGuessData{Guess: guess, IsCorrect: correct, PointsAwarded: points, Player: player}, evs...)
}

// award credits a correct guess to the player and their user, then stores
// the guess and both scores together. player is updated in place.
func (h *SubmitGuessHandler) award(ctx context.Context, guess *game.Guess, player *game.Player, points int) *Result[SubmitGuessData] {
	user, err := h.store.FindUserByID(ctx, player.UserID)
	if isNotFound(err) {
		res := Fail[SubmitGuessData](KindNotFound, "user not found")
		return &res
	}
	if err != nil {
		h.persistFailed("load user", err)
		res := persistenceFailure[SubmitGuessData]("user lookup", err)
		return &res
	}

	if err := player.AddScore(points); err != nil {
		res := Fail[SubmitGuessData](KindDomain, err.Error())
		return &res
	}
	if err := user.AddScore(points); err != nil {
		res := Fail[SubmitGuessData](KindDomain, err.Error())
		return &res
	}

	if err := h.store.SaveCorrectGuess(ctx, guess, player.ID, user.ID, points); err != nil {
		h.persistFailed("correct guess", err)
		res := persistenceFailure[SubmitGuessData]("guess", err)
		return &res
	}
	return nil
}
