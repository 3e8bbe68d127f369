package game

import (
	"strings"
	"time"
)

type Guess struct {
	ID          string
	RoundID     string
	PlayerID    string
	Text        string
	SubmittedAt time.Time
	IsCorrect   bool
}

func NewGuess(roundID, playerID, text string) *Guess {
	return &Guess{
		ID:          NewID(),
		RoundID:     roundID,
		PlayerID:    playerID,
		Text:        NormalizeWord(text),
		SubmittedAt: Now(),
	}
}

// NormalizeWord trims and lowercases a word or guess so they compare exactly.
func NormalizeWord(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (g *Guess) check(word string) bool {
	g.IsCorrect = g.Text == NormalizeWord(word)
	return g.IsCorrect
}
