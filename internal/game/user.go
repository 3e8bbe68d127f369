package game

import (
	"fmt"
	"time"
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	TotalScore   int
	CreatedAt    time.Time
}

func NewUser(name, email, passwordHash string) *User {
	return &User{
		ID:           NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    Now(),
	}
}

// AddScore increments the cumulative score. Scores never decrease.
func (u *User) AddScore(points int) error {
	if points < 0 {
		return fmt.Errorf("%w: points cannot be negative", ErrValidation)
	}
	u.TotalScore += points
	return nil
}
