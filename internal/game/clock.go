package game

import (
	"time"

	"github.com/google/uuid"
)

// Now returns the current UTC time rounded to the millisecond, the precision
// every store keeps.
func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

func NewID() string {
	return uuid.NewString()
}
