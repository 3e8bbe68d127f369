// Package command holds one handler per player action. Handlers never return
// Go errors to their callers: every outcome is a Result carrying either data
// and the events it produced, or an error kind and message.
package command

import (
	"errors"
	"fmt"

	"github.com/npezzotti/go-drawsync/internal/events"
	"github.com/npezzotti/go-drawsync/internal/game"
)

type ErrorKind string

const (
	KindValidation         ErrorKind = "VALIDATION_ERROR"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindInvalidState       ErrorKind = "INVALID_STATE"
	KindNotAuthorized      ErrorKind = "NOT_AUTHORIZED"
	KindAlreadyJoined      ErrorKind = "ALREADY_JOINED"
	KindAlreadyGuessed     ErrorKind = "ALREADY_GUESSED"
	KindRoomFull           ErrorKind = "ROOM_FULL"
	KindDomain             ErrorKind = "DOMAIN_ERROR"
	KindPersistence        ErrorKind = "PERSISTENCE_ERROR"
	KindEmailTaken         ErrorKind = "EMAIL_TAKEN"
	KindInvalidCredentials ErrorKind = "INVALID_CREDENTIALS"
)

// Error is the failure side of a Result as a Go error.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

type Result[T any] struct {
	Data    T
	Events  []events.Event
	Message string
	Kind    ErrorKind
}

func Ok[T any](data T, evs ...events.Event) Result[T] {
	return Result[T]{Data: data, Events: evs}
}

func Fail[T any](kind ErrorKind, msg string) Result[T] {
	return Result[T]{Kind: kind, Message: msg}
}

func Failf[T any](kind ErrorKind, format string, args ...any) Result[T] {
	return Fail[T](kind, fmt.Sprintf(format, args...))
}

func (r Result[T]) Succeeded() bool {
	return r.Kind == ""
}

// Err returns the failure as an *Error, or nil on success.
func (r Result[T]) Err() error {
	if r.Succeeded() {
		return nil
	}
	return &Error{Kind: r.Kind, Message: r.Message}
}

// domainKind classifies an error raised by an aggregate method.
func domainKind(err error) ErrorKind {
	switch {
	case errors.Is(err, game.ErrValidation):
		return KindValidation
	case errors.Is(err, game.ErrRoomFull):
		return KindRoomFull
	case errors.Is(err, game.ErrAlreadyJoined):
		return KindAlreadyJoined
	case errors.Is(err, game.ErrAlreadyGuessed):
		return KindAlreadyGuessed
	case errors.Is(err, game.ErrInvalidState), errors.Is(err, game.ErrNoCurrentRound):
		return KindInvalidState
	default:
		return KindDomain
	}
}

func domainFailure[T any](err error) Result[T] {
	return Fail[T](domainKind(err), err.Error())
}

func persistenceFailure[T any](what string, err error) Result[T] {
	return Failf[T](KindPersistence, "failed to persist %s: %v", what, err)
}
