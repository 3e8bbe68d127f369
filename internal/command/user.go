package command

import (
	"context"
	"errors"
	"strings"

	"github.com/npezzotti/go-drawsync/internal/auth"
	"github.com/npezzotti/go-drawsync/internal/events"
	"github.com/npezzotti/go-drawsync/internal/game"
)

const (
	minNameLength     = 2
	minPasswordLength = 6
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type RegisterData struct {
	User *game.User
}

type RegisterHandler struct {
	*base
	hasher auth.PasswordHasher
}

func (h *RegisterHandler) Handle(ctx context.Context, in RegisterInput) Result[RegisterData] {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case len([]rune(name)) < minNameLength:
		return Failf[RegisterData](KindValidation, "name must be at least %d characters", minNameLength)
	case !strings.Contains(email, "@"):
		return Fail[RegisterData](KindValidation, "a valid email is required")
	case len(in.Password) < minPasswordLength:
		return Failf[RegisterData](KindValidation, "password must be at least %d characters", minPasswordLength)
	}

	_, err := h.store.FindUserByEmail(ctx, email)
	if err == nil {
		return Fail[RegisterData](KindEmailTaken, "email is already registered")
	}
	if !isNotFound(err) {
		h.persistFailed("load user", err)
		return persistenceFailure[RegisterData]("user lookup", err)
	}

	hash, err := h.hasher.Hash(in.Password)
	if err != nil {
		return Fail[RegisterData](KindDomain, err.Error())
	}
	user := game.NewUser(name, email, hash)
	if err := h.store.SaveUser(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Fail[RegisterData](KindEmailTaken, "email is already registered")
		}
		h.persistFailed("user", err)
		return persistenceFailure[RegisterData]("user", err)
	}

	return Ok(RegisterData{User: user}, events.UserRegistered(user.ID, user.Email))
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginData struct {
	User  *game.User
	Token string
}

type LoginHandler struct {
	*base
	hasher auth.PasswordHasher
	tokens auth.TokenProvider
}

func (h *LoginHandler) Handle(ctx context.Context, in LoginInput) Result[LoginData] {
	if in.Email == "" || in.Password == "" {
		return Fail[LoginData](KindValidation, "email and password are required")
	}

	user, err := h.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if isNotFound(err) {
		return Fail[LoginData](KindInvalidCredentials, "invalid email or password")
	}
	if err != nil {
		h.persistFailed("load user", err)
		return persistenceFailure[LoginData]("user lookup", err)
	}
	if !h.hasher.Compare(user.PasswordHash, in.Password) {
		return Fail[LoginData](KindInvalidCredentials, "invalid email or password")
	}

	var token string
	if h.tokens != nil {
		token, err = h.tokens.Sign(auth.Claims{UserID: user.ID, Email: user.Email})
		if err != nil {
			return Fail[LoginData](KindDomain, err.Error())
		}
	}
	return Ok(LoginData{User: user, Token: token})
}
