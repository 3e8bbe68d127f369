package api

import (
	"context"
	"net/http"
	"time"

	"github.com/npezzotti/go-drawsync/internal/command"
	"github.com/npezzotti/go-drawsync/internal/types"
)

const tokenCookieKey = "token"

type contextKey string

const userIdKey contextKey = "user-id"

func WithUserId(ctx context.Context, userId string) context.Context {
	return context.WithValue(ctx, userIdKey, userId)
}

func UserId(ctx context.Context) (string, bool) {
	userId, ok := ctx.Value(userIdKey).(string)
	return userId, ok && userId != ""
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *App) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	res := s.cmds.Register.Handle(r.Context(), command.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	writeResult(s, w, r, http.StatusCreated, res, func(d command.RegisterData) any {
		return types.UserFrom(d.User)
	})
}

func (s *App) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	res := s.cmds.Login.Handle(r.Context(), command.LoginInput{Email: req.Email, Password: req.Password})
	if res.Succeeded() {
		http.SetCookie(w, createJwtCookie(res.Data.Token, s.tokenExp))
	}
	writeResult(s, w, r, http.StatusOK, res, func(d command.LoginData) any {
		return types.UserFrom(d.User)
	})
}

func (s *App) session(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	res := s.cmds.Queries.GetUser(r.Context(), userId)
	if !res.Succeeded() {
		errResp := NewCommandError(res.Kind, res.Message)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	s.writeJson(w, http.StatusOK, types.UserFrom(res.Data))
}

func createJwtCookie(tokenString string, exp time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(exp),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *App) logout(w http.ResponseWriter, _ *http.Request) {
	// an expired cookie makes the browser drop the token
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieKey,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
