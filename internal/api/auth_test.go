package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npezzotti/go-drawsync/internal/auth"
	"github.com/npezzotti/go-drawsync/internal/types"
)

func TestUserId(t *testing.T) {
	ctx := WithUserId(context.Background(), "user-1")
	userId, ok := UserId(ctx)
	assert.True(t, ok, "expected user id to be present in context")
	assert.Equal(t, "user-1", userId)

	_, ok = UserId(context.Background())
	assert.False(t, ok, "expected no user id in an empty context")

	_, ok = UserId(WithUserId(context.Background(), ""))
	assert.False(t, ok, "expected an empty user id to be rejected")
}

func Test_createJwtCookie(t *testing.T) {
	cookie := createJwtCookie("signed-token", time.Hour)

	assert.Equal(t, tokenCookieKey, cookie.Name)
	assert.Equal(t, "signed-token", cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.WithinDuration(t, time.Now().Add(time.Hour), cookie.Expires, time.Minute)
}

// signIn registers a user and returns the session cookie from logging in.
func (a *testApp) signIn(t *testing.T, name, email string) (*http.Cookie, types.User) {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/api/auth/register", nil, RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "hunter22",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = a.do(t, http.MethodPost, "/api/auth/login", nil, LoginRequest{Email: email, Password: "hunter22"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	for _, c := range rr.Result().Cookies() {
		if c.Name == tokenCookieKey {
			return c, decode[types.User](t, rr)
		}
	}
	t.Fatal("login did not set a token cookie")
	return nil, types.User{}
}

func TestRegisterHandler(t *testing.T) {
	a := newTestApp(t)

	t.Run("success", func(t *testing.T) {
		rr := a.do(t, http.MethodPost, "/api/auth/register", nil, RegisterRequest{
			Name:     "Ada",
			Email:    "Ada@Example.com",
			Password: "hunter22",
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		user := decode[types.User](t, rr)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "Ada", user.Name)
		assert.Equal(t, "ada@example.com", user.Email, "expected the email to be normalized")
		assert.NotContains(t, rr.Body.String(), "hunter22")
	})

	t.Run("email taken", func(t *testing.T) {
		rr := a.do(t, http.MethodPost, "/api/auth/register", nil, RegisterRequest{
			Name:     "Ada Again",
			Email:    "ada@example.com",
			Password: "hunter22",
		})
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "EMAIL_TAKEN", decode[ApiError](t, rr).Kind)
	})

	t.Run("validation", func(t *testing.T) {
		rr := a.do(t, http.MethodPost, "/api/auth/register", nil, RegisterRequest{
			Name:     "Bo",
			Email:    "bo@example.com",
			Password: "short",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "VALIDATION_ERROR", decode[ApiError](t, rr).Kind)
	})

	t.Run("malformed body", func(t *testing.T) {
		rr := a.do(t, http.MethodPost, "/api/auth/register", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "bad request", decode[ApiError](t, rr).Message)
	})
}

func TestLoginHandler(t *testing.T) {
	a := newTestApp(t)
	cookie, user := a.signIn(t, "Ada", "ada@example.com")

	t.Run("cookie carries a valid token", func(t *testing.T) {
		claims, err := a.tokens.Verify(cookie.Value)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.True(t, cookie.HttpOnly)
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := a.do(t, http.MethodPost, "/api/auth/login", nil, LoginRequest{Email: "ada@example.com", Password: "wrong-password"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", decode[ApiError](t, rr).Kind)
		assert.Empty(t, rr.Result().Cookies(), "expected no cookie on failed login")
	})

	t.Run("unknown email", func(t *testing.T) {
		rr := a.do(t, http.MethodPost, "/api/auth/login", nil, LoginRequest{Email: "nobody@example.com", Password: "hunter22"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rr := a.do(t, http.MethodPost, "/api/auth/login", nil, LoginRequest{Email: "ada@example.com"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSessionHandler(t *testing.T) {
	a := newTestApp(t)
	cookie, user := a.signIn(t, "Ada", "ada@example.com")

	rr := a.do(t, http.MethodGet, "/api/auth/session", cookie, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, user.ID, decode[types.User](t, rr).ID)

	rr = a.do(t, http.MethodGet, "/api/auth/session", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	t.Run("token for a deleted user", func(t *testing.T) {
		token, err := a.tokens.Sign(auth.Claims{UserID: "missing-user"})
		require.NoError(t, err)
		rr := a.do(t, http.MethodGet, "/api/auth/session", &http.Cookie{Name: tokenCookieKey, Value: token}, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestLogoutHandler(t *testing.T) {
	a := newTestApp(t)

	rr := a.do(t, http.MethodGet, "/api/auth/logout", nil, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, tokenCookieKey, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
