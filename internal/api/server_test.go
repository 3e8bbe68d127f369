package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/npezzotti/go-drawsync/internal/auth"
	"github.com/npezzotti/go-drawsync/internal/command"
	"github.com/npezzotti/go-drawsync/internal/config"
	"github.com/npezzotti/go-drawsync/internal/database"
	"github.com/npezzotti/go-drawsync/internal/events"
	"github.com/npezzotti/go-drawsync/internal/logging"
	"github.com/npezzotti/go-drawsync/internal/roomstate"
	"github.com/npezzotti/go-drawsync/internal/server"
	"github.com/npezzotti/go-drawsync/internal/stats"
	"github.com/npezzotti/go-drawsync/internal/testutil"
)

const testOrigin = "http://localhost:3000"

type testApp struct {
	*App
	store  command.Store
	rec    *events.Recorder
	tokens *auth.JWTProvider
	stats  *stats.MockStatsUpdater
}

func newTestApp(t *testing.T) *testApp {
	return newTestAppWith(t, database.NewMemoryStore(), testutil.TestLogger(t))
}

// newTestAppWith builds an app over store. Tests that leave goroutines
// running past their end must pass a logger that is not bound to t.
func newTestAppWith(t *testing.T, store command.Store, log *zap.Logger) *testApp {
	t.Helper()
	tokens := auth.NewJWTProvider([]byte("test-signing-key"), time.Hour)
	cmds := command.New(command.Deps{
		Store:  store,
		Cache:  roomstate.NewMemoryStore(),
		Hasher: auth.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens: tokens,
		Log:    log,
	})
	su := &stats.MockStatsUpdater{}
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()
	rec := &events.Recorder{}

	app := NewApp(http.NewServeMux(), Deps{
		Log:       log,
		Commands:  cmds,
		Hub:       server.NewHub(zap.NewNop(), cmds, su),
		Publisher: rec,
		Store:     store,
		Tokens:    tokens,
		Stats:     su,
	}, &config.Config{
		ServerAddr:     "localhost:0",
		AllowedOrigins: []string{testOrigin},
		TokenExp:       time.Hour,
	})
	return &testApp{App: app, store: store, rec: rec, tokens: tokens, stats: su}
}

// do sends a request through the full middleware chain. A nil cookie makes
// an anonymous request.
func (a *testApp) do(t *testing.T, method, path string, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestNewApp(t *testing.T) {
	a := newTestApp(t)

	assert.Equal(t, "localhost:0", a.srv.Addr)
	assert.Equal(t, time.Hour, a.tokenExp)
	assert.Equal(t, []string{testOrigin}, a.allowedOrigins)

	t.Run("default token expiry", func(t *testing.T) {
		app := NewApp(http.NewServeMux(), Deps{Log: testutil.TestLogger(t)}, &config.Config{})
		assert.Equal(t, auth.DefaultTokenExp, app.tokenExp)
	})
}

func TestApp_CORS(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/rooms", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, req)

	assert.Equal(t, testOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestApp_RequestID(t *testing.T) {
	a := newTestApp(t)

	rr := a.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.NotEmpty(t, rr.Header().Get(logging.RequestIDHeader), "expected a generated request id")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(logging.RequestIDHeader, "abc123")
	rr = httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "abc123", rr.Header().Get(logging.RequestIDHeader), "expected the caller's request id to be kept")
}

func TestApp_UnknownRoute(t *testing.T) {
	a := newTestApp(t)
	rr := a.do(t, http.MethodGet, "/api/nothing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
