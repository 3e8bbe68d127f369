package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"go.uber.org/zap"

	"github.com/npezzotti/go-drawsync/internal/auth"
	"github.com/npezzotti/go-drawsync/internal/command"
	"github.com/npezzotti/go-drawsync/internal/config"
	"github.com/npezzotti/go-drawsync/internal/events"
	"github.com/npezzotti/go-drawsync/internal/logging"
	"github.com/npezzotti/go-drawsync/internal/server"
	"github.com/npezzotti/go-drawsync/internal/stats"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Log      *zap.Logger
	Commands *command.Commands
	Hub      *server.Hub
	// Publisher receives the events of every successful command.
	Publisher events.Publisher
	Store     Pinger
	Tokens    auth.TokenProvider
	Stats     stats.StatsProvider
}

type App struct {
	log            *zap.Logger
	cmds           *command.Commands
	hub            *server.Hub
	pub            events.Publisher
	store          Pinger
	tokens         auth.TokenProvider
	tokenExp       time.Duration
	stats          stats.StatsProvider
	allowedOrigins []string
	srv            *http.Server
}

// NewApp registers the API routes on mux. mux may already carry other
// routes, such as the stats endpoint.
func NewApp(mux *http.ServeMux, d Deps, cfg *config.Config) *App {
	s := &App{
		log:            d.Log,
		cmds:           d.Commands,
		hub:            d.Hub,
		pub:            d.Publisher,
		store:          d.Store,
		tokens:         d.Tokens,
		tokenExp:       cfg.TokenExp,
		stats:          d.Stats,
		allowedOrigins: cfg.AllowedOrigins,
	}
	if s.tokenExp <= 0 {
		s.tokenExp = auth.DefaultTokenExp
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/logout", s.logout)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.HandleFunc("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.HandleFunc("GET /api/rooms/{roomId}", s.authMiddleware(s.getRoom))
	mux.HandleFunc("POST /api/rooms/{roomId}/join", s.authMiddleware(s.joinRoom))
	mux.HandleFunc("POST /api/rooms/{roomId}/leave", s.authMiddleware(s.leaveRoom))
	mux.HandleFunc("POST /api/rooms/{roomId}/start", s.authMiddleware(s.startGame))
	mux.HandleFunc("POST /api/rooms/{roomId}/rounds", s.authMiddleware(s.startRound))
	mux.HandleFunc("POST /api/rooms/{roomId}/rounds/complete", s.authMiddleware(s.completeRound))
	mux.HandleFunc("POST /api/rooms/{roomId}/guesses", s.authMiddleware(s.submitGuess))
	mux.HandleFunc("POST /api/rooms/{roomId}/strokes", s.authMiddleware(s.applyStroke))
	mux.HandleFunc("POST /api/rooms/{roomId}/strokes/undo", s.authMiddleware(s.undoStroke))
	mux.HandleFunc("POST /api/rooms/{roomId}/strokes/clear", s.authMiddleware(s.clearCanvas))
	mux.HandleFunc("GET /api/rounds/{roundId}/canvas", s.authMiddleware(s.getCanvas))
	mux.HandleFunc("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)
	h = logging.RequestLogger(s.log, h)

	s.srv = &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler is the full middleware chain, for tests and embedding.
func (s *App) Handler() http.Handler {
	return s.srv.Handler
}

func (s *App) Start() error {
	s.log.Info("starting server", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

func (s *App) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
