package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/npezzotti/go-drawsync/internal/api"
	"github.com/npezzotti/go-drawsync/internal/auth"
	"github.com/npezzotti/go-drawsync/internal/broker"
	"github.com/npezzotti/go-drawsync/internal/command"
	"github.com/npezzotti/go-drawsync/internal/config"
	"github.com/npezzotti/go-drawsync/internal/database"
	"github.com/npezzotti/go-drawsync/internal/events"
	"github.com/npezzotti/go-drawsync/internal/logging"
	"github.com/npezzotti/go-drawsync/internal/roomstate"
	"github.com/npezzotti/go-drawsync/internal/server"
	"github.com/npezzotti/go-drawsync/internal/stats"
	"github.com/npezzotti/go-drawsync/internal/sweeper"
)

// store is what the commands, the health check and the sweeper need from
// persistence.
type store interface {
	command.Store
	sweeper.Rooms
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	var db store
	switch cfg.Store {
	case config.StorePostgres:
		pg, err := database.NewPgStore(cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("db open: %w", err)
		}
		defer func() {
			if err := pg.Close(); err != nil {
				logger.Error("db close", zap.Error(err))
			}
		}()
		if err := pg.Migrate(); err != nil {
			return err
		}
		db = pg
	default:
		logger.Warn("using in-memory store, data is lost on exit")
		db = database.NewMemoryStore()
	}

	var rdb *redis.Client
	if cfg.Cache == config.CacheRedis || cfg.Broker == config.BrokerRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	var cache roomstate.Store = roomstate.NewMemoryStore()
	if cfg.Cache == config.CacheRedis {
		cache = roomstate.NewRedisStore(rdb, cfg.RoomStateTTL)
	}

	tokens := auth.NewJWTProvider(cfg.SigningKey, cfg.TokenExp)
	cmds := command.New(command.Deps{
		Store:  db,
		Cache:  cache,
		Hasher: auth.BcryptHasher{},
		Tokens: tokens,
		Log:    logger.Named("command"),
	})

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.Run()
	defer statsUpdater.Stop()

	hub := server.NewHub(logger.Named("hub"), cmds, statsUpdater)

	pub := events.Fanout{hub, events.NewLogPublisher(logger.Named("events"))}
	if cfg.Broker == config.BrokerRedis {
		pub = append(pub, broker.NewRedisPublisher(rdb, logger.Named("broker")))

		sub, err := broker.NewSubscriber(context.Background(), rdb, logger.Named("broker"))
		if err != nil {
			return err
		}
		defer sub.Close()
		go sub.Run(context.Background(), func(env events.Envelope) {
			logger.Debug("broker event",
				zap.String("event_id", env.EventID),
				zap.String("event_type", string(env.EventType)),
				zap.String("room_id", env.RoomID),
			)
		})
	}
	hub.SetPublisher(pub)

	app := api.NewApp(mux, api.Deps{
		Log:       logger.Named("api"),
		Commands:  cmds,
		Hub:       hub,
		Publisher: pub,
		Store:     db,
		Tokens:    tokens,
		Stats:     statsUpdater,
	}, cfg)

	sweep := sweeper.New(db, cache, cmds.PurgeRoom, pub, cfg.FinishedRoomTTL, logger.Named("sweeper"))
	sweep.SetStats(statsUpdater)
	if err := sweep.Start(cfg.SweepSchedule); err != nil {
		return err
	}
	defer sweep.Stop()

	go hub.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("received signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server", zap.Error(err))
	}

	shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Shutdown(shutDownCtx); err != nil {
		return err
	}

	logger.Info("shutting down hub")
	if err := hub.Shutdown(shutDownCtx); err != nil {
		return fmt.Errorf("hub shutdown: %w", err)
	}
	return nil
}
