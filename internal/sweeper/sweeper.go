// Package sweeper periodically removes finished rooms and room-state cache
// entries whose room is gone.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/npezzotti/go-drawsync/internal/command"
	"github.com/npezzotti/go-drawsync/internal/events"
	"github.com/npezzotti/go-drawsync/internal/roomstate"
	"github.com/npezzotti/go-drawsync/internal/stats"
)

const (
	DefaultSchedule    = "@every 10m"
	DefaultFinishedTTL = time.Hour
)

type Purger interface {
	Handle(ctx context.Context, in command.PurgeRoomInput) command.Result[string]
}

type Rooms interface {
	RoomExists(ctx context.Context, id string) (bool, error)
	ListFinishedRooms(ctx context.Context, before time.Time) ([]string, error)
}

type Report struct {
	RoomsPurged   int
	StatesDropped int
}

type Sweeper struct {
	rooms       Rooms
	cache       roomstate.Store
	purge       Purger
	pub         events.Publisher
	finishedTTL time.Duration
	log         *zap.Logger
	stats       stats.StatsProvider
	cron        *cron.Cron
	now         func() time.Time
}

func New(rooms Rooms, cache roomstate.Store, purge Purger, pub events.Publisher, finishedTTL time.Duration, log *zap.Logger) *Sweeper {
	if finishedTTL <= 0 {
		finishedTTL = DefaultFinishedTTL
	}
	return &Sweeper{
		rooms:       rooms,
		cache:       cache,
		purge:       purge,
		pub:         pub,
		finishedTTL: finishedTTL,
		log:         log,
		cron:        cron.New(),
		now:         time.Now,
	}
}

// Start schedules Sweep with a cron spec such as "@every 10m" or "0 3 * * *".
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	_, err := s.cron.AddFunc(schedule, s.run)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	return nil
}

// SetStats makes every scheduled run add its purge count to sp.
func (s *Sweeper) SetStats(sp stats.StatsProvider) {
	s.stats = sp
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	report, err := s.Sweep(ctx)
	if err != nil {
		s.log.Error("sweep failed", zap.Error(err))
	}
	s.log.Info("sweep finished",
		zap.Int("rooms_purged", report.RoomsPurged),
		zap.Int("states_dropped", report.StatesDropped),
	)
	if s.stats != nil && report.RoomsPurged > 0 {
		s.stats.Add(stats.RoomsPurged, report.RoomsPurged)
	}
}

// Stop prevents further runs and waits for a running sweep to return.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep purges every room that finished more than the TTL ago, then drops
// cache entries of rooms that no longer exist. It keeps going past
// individual failures and returns them joined.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	var (
		report Report
		errs   []error
	)

	ids, err := s.rooms.ListFinishedRooms(ctx, s.now().Add(-s.finishedTTL))
	if err != nil {
		errs = append(errs, fmt.Errorf("list finished rooms: %w", err))
	}
	for _, id := range ids {
		res := s.purge.Handle(ctx, command.PurgeRoomInput{RoomID: id})
		if err := res.Err(); err != nil {
			errs = append(errs, fmt.Errorf("purge room %s: %w", id, err))
			continue
		}
		report.RoomsPurged++
		if err := s.pub.PublishMany(ctx, res.Events); err != nil {
			s.log.Warn("failed to publish purge events", zap.String("room_id", id), zap.Error(err))
		}
	}

	cached, err := s.cache.RoomIDs(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("list room states: %w", err))
	}
	for _, id := range cached {
		exists, err := s.rooms.RoomExists(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("check room %s: %w", id, err))
			continue
		}
		if exists {
			continue
		}
		if err := s.cache.DeleteRoomState(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("drop room state %s: %w", id, err))
			continue
		}
		s.log.Debug("dropped orphaned room state", zap.String("room_id", id))
		report.StatesDropped++
	}

	return report, errors.Join(errs...)
}
