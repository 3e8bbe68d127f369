package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Publisher hands events to a delivery mechanism. Delivery is not
// acknowledged.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	PublishMany(ctx context.Context, evs []Event) error
}

// PublishEach publishes events one by one and joins the errors.
func PublishEach(ctx context.Context, p Publisher, evs []Event) error {
	var errs []error
	for _, e := range evs {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Fanout publishes every event to all of its publishers.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) PublishMany(ctx context.Context, evs []Event) error {
	return PublishEach(ctx, f, evs)
}

type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.log.Debug("domain event",
		zap.String("event_id", e.ID),
		zap.String("kind", string(e.Kind)),
		zap.String("room_id", e.RoomID),
		zap.String("routing_key", RoutingKey(e.Kind)),
	)
	return nil
}

func (p *LogPublisher) PublishMany(ctx context.Context, evs []Event) error {
	return PublishEach(ctx, p, evs)
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) PublishMany(ctx context.Context, evs []Event) error {
	return PublishEach(ctx, r, evs)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Kinds() []Kind {
	evs := r.Events()
	kinds := make([]Kind, len(evs))
	for i, e := range evs {
		kinds[i] = e.Kind
	}
	return kinds
}
