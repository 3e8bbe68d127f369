// Package broker publishes domain events on Redis pub/sub so processes other
// than the game server can follow them. Every kind gets its own channel,
// "drawsync.events.<routing key>".
package broker

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/npezzotti/go-drawsync/internal/events"
)

const ChannelPrefix = "drawsync.events."

func Channel(k events.Kind) string {
	return ChannelPrefix + events.RoutingKey(k)
}

// RedisPublisher sends the public envelope of each event. Pub/sub delivery is
// fire and forget: a message with no subscriber is dropped.
type RedisPublisher struct {
	rdb *redis.Client
	log *zap.Logger
}

var _ events.Publisher = (*RedisPublisher)(nil)

func NewRedisPublisher(rdb *redis.Client, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, e events.Event) error {
	b, err := events.Encode(e)
	if err != nil {
		return err
	}
	n, err := p.rdb.Publish(ctx, Channel(e.Kind), b).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Kind, err)
	}
	p.log.Debug("event published",
		zap.String("channel", Channel(e.Kind)),
		zap.String("event_id", e.ID),
		zap.Int64("receivers", n),
	)
	return nil
}

// PublishMany sends all events in one pipeline, in order.
func (p *RedisPublisher) PublishMany(ctx context.Context, evs []events.Event) error {
	if len(evs) == 0 {
		return nil
	}
	_, err := p.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range evs {
			b, err := events.Encode(e)
			if err != nil {
				return err
			}
			pipe.Publish(ctx, Channel(e.Kind), b)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish %d events: %w", len(evs), err)
	}
	return nil
}

// Subscriber receives the envelopes published on a set of kinds.
type Subscriber struct {
	ps  *redis.PubSub
	log *zap.Logger
}

// NewSubscriber subscribes to the given kinds, or to all kinds when none are
// given. It returns once Redis confirmed the subscription.
func NewSubscriber(ctx context.Context, rdb *redis.Client, log *zap.Logger, kinds ...events.Kind) (*Subscriber, error) {
	var ps *redis.PubSub
	if len(kinds) == 0 {
		ps = rdb.PSubscribe(ctx, ChannelPrefix+"*")
	} else {
		channels := make([]string, len(kinds))
		for i, k := range kinds {
			channels[i] = Channel(k)
		}
		ps = rdb.Subscribe(ctx, channels...)
	}

	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return &Subscriber{ps: ps, log: log}, nil
}

// Run calls handle for every envelope until ctx is done or the subscriber is
// closed. Undecodable messages are logged and skipped.
func (s *Subscriber) Run(ctx context.Context, handle func(events.Envelope)) {
	ch := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			env, err := events.Decode([]byte(msg.Payload))
			if err != nil {
				s.log.Warn("dropping undecodable event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			handle(env)
		}
	}
}

func (s *Subscriber) Close() error {
	return s.ps.Close()
}
