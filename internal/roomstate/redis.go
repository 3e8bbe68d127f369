package roomstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix = "drawsync:room:"
	keySuffix = ":state"

	DefaultTTL = 24 * time.Hour

	maxTxRetries = 5
)

var ErrContention = errors.New("room state update kept conflicting")

// RedisStore keeps each room state as a JSON string with a TTL. Updates are
// read-modify-write inside WATCH/MULTI so a concurrent delete is never undone.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func stateKey(roomID string) string {
	return keyPrefix + roomID + keySuffix
}

func (s *RedisStore) GetRoomState(ctx context.Context, roomID string) (RoomState, error) {
	b, err := s.rdb.Get(ctx, stateKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return RoomState{}, ErrNoState
	}
	if err != nil {
		return RoomState{}, fmt.Errorf("get room state: %w", err)
	}

	var state RoomState
	if err := json.Unmarshal(b, &state); err != nil {
		return RoomState{}, fmt.Errorf("decode room state: %w", err)
	}
	return state, nil
}

func (s *RedisStore) SetRoomState(ctx context.Context, state RoomState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode room state: %w", err)
	}
	if err := s.rdb.Set(ctx, stateKey(state.RoomID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("set room state: %w", err)
	}
	return nil
}

func (s *RedisStore) update(ctx context.Context, roomID string, fn func(*RoomState)) error {
	key := stateKey(roomID)
	txf := func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var state RoomState
		if err := json.Unmarshal(b, &state); err != nil {
			return fmt.Errorf("decode room state: %w", err)
		}
		fn(&state)
		nb, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("encode room state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, nb, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("update room state: %w", err)
		}
		return nil
	}
	return fmt.Errorf("update room state %s: %w", roomID, ErrContention)
}

func (s *RedisStore) UpdateLockOwner(ctx context.Context, roomID, lockOwnerID string) error {
	return s.update(ctx, roomID, func(st *RoomState) { st.LockOwnerID = lockOwnerID })
}

func (s *RedisStore) AddActivePlayer(ctx context.Context, roomID, playerID string) error {
	return s.update(ctx, roomID, func(st *RoomState) { st.ActivePlayerIDs = addPlayer(st.ActivePlayerIDs, playerID) })
}

func (s *RedisStore) RemoveActivePlayer(ctx context.Context, roomID, playerID string) error {
	return s.update(ctx, roomID, func(st *RoomState) { st.ActivePlayerIDs = removePlayer(st.ActivePlayerIDs, playerID) })
}

func (s *RedisStore) DeleteRoomState(ctx context.Context, roomID string) error {
	if err := s.rdb.Del(ctx, stateKey(roomID)).Err(); err != nil {
		return fmt.Errorf("delete room state: %w", err)
	}
	return nil
}

func (s *RedisStore) RoomIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*"+keySuffix, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(key, keyPrefix), keySuffix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan room states: %w", err)
	}
	return ids, nil
}
