package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultStateTTL = 7 * 24 * time.Hour

// RedisStore keeps state as JSON documents with optimistic WATCH/MULTI saves.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStore builds a Redis-backed Store. A non-positive ttl falls back to seven days.
func NewRedisStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("state: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("honeypot.internal.state.redis")
	}
	return &RedisStore{redis: client, ttl: ttl, tracer: tracer}
}

var _ Store = (*RedisStore)(nil)

func stateKey(id string) string {
	return fmt.Sprintf("honeypot:state:%s", id)
}

func (s *RedisStore) Load(ctx context.Context, id string) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "state.redis.load")
	defer span.End()
	span.SetAttributes(attribute.String("conversation.id", id))

	data, err := s.redis.Get(ctx, stateKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("%w: load %s: %w", ErrUnavailable, id, err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("state: decode %s: %w", id, err)
	}
	return &st, nil
}

func (s *RedisStore) Save(ctx context.Context, st *State) error {
	if st == nil || st.ID == "" {
		return errors.New("state: id required")
	}
	ctx, span := s.tracer.Start(ctx, "state.redis.save")
	defer span.End()
	span.SetAttributes(attribute.String("conversation.id", st.ID), attribute.Int64("state.version", st.Version))

	next := st.Clone()
	next.Version = st.Version + 1
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", st.ID, err)
	}

	key := stateKey(st.ID)
	err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != st.Version {
			return ErrStateConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		st.Version = next.Version
		return nil
	case errors.Is(err, ErrStateConflict), errors.Is(err, redis.TxFailedErr):
		span.SetAttributes(attribute.Bool("state.conflict", true))
		return ErrStateConflict
	default:
		span.RecordError(err)
		return fmt.Errorf("%w: save %s: %w", ErrUnavailable, st.ID, err)
	}
}

func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var head struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, fmt.Errorf("state: decode stored version: %w", err)
	}
	return head.Version, nil
}
