package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore persists each record as one JSON blob, replaced wholesale
// on every commit.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStore creates a Redis-backed store. A zero ttl keeps records
// forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("dialog: redis client cannot be nil")
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		tracer: otel.Tracer("dialog.store.redis"),
	}
}

func recordKey(id string) string {
	return "dialog:record:" + id
}

func (s *RedisStore) Create(ctx context.Context, record *Record) error {
	record.ID = newSessionID()
	record.CreatedAt = time.Now().UTC()
	return s.Commit(ctx, record)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	ctx, span := s.tracer.Start(ctx, "dialog.load_record")
	defer span.End()

	data, err := s.client.Get(ctx, recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("dialog: load record %s: %w", id, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("dialog: decode record %s: %w", id, err)
	}
	return &record, nil
}

func (s *RedisStore) Commit(ctx context.Context, record *Record) error {
	ctx, span := s.tracer.Start(ctx, "dialog.commit_record")
	defer span.End()

	data, err := json.Marshal(record)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("dialog: encode record %s: %w", record.ID, err)
	}
	if err := s.client.Set(ctx, recordKey(record.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("dialog: persist record %s: %w", record.ID, err)
	}
	return nil
}
