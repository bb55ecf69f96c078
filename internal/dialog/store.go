package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound indicates a session id absent from storage.
var ErrSessionNotFound = errors.New("dialog: session not found")

// Store persists conversation records. Commit is an unconditional full
// replace keyed by record id; callers must serialize commits per session
// to avoid lost updates.
type Store interface {
	// Create assigns a fresh id to the record and persists it.
	Create(ctx context.Context, record *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Commit(ctx context.Context, record *Record) error
}

// newSessionID returns an opaque, never-reused session id.
func newSessionID() string {
	return uuid.NewString()
}

// MemoryStore is an in-process store for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (s *MemoryStore) Create(ctx context.Context, record *Record) error {
	record.ID = newSessionID()
	record.CreatedAt = time.Now().UTC()
	return s.Commit(ctx, record)
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	data, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("dialog: decode record %s: %w", id, err)
	}
	return &record, nil
}

func (s *MemoryStore) Commit(_ context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("dialog: encode record %s: %w", record.ID, err)
	}
	s.mu.Lock()
	s.records[record.ID] = data
	s.mu.Unlock()
	return nil
}
