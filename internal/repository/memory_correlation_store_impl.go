package repository

import (
	"context"
	"sync"
	"time"

	"github.com/jnst/egisz-callback-relay/internal/model"
)

type memoryKey struct {
	channel string
	key     string
}

type memoryEntry struct {
	body      []byte
	expiresAt time.Time
}

// MemoryCorrelationStoreImpl keeps registrations in process memory.
type MemoryCorrelationStoreImpl struct {
	mu      sync.RWMutex
	entries map[memoryKey]memoryEntry
	now     func() time.Time
}

// NewMemoryCorrelationStoreImpl creates an empty in-memory CorrelationStore.
func NewMemoryCorrelationStoreImpl() CorrelationStore {
	return newMemoryCorrelationStore(time.Now)
}

func newMemoryCorrelationStore(now func() time.Time) *MemoryCorrelationStoreImpl {
	return &MemoryCorrelationStoreImpl{
		entries: make(map[memoryKey]memoryEntry),
		now:     now,
	}
}

// Get returns a copy of the stored record.
func (s *MemoryCorrelationStoreImpl) Get(_ context.Context, key, channel string) (*model.CorrelationRecord, error) {
	s.mu.RLock()
	entry, ok := s.entries[memoryKey{channel: channel, key: key}]
	s.mu.RUnlock()

	if !ok || (!entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt)) {
		return nil, model.ErrRecordNotFound
	}

	return &model.CorrelationRecord{
		Key:     key,
		Channel: channel,
		Body:    append([]byte(nil), entry.body...),
	}, nil
}

// Put stores a copy of record.
func (s *MemoryCorrelationStoreImpl) Put(_ context.Context, record *model.CorrelationRecord, ttl time.Duration) error {
	entry := memoryEntry{body: append([]byte(nil), record.Body...)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[memoryKey{channel: record.Channel, key: record.Key}] = entry
	s.mu.Unlock()

	return nil
}
