package storage

import (
	"sync"

	"github.com/structai/structai/backend/internal/model/conversation"
)

// MemoryStore is an in-process Store, used in tests and as a fallback when
// no data directory is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries []conversation.Entry

	// PersistCalls counts Persist invocations so tests can assert the
	// persist-once-per-mutation contract.
	PersistCalls int
}

// NewMemoryStore returns a MemoryStore seeded with the given entries.
func NewMemoryStore(seed []conversation.Entry) *MemoryStore {
	return &MemoryStore{entries: append([]conversation.Entry(nil), seed...)}
}

func (s *MemoryStore) Hydrate() ([]conversation.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]conversation.Entry(nil), s.entries...), nil
}

func (s *MemoryStore) Persist(entries []conversation.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]conversation.Entry(nil), entries...)
	s.PersistCalls++
	return nil
}
