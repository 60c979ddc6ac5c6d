package conversation

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/structai/structai/backend/internal/model/conversation"
	"github.com/structai/structai/backend/internal/storage"
)

// Service owns the ordered conversation history. Entries are kept
// newest-first; follow-ups mutate an existing entry in place without
// re-shuffling the order. Every successful mutation is persisted through
// the injected storage port.
type Service struct {
	mu      sync.RWMutex
	store   storage.Store
	entries []conversation.Entry
	lastID  int64
}

// NewService hydrates the history from the storage port. Hydration failures
// degrade to an empty history; the session must start either way.
func NewService(store storage.Store) *Service {
	s := &Service{store: store}

	entries, err := store.Hydrate()
	if err != nil {
		log.Printf("[conversation] warning: failed to hydrate history: %v", err)
		entries = nil
	}
	s.entries = entries

	for _, e := range entries {
		if e.ID > s.lastID {
			s.lastID = e.ID
		}
	}
	return s
}

// Entries returns a copy of the current history, newest first.
func (s *Service) Entries() []conversation.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]conversation.Entry(nil), s.entries...)
}

// NewEntry builds an entry with a fresh identifier. IDs are creation-time
// unix milliseconds, bumped when two entries land in the same millisecond so
// they stay strictly increasing.
func (s *Service) NewEntry(question, answer, diagram string, style conversation.LearningStyle, isFollowUp bool) conversation.Entry {
	s.mu.Lock()
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	s.mu.Unlock()

	return conversation.Entry{
		ID:            id,
		Question:      question,
		Answer:        answer,
		Diagram:       diagram,
		LearningStyle: style,
		IsFollowUp:    isFollowUp,
	}
}

// ApplyNewEntry prepends the entry and persists the updated sequence.
func (s *Service) ApplyNewEntry(entry conversation.Entry) []conversation.Entry {
	s.mu.Lock()
	s.entries = append([]conversation.Entry{entry}, s.entries...)
	updated := append([]conversation.Entry(nil), s.entries...)
	s.mu.Unlock()

	s.persist(updated)
	return updated
}

// ApplyFollowUp merges a follow-up answer into the entry matching the
// context snapshot. The matched entry keeps its position, identifier and
// diagram; only its answer grows. When no entry matches, the history is
// returned unchanged and ok is false — nothing is persisted.
func (s *Service) ApplyFollowUp(ctx conversation.FollowUpContext, question, answer string) (entries []conversation.Entry, merged conversation.Entry, ok bool) {
	s.mu.Lock()
	for i := range s.entries {
		if ctx.Matches(s.entries[i]) {
			s.entries[i].Answer = mergeFollowUp(s.entries[i].Answer, question, answer)
			merged = s.entries[i]
			ok = true
			break
		}
	}
	updated := append([]conversation.Entry(nil), s.entries...)
	s.mu.Unlock()

	if ok {
		s.persist(updated)
	}
	return updated, merged, ok
}

// persist writes the sequence through the storage port. An empty sequence is
// never written so existing storage is not clobbered by a fresh session.
func (s *Service) persist(entries []conversation.Entry) {
	if len(entries) == 0 {
		return
	}
	if err := s.store.Persist(entries); err != nil {
		log.Printf("[conversation] warning: failed to persist history: %v", err)
	}
}

func mergeFollowUp(answer, question, followUpAnswer string) string {
	return fmt.Sprintf("%s\n\n**Follow-up Question:** %s\n\n**Answer:** %s", answer, question, followUpAnswer)
}
