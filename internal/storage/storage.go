// Package storage persists the conversation history as a single JSON
// document under one well-known key. Implementations are best-effort: a
// missing document hydrates to an empty history and write failures never
// crash the session.
package storage

import "github.com/structai/structai/backend/internal/model/conversation"

// HistoryKey is the single document name the history lives under.
const HistoryKey = "chat_history"

// Store is the persistence port for the conversation service.
type Store interface {
	// Hydrate loads the previously persisted entries. Absent data yields an
	// empty slice and no error.
	Hydrate() ([]conversation.Entry, error)
	// Persist writes the full ordered sequence, replacing prior state.
	Persist(entries []conversation.Entry) error
}
