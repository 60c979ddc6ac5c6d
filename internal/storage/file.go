package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/structai/structai/backend/internal/model/conversation"
)

// FileStore keeps the history document as pretty-printed JSON on disk.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first persist, not here, so a read-only startup still hydrates cleanly.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path() string {
	return filepath.Join(s.dir, HistoryKey+".json")
}

// Hydrate reads the history document. A missing file is an empty history.
func (s *FileStore) Hydrate() ([]conversation.Entry, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}

	var entries []conversation.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return entries, nil
}

// Persist replaces the history document with the supplied sequence.
func (s *FileStore) Persist(entries []conversation.Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	if err := os.WriteFile(s.path(), data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
