package history

import (
	"context"
	"fmt"
	"sync"

	"podcastgo/pkg/db"
)

const stateKey = "podcast_history"

// SQLiteStore keeps the history document in the persistent_state table.
type SQLiteStore struct {
	db *db.DB
	mu sync.Mutex
}

// NewSQLiteStore creates a store on an initialized database.
func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d}
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx), nil
}

func (s *SQLiteStore) load(ctx context.Context) []Entry {
	val, ok := s.db.GetState(ctx, stateKey)
	if !ok {
		return []Entry{}
	}
	return decode([]byte(val), "sqlite:"+stateKey)
}

// Add implements Store.
func (s *SQLiteStore) Add(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encode(prepend(s.load(ctx), e))
	if err != nil {
		return err
	}
	if err := s.db.SetState(ctx, stateKey, string(data)); err != nil {
		return fmt.Errorf("failed to store history: %w", err)
	}
	return nil
}
