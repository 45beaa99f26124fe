package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory, in insertion order
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]int
	records []MatchRecord
}

func NewMemoryStore(seed ...MatchRecord) *MemoryStore {
	s := &MemoryStore{byID: make(map[string]int)}
	_ = s.InsertMany(context.Background(), seed)
	return s
}

func (s *MemoryStore) FindByIDs(ctx context.Context, ids []string) ([]MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []MatchRecord
	for _, id := range ids {
		if idx, ok := s.byID[id]; ok {
			found = append(found, s.records[idx])
		}
	}
	return found, nil
}

func (s *MemoryStore) InsertMany(ctx context.Context, records []MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(records, time.Now())
	for _, rec := range records {
		if _, exists := s.byID[rec.MatchID]; exists {
			continue
		}
		s.byID[rec.MatchID] = len(s.records)
		s.records = append(s.records, rec)
	}
	return nil
}

func (s *MemoryStore) All(ctx context.Context, fn func(MatchRecord) error) error {
	s.mu.RLock()
	snapshot := make([]MatchRecord, len(s.records))
	copy(snapshot, s.records)
	s.mu.RUnlock()

	for _, rec := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
