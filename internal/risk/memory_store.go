package risk

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
}

// NewMemoryStore creates an in-memory assessment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *rec
	r.Warnings = append([]string(nil), rec.Warnings...)
	s.records = append(s.records, &r)
	return nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, nil
	}

	start := len(s.records) - limit
	if start < 0 {
		start = 0
	}

	// Most recent first
	out := make([]*Record, 0, len(s.records)-start)
	for i := len(s.records) - 1; i >= start; i-- {
		r := *s.records[i]
		r.Warnings = append([]string(nil), s.records[i].Warnings...)
		out = append(out, &r)
	}
	return out, nil
}
