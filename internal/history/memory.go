package history

import (
	"context"
	"sync"

	"github.com/raaihank/dpdp-scanner/internal/scan"
)

// MemoryStore keeps the most recent records in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	nextID  int64
	max     int
}

// NewMemoryStore creates a store that retains at most max records
func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = 1000
	}
	return &MemoryStore{max: max}
}

func (s *MemoryStore) Record(ctx context.Context, result *scan.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	record := FromResult(result)
	record.ID = s.nextID

	s.records = append(s.records, record)
	if len(s.records) > s.max {
		s.records = s.records[len(s.records)-s.max:]
	}
	return nil
}

// Recent returns up to n records, newest first
func (s *MemoryStore) Recent(ctx context.Context, n int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > len(s.records) {
		n = len(s.records)
	}

	recent := make([]Record, 0, n)
	for i := len(s.records) - 1; i >= len(s.records)-n; i-- {
		recent = append(recent, s.records[i])
	}
	return recent, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
