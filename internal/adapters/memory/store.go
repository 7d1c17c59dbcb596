package memory

import (
	"context"
	"sync"

	"github.com/pm33/abtest/internal/domain"
)

// AssignmentStore is an in-memory implementation of ports.AssignmentStore.
// Safe for concurrent use; writes are last-write-wins.
type AssignmentStore struct {
	mu      sync.RWMutex
	records map[string]domain.Assignment
}

func NewAssignmentStore() *AssignmentStore {
	return &AssignmentStore{records: make(map[string]domain.Assignment)}
}

func key(testID, visitorID string) string {
	return testID + "\x00" + visitorID
}

func (s *AssignmentStore) Get(ctx context.Context, testID, visitorID string) (*domain.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.records[key(testID, visitorID)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *AssignmentStore) Put(ctx context.Context, assignment *domain.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key(assignment.TestID, assignment.VisitorID)] = *assignment
	return nil
}

func (s *AssignmentStore) DeleteByTest(ctx context.Context, testID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for k, a := range s.records {
		if a.TestID == testID {
			delete(s.records, k)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored assignments.
func (s *AssignmentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
