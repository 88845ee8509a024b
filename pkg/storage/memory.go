package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sceylan/pyfinder-go/pkg/perrors"
	"github.com/sceylan/pyfinder-go/pkg/types"
)

// InMemoryStore implements Store over a plain map, for tests that don't
// want to pay bbolt's file-open cost. Copies rows in and out so callers
// can't mutate stored state through a pointer they were handed earlier.
type InMemoryStore struct {
	mu   sync.Mutex
	rows map[types.Key]types.ScheduledQuery
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rows: make(map[types.Key]types.ScheduledQuery)}
}

func (s *InMemoryStore) Add(row *types.ScheduledQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows[row.Key]; exists {
		return &perrors.DuplicateKeyError{
			EventID:      row.EventID,
			Service:      row.Service,
			DelayMinutes: row.DelayMinutes,
		}
	}
	s.rows[row.Key] = *row
	return nil
}

func (s *InMemoryStore) Get(key types.Key) (*types.ScheduledQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[key]
	if !ok {
		return nil, fmt.Errorf("scheduled query not found: %s/%s/%d", key.EventID, key.Service, key.DelayMinutes)
	}
	return &row, nil
}

func (s *InMemoryStore) ListByEvent(eventID string) ([]*types.ScheduledQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []*types.ScheduledQuery
	for _, row := range s.rows {
		row := row
		if row.EventID == eventID {
			rows = append(rows, &row)
		}
	}
	return rows, nil
}

func (s *InMemoryStore) FetchDue(now time.Time, service string) ([]*types.ScheduledQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*types.ScheduledQuery
	for _, row := range s.rows {
		row := row
		if row.Status != types.StatusPending {
			continue
		}
		if service != "" && row.Service != service {
			continue
		}
		if row.NextQueryTime.After(now) {
			continue
		}
		due = append(due, &row)
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return due[i].Priority > due[j].Priority
		}
		return due[i].NextQueryTime.Before(due[j].NextQueryTime)
	})
	return due, nil
}

func (s *InMemoryStore) UpdateFields(key types.Key, fn func(row *types.ScheduledQuery) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[key]
	if !ok {
		return fmt.Errorf("scheduled query not found: %s/%s/%d", key.EventID, key.Service, key.DelayMinutes)
	}
	if err := fn(&row); err != nil {
		return err
	}
	s.rows[key] = row
	return nil
}

func (s *InMemoryStore) MarkCompleted(key types.Key, now time.Time) error {
	return s.UpdateFields(key, func(row *types.ScheduledQuery) error {
		row.Status = types.StatusCompleted
		row.NextDelayMinutes = nil
		row.LastQueryTime = &now
		row.LastUpdateTime = now
		row.LastModified = now
		return nil
	})
}

func (s *InMemoryStore) MarkFailed(key types.Key, now time.Time, lastErr string) error {
	return s.UpdateFields(key, func(row *types.ScheduledQuery) error {
		row.Status = types.StatusIncomplete
		row.LastError = lastErr
		row.LastQueryTime = &now
		row.LastUpdateTime = now
		row.LastModified = now
		return nil
	})
}

func (s *InMemoryStore) Defer(key types.Key, now time.Time, nextQueryTime time.Time, lastErr string) error {
	return s.UpdateFields(key, func(row *types.ScheduledQuery) error {
		row.Status = types.StatusPending
		row.RetryCount++
		row.LastError = lastErr
		row.NextQueryTime = nextQueryTime
		row.LastQueryTime = &now
		row.LastUpdateTime = now
		row.LastModified = now
		return nil
	})
}

func (s *InMemoryStore) CleanupExpired(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, row := range s.rows {
		if row.ExpirationTime.Before(now) {
			delete(s.rows, k)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryStore) Close() error { return nil }
