package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sceylan/pyfinder-go/pkg/perrors"
	"github.com/sceylan/pyfinder-go/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var bucketScheduledQueries = []byte("scheduled_queries")

// BoltStore implements Store using BoltDB. Writes additionally take mu so
// that FetchDue and the caller's subsequent CAS transition observe a
// consistent bucket even though they are two separate bbolt transactions.
type BoltStore struct {
	db *bolt.DB
	mu sync.Mutex
}

// NewBoltStore opens (creating if absent) a BoltDB file under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "pyfinder.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketScheduledQueries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func rowKey(k types.Key) []byte {
	return []byte(fmt.Sprintf("%s/%s/%05d", k.EventID, k.Service, k.DelayMinutes))
}

func (s *BoltStore) Add(row *types.ScheduledQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rowKey(row.Key)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketScheduledQueries)
		if b.Get(key) != nil {
			return &perrors.DuplicateKeyError{
				EventID:      row.EventID,
				Service:      row.Service,
				DelayMinutes: row.DelayMinutes,
			}
		}
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

func (s *BoltStore) Get(key types.Key) (*types.ScheduledQuery, error) {
	var row types.ScheduledQuery
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketScheduledQueries)
		data := b.Get(rowKey(key))
		if data == nil {
			return fmt.Errorf("scheduled query not found: %s/%s/%d", key.EventID, key.Service, key.DelayMinutes)
		}
		return json.Unmarshal(data, &row)
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *BoltStore) ListByEvent(eventID string) ([]*types.ScheduledQuery, error) {
	var rows []*types.ScheduledQuery
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketScheduledQueries)
		prefix := []byte(eventID + "/")
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var row types.ScheduledQuery
			if err := json.Unmarshal(v, &row); err != nil {
				return err
			}
			rows = append(rows, &row)
		}
		return nil
	})
	return rows, err
}

func hasPrefix(b, prefix []byte) bool {
	return len(b) >= len(prefix) && string(b[:len(prefix)]) == string(prefix)
}

func (s *BoltStore) FetchDue(now time.Time, service string) ([]*types.ScheduledQuery, error) {
	var due []*types.ScheduledQuery
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketScheduledQueries)
		return b.ForEach(func(_, v []byte) error {
			var row types.ScheduledQuery
			if err := json.Unmarshal(v, &row); err != nil {
				return err
			}
			if row.Status != types.StatusPending {
				return nil
			}
			if service != "" && row.Service != service {
				return nil
			}
			if row.NextQueryTime.After(now) {
				return nil
			}
			due = append(due, &row)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return due[i].Priority > due[j].Priority
		}
		return due[i].NextQueryTime.Before(due[j].NextQueryTime)
	})
	return due, nil
}

func (s *BoltStore) UpdateFields(key types.Key, fn func(row *types.ScheduledQuery) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketScheduledQueries)
		rk := rowKey(key)
		data := b.Get(rk)
		if data == nil {
			return fmt.Errorf("scheduled query not found: %s/%s/%d", key.EventID, key.Service, key.DelayMinutes)
		}
		var row types.ScheduledQuery
		if err := json.Unmarshal(data, &row); err != nil {
			return err
		}
		if err := fn(&row); err != nil {
			return err
		}
		out, err := json.Marshal(&row)
		if err != nil {
			return err
		}
		return b.Put(rk, out)
	})
}

func (s *BoltStore) MarkCompleted(key types.Key, now time.Time) error {
	return s.UpdateFields(key, func(row *types.ScheduledQuery) error {
		row.Status = types.StatusCompleted
		row.NextDelayMinutes = nil
		row.LastQueryTime = &now
		row.LastUpdateTime = now
		row.LastModified = now
		return nil
	})
}

func (s *BoltStore) MarkFailed(key types.Key, now time.Time, lastErr string) error {
	return s.UpdateFields(key, func(row *types.ScheduledQuery) error {
		row.Status = types.StatusIncomplete
		row.LastError = lastErr
		row.LastQueryTime = &now
		row.LastUpdateTime = now
		row.LastModified = now
		return nil
	})
}

func (s *BoltStore) Defer(key types.Key, now time.Time, nextQueryTime time.Time, lastErr string) error {
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

func (s *BoltStore) CleanupExpired(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketScheduledQueries)
		var expiredKeys [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var row types.ScheduledQuery
			if err := json.Unmarshal(v, &row); err != nil {
				return err
			}
			if row.ExpirationTime.Before(now) {
				expiredKeys = append(expiredKeys, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expiredKeys {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
