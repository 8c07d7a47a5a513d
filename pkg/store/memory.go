// Package store provides local record store implementations behind the
// interfaces.RecordStore boundary.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/memlinkio/memlink/pkg/errors"
	"github.com/memlinkio/memlink/pkg/interfaces"
	"github.com/memlinkio/memlink/pkg/types"
)

const memoryDumpFilename = "records.json"

// userBucket holds one user's records behind its own lock so writes are
// serialized per user while other users proceed unblocked.
type userBucket struct {
	mu      sync.RWMutex
	records map[string]*types.MemoryRecord
}

// MemoryStore is an in-process record store partitioned by user ID.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]*userBucket
	logger  interfaces.Logger
	closed  bool
}

// NewMemoryStore creates an empty in-memory record store.
func NewMemoryStore(logger interfaces.Logger) *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*userBucket),
		logger:  logger,
	}
}

func (s *MemoryStore) bucket(userID string, create bool) *userBucket {
	s.mu.RLock()
	b, ok := s.buckets[userID]
	s.mu.RUnlock()
	if ok || !create {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.buckets[userID]; ok {
		return b
	}
	b = &userBucket{records: make(map[string]*types.MemoryRecord)}
	s.buckets[userID] = b
	return b
}

// Put persists a record, replacing any record with the same ID.
func (s *MemoryStore) Put(ctx context.Context, record *types.MemoryRecord) error {
	if s.isClosed() {
		return errors.NewLocalStorageError("store is closed", nil)
	}
	if record.UserID == "" {
		return errors.NewMissingFieldError("user_id")
	}

	b := s.bucket(record.UserID, true)
	b.mu.Lock()
	defer b.mu.Unlock()

	clone := *record
	b.records[record.ID] = &clone
	return nil
}

// Get retrieves a record by ID for a user.
func (s *MemoryStore) Get(ctx context.Context, id, userID string) (*types.MemoryRecord, error) {
	if s.isClosed() {
		return nil, errors.NewLocalStorageError("store is closed", nil)
	}

	b := s.bucket(userID, false)
	if b == nil {
		return nil, errors.NewMemoryNotFoundError(id)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.records[id]
	if !ok {
		return nil, errors.NewMemoryNotFoundError(id)
	}
	clone := *record
	return &clone, nil
}

// List retrieves all records for a user as a consistent snapshot.
func (s *MemoryStore) List(ctx context.Context, userID string) ([]*types.MemoryRecord, error) {
	if s.isClosed() {
		return nil, errors.NewLocalStorageError("store is closed", nil)
	}

	b := s.bucket(userID, false)
	if b == nil {
		return []*types.MemoryRecord{}, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]*types.MemoryRecord, 0, len(b.records))
	for _, record := range b.records {
		clone := *record
		result = append(result, &clone)
	}
	return result, nil
}

// Delete removes a record by ID for a user.
func (s *MemoryStore) Delete(ctx context.Context, id, userID string) error {
	if s.isClosed() {
		return errors.NewLocalStorageError("store is closed", nil)
	}

	b := s.bucket(userID, false)
	if b == nil {
		return errors.NewMemoryNotFoundError(id)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.records[id]; !ok {
		return errors.NewMemoryNotFoundError(id)
	}
	delete(b.records, id)
	return nil
}

// DeleteAll removes all records for a user and returns the removed count.
func (s *MemoryStore) DeleteAll(ctx context.Context, userID string) (int, error) {
	if s.isClosed() {
		return 0, errors.NewLocalStorageError("store is closed", nil)
	}

	b := s.bucket(userID, false)
	if b == nil {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	count := len(b.records)
	b.records = make(map[string]*types.MemoryRecord)
	return count, nil
}

// Dump writes all records to a JSON file under dir.
func (s *MemoryStore) Dump(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	s.mu.RLock()
	var all []*types.MemoryRecord
	for _, b := range s.buckets {
		b.mu.RLock()
		for _, record := range b.records {
			clone := *record
			all = append(all, &clone)
		}
		b.mu.RUnlock()
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(all, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	path := filepath.Join(dir, memoryDumpFilename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write records file: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Dumped records", map[string]interface{}{
			"count":     len(all),
			"file_path": path,
		})
	}
	return nil
}

// Load reads records from a JSON file under dir. A missing file is not an
// error; the store starts empty.
func (s *MemoryStore) Load(ctx context.Context, dir string) error {
	path := filepath.Join(dir, memoryDumpFilename)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read records file: %w", err)
	}

	var records []*types.MemoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse records file: %w", err)
	}

	for _, record := range records {
		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now()
		}
		if err := s.Put(ctx, record); err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("Loaded records", map[string]interface{}{
			"count":     len(records),
			"file_path": path,
		})
	}
	return nil
}

// Close closes the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

var _ interfaces.RecordStore = (*MemoryStore)(nil)
