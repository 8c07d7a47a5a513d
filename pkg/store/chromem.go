package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/memlinkio/memlink/pkg/errors"
	"github.com/memlinkio/memlink/pkg/interfaces"
	"github.com/memlinkio/memlink/pkg/types"
)

// ChromemStore decorates an inner record store with embedded vector search
// backed by chromem-go. CRUD goes through the inner store; every write is
// mirrored into a per-user chromem collection so VectorSearch can rank
// records by embedding similarity.
type ChromemStore struct {
	inner    interfaces.RecordStore
	db       *chromem.DB
	embed    chromem.EmbeddingFunc
	mu       sync.Mutex
	cols     map[string]*chromem.Collection
	logger   interfaces.Logger
}

// NewChromemStore wraps inner with a chromem-go similarity index. When path
// is non-empty the index is persisted there.
func NewChromemStore(inner interfaces.RecordStore, embedder interfaces.Embedder, path string, logger interfaces.Logger) (*ChromemStore, error) {
	var db *chromem.DB
	var err error
	if path != "" {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, errors.NewLocalStorageError("failed to open chromem database", err)
		}
	} else {
		db = chromem.NewDB()
	}

	embed := chromem.EmbeddingFunc(func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	})

	return &ChromemStore{
		inner:  inner,
		db:     db,
		embed:  embed,
		cols:   make(map[string]*chromem.Collection),
		logger: logger,
	}, nil
}

func (s *ChromemStore) collection(userID string) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if col, ok := s.cols[userID]; ok {
		return col, nil
	}

	name := "user_" + sanitizeCollectionName(userID)
	col, err := s.db.GetOrCreateCollection(name, nil, s.embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	s.cols[userID] = col
	return col, nil
}

// Put persists the record and indexes its text for similarity search.
func (s *ChromemStore) Put(ctx context.Context, record *types.MemoryRecord) error {
	if err := s.inner.Put(ctx, record); err != nil {
		return err
	}

	col, err := s.collection(record.UserID)
	if err != nil {
		return errors.NewLocalStorageError("failed to index record", err)
	}

	doc := chromem.Document{
		ID:      record.ID,
		Content: record.Text,
		Metadata: map[string]string{
			"user_id": record.UserID,
			"topics":  strings.Join(record.Topics, ","),
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return errors.NewLocalStorageError("failed to index record", err)
	}
	return nil
}

// Get retrieves a record by ID for a user.
func (s *ChromemStore) Get(ctx context.Context, id, userID string) (*types.MemoryRecord, error) {
	return s.inner.Get(ctx, id, userID)
}

// List retrieves all records for a user.
func (s *ChromemStore) List(ctx context.Context, userID string) ([]*types.MemoryRecord, error) {
	return s.inner.List(ctx, userID)
}

// Delete removes a record and its index entry.
func (s *ChromemStore) Delete(ctx context.Context, id, userID string) error {
	if err := s.inner.Delete(ctx, id, userID); err != nil {
		return err
	}

	col, err := s.collection(userID)
	if err != nil {
		return nil
	}
	// Index cleanup is best effort; the inner store is the source of truth.
	_ = col.Delete(ctx, nil, nil, id)
	return nil
}

// DeleteAll removes all records for a user and drops the index collection.
func (s *ChromemStore) DeleteAll(ctx context.Context, userID string) (int, error) {
	count, err := s.inner.DeleteAll(ctx, userID)
	if err != nil {
		return count, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cols[userID]; ok {
		_ = s.db.DeleteCollection("user_" + sanitizeCollectionName(userID))
		delete(s.cols, userID)
	}
	return count, nil
}

// VectorSearch returns records ranked by embedding similarity to the query.
func (s *ChromemStore) VectorSearch(ctx context.Context, query, userID string, limit int) ([]types.SearchHit, error) {
	col, err := s.collection(userID)
	if err != nil {
		return nil, errors.NewLocalStorageError("failed to open index", err)
	}

	// chromem rejects nResults larger than the collection size.
	if count := col.Count(); limit > count {
		limit = count
	}
	if limit <= 0 {
		return []types.SearchHit{}, nil
	}

	results, err := col.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, errors.NewLocalStorageError("vector query failed", err)
	}

	hits := make([]types.SearchHit, 0, len(results))
	for _, res := range results {
		record, err := s.inner.Get(ctx, res.ID, userID)
		if err != nil {
			continue
		}
		hits = append(hits, types.SearchHit{
			Record: record,
			Score:  float64(res.Similarity),
		})
	}
	return hits, nil
}

// Close closes the inner store.
func (s *ChromemStore) Close() error {
	return s.inner.Close()
}

func sanitizeCollectionName(userID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, userID)
}

var _ interfaces.RecordStore = (*ChromemStore)(nil)
var _ interfaces.VectorSearcher = (*ChromemStore)(nil)
