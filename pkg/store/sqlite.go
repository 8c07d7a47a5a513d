package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/memlinkio/memlink/pkg/errors"
	"github.com/memlinkio/memlink/pkg/interfaces"
	"github.com/memlinkio/memlink/pkg/types"
)

// recordModel is the gorm persistence model for memory records. Topics are
// serialized as a JSON array so the schema stays a single table.
type recordModel struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	UserID     string    `gorm:"index;not null;type:varchar(64)"`
	Text       string    `gorm:"not null"`
	TopicsJSON string    `gorm:"column:topics"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName sets the table name for gorm
func (recordModel) TableName() string {
	return "memory_records"
}

func toModel(record *types.MemoryRecord) (*recordModel, error) {
	topics, err := json.Marshal(record.Topics)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal topics: %w", err)
	}
	return &recordModel{
		ID:         record.ID,
		UserID:     record.UserID,
		Text:       record.Text,
		TopicsJSON: string(topics),
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}, nil
}

func (m *recordModel) toRecord() (*types.MemoryRecord, error) {
	var topics []string
	if m.TopicsJSON != "" {
		if err := json.Unmarshal([]byte(m.TopicsJSON), &topics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal topics: %w", err)
		}
	}
	return &types.MemoryRecord{
		ID:        m.ID,
		UserID:    m.UserID,
		Text:      m.Text,
		Topics:    topics,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// SQLiteStore persists records in a SQLite database through gorm.
type SQLiteStore struct {
	db     *gorm.DB
	logger interfaces.Logger
}

// NewSQLiteStore opens (and migrates) the database at path. Use ":memory:"
// for an ephemeral database.
func NewSQLiteStore(path string, logger interfaces.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.NewLocalStorageError("failed to open sqlite database", err)
	}

	if err := db.AutoMigrate(&recordModel{}); err != nil {
		return nil, errors.NewLocalStorageError("failed to migrate schema", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Put persists a record, replacing any record with the same ID.
func (s *SQLiteStore) Put(ctx context.Context, record *types.MemoryRecord) error {
	if record.UserID == "" {
		return errors.NewMissingFieldError("user_id")
	}

	model, err := toModel(record)
	if err != nil {
		return errors.NewLocalStorageError("failed to encode record", err)
	}

	if err := s.db.WithContext(ctx).Save(model).Error; err != nil {
		return errors.NewLocalStorageError("failed to save record", err)
	}
	return nil
}

// Get retrieves a record by ID for a user.
func (s *SQLiteStore) Get(ctx context.Context, id, userID string) (*types.MemoryRecord, error) {
	var model recordModel
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&model).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NewMemoryNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewLocalStorageError("failed to query record", err)
	}
	return model.toRecord()
}

// List retrieves all records for a user.
func (s *SQLiteStore) List(ctx context.Context, userID string) ([]*types.MemoryRecord, error) {
	var models []recordModel
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&models).Error
	if err != nil {
		return nil, errors.NewLocalStorageError("failed to list records", err)
	}

	records := make([]*types.MemoryRecord, 0, len(models))
	for i := range models {
		record, err := models[i].toRecord()
		if err != nil {
			return nil, errors.NewLocalStorageError("failed to decode record", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// Delete removes a record by ID for a user.
func (s *SQLiteStore) Delete(ctx context.Context, id, userID string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&recordModel{})
	if result.Error != nil {
		return errors.NewLocalStorageError("failed to delete record", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewMemoryNotFoundError(id)
	}
	return nil
}

// DeleteAll removes all records for a user and returns the removed count.
func (s *SQLiteStore) DeleteAll(ctx context.Context, userID string) (int, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&recordModel{})
	if result.Error != nil {
		return 0, errors.NewLocalStorageError("failed to clear records", result.Error)
	}
	return int(result.RowsAffected), nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ interfaces.RecordStore = (*SQLiteStore)(nil)
