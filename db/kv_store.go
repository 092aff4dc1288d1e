package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Bpsb/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry is one row of the key-value table.
type KVEntry struct {
	Key       string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (KVEntry) TableName() string {
	return "kv_entries"
}

// GormKVStore implements repository.KVStore with one row per key.
// Writes are single-row upserts.
type GormKVStore struct {
	db *gorm.DB
}

// NewGormKVStore migrates the table and returns the store.
func NewGormKVStore(gdb *gorm.DB) (*GormKVStore, error) {
	if err := gdb.AutoMigrate(&KVEntry{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate kv_entries: %w", err)
	}
	return &GormKVStore{db: gdb}, nil
}

func (s *GormKVStore) Get(ctx context.Context, key string) (string, error) {
	var entry KVEntry
	err := s.db.WithContext(ctx).Where("`key` = ?", key).Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", repository.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to query key %s: %w", key, err)
	}
	return entry.Value, nil
}

func (s *GormKVStore) Set(ctx context.Context, key, value string) error {
	entry := KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to upsert key %s: %w", key, err)
	}
	return nil
}

func (s *GormKVStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("`key` = ?", key).Delete(&KVEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

func (s *GormKVStore) Close() error {
	return CloseGorm(s.db)
}
