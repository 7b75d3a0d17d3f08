package dbstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/yiblet/ammo/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SchemaVersion is recorded in the config table as db_version.
const SchemaVersion = "1"

// ErrSchemaMismatch is returned when a database was written by an
// incompatible version.
var ErrSchemaMismatch = errors.New("database schema version mismatch")

// SQLiteStore is a SQLite-backed implementation of store.Store
type SQLiteStore struct {
	db     *gorm.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite-backed store at the specified path.
// It initializes the database schema and sets up default configuration.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run auto-migration for all models
	if err := db.AutoMigrate(&ClipModel{}, &ConfigItemModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initDefaultConfig(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to init config: %w", err)
	}

	if err := s.checkVersion(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// History returns the history store
func (s *SQLiteStore) History() store.HistoryStore {
	return &sqliteHistoryStore{db: s.db}
}

// Config returns the config store
func (s *SQLiteStore) Config() store.ConfigStore {
	return &sqliteConfigStore{db: s.db}
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// initDefaultConfig sets up default configuration values
func (s *SQLiteStore) initDefaultConfig() error {
	defaults := map[string]string{
		"db_version": SchemaVersion,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}

	configStore := s.Config()
	for key, value := range defaults {
		// Only set if not already present
		if _, err := configStore.Get(key); errors.Is(err, store.ErrNotFound) {
			if err := configStore.Set(key, value); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLiteStore) checkVersion() error {
	version, err := s.Config().Get("db_version")
	if err != nil {
		return fmt.Errorf("failed to read db_version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("%w: %s has version %s, want %s", ErrSchemaMismatch, s.dbPath, version, SchemaVersion)
	}
	return nil
}

// sqliteHistoryStore implements store.HistoryStore using SQLite
type sqliteHistoryStore struct {
	db *gorm.DB
}

// Insert evicts same-label rows and stores the clip at the front, in one transaction
func (s *sqliteHistoryStore) Insert(clip store.Clip) ([]string, error) {
	var evicted []string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ClipModel{}).
			Where("label = ?", clip.Label).
			Pluck("id", &evicted).Error; err != nil {
			return fmt.Errorf("failed to find duplicate clips: %w", err)
		}

		if len(evicted) > 0 {
			if err := tx.Delete(&ClipModel{}, "id IN ?", evicted).Error; err != nil {
				return fmt.Errorf("failed to evict duplicate clips: %w", err)
			}
		}

		var maxSeq int64
		if err := tx.Model(&ClipModel{}).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return fmt.Errorf("failed to read sequence: %w", err)
		}

		if err := tx.Create(newClipModel(clip, maxSeq+1)).Error; err != nil {
			return fmt.Errorf("failed to create clip: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return evicted, nil
}

// List returns clips ordered by sequence (newest first)
func (s *sqliteHistoryStore) List(limit int) ([]store.Clip, error) {
	var models []*ClipModel

	query := s.db.Order("seq DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list clips: %w", err)
	}

	clips := make([]store.Clip, len(models))
	for i, model := range models {
		clips[i] = model.ToClip()
	}

	return clips, nil
}

// Delete removes a clip by ID
func (s *sqliteHistoryStore) Delete(id string) (bool, error) {
	result := s.db.Delete(&ClipModel{}, "id = ?", id)
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete clip: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteOldest removes the N oldest clips based on sequence
func (s *sqliteHistoryStore) DeleteOldest(count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}

	var ids []string
	err := s.db.Model(&ClipModel{}).
		Order("seq ASC").
		Limit(count).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find oldest clips: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	if err := s.db.Delete(&ClipModel{}, "id IN ?", ids).Error; err != nil {
		return nil, fmt.Errorf("failed to delete clips: %w", err)
	}

	return ids, nil
}

// Count returns the total number of clips
func (s *sqliteHistoryStore) Count() (int, error) {
	var count int64
	if err := s.db.Model(&ClipModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count clips: %w", err)
	}
	return int(count), nil
}

// Clear removes all clips
func (s *sqliteHistoryStore) Clear() error {
	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&ClipModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close releases any resources
func (s *sqliteHistoryStore) Close() error {
	return nil // No-op, parent store handles DB closing
}

// sqliteConfigStore implements store.ConfigStore using SQLite
type sqliteConfigStore struct {
	db *gorm.DB
}

// Get retrieves a configuration value by key
func (s *sqliteConfigStore) Get(key string) (string, error) {
	var model ConfigItemModel
	if err := s.db.First(&model, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("config key %s: %w", key, store.ErrNotFound)
		}
		return "", fmt.Errorf("failed to get config: %w", err)
	}
	return model.Value, nil
}

// Set stores a configuration value (upsert)
func (s *sqliteConfigStore) Set(key, value string) error {
	model := &ConfigItemModel{
		Key:   key,
		Value: value,
	}

	result := s.db.Where("key = ?", key).
		Assign(map[string]interface{}{"value": value, "updated_at": s.db.NowFunc()}).
		FirstOrCreate(model)

	if result.Error != nil {
		return fmt.Errorf("failed to set config: %w", result.Error)
	}

	return nil
}

// Close releases any resources
func (s *sqliteConfigStore) Close() error {
	return nil // No-op, parent store handles DB closing
}
