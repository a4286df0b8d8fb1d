package storage

import (
	"encoding/json"
	"errors"

	"hygiene-client/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Persistence keys. Each key holds one JSON blob that is read and rewritten
// as a whole; there is a single logical writer (the UI event loop), so
// last-write-wins is the concurrency discipline and no locking is used.
const (
	KeyRecords       = "records.snapshot.v1"
	KeyItems         = "recordItems.snapshot.v1"
	KeyConfirmations = "supervisorConfirmations.v1"
	KeyEmployees     = "employees.snapshot.v1"

	commentKeyPrefix = "hygiene:comment:"
)

// SnapshotBlob is one key/value row of the offline store.
type SnapshotBlob struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"column:value;not null"`
}

func (SnapshotBlob) TableName() string {
	return "snapshot_blobs"
}

// SnapshotStore is the durable client-side key/value store that survives
// restarts and is the source of truth while offline.
type SnapshotStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// OpenDB opens the snapshot database file.
func OpenDB(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func NewSnapshotStore(db *gorm.DB) (*SnapshotStore, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if err := db.AutoMigrate(&SnapshotBlob{}); err != nil {
		log.WithError(err).Error("Failed to auto-migrate snapshot_blobs table")
		return nil, err
	}

	log.Info("Snapshot store initialized")

	return &SnapshotStore{
		db:     db,
		logger: log,
	}, nil
}

// LoadRaw returns the stored blob for key, or ok=false when absent or
// unreadable. Read failures degrade to "absent"; corrupt data must never
// propagate to callers.
func (s *SnapshotStore) LoadRaw(key string) (string, bool) {
	var blob SnapshotBlob
	result := s.db.First(&blob, "key = ?", key)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return "", false
	}

	if result.Error != nil {
		s.logger.WithError(result.Error).WithField("key", key).Warn("Failed to read snapshot blob")
		return "", false
	}

	return blob.Value, true
}

// SaveRaw overwrites the blob for key in a single write.
func (s *SnapshotStore) SaveRaw(key, value string) error {
	blob := SnapshotBlob{Key: key, Value: value}

	result := s.db.Save(&blob)
	if result.Error != nil {
		s.logger.WithError(result.Error).WithField("key", key).Error("Failed to save snapshot blob")
		return result.Error
	}

	return nil
}

func (s *SnapshotStore) DeleteRaw(key string) error {
	result := s.db.Delete(&SnapshotBlob{}, "key = ?", key)
	if result.Error != nil {
		s.logger.WithError(result.Error).WithField("key", key).Error("Failed to delete snapshot blob")
		return result.Error
	}
	return nil
}

// Load deserializes the collection stored under key, returning fallback when
// the key is absent or the stored data is malformed.
func Load[T any](s *SnapshotStore, key string, fallback T) T {
	raw, ok := s.LoadRaw(key)
	if !ok {
		return fallback
	}

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Corrupt snapshot blob, using fallback")
		return fallback
	}

	return out
}

// Save serializes and fully overwrites the collection stored under key.
func Save[T any](s *SnapshotStore, key string, data T) error {
	raw, err := json.Marshal(data)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Error("Failed to serialize snapshot blob")
		return err
	}

	return s.SaveRaw(key, string(raw))
}

// Upsert replaces the entity with a matching id, or appends it. The input
// slice is not mutated; callers get a fresh slice back.
func Upsert[T any](list []T, entity T, id func(T) string) []T {
	want := id(entity)
	for i := range list {
		if id(list[i]) == want {
			clone := make([]T, len(list))
			copy(clone, list)
			clone[i] = entity
			return clone
		}
	}

	clone := make([]T, 0, len(list)+1)
	clone = append(clone, list...)
	return append(clone, entity)
}

func (s *SnapshotStore) LoadRecords() []models.CheckRecord {
	return Load(s, KeyRecords, []models.CheckRecord{})
}

func (s *SnapshotStore) SaveRecords(records []models.CheckRecord) error {
	return Save(s, KeyRecords, records)
}

func (s *SnapshotStore) LoadItems() []models.CheckItem {
	return Load(s, KeyItems, []models.CheckItem{})
}

func (s *SnapshotStore) SaveItems(items []models.CheckItem) error {
	return Save(s, KeyItems, items)
}

func (s *SnapshotStore) LoadEmployees() []models.Employee {
	return Load(s, KeyEmployees, []models.Employee{})
}

func (s *SnapshotStore) SaveEmployees(employees []models.Employee) error {
	return Save(s, KeyEmployees, employees)
}

// ItemsForRecord filters the item snapshot down to one record.
func (s *SnapshotStore) ItemsForRecord(recordID string) []models.CheckItem {
	var out []models.CheckItem
	for _, it := range s.LoadItems() {
		if it.RecordID == recordID {
			out = append(out, it)
		}
	}
	return out
}
