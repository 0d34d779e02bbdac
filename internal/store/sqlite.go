package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is the row layout shared by the SQL backends.
type Entry struct {
	Key       string `gorm:"primaryKey;column:key"`
	Value     string `gorm:"column:value;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Entry) TableName() string { return "kv_entries" }

// SQLite is the on-device backend: a single database file via gorm.
type SQLite struct {
	db *gorm.DB
}

func NewSQLite(db *gorm.DB) (*SQLite, error) {
	if db == nil {
		return nil, errors.New("store: sqlite store requires database handle")
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Entry{}); err != nil {
		return unavailable("sqlite migrate", "", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("sqlite get", key, err)
	}
	return e.Value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Entry{Key: key, Value: value}).Error
	if err != nil {
		return unavailable("sqlite set", key, err)
	}
	return nil
}

func (s *SQLite) SetNX(ctx context.Context, key, value string) (bool, error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Entry{Key: key, Value: value})
	if res.Error != nil {
		return false, unavailable("sqlite setnx", key, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return unavailable("sqlite ping", "", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return unavailable("sqlite ping", "", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
