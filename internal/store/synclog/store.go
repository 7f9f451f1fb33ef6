// Package synclog persists sync engine activity (switches, merges, anomalies,
// transport errors) so operators can reconstruct what a session did.
package synclog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"chartsync/internal/logger"
	"chartsync/internal/series"
)

// EventModel is one row of sync activity.
type EventModel struct {
	ID          uint           `gorm:"primaryKey"`
	Symbol      string         `gorm:"index;size:32"`
	Granularity string         `gorm:"size:8"`
	Kind        string         `gorm:"index;size:24"`
	Detail      datatypes.JSON `gorm:"type:json"`
	CreatedAt   time.Time      `gorm:"index"`
}

func (EventModel) TableName() string { return "sync_events" }

// Store implements series.EventSink on SQLite via gorm.
type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("synclog: path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&EventModel{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) RecordSwitch(symbol string, g series.Granularity) {
	s.insert(EventModel{Symbol: symbol, Granularity: string(g), Kind: "switch"})
}

func (s *Store) RecordMerge(symbol string, g series.Granularity, stats series.MergeStats, cached int) {
	detail, _ := json.Marshal(map[string]any{
		"appended": stats.Appended,
		"anomaly":  stats.Anomaly,
		"cached":   cached,
	})
	s.insert(EventModel{
		Symbol:      symbol,
		Granularity: string(g),
		Kind:        string(stats.Kind),
		Detail:      detail,
	})
}

func (s *Store) RecordError(symbol string, g series.Granularity, err error) {
	detail, _ := json.Marshal(map[string]any{"error": err.Error()})
	s.insert(EventModel{Symbol: symbol, Granularity: string(g), Kind: "fetch_error", Detail: detail})
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(limit int) ([]EventModel, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []EventModel
	err := s.db.Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) insert(ev EventModel) {
	ev.CreatedAt = time.Now().UTC()
	if err := s.db.Create(&ev).Error; err != nil {
		// Persistence is best effort; the sync loop must never stall on it.
		logger.Warnf("[synclog] insert failed kind=%s: %v", ev.Kind, err)
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
