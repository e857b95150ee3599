package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

var ErrNotFound = errors.New("snapshot not found")

type Database struct {
	db *gorm.DB
}

func NewDatabase(path string) (*Database, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&AstronomySnapshot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) SaveSnapshot(s *AstronomySnapshot) error {
	if s == nil {
		return errors.New("nil snapshot")
	}
	return d.db.Create(s).Error
}

func (d *Database) GetLatestSnapshot() (*AstronomySnapshot, error) {
	var snapshot AstronomySnapshot
	result := d.db.Order("timestamp desc").First(&snapshot)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &snapshot, nil
}

func (d *Database) GetSnapshotsByRange(from, to time.Time) ([]AstronomySnapshot, error) {
	var snapshots []AstronomySnapshot
	result := d.db.Where("timestamp BETWEEN ? AND ?", from.UTC(), to.UTC()).
		Order("timestamp desc").
		Find(&snapshots)
	if result.Error != nil {
		return nil, result.Error
	}
	return snapshots, nil
}

// GetSnapshotsWithLimit returns the newest snapshots first. limit is clamped
// to [1, MaxLimit]; zero or less means DefaultLimit.
func (d *Database) GetSnapshotsWithLimit(limit int) ([]AstronomySnapshot, error) {
	limit = ClampLimit(limit)

	var snapshots []AstronomySnapshot
	result := d.db.Order("timestamp desc").Limit(limit).Find(&snapshots)
	if result.Error != nil {
		return nil, result.Error
	}
	return snapshots, nil
}

func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// GetDailyStats summarises the snapshots taken on date's calendar day in
// date's location.
func (d *Database) GetDailyStats(date time.Time) (*DailyStats, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	stats := DailyStats{Date: startOfDay}
	window := d.db.Model(&AstronomySnapshot{}).
		Where("timestamp >= ? AND timestamp < ?", startOfDay.UTC(), endOfDay.UTC()).
		Session(&gorm.Session{})

	if err := window.Count(&stats.SnapshotsCount).Error; err != nil {
		return nil, err
	}
	if stats.SnapshotsCount == 0 {
		return &stats, nil
	}

	var avg struct{ Value float64 }
	if err := window.Select("AVG(moon_illumination) AS value").Scan(&avg).Error; err != nil {
		return nil, err
	}
	stats.AvgMoonIllumination = avg.Value

	var latest AstronomySnapshot
	if err := window.Order("timestamp desc").First(&latest).Error; err != nil {
		return nil, err
	}
	stats.DayLengthHours = latest.DayLengthHours
	stats.MoonPhaseName = latest.MoonPhaseName

	return &stats, nil
}

// CleanOldSnapshots hard-deletes rows older than olderThan and reports how
// many were removed.
func (d *Database) CleanOldSnapshots(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC()
	result := d.db.Unscoped().Where("timestamp < ?", cutoff).Delete(&AstronomySnapshot{})
	return result.RowsAffected, result.Error
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
