package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

const DefaultDBFile = "lyryc.sqlite3"
const errDBClientNil = "db client is nil"

const globalOffsetSetting = "global_offset"

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type LyricsCacheEntry struct {
	CacheKey  string `gorm:"primaryKey;type:varchar(512)"`
	Payload   string
	Source    string
	ExpiresAt *time.Time `gorm:"index:idx_cache_expiry"`
	UpdatedAt time.Time
}

type OffsetEntry struct {
	TrackKey  string  `gorm:"primaryKey;type:varchar(512)" json:"key"`
	Artist    string  `json:"artist"`
	Title     string  `json:"title"`
	OffsetSec float64 `json:"offset"`
	UpdatedAt time.Time
}

type Setting struct {
	Name  string `gorm:"primaryKey;type:varchar(64)"`
	Value string
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("LYRYC_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// one writer at a time
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&LyricsCacheEntry{}, &OffsetEntry{}, &Setting{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *DBClient) check() error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return nil
}

// GetLyrics implements Cache. Expired rows read as ErrNotFound.
func (c *DBClient) GetLyrics(ctx context.Context, key string) (*models.LyricsData, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	var entry LyricsCacheEntry
	err := c.DB.WithContext(ctx).Where("cache_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying lyrics cache: %w", err)
	}
	if entry.ExpiresAt != nil && time.Now().After(*entry.ExpiresAt) {
		return nil, ErrNotFound
	}
	return decodeLyrics(entry.Payload)
}

// SetLyrics implements Cache. A zero ttl never expires.
func (c *DBClient) SetLyrics(ctx context.Context, key string, data *models.LyricsData, ttl time.Duration) error {
	if err := c.check(); err != nil {
		return err
	}
	payload, err := encodeLyrics(data)
	if err != nil {
		return err
	}

	entry := LyricsCacheEntry{CacheKey: key, Payload: payload, Source: data.Source}
	if ttl > 0 {
		exp := time.Now().Add(ttl)
		entry.ExpiresAt = &exp
	}
	err = c.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("storing lyrics cache: %w", err)
	}
	return nil
}

// DeleteLyrics implements Cache.
func (c *DBClient) DeleteLyrics(ctx context.Context, key string) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.DB.WithContext(ctx).Where("cache_key = ?", key).Delete(&LyricsCacheEntry{}).Error
}

// PurgeExpired removes expired cache rows and returns how many went.
func (c *DBClient) PurgeExpired(ctx context.Context) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	res := c.DB.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).
		Delete(&LyricsCacheEntry{})
	return res.RowsAffected, res.Error
}

// TrackOffset returns the stored offset for key; ok is false when none.
func (c *DBClient) TrackOffset(ctx context.Context, key string) (float64, bool, error) {
	if err := c.check(); err != nil {
		return 0, false, err
	}
	var row OffsetEntry
	err := c.DB.WithContext(ctx).Where("track_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying track offset: %w", err)
	}
	return row.OffsetSec, true, nil
}

func (c *DBClient) SetTrackOffset(ctx context.Context, key, artist, title string, sec float64) error {
	if err := c.check(); err != nil {
		return err
	}
	row := OffsetEntry{TrackKey: key, Artist: artist, Title: title, OffsetSec: sec}
	if err := c.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("storing track offset: %w", err)
	}
	return nil
}

func (c *DBClient) DeleteTrackOffset(ctx context.Context, key string) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.DB.WithContext(ctx).Where("track_key = ?", key).Delete(&OffsetEntry{}).Error
}

// TrackOffsets lists every stored per-track offset.
func (c *DBClient) TrackOffsets(ctx context.Context) ([]OffsetEntry, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	var rows []OffsetEntry
	if err := c.DB.WithContext(ctx).Order("artist, title").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing track offsets: %w", err)
	}
	return rows, nil
}

func (c *DBClient) GlobalOffset(ctx context.Context) (float64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	var s Setting
	err := c.DB.WithContext(ctx).Where("name = ?", globalOffsetSetting).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying global offset: %w", err)
	}
	v, err := strconv.ParseFloat(s.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing global offset %q: %w", s.Value, err)
	}
	return v, nil
}

func (c *DBClient) SetGlobalOffset(ctx context.Context, sec float64) error {
	if err := c.check(); err != nil {
		return err
	}
	s := Setting{Name: globalOffsetSetting, Value: strconv.FormatFloat(sec, 'f', -1, 64)}
	if err := c.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&s).Error; err != nil {
		return fmt.Errorf("storing global offset: %w", err)
	}
	return nil
}
