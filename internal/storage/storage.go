package storage

import (
	"context"
	"fmt"
	"time"

	"chainpulse/internal/config"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps the GORM database connection
type DB struct {
	conn *gorm.DB
	log  *logrus.Logger
}

// New creates a new database connection with GORM
func New(cfg *config.Config, log *logrus.Logger) (*DB, error) {
	// Configure GORM logger
	gormLogger := logger.New(
		&gormLogAdapter{log: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	conn, err := gorm.Open(mysql.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.DatabaseMaxConns)
	sqlDB.SetMaxIdleConns(cfg.DatabaseMaxConns / 2)
	sqlDB.SetConnMaxIdleTime(cfg.DatabaseMaxIdleTime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("Database connection established")

	return &DB{conn: conn, log: log}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate runs GORM auto-migration (for development only)
func (db *DB) AutoMigrate() error {
	return db.conn.AutoMigrate(
		&Alert{},
		&APICache{},
		&EventLog{},
	)
}

// GetAlertsByType retrieves active alerts of the given type
func (db *DB) GetAlertsByType(ctx context.Context, alertType string) ([]Alert, error) {
	var alerts []Alert
	result := db.conn.WithContext(ctx).
		Where("type = ? AND is_active = ?", alertType, true).
		Find(&alerts)
	return alerts, result.Error
}

// GetAlert retrieves an alert by id
func (db *DB) GetAlert(ctx context.Context, id int64) (*Alert, error) {
	var alert Alert
	result := db.conn.WithContext(ctx).Where("id = ?", id).First(&alert)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &alert, nil
}

// CreateAlert inserts a new alert definition
func (db *DB) CreateAlert(ctx context.Context, alert *Alert) (int64, error) {
	result := db.conn.WithContext(ctx).Create(alert)
	if result.Error != nil {
		return 0, result.Error
	}
	return alert.ID, nil
}

// DeleteAlert removes an alert definition
func (db *DB) DeleteAlert(ctx context.Context, id int64) error {
	return db.conn.WithContext(ctx).Delete(&Alert{}, id).Error
}

// MarkAlertTriggered records a trigger timestamp; once-alerts are deactivated
// in the same update so the cooldown and lifecycle change stay consistent.
func (db *DB) MarkAlertTriggered(ctx context.Context, id int64, triggeredTS int64, deactivate bool) error {
	updates := map[string]interface{}{
		"last_triggered_ts": triggeredTS,
	}
	if deactivate {
		updates["is_active"] = false
	}
	return db.conn.WithContext(ctx).
		Model(&Alert{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// GetCache retrieves a cache entry by key, expired or not
func (db *DB) GetCache(ctx context.Context, key string) (*APICache, error) {
	var entry APICache
	result := db.conn.WithContext(ctx).Where("cache_key = ?", key).First(&entry)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &entry, nil
}

// SetCache replaces the cache entry for a key
func (db *DB) SetCache(ctx context.Context, key string, payload []byte, expiresTS int64) error {
	entry := APICache{
		CacheKey:  key,
		Payload:   payload,
		ExpiresTS: expiresTS,
		CreatedTS: time.Now().Unix(),
	}
	return db.conn.WithContext(ctx).Save(&entry).Error
}

// PurgeExpiredCache deletes entries past their expiry
func (db *DB) PurgeExpiredCache(ctx context.Context, now int64) error {
	return db.conn.WithContext(ctx).
		Where("expires_ts <= ?", now).
		Delete(&APICache{}).Error
}

// InsertEventLog appends to the notification audit trail
func (db *DB) InsertEventLog(ctx context.Context, entry *EventLog) error {
	return db.conn.WithContext(ctx).Create(entry).Error
}

// gormLogAdapter adapts logrus to GORM's logger interface
type gormLogAdapter struct {
	log *logrus.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
