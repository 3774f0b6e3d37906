// Package repositories provides the data access layer.
// It handles all database operations and data persistence logic.
package repositories

import (
	"log"
	"os"
	"time"

	"brontie/internal/config"
	"brontie/internal/models"
	"brontie/internal/repositories/cache"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance used across the application.
var DB *gorm.DB

// CacheService is the shared Redis-backed cache.
var CacheService *cache.CacheService

// InitDB initializes the PostgreSQL connection and the Redis cache,
// sets up the connection pool and runs migrations.
func InitDB(cfg *config.Config) error {
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{})
	if err != nil {
		return err
	}
	DB = db

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	connMaxLifetime, err := time.ParseDuration(cfg.DB.ConnMaxLifetime)
	if err != nil {
		connMaxLifetime = time.Hour
	}
	connMaxIdleTime, err := time.ParseDuration(cfg.DB.ConnMaxIdleTime)
	if err != nil {
		connMaxIdleTime = 30 * time.Minute
	}
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	// Ignore "record not found" noise in the GORM log.
	db.Logger = logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	CacheService = cache.NewCacheService(redisClient, 24*time.Hour)

	return db.AutoMigrate(
		&models.Merchant{},
		&models.Product{},
		&models.Location{},
		&models.Voucher{},
		&models.PayoutItem{},
		&models.Referral{},
		&models.WebhookEvent{},
	)
}
