package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"fulfillment-api/internal/config"
	"fulfillment-api/internal/models"
	"fulfillment-api/pkg/logging"
)

// Init opens the relational store and Redis, migrates the schema and seeds
// default rows. Connections are returned to the caller instead of being held
// in package state.
func Init(cfg *config.Config, logger logging.Logger) (*gorm.DB, *redis.Client, error) {
	db, err := openGorm(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rdb, err := openRedis(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := seedDefaultTemplates(db); err != nil {
		return nil, nil, fmt.Errorf("failed to seed default data: %w", err)
	}

	logger.Infof("Database initialized successfully")
	return db, rdb, nil
}

func openGorm(cfg *config.Config, logger logging.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	}

	if cfg.DatabaseURL == "" {
		// Fallback to SQLite for development
		logger.Infof("DATABASE_URL not set, using SQLite for development")
		return gorm.Open(sqlite.Open("fulfillment-api.db"), gormCfg)
	}
	return gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
}

func openRedis(cfg *config.Config, logger logging.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Redis connected successfully")
	return client, nil
}

// AutoMigrate creates or updates the auxiliary metadata tables. Exported so
// store tests can run against an in-memory SQLite.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Plan{},
		&models.MeteredDimension{},
		&models.PlanAttribute{},
		&models.PlanEvent{},
		&models.WebhookEvent{},
		&models.EmailTemplate{},
	)
}

// seedDefaultTemplates inserts the lifecycle email templates used until the
// publisher customizes them.
func seedDefaultTemplates(db *gorm.DB) error {
	defaults := []models.EmailTemplate{
		{
			Status:      "Subscribed",
			Subject:     "Subscription activated",
			Body:        "Your subscription %s to plan %s is now active.",
			InsertMerge: true,
			IsActive:    true,
		},
		{
			Status:      "Unsubscribed",
			Subject:     "Subscription cancelled",
			Body:        "Your subscription %s to plan %s has been cancelled.",
			InsertMerge: true,
			IsActive:    true,
		},
		{
			Status:      "PendingFulfillmentStart",
			Subject:     "Subscription pending activation",
			Body:        "Your subscription %s to plan %s is awaiting activation by the publisher.",
			InsertMerge: true,
			IsActive:    true,
		},
	}

	for _, tpl := range defaults {
		seed := tpl
		if err := db.Where("status = ?", tpl.Status).FirstOrCreate(&seed).Error; err != nil {
			return fmt.Errorf("failed to seed template %s: %w", tpl.Status, err)
		}
	}
	return nil
}

// Close releases both connections.
func Close(db *gorm.DB, rdb *redis.Client, logger logging.Logger) {
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Errorf("Failed to close database: %v", err)
			}
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Errorf("Failed to close Redis: %v", err)
		}
	}
}
