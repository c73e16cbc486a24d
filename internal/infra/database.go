package infra

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"etstrade.com/internal/config"
	"etstrade.com/internal/model"
)

// NewPostgresClient 连接 Postgres 并迁移数据表
func NewPostgresClient(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	log.Println("Database: connected and migrated")
	return db, nil
}

// AutoMigrate 迁移全部实体，测试库复用
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.OrderPlan{},
		&model.Order{},
		&model.Commission{},
		&model.Fill{},
		&model.Slippage{},
		&model.Strategy{},
		&model.OutboxMessage{},
		&model.TradingContest{},
		&model.TradingContestRecord{},
	)
}
