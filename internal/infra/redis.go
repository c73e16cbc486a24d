package infra

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"etstrade.com/internal/config"
)

// NewRedisClient 创建 Redis 客户端并检查连通性
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	log.Println("Redis: connected")
	return client, nil
}
