package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"etstrade.com/internal/api"
	"etstrade.com/internal/config"
	"etstrade.com/internal/engine"
	"etstrade.com/internal/infra"
	"etstrade.com/internal/plan"
	"etstrade.com/internal/service"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. 初始化基础设施
	db, err := infra.NewPostgresClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	rdb, err := infra.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// 3. 组装依赖
	market := infra.NewRedisMarket(rdb)
	outbox := infra.NewOutbox()
	manager := plan.NewManager(&plan.Deps{
		DB:       db,
		Queue:    outbox,
		Market:   market,
		Balance:  market,
		Slippage: service.NewSlippageService(db),
		Contest:  service.NewContestService(db),
	})
	query := service.NewQueryService(db)

	// 4. 启动后台循环：出站中继与成交回报消费
	ctx, cancel := context.WithCancel(context.Background())
	relay := infra.NewRelay(db, rdb, time.Duration(cfg.Trading.OutboxIntervalMs)*time.Millisecond)
	go relay.Run(ctx)

	eng := engine.New(rdb, manager, time.Duration(cfg.Trading.ResponseTimeoutSec)*time.Second)
	go eng.Run(ctx)

	// 5. 启动 Fiber 服务器
	app := api.NewServer(manager, query)
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// 6. 等待退出信号，优雅关停
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")
	cancel()
	if err := app.Shutdown(); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
