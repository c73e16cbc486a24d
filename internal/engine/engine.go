package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"etstrade.com/internal/constants"
	"etstrade.com/internal/plan"
)

// Engine 成交回报消费循环：阻塞弹出 order:response 队列并交给
// 计划编排层处理。
type Engine struct {
	client  *redis.Client
	manager *plan.Manager
	timeout time.Duration
}

func New(client *redis.Client, manager *plan.Manager, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Engine{client: client, manager: manager, timeout: timeout}
}

// Run 阻塞运行，ctx 取消后返回。BRPop 带超时轮询，
// 每轮检查一次退出信号。
func (e *Engine) Run(ctx context.Context) {
	log.Println("Engine: started")
	for {
		select {
		case <-ctx.Done():
			log.Println("Engine: stopped")
			return
		default:
		}
		values, err := e.client.BRPop(ctx, e.timeout, constants.OrderResponseKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				log.Println("Engine: stopped")
				return
			}
			log.Printf("Engine: brpop error: %v", err)
			time.Sleep(time.Second)
			continue
		}
		// BRPop 返回 [key, value]
		if len(values) < 2 {
			continue
		}
		e.handle(ctx, values[1])
	}
}

func (e *Engine) handle(ctx context.Context, raw string) {
	var report plan.ExecutionReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		log.Printf("Engine: bad report payload: %v", err)
		return
	}
	if report.UKey == "" {
		log.Printf("Engine: report without uKey dropped")
		return
	}
	if err := e.manager.OnExecutionReport(ctx, report); err != nil {
		log.Printf("Engine: report %s failed: %v", report.UKey, err)
	}
}
