package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"etstrade.com/internal/constants"
	"etstrade.com/internal/domain"
	"etstrade.com/internal/model"
)

// Outbox 事务性出站队列：消息与实体变更写在同一事务，
// 由 Relay 异步搬运到 Redis，至少投递一次。
type Outbox struct{}

var _ domain.OutboundQueue = (*Outbox)(nil)

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) push(db *gorm.DB, op, key, field, payload string) error {
	return db.Create(&model.OutboxMessage{Op: op, Key: key, Field: field, Payload: payload}).Error
}

// PushExecute 下发执行指令，格式 id[,id...]=ACTION
func (o *Outbox) PushExecute(db *gorm.DB, orderIDs []string, action string) error {
	if len(orderIDs) == 0 {
		return nil
	}
	payload := strings.Join(orderIDs, ",") + "=" + action
	return o.push(db, model.OutboxOpRPush, constants.OrderBotQueueKey, "", payload)
}

// PushWatch 注册待触发订单：详情写 hash，id 进监视队列
func (o *Outbox) PushWatch(db *gorm.DB, order *model.Order) error {
	detail, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("序列化监视订单失败: %w", err)
	}
	if err := o.push(db, model.OutboxOpHSet, constants.WatcherDetailKey(order.Exchange), order.ID, string(detail)); err != nil {
		return err
	}
	return o.push(db, model.OutboxOpRPush, constants.WatcherNewOrderKey(order.Exchange), "", order.ID)
}

// PushUiNotify 通知前端推送服务刷新该计划
func (o *Outbox) PushUiNotify(db *gorm.DB, plan *model.OrderPlan) error {
	mode := "actual"
	if plan.IsVirtual {
		mode = "virtual"
	}
	payload := fmt.Sprintf(`apiOrder||%s||%s||%s||{"orderPlanId":"%s"}`,
		plan.Exchange, plan.UserID, mode, plan.ID)
	return o.push(db, model.OutboxOpRPush, constants.SocketParserKey, "", payload)
}

// PushNotify 投递用户通知事件
func (o *Outbox) PushNotify(db *gorm.DB, userID, event string, payload map[string]any) error {
	body, err := json.Marshal(map[string]any{
		"userId": userID,
		"event":  event,
		"data":   payload,
	})
	if err != nil {
		return fmt.Errorf("序列化通知失败: %w", err)
	}
	return o.push(db, model.OutboxOpRPush, constants.TelegramQueueKey, "", string(body))
}

// Relay 轮询出站表并搬运到 Redis
type Relay struct {
	db       *gorm.DB
	client   *redis.Client
	interval time.Duration
}

func NewRelay(db *gorm.DB, client *redis.Client, interval time.Duration) *Relay {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &Relay{db: db, client: client, interval: interval}
}

// Run 阻塞运行，ctx 取消后返回
func (r *Relay) Run(ctx context.Context) {
	log.Println("OutboxRelay: started")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("OutboxRelay: stopped")
			return
		case <-ticker.C:
			if err := r.DrainOnce(ctx); err != nil {
				log.Printf("OutboxRelay: drain error: %v", err)
			}
		}
	}
}

// DrainOnce 按写入顺序投递一批消息，成功后删除。
// Redis 调用失败即中断，这批消息留待下一轮重试。
func (r *Relay) DrainOnce(ctx context.Context) error {
	var messages []model.OutboxMessage
	if err := r.db.Order("id").Limit(100).Find(&messages).Error; err != nil {
		return err
	}
	for i := range messages {
		msg := &messages[i]
		var err error
		switch msg.Op {
		case model.OutboxOpHSet:
			err = r.client.HSet(ctx, msg.Key, msg.Field, msg.Payload).Err()
		default:
			err = r.client.RPush(ctx, msg.Key, msg.Payload).Err()
		}
		if err != nil {
			return err
		}
		if err := r.db.Delete(msg).Error; err != nil {
			return err
		}
	}
	return nil
}
