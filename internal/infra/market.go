package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"etstrade.com/internal/constants"
	"etstrade.com/internal/domain"
)

// marketSpec 行情采集端写入的规格 JSON
type marketSpec struct {
	TickSize float64 `json:"tickSize"`
	StepSize float64 `json:"stepSize"`
}

// actualBalance 实盘余额 JSON
type actualBalance struct {
	Free   float64 `json:"free"`
	Locked float64 `json:"locked"`
}

// RedisMarket 从行情 hash 读取交易规格、最新价与用户余额
type RedisMarket struct {
	client *redis.Client
}

var _ domain.MarketDataProvider = (*RedisMarket)(nil)
var _ domain.BalanceProvider = (*RedisMarket)(nil)

func NewRedisMarket(client *redis.Client) *RedisMarket {
	return &RedisMarket{client: client}
}

func (m *RedisMarket) spec(ctx context.Context, exchange, symbol string) (marketSpec, error) {
	raw, err := m.client.HGet(ctx, constants.MarketDataKey(exchange), symbol).Result()
	if err != nil {
		return marketSpec{}, fmt.Errorf("读取行情规格失败 %s/%s: %w", exchange, symbol, err)
	}
	var s marketSpec
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return marketSpec{}, fmt.Errorf("解析行情规格失败 %s/%s: %w", exchange, symbol, err)
	}
	return s, nil
}

func (m *RedisMarket) TickSize(ctx context.Context, exchange, symbol string) (float64, error) {
	s, err := m.spec(ctx, exchange, symbol)
	if err != nil {
		return 0, err
	}
	return s.TickSize, nil
}

func (m *RedisMarket) StepSize(ctx context.Context, exchange, symbol string) (float64, error) {
	s, err := m.spec(ctx, exchange, symbol)
	if err != nil {
		return 0, err
	}
	return s.StepSize, nil
}

func (m *RedisMarket) CurrentPrice(ctx context.Context, exchange, symbol string) (float64, error) {
	raw, err := m.client.HGet(ctx, constants.PriceKey(exchange), symbol).Result()
	if err != nil {
		return 0, fmt.Errorf("读取最新价失败 %s/%s: %w", exchange, symbol, err)
	}
	return strconv.ParseFloat(raw, 64)
}

// Available 读取可用余额。虚拟盘为放大 1e8 的整数，实盘为 {free,locked}。
func (m *RedisMarket) Available(ctx context.Context, userID, exchange, asset string, virtual bool) (float64, error) {
	raw, err := m.client.HGet(ctx, constants.BalanceKey(exchange, userID, virtual), asset).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("读取余额失败 %s/%s: %w", userID, asset, err)
	}
	if virtual {
		scaled, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, err
		}
		return scaled / constants.BalanceIntegerScale, nil
	}
	var b actualBalance
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return 0, fmt.Errorf("解析余额失败 %s/%s: %w", userID, asset, err)
	}
	return b.Free, nil
}
