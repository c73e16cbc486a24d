package plan

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"etstrade.com/internal/infra"
	"etstrade.com/internal/model"
)

type executePush struct {
	ids    []string
	action string
}

// fakeQueue 记录全部出站消息，替代事务性出站队列
type fakeQueue struct {
	executes []executePush
	watched  []string
	uiCount  int
	events   []string
}

func (q *fakeQueue) PushExecute(db *gorm.DB, orderIDs []string, action string) error {
	if len(orderIDs) == 0 {
		return nil
	}
	q.executes = append(q.executes, executePush{ids: orderIDs, action: action})
	return nil
}

func (q *fakeQueue) PushWatch(db *gorm.DB, order *model.Order) error {
	q.watched = append(q.watched, order.ID)
	return nil
}

func (q *fakeQueue) PushUiNotify(db *gorm.DB, plan *model.OrderPlan) error {
	q.uiCount++
	return nil
}

func (q *fakeQueue) PushNotify(db *gorm.DB, userID, event string, payload map[string]any) error {
	q.events = append(q.events, event)
	return nil
}

func (q *fakeQueue) actionsFor(orderID string) []string {
	var actions []string
	for _, push := range q.executes {
		for _, id := range push.ids {
			if id == orderID {
				actions = append(actions, push.action)
			}
		}
	}
	return actions
}

type fakeMarket struct {
	tick, step, price, balance float64
}

func (m *fakeMarket) TickSize(ctx context.Context, exchange, symbol string) (float64, error) {
	return m.tick, nil
}

func (m *fakeMarket) StepSize(ctx context.Context, exchange, symbol string) (float64, error) {
	return m.step, nil
}

func (m *fakeMarket) CurrentPrice(ctx context.Context, exchange, symbol string) (float64, error) {
	return m.price, nil
}

func (m *fakeMarket) Available(ctx context.Context, userID, exchange, asset string, virtual bool) (float64, error) {
	return m.balance, nil
}

type fakeSlippage struct{ slip float64 }

func (s *fakeSlippage) ForPrice(ctx context.Context, price float64) (float64, error) {
	return s.slip, nil
}

type fakeContest struct {
	recorded []string
	// 每轮的带符号盈亏额，按记录顺序
	roundAmounts []float64
}

func (c *fakeContest) RecordPlanReturn(ctx context.Context, plan *model.OrderPlan) error {
	c.recorded = append(c.recorded, plan.ID)
	return nil
}

func (c *fakeContest) RecordRoundReturn(ctx context.Context, plan *model.OrderPlan, openAmount, closeAmount float64) error {
	c.recorded = append(c.recorded, plan.ID)
	c.roundAmounts = append(c.roundAmounts, (closeAmount-openAmount)*plan.Direction.Sign())
	return nil
}

func newTestDeps(t *testing.T) (*Deps, *fakeQueue, *fakeMarket, *fakeContest) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, infra.AutoMigrate(db))

	queue := &fakeQueue{}
	market := &fakeMarket{tick: 0.01, step: 0.001, price: 100, balance: 1000000}
	contest := &fakeContest{}
	deps := &Deps{
		DB:       db,
		Queue:    queue,
		Market:   market,
		Balance:  market,
		Slippage: &fakeSlippage{slip: 0.003},
		Contest:  contest,
	}
	return deps, queue, market, contest
}

// defaultInput 一条腿各一的标准定价计划输入
func defaultInput(userID string) *PlanInput {
	return &PlanInput{
		UserID:    userID,
		Exchange:  "binance",
		Symbol:    "BTC-USDT",
		PlanType:  model.PlanDefault,
		Direction: model.DirectionB2S,
		IsVirtual: true,
		OpenInfo:  []LegInput{{Side: model.SideBuy, EnterPrice: 99, Qty: 1}},
		TakeProfitInfo: []LegInput{
			{Side: model.SideSell, EnterPrice: 110, Qty: 1},
		},
		StopLossInfo: []LegInput{
			{Side: model.SideSell, EnterPrice: 90, Qty: 1},
		},
	}
}

func planOrders(t *testing.T, db *gorm.DB, planID string) map[model.IndicatorType][]*model.Order {
	t.Helper()
	var orders []*model.Order
	require.NoError(t, db.Where("order_plan_id = ?", planID).Order("bundle, created_at").Find(&orders).Error)
	byType := map[model.IndicatorType][]*model.Order{}
	for _, o := range orders {
		byType[o.IndicatorType] = append(byType[o.IndicatorType], o)
	}
	return byType
}

func reloadPlan(t *testing.T, db *gorm.DB, planID string) *model.OrderPlan {
	t.Helper()
	var p model.OrderPlan
	require.NoError(t, db.First(&p, "id = ?", planID).Error)
	return &p
}

func fillReport(uKey, fillID string, status model.OrderStatus, qty, amount float64) ExecutionReport {
	return ExecutionReport{
		UKey:        uKey,
		Status:      status,
		ExecutedQty: qty,
		Amount:      amount,
		Price:       amount / qty,
		FillID:      fillID,
	}
}
