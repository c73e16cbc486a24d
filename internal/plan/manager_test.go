package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etstrade.com/internal/domain"
	"etstrade.com/internal/model"
)

func TestStartDefaultPlan(t *testing.T) {
	deps, queue, _, _ := newTestDeps(t)
	m := NewManager(deps)
	ctx := context.Background()

	p, err := m.Start(ctx, defaultInput("user-1"))
	require.NoError(t, err)
	require.Equal(t, model.AliveActive, p.Active)

	byType := planOrders(t, deps.DB, p.ID)
	require.Len(t, byType[model.IndicatorOpen], 1)
	require.Len(t, byType[model.IndicatorTake], 1)
	require.Len(t, byType[model.IndicatorLoss], 1)

	open := byType[model.IndicatorOpen][0]
	assert.Equal(t, model.AliveActive, open.Active)
	assert.Equal(t, model.StatusWaiting, open.Status)
	// 99 低于现价 100，买入开仓腿限价等待
	assert.Equal(t, model.TradeLimit, open.TradeType)
	assert.Equal(t, 1.0, open.ExecQty)
	assert.Contains(t, queue.watched, open.ID)

	// 平仓腿等待开仓成交，不进监视队列
	take := byType[model.IndicatorTake][0]
	assert.Equal(t, model.AliveWaiting, take.Active)
	assert.Equal(t, 0.0, take.ExecQty)
	assert.NotContains(t, queue.watched, take.ID)
	assert.Equal(t, model.AliveWaiting, byType[model.IndicatorLoss][0].Active)

	assert.Contains(t, queue.events, "ORDERPLAN-ALL-START")
}

func TestWaitingStateSurvivesInsert(t *testing.T) {
	deps, _, _, _ := newTestDeps(t)

	p := model.NewOrderPlan("user-1", "binance", "BTC-USDT", model.PlanDefault, model.DirectionB2S, true, false)
	p.Active = model.AliveWaiting
	require.NoError(t, deps.DB.Create(p).Error)

	order := model.NewOrder("user-1", p.ID, "binance", "BTC-USDT", model.PlanDefault, model.SubOrderSpec{
		Side:          model.SideSell,
		TradeType:     model.TradeLimit,
		IndicatorType: model.IndicatorTake,
		Qty:           1,
	})
	order.Active = model.AliveWaiting
	require.NoError(t, deps.DB.Create(order).Error)

	var gotPlan model.OrderPlan
	require.NoError(t, deps.DB.First(&gotPlan, "id = ?", p.ID).Error)
	assert.Equal(t, model.AliveWaiting, gotPlan.Active)

	var gotOrder model.Order
	require.NoError(t, deps.DB.First(&gotOrder, "id = ?", order.ID).Error)
	assert.Equal(t, model.AliveWaiting, gotOrder.Active)
}

func TestStartOpenAboveMarketGoesMarket(t *testing.T) {
	deps, _, market, _ := newTestDeps(t)
	m := NewManager(deps)
	market.price = 98

	in := defaultInput("user-1")
	p, err := m.Start(context.Background(), in)
	require.NoError(t, err)

	open := planOrders(t, deps.DB, p.ID)[model.IndicatorOpen][0]
	assert.Equal(t, model.TradeMarket, open.TradeType)
}

func TestStartRejectsOffTickPrice(t *testing.T) {
	deps, _, _, _ := newTestDeps(t)
	m := NewManager(deps)

	in := defaultInput("user-1")
	in.OpenInfo[0].EnterPrice = 99.0051

	_, err := m.Start(context.Background(), in)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeInvalidTick, appErr.Code)
}

func TestStartPlanCountLimit(t *testing.T) {
	deps, _, _, _ := newTestDeps(t)
	m := NewManager(deps)
	ctx := context.Background()

	for i := 0; i < model.OngoingPlanLimit; i++ {
		p := model.NewOrderPlan("user-1", "binance", "ETH-USDT", model.PlanDefault, model.DirectionB2S, true, false)
		require.NoError(t, deps.DB.Create(p).Error)
	}

	_, err := m.Start(ctx, defaultInput("user-1"))
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeOrderCountLimit, appErr.Code)

	// tester 账号不受上限约束
	require.NoError(t, deps.DB.Create(&model.User{
		ID: "user-1", UserName: "t", Email: "t@t", Grade: model.GradeTester,
	}).Error)
	_, err = m.Start(ctx, defaultInput("user-1"))
	require.NoError(t, err)
}

func TestStartRejectsOppositeDirection(t *testing.T) {
	deps, _, _, _ := newTestDeps(t)
	m := NewManager(deps)

	existing := model.NewOrderPlan("user-1", "binance", "BTC-USDT", model.PlanDefault, model.DirectionS2B, true, false)
	require.NoError(t, deps.DB.Create(existing).Error)

	_, err := m.Start(context.Background(), defaultInput("user-1"))
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeWrongDirection, appErr.Code)
}

func TestPauseResumeRoundTrip(t *testing.T) {
	deps, queue, _, _ := newTestDeps(t)
	m := NewManager(deps)
	ctx := context.Background()

	p, err := m.Start(ctx, defaultInput("user-1"))
	require.NoError(t, err)

	require.NoError(t, m.Pause(ctx, "user-1", p.ID))
	assert.Equal(t, model.AliveStopByUser, reloadPlan(t, deps.DB, p.ID).Active)
	open := planOrders(t, deps.DB, p.ID)[model.IndicatorOpen][0]
	assert.Equal(t, model.AliveStopByUser, open.Active)
	assert.Equal(t, model.StatusWaiting, open.Status)

	// 重复暂停被拒绝
	err = m.Pause(ctx, "user-1", p.ID)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeOnlyActivePause, appErr.Code)

	require.NoError(t, m.Resume(ctx, "user-1", p.ID))
	assert.Equal(t, model.AliveActive, reloadPlan(t, deps.DB, p.ID).Active)
	open = planOrders(t, deps.DB, p.ID)[model.IndicatorOpen][0]
	assert.Equal(t, model.AliveActive, open.Active)
	assert.Contains(t, queue.events, "ORDERPLAN-ALL-RESUME")
}

func TestCancelPlan(t *testing.T) {
	deps, _, _, _ := newTestDeps(t)
	m := NewManager(deps)
	ctx := context.Background()

	p, err := m.Start(ctx, defaultInput("user-1"))
	require.NoError(t, err)

	require.NoError(t, m.Cancel(ctx, "user-1", p.ID))
	assert.Equal(t, model.AliveCanceled, reloadPlan(t, deps.DB, p.ID).Active)

	byType := planOrders(t, deps.DB, p.ID)
	for _, orders := range byType {
		for _, o := range orders {
			assert.Equal(t, model.AliveCanceled, o.Active)
			assert.Equal(t, model.StatusUserCancel, o.Status)
		}
	}

	// 已完结计划不能再操作
	err = m.Cancel(ctx, "user-1", p.ID)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeNotAllowedState, appErr.Code)
}

func TestBasicPlanLifecycle(t *testing.T) {
	deps, queue, _, _ := newTestDeps(t)
	m := NewManager(deps)
	ctx := context.Background()

	in := &PlanInput{
		UserID:    "user-1",
		Exchange:  "binance",
		Symbol:    "BTC-USDT",
		PlanType:  model.PlanBasic,
		Direction: model.DirectionB2S,
		IsVirtual: true,
		OpenInfo:  []LegInput{{Side: model.SideBuy, TradeType: model.TradeMarket, Qty: 0.5}},
	}
	p, err := m.Start(ctx, in)
	require.NoError(t, err)

	byType := planOrders(t, deps.DB, p.ID)
	require.Len(t, byType[model.IndicatorOpen], 1)
	open := byType[model.IndicatorOpen][0]

	// 直发执行队列，不经过监视器
	assert.Equal(t, []string{"OPEN"}, queue.actionsFor(open.ID))
	assert.Empty(t, queue.watched)

	require.NoError(t, m.OnExecutionReport(ctx, fillReport(open.UKey, "f-1", ReportStatusFilled, 0.5, 50)))
	assert.Equal(t, model.AliveComplete, reloadPlan(t, deps.DB, p.ID).Active)
}

func TestBasicModifyRejectedAfterFill(t *testing.T) {
	deps, _, _, _ := newTestDeps(t)
	m := NewManager(deps)
	ctx := context.Background()

	in := &PlanInput{
		UserID:    "user-1",
		Exchange:  "binance",
		Symbol:    "BTC-USDT",
		PlanType:  model.PlanBasic,
		Direction: model.DirectionB2S,
		IsVirtual: true,
		OpenInfo:  []LegInput{{Side: model.SideBuy, TradeType: model.TradeLimit, EnterPrice: 99, Qty: 1}},
	}
	p, err := m.Start(ctx, in)
	require.NoError(t, err)
	open := planOrders(t, deps.DB, p.ID)[model.IndicatorOpen][0]

	require.NoError(t, m.OnExecutionReport(ctx, fillReport(open.UKey, "f-1", model.StatusPartiallyFilled, 0.4, 39.6)))

	err = m.Modify(ctx, "user-1", p.ID, in)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeBasicFilled, appErr.Code)
}

func TestPauseAllAndResumeAll(t *testing.T) {
	deps, _, _, _ := newTestDeps(t)
	m := NewManager(deps)
	ctx := context.Background()

	first, err := m.Start(ctx, defaultInput("user-1"))
	require.NoError(t, err)
	secondIn := defaultInput("user-1")
	secondIn.Symbol = "ETH-USDT"
	second, err := m.Start(ctx, secondIn)
	require.NoError(t, err)

	result, err := m.PauseAll(ctx, "user-1", "binance", true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Equal(t, model.AliveStopByUser, reloadPlan(t, deps.DB, first.ID).Active)
	assert.Equal(t, model.AliveStopByUser, reloadPlan(t, deps.DB, second.ID).Active)

	result, err = m.ResumeAll(ctx, "user-1", "binance", true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, model.AliveActive, reloadPlan(t, deps.DB, first.ID).Active)
}

func TestCancelAllByAsset(t *testing.T) {
	deps, _, _, _ := newTestDeps(t)
	m := NewManager(deps)
	ctx := context.Background()

	btc, err := m.Start(ctx, defaultInput("user-1"))
	require.NoError(t, err)
	ethIn := defaultInput("user-1")
	ethIn.Symbol = "ETH-USDT"
	eth, err := m.Start(ctx, ethIn)
	require.NoError(t, err)

	result, err := m.CancelAllByAsset(ctx, "user-1", "binance", "BTC")
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, model.AliveCanceled, reloadPlan(t, deps.DB, btc.ID).Active)
	assert.Equal(t, model.AliveActive, reloadPlan(t, deps.DB, eth.ID).Active)
}

func TestUnknownUKeyIgnored(t *testing.T) {
	deps, _, _, _ := newTestDeps(t)
	m := NewManager(deps)

	err := m.OnExecutionReport(context.Background(),
		fillReport("no-such-key", "f-1", ReportStatusFilled, 1, 100))
	require.NoError(t, err)
}
