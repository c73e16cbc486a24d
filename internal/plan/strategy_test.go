package plan

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etstrade.com/internal/domain"
	"etstrade.com/internal/model"
)

func seedStrategy(t *testing.T, deps *Deps) *model.Strategy {
	t.Helper()
	s := &model.Strategy{
		ID:        uuid.NewString(),
		Name:      "golden-cross-long",
		Direction: model.DirectionB2S,
		OpenInfo: []model.StrategyLeg{
			{Side: model.SideBuy, Qty: 1, Indicators: []map[string]float64{{"goldenCross": 1}}},
		},
		TakeProfitInfo: []model.StrategyLeg{
			{Side: model.SideSell, Qty: 1, Indicators: []map[string]float64{{"takeProfitPercent": 0.05}}},
		},
		StopLossInfo: map[string]float64{"stopLossPercent": 0.03},
	}
	require.NoError(t, deps.DB.Create(s).Error)
	return s
}

func strategyInput(userID, strategyID string) *PlanInput {
	return &PlanInput{
		UserID:     userID,
		Exchange:   "binance",
		Symbol:     "BTC-USDT",
		PlanType:   model.PlanStrategy,
		IsVirtual:  true,
		StrategyID: strategyID,
		Qty:        2,
	}
}

func TestStrategyStartInstantiatesBundle(t *testing.T) {
	deps, queue, _, _ := newTestDeps(t)
	m := NewManager(deps)
	s := seedStrategy(t, deps)

	p, err := m.Start(context.Background(), strategyInput("user-1", s.ID))
	require.NoError(t, err)
	assert.Equal(t, model.DirectionB2S, p.Direction)
	assert.Equal(t, "golden-cross-long", p.StrategyName)
	assert.Equal(t, 2.0, p.StrategyQty)

	byType := planOrders(t, deps.DB, p.ID)
	require.Len(t, byType[model.IndicatorOpen], 1)
	require.Len(t, byType[model.IndicatorTake], 1)
	require.Len(t, byType[model.IndicatorLoss], 1)

	open := byType[model.IndicatorOpen][0]
	assert.Equal(t, model.TradeMarket, open.TradeType)
	assert.Equal(t, model.IndicatorKindSignal, open.Indicator.Kind)
	assert.Equal(t, 2.0, open.ExecQty)
	assert.Contains(t, queue.watched, open.ID)

	take := byType[model.IndicatorTake][0]
	assert.Equal(t, model.TradeTakeProfitLimit, take.TradeType)
	assert.Equal(t, model.IndicatorKindTakePercent, take.Indicator.Kind)
	assert.Equal(t, model.AliveWaiting, take.Active)

	loss := byType[model.IndicatorLoss][0]
	assert.Equal(t, model.SideSell, loss.Side)
	assert.Equal(t, model.IndicatorKindLossPercent, loss.Indicator.Kind)
	assert.Equal(t, model.AliveWaiting, loss.Active)
}

func TestStrategyStartWithoutStrategyRejected(t *testing.T) {
	deps, _, _, _ := newTestDeps(t)
	m := NewManager(deps)

	in := strategyInput("user-1", uuid.NewString())
	_, err := m.Start(context.Background(), in)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeNoStrategy, appErr.Code)
}

func TestStrategyOpenFillPricesCloseLegs(t *testing.T) {
	deps, _, _, _ := newTestDeps(t)
	m := NewManager(deps)
	ctx := context.Background()
	s := seedStrategy(t, deps)

	p, err := m.Start(ctx, strategyInput("user-1", s.ID))
	require.NoError(t, err)
	open := planOrders(t, deps.DB, p.ID)[model.IndicatorOpen][0]

	require.NoError(t, m.OnExecutionReport(ctx, fillReport(open.UKey, "f-1", ReportStatusFilled, 2, 200)))

	byType := planOrders(t, deps.DB, p.ID)
	take := byType[model.IndicatorTake][0]
	assert.Equal(t, model.AliveActive, take.Active)
	assert.Equal(t, 2.0, take.ExecQty)
	// 开仓均价 100，止盈 5% → 105
	assert.Equal(t, model.IndicatorKindPrice, take.Indicator.Kind)
	assert.InDelta(t, 105.0, take.Indicator.EnterPrice, 1e-9)

	loss := byType[model.IndicatorLoss][0]
	assert.Equal(t, model.AliveActive, loss.Active)
	// 止损 3% → 97
	assert.InDelta(t, 97.0, loss.Indicator.EnterPrice, 1e-9)
}

func TestStrategyTakeFillChainsNextBundle(t *testing.T) {
	deps, _, _, contest := newTestDeps(t)
	m := NewManager(deps)
	ctx := context.Background()
	s := seedStrategy(t, deps)

	p, err := m.Start(ctx, strategyInput("user-1", s.ID))
	require.NoError(t, err)
	open := planOrders(t, deps.DB, p.ID)[model.IndicatorOpen][0]
	require.NoError(t, m.OnExecutionReport(ctx, fillReport(open.UKey, "f-1", ReportStatusFilled, 2, 200)))

	take := planOrders(t, deps.DB, p.ID)[model.IndicatorTake][0]
	require.NoError(t, m.OnExecutionReport(ctx, fillReport(take.UKey, "f-2", ReportStatusFilled, 2, 210)))

	// 第一轮止损被撤，第二轮三条腿已生成
	byType := planOrders(t, deps.DB, p.ID)
	require.Len(t, byType[model.IndicatorOpen], 2)
	require.Len(t, byType[model.IndicatorTake], 2)
	require.Len(t, byType[model.IndicatorLoss], 2)

	firstLoss := byType[model.IndicatorLoss][0]
	assert.Equal(t, model.StatusCompleteCancel, firstLoss.Status)

	secondOpen := byType[model.IndicatorOpen][1]
	assert.Equal(t, 2, secondOpen.Bundle)
	assert.Equal(t, model.AliveActive, secondOpen.Active)

	assert.Equal(t, model.AliveActive, reloadPlan(t, deps.DB, p.ID).Active)
	assert.Contains(t, contest.recorded, p.ID)
}

func TestStrategyRoundsScoredIndividually(t *testing.T) {
	deps, _, _, contest := newTestDeps(t)
	m := NewManager(deps)
	ctx := context.Background()
	s := seedStrategy(t, deps)

	p, err := m.Start(ctx, strategyInput("user-1", s.ID))
	require.NoError(t, err)

	// 第一轮：开 2@100，止盈 2@105，盈亏 +10
	open := planOrders(t, deps.DB, p.ID)[model.IndicatorOpen][0]
	require.NoError(t, m.OnExecutionReport(ctx, fillReport(open.UKey, "f-1", ReportStatusFilled, 2, 200)))
	take := planOrders(t, deps.DB, p.ID)[model.IndicatorTake][0]
	require.NoError(t, m.OnExecutionReport(ctx, fillReport(take.UKey, "f-2", ReportStatusFilled, 2, 210)))

	// 第二轮：开 2@102，止盈 2@107.5，盈亏 +11
	byType := planOrders(t, deps.DB, p.ID)
	require.Len(t, byType[model.IndicatorOpen], 2)
	secondOpen := byType[model.IndicatorOpen][1]
	require.NoError(t, m.OnExecutionReport(ctx, fillReport(secondOpen.UKey, "f-3", ReportStatusFilled, 2, 204)))
	secondTake := planOrders(t, deps.DB, p.ID)[model.IndicatorTake][1]
	require.NoError(t, m.OnExecutionReport(ctx, fillReport(secondTake.UKey, "f-4", ReportStatusFilled, 2, 215)))

	// 每轮只计自身盈亏，前一轮不重复累计
	require.Len(t, contest.roundAmounts, 2)
	assert.InDelta(t, 10.0, contest.roundAmounts[0], 1e-9)
	assert.InDelta(t, 11.0, contest.roundAmounts[1], 1e-9)
}

func TestStrategyStopAfterTradeEndsRound(t *testing.T) {
	deps, _, _, _ := newTestDeps(t)
	m := NewManager(deps)
	ctx := context.Background()
	s := seedStrategy(t, deps)

	p, err := m.Start(ctx, strategyInput("user-1", s.ID))
	require.NoError(t, err)

	// 未有持仓时不允许
	err = m.StopAfterTrade(ctx, "user-1", p.ID)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeNotOpenFilled, appErr.Code)

	open := planOrders(t, deps.DB, p.ID)[model.IndicatorOpen][0]
	require.NoError(t, m.OnExecutionReport(ctx, fillReport(open.UKey, "f-1", ReportStatusFilled, 2, 200)))
	require.NoError(t, m.StopAfterTrade(ctx, "user-1", p.ID))
	assert.Equal(t, model.AliveStopAfterTrade, reloadPlan(t, deps.DB, p.ID).Active)

	// 本轮止盈成交后进入暂停，不开下一轮
	take := planOrders(t, deps.DB, p.ID)[model.IndicatorTake][0]
	require.NoError(t, m.OnExecutionReport(ctx, fillReport(take.UKey, "f-2", ReportStatusFilled, 2, 210)))

	assert.Equal(t, model.AliveStopByUser, reloadPlan(t, deps.DB, p.ID).Active)
	byType := planOrders(t, deps.DB, p.ID)
	assert.Len(t, byType[model.IndicatorOpen], 1)
}

func TestStrategyCompleteAfterTradeEndsPlan(t *testing.T) {
	deps, _, _, _ := newTestDeps(t)
	m := NewManager(deps)
	ctx := context.Background()
	s := seedStrategy(t, deps)

	p, err := m.Start(ctx, strategyInput("user-1", s.ID))
	require.NoError(t, err)
	open := planOrders(t, deps.DB, p.ID)[model.IndicatorOpen][0]
	require.NoError(t, m.OnExecutionReport(ctx, fillReport(open.UKey, "f-1", ReportStatusFilled, 2, 200)))

	require.NoError(t, m.CompleteAfterTrade(ctx, "user-1", p.ID, false))
	assert.Equal(t, model.AliveCompleteAfterTrade, reloadPlan(t, deps.DB, p.ID).Active)

	loss := planOrders(t, deps.DB, p.ID)[model.IndicatorLoss][0]
	require.NoError(t, m.OnExecutionReport(ctx, fillReport(loss.UKey, "f-2", ReportStatusFilled, 2, 194)))

	assert.Equal(t, model.AliveComplete, reloadPlan(t, deps.DB, p.ID).Active)
	assert.Len(t, planOrders(t, deps.DB, p.ID)[model.IndicatorOpen], 1)
}

func TestStrategyModifyChangesQtyOnly(t *testing.T) {
	deps, _, _, _ := newTestDeps(t)
	m := NewManager(deps)
	ctx := context.Background()
	s := seedStrategy(t, deps)

	p, err := m.Start(ctx, strategyInput("user-1", s.ID))
	require.NoError(t, err)

	in := &PlanInput{Qty: 3.5}
	require.NoError(t, m.Modify(ctx, "user-1", p.ID, in))
	assert.Equal(t, 3.5, reloadPlan(t, deps.DB, p.ID).StrategyQty)
}

func TestStopAfterTradeRejectedForDefaultPlan(t *testing.T) {
	deps, _, _, _ := newTestDeps(t)
	m := NewManager(deps)
	ctx := context.Background()

	p, err := m.Start(ctx, defaultInput("user-1"))
	require.NoError(t, err)

	err = m.StopAfterTrade(ctx, "user-1", p.ID)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeParameter, appErr.Code)
}
