package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etstrade.com/internal/domain"
	"etstrade.com/internal/model"
)

func seedPlanWithOrders(t *testing.T, svc *QueryService) *model.OrderPlan {
	t.Helper()
	p := model.NewOrderPlan("user-1", "binance", "BTC-USDT", model.PlanStrategy, model.DirectionB2S, true, false)
	require.NoError(t, svc.db.Create(p).Error)

	legs := []struct {
		itype  model.IndicatorType
		bundle int
		qty    float64
		amount float64
	}{
		{model.IndicatorOpen, 1, 1, 100},
		{model.IndicatorTake, 1, 1, 105},
		{model.IndicatorOpen, 2, 2, 204},
	}
	for _, leg := range legs {
		o := model.NewOrder("user-1", p.ID, "binance", "BTC-USDT", model.PlanStrategy, model.SubOrderSpec{
			Side:          model.SideBuy,
			TradeType:     model.TradeMarket,
			IndicatorType: leg.itype,
			Qty:           leg.qty,
			Bundle:        leg.bundle,
		})
		o.FilledQty = leg.qty
		o.FilledAmount = leg.amount
		require.NoError(t, svc.db.Create(o).Error)
	}
	return p
}

func TestTransactionsGroupsByBundle(t *testing.T) {
	svc := NewQueryService(newTestDB(t))
	p := seedPlanWithOrders(t, svc)

	rounds, openCount, closeCount, err := svc.Transactions(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 2)

	assert.Equal(t, 1, rounds[0].Bundle)
	assert.InDelta(t, 100.0, rounds[0].Open.Price, 1e-9)
	assert.InDelta(t, 105.0, rounds[0].Close.Price, 1e-9)

	assert.Equal(t, 2, rounds[1].Bundle)
	assert.InDelta(t, 102.0, rounds[1].Open.Price, 1e-9)

	// 第二轮尚未开始平仓
	assert.Equal(t, 2, openCount)
	assert.Equal(t, 1, closeCount)
}

func TestTransactionsCrossOrderedByFillTime(t *testing.T) {
	svc := NewQueryService(newTestDB(t))
	p := model.NewOrderPlan("user-1", "binance", "BTC-USDT", model.PlanStrategy, model.DirectionCross, true, false)
	require.NoError(t, svc.db.Create(p).Error)

	base := time.Now()
	legs := []struct {
		bundle int
		amount float64
		at     time.Time
	}{
		// 第二轮反而先成交
		{1, 100, base.Add(time.Hour)},
		{2, 101, base},
	}
	for _, leg := range legs {
		o := model.NewOrder("user-1", p.ID, "binance", "BTC-USDT", model.PlanStrategy, model.SubOrderSpec{
			Side:          model.SideBuy,
			TradeType:     model.TradeMarket,
			IndicatorType: model.IndicatorOpen,
			Qty:           1,
			Bundle:        leg.bundle,
		})
		o.FilledQty = 1
		o.FilledAmount = leg.amount
		o.TransactTime = leg.at
		require.NoError(t, svc.db.Create(o).Error)
	}

	rounds, _, _, err := svc.Transactions(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, 2, rounds[0].Bundle)
	assert.Equal(t, 1, rounds[1].Bundle)
}

func TestTransactionsSkipsCanceledLegsAndUnopenedRounds(t *testing.T) {
	svc := NewQueryService(newTestDB(t))
	p := seedPlanWithOrders(t, svc)

	// 被撤的止盈腿不计，开仓未成交的轮次整轮不计
	canceled := model.NewOrder("user-1", p.ID, "binance", "BTC-USDT", model.PlanStrategy, model.SubOrderSpec{
		Side:          model.SideSell,
		TradeType:     model.TradeMarket,
		IndicatorType: model.IndicatorTake,
		Qty:           1,
		Bundle:        1,
	})
	canceled.FilledQty = 1
	canceled.FilledAmount = 500
	canceled.CancelByComplete()
	require.NoError(t, svc.db.Create(canceled).Error)

	unopened := model.NewOrder("user-1", p.ID, "binance", "BTC-USDT", model.PlanStrategy, model.SubOrderSpec{
		Side:          model.SideSell,
		TradeType:     model.TradeMarket,
		IndicatorType: model.IndicatorTake,
		Qty:           1,
		Bundle:        3,
	})
	unopened.FilledQty = 1
	unopened.FilledAmount = 105
	require.NoError(t, svc.db.Create(unopened).Error)

	rounds, openCount, _, err := svc.Transactions(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, 2, openCount)
	assert.InDelta(t, 105.0, rounds[0].Close.FilledAmount, 1e-9)
}

func TestOngoingAndCompleteSplit(t *testing.T) {
	svc := NewQueryService(newTestDB(t))
	ctx := context.Background()

	active := model.NewOrderPlan("user-1", "binance", "BTC-USDT", model.PlanDefault, model.DirectionB2S, true, false)
	require.NoError(t, svc.db.Create(active).Error)
	done := model.NewOrderPlan("user-1", "binance", "ETH-USDT", model.PlanDefault, model.DirectionB2S, true, false)
	done.Active = model.AliveComplete
	require.NoError(t, svc.db.Create(done).Error)

	ongoing, err := svc.OngoingPlans(ctx, "user-1", "binance", true)
	require.NoError(t, err)
	require.Len(t, ongoing, 1)
	assert.Equal(t, active.ID, ongoing[0].ID)

	complete, err := svc.CompletePlans(ctx, "user-1", "binance", true, 1)
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, done.ID, complete[0].ID)

	count, err := svc.OngoingPlanCount(ctx, "user-1", "binance", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPlanDetailNotFound(t *testing.T) {
	svc := NewQueryService(newTestDB(t))

	_, err := svc.PlanDetail(context.Background(), "11111111-1111-1111-1111-111111111111")
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.CodeNotFound, appErr.Code)
}
