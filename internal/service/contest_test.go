package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etstrade.com/internal/model"
)

func seedContest(t *testing.T, svc *ContestService, scoreType string) model.TradingContest {
	t.Helper()
	contest := model.TradingContest{
		Name:      "summer-cup",
		Exchange:  "binance",
		ScoreType: scoreType,
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(time.Hour),
		IsActive:  true,
	}
	require.NoError(t, svc.db.Create(&contest).Error)
	return contest
}

// 开 100 平 110 的多头计划，收益率 10%
func profitablePlan(userID string) *model.OrderPlan {
	p := model.NewOrderPlan(userID, "binance", "BTC-USDT", model.PlanDefault, model.DirectionB2S, true, false)
	p.BuyOpenAmount = 100
	p.BuyOpenExecuteQty = 1
	p.SellCloseAmount = 110
	p.SellCloseExecuteQty = 1
	return p
}

func TestBestRateKeepsMaxScore(t *testing.T) {
	svc := NewContestService(newTestDB(t))
	contest := seedContest(t, svc, model.ScoreBestRateOfReturn)
	ctx := context.Background()

	require.NoError(t, svc.RecordPlanReturn(ctx, profitablePlan("user-1")))

	var rec model.TradingContestRecord
	require.NoError(t, svc.db.First(&rec, "trading_contest_id = ? AND user_id = ?", contest.ID, "user-1").Error)
	assert.InDelta(t, 10.0, rec.Score, 1e-9)
	assert.Equal(t, "", rec.Symbol)

	// 更差的一笔不拉低最好成绩
	worse := profitablePlan("user-1")
	worse.SellCloseAmount = 104
	require.NoError(t, svc.RecordPlanReturn(ctx, worse))

	require.NoError(t, svc.db.First(&rec, "trading_contest_id = ? AND user_id = ?", contest.ID, "user-1").Error)
	assert.InDelta(t, 10.0, rec.Score, 1e-9)
}

func TestTotalRateAccumulatesPerSymbol(t *testing.T) {
	svc := NewContestService(newTestDB(t))
	contest := seedContest(t, svc, model.ScoreTotalRateOfReturn)
	ctx := context.Background()

	require.NoError(t, svc.RecordPlanReturn(ctx, profitablePlan("user-1")))
	require.NoError(t, svc.RecordPlanReturn(ctx, profitablePlan("user-1")))

	var rec model.TradingContestRecord
	require.NoError(t, svc.db.First(&rec,
		"trading_contest_id = ? AND user_id = ? AND symbol = ?", contest.ID, "user-1", "BTC-USDT").Error)
	assert.InDelta(t, 20.0, rec.Score, 1e-9)
}

func TestRoundReturnScoresSingleRound(t *testing.T) {
	svc := NewContestService(newTestDB(t))
	contest := seedContest(t, svc, model.ScoreTotalRateOfReturn)
	ctx := context.Background()
	p := profitablePlan("user-1")

	// 两轮各自的开/平金额，成绩为各轮盈亏之和，而非累计值的重复累计
	require.NoError(t, svc.RecordRoundReturn(ctx, p, 100, 110))
	require.NoError(t, svc.RecordRoundReturn(ctx, p, 204, 215))

	var rec model.TradingContestRecord
	require.NoError(t, svc.db.First(&rec,
		"trading_contest_id = ? AND user_id = ? AND symbol = ?", contest.ID, "user-1", "BTC-USDT").Error)
	assert.InDelta(t, 21.0, rec.Score, 1e-9)
}

func TestRoundReturnWithoutCloseIgnored(t *testing.T) {
	svc := NewContestService(newTestDB(t))
	seedContest(t, svc, model.ScoreTotalRateOfReturn)

	require.NoError(t, svc.RecordRoundReturn(context.Background(), profitablePlan("user-1"), 100, 0))

	var count int64
	require.NoError(t, svc.db.Model(&model.TradingContestRecord{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestLosingPlanNotScoredAsBest(t *testing.T) {
	svc := NewContestService(newTestDB(t))
	seedContest(t, svc, model.ScoreBestRateOfReturn)

	p := profitablePlan("user-1")
	p.SellCloseAmount = 95
	require.NoError(t, svc.RecordPlanReturn(context.Background(), p))

	var count int64
	require.NoError(t, svc.db.Model(&model.TradingContestRecord{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestShortPlansNotScored(t *testing.T) {
	svc := NewContestService(newTestDB(t))
	seedContest(t, svc, model.ScoreBestRateOfReturn)

	p := profitablePlan("user-1")
	p.Direction = model.DirectionS2B
	require.NoError(t, svc.RecordPlanReturn(context.Background(), p))

	var count int64
	require.NoError(t, svc.db.Model(&model.TradingContestRecord{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestExpiredContestNotScored(t *testing.T) {
	svc := NewContestService(newTestDB(t))
	contest := model.TradingContest{
		Name:      "ended",
		Exchange:  "binance",
		ScoreType: model.ScoreBestRateOfReturn,
		StartDate: time.Now().Add(-48 * time.Hour),
		EndDate:   time.Now().Add(-24 * time.Hour),
		IsActive:  true,
	}
	require.NoError(t, svc.db.Create(&contest).Error)

	require.NoError(t, svc.RecordPlanReturn(context.Background(), profitablePlan("user-1")))

	var count int64
	require.NoError(t, svc.db.Model(&model.TradingContestRecord{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
