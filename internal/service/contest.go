package service

import (
	"context"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"etstrade.com/internal/domain"
	"etstrade.com/internal/model"
)

// ContestService 把已实现的收益记入进行中的交易大赛
type ContestService struct {
	db *gorm.DB
}

var _ domain.ContestSink = (*ContestService)(nil)

func NewContestService(db *gorm.DB) *ContestService {
	return &ContestService{db: db}
}

// RecordPlanReturn 以计划的累计开/平金额计分，计划完结时调用一次。
// S2B 计划不计入（与撮合口径一致），调用方视其为尽力而为。
func (s *ContestService) RecordPlanReturn(ctx context.Context, plan *model.OrderPlan) error {
	return s.recordScores(ctx, plan, plan.RateOfReturn(0, 0), plan.AmountOfReturn())
}

// RecordRoundReturn 以单轮自身的开/平金额计分。策略计划每轮平仓
// 完结时调用，轮与轮之间互不重复计入。
func (s *ContestService) RecordRoundReturn(ctx context.Context, plan *model.OrderPlan, openAmount, closeAmount float64) error {
	if openAmount <= 0 || closeAmount == 0 {
		return nil
	}
	sign := plan.Direction.Sign()
	rate := math.Round((closeAmount-openAmount)/openAmount*100*100) / 100 * sign
	amount := (closeAmount - openAmount) * sign
	return s.recordScores(ctx, plan, rate, amount)
}

func (s *ContestService) recordScores(ctx context.Context, plan *model.OrderPlan, rate, amount float64) error {
	if plan.Direction == model.DirectionS2B {
		return nil
	}
	now := time.Now()
	var contests []model.TradingContest
	err := s.db.WithContext(ctx).
		Where("exchange = ? AND is_active = ? AND start_date <= ? AND end_date > ?",
			plan.Exchange, true, now, now).
		Find(&contests).Error
	if err != nil {
		return err
	}

	for _, contest := range contests {
		if err := s.record(ctx, contest, plan, rate, amount); err != nil {
			return err
		}
	}
	return nil
}

func (s *ContestService) record(ctx context.Context, contest model.TradingContest, plan *model.OrderPlan, rate, amount float64) error {
	// 亏损不计最好成绩
	if contest.ScoreType == model.ScoreBestRateOfReturn && rate <= 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		symbol := ""
		if contest.ScoreType == model.ScoreTotalRateOfReturn {
			symbol = plan.Symbol
		}

		var rec model.TradingContestRecord
		err := tx.Where("trading_contest_id = ? AND user_id = ? AND symbol = ?",
			contest.ID, plan.UserID, symbol).
			First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rec = model.TradingContestRecord{
				TradingContestID: contest.ID,
				UserID:           plan.UserID,
				Symbol:           symbol,
			}
		} else if err != nil {
			return err
		}

		switch contest.ScoreType {
		case model.ScoreBestRateOfReturn:
			if rate <= rec.Score && rec.ID != 0 {
				return nil
			}
			rec.Score = rate
		case model.ScoreTotalRateOfReturn:
			rec.Score += amount
		default:
			return nil
		}
		return tx.Save(&rec).Error
	})
}
