package service

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"

	"etstrade.com/internal/domain"
	"etstrade.com/internal/model"
)

// QueryService 计划查询（只读）
type QueryService struct {
	db *gorm.DB
}

func NewQueryService(db *gorm.DB) *QueryService {
	return &QueryService{db: db}
}

// OngoingPlans 返回进行中的计划（含子订单），新建在前
func (s *QueryService) OngoingPlans(ctx context.Context, userID, exchange string, virtual bool) ([]model.OrderPlan, error) {
	var plans []model.OrderPlan
	err := s.db.WithContext(ctx).
		Preload("SubOrders").
		Where("user_id = ? AND exchange = ? AND is_virtual = ? AND active >= ?",
			userID, exchange, virtual, model.AliveWaiting).
		Order("created_at DESC").
		Find(&plans).Error
	return plans, err
}

// OngoingPlanCount 统计进行中的计划数，用于下单上限校验
func (s *QueryService) OngoingPlanCount(ctx context.Context, userID, exchange string, virtual bool) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.OrderPlan{}).
		Where("user_id = ? AND exchange = ? AND is_virtual = ? AND active >= ?",
			userID, exchange, virtual, model.AliveWaiting).
		Count(&count).Error
	return count, err
}

// CompletePlans 返回已完结计划，按更新时间倒序分页
func (s *QueryService) CompletePlans(ctx context.Context, userID, exchange string, virtual bool, page int) ([]model.OrderPlan, error) {
	if page < 1 {
		page = 1
	}
	var plans []model.OrderPlan
	err := s.db.WithContext(ctx).
		Preload("SubOrders").
		Where("user_id = ? AND exchange = ? AND is_virtual = ? AND active < ?",
			userID, exchange, virtual, model.AliveWaiting).
		Order("updated_at DESC").
		Offset((page - 1) * model.CompletePageLimit).
		Limit(model.CompletePageLimit).
		Find(&plans).Error
	return plans, err
}

// PlanDetail 返回单个计划及其子订单、手续费
func (s *QueryService) PlanDetail(ctx context.Context, planID string) (*model.OrderPlan, error) {
	var plan model.OrderPlan
	err := s.db.WithContext(ctx).
		Preload("SubOrders").
		Preload("Commissions").
		First(&plan, "id = ?", planID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewNotFoundError("orderPlan " + planID + " not found")
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// PhaseSummary 一轮中某一阶段（开/平）的成交汇总。
// UpdatedAt 是该阶段最后一笔成交的毫秒时间戳。
type PhaseSummary struct {
	UpdatedAt    int64   `json:"updatedAt"`
	FilledQty    float64 `json:"filledQty"`
	FilledAmount float64 `json:"filledAmount"`
	Price        float64 `json:"price"`
}

// TransactionRound 一个 bundle 的开平汇总
type TransactionRound struct {
	Bundle int          `json:"bundle"`
	Open   PhaseSummary `json:"open"`
	Close  PhaseSummary `json:"close"`
}

// Transactions 按 bundle 聚合计划的成交轮次。只统计 ACTIVE/COMPLETE 的腿，
// 只保留开仓已有成交的轮次；closeCount 不含最后一轮尚未开始平仓的情况。
// CROSS 方向按实际成交时间排序，其余方向按 bundle 顺序。
func (s *QueryService) Transactions(ctx context.Context, planID string) (rounds []TransactionRound, openCount, closeCount int, err error) {
	var plan model.OrderPlan
	err = s.db.WithContext(ctx).First(&plan, "id = ?", planID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, 0, domain.NewNotFoundError("orderPlan " + planID + " not found")
	}
	if err != nil {
		return nil, 0, 0, err
	}
	var orders []model.Order
	err = s.db.WithContext(ctx).
		Where("order_plan_id = ?", planID).
		Order("bundle, created_at").
		Find(&orders).Error
	if err != nil {
		return nil, 0, 0, err
	}

	byBundle := map[int]*TransactionRound{}
	for _, o := range orders {
		if o.Active != model.AliveActive && o.Active != model.AliveComplete {
			continue
		}
		round, ok := byBundle[o.Bundle]
		if !ok {
			round = &TransactionRound{Bundle: o.Bundle}
			byBundle[o.Bundle] = round
		}
		phase := &round.Close
		if o.IndicatorType == model.IndicatorOpen {
			phase = &round.Open
		}
		phase.FilledQty += o.FilledQty
		phase.FilledAmount += o.FilledAmount
		if !o.TransactTime.IsZero() && o.TransactTime.UnixMilli() > phase.UpdatedAt {
			phase.UpdatedAt = o.TransactTime.UnixMilli()
		}
	}

	for _, round := range byBundle {
		if round.Open.FilledQty <= 0 {
			continue
		}
		round.Open.Price = round.Open.FilledAmount / round.Open.FilledQty
		if round.Close.FilledQty > 0 {
			round.Close.Price = round.Close.FilledAmount / round.Close.FilledQty
		}
		rounds = append(rounds, *round)
	}
	if plan.Direction == model.DirectionCross {
		sort.Slice(rounds, func(i, j int) bool {
			if rounds[i].Open.UpdatedAt != rounds[j].Open.UpdatedAt {
				return rounds[i].Open.UpdatedAt < rounds[j].Open.UpdatedAt
			}
			return rounds[i].Close.UpdatedAt < rounds[j].Close.UpdatedAt
		})
	} else {
		sort.Slice(rounds, func(i, j int) bool { return rounds[i].Bundle < rounds[j].Bundle })
	}

	openCount, closeCount = len(rounds), len(rounds)
	if openCount > 0 && rounds[openCount-1].Close.FilledQty == 0 {
		closeCount--
	}
	return rounds, openCount, closeCount, nil
}
