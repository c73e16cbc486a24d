package plan

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"etstrade.com/internal/domain"
	"etstrade.com/internal/model"
)

// Manager 计划编排入口：对外提供全部用户操作与执行回报入口，
// 同一计划的并发操作由按 id 的互斥锁串行化。
type Manager struct {
	deps  *Deps
	locks *keyedMutex
}

func NewManager(deps *Deps) *Manager {
	return &Manager{deps: deps, locks: newKeyedMutex()}
}

func (m *Manager) variantFor(p *model.OrderPlan) variant {
	core := &planCore{plan: p, deps: m.deps}
	switch p.PlanType {
	case model.PlanBasic:
		return newBasicPlan(core)
	case model.PlanTrendLine:
		return newTrendLinePlan(core)
	case model.PlanStrategy:
		return newStrategyPlan(core)
	default:
		return newDefaultPlan(core)
	}
}

func (m *Manager) loadPlan(ctx context.Context, userID, planID string) (*model.OrderPlan, error) {
	var p model.OrderPlan
	err := m.deps.DB.WithContext(ctx).
		First(&p, "id = ? AND user_id = ?", planID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewNotFoundError("orderPlan " + planID + " not found")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ongoingCount 用户在该所的进行中计划数（虚实盘分开计数）
func (m *Manager) ongoingCount(ctx context.Context, userID, exchange string, isVirtual bool) (int64, error) {
	var count int64
	err := m.deps.DB.WithContext(ctx).Model(&model.OrderPlan{}).
		Where("user_id = ? AND exchange = ? AND is_virtual = ? AND active >= ?",
			userID, exchange, isVirtual, model.AliveWaiting).
		Count(&count).Error
	return count, err
}

// checkPlanLimit 进行中计划数量上限；tester 账号不受限
func (m *Manager) checkPlanLimit(ctx context.Context, userID, exchange string, isVirtual bool) error {
	count, err := m.ongoingCount(ctx, userID, exchange, isVirtual)
	if err != nil {
		return err
	}
	if count < model.OngoingPlanLimit {
		return nil
	}
	var user model.User
	err = m.deps.DB.WithContext(ctx).First(&user, "id = ?", userID).Error
	if err == nil && user.Grade == model.GradeTester {
		return nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return domain.NewOrderCountError()
}

// checkDirection 同一交易对上不允许同时存在反向的进行中计划
func (m *Manager) checkDirection(ctx context.Context, p *model.OrderPlan) error {
	if p.Direction == model.DirectionCross {
		return nil
	}
	opposite := model.DirectionS2B
	if p.Direction == model.DirectionS2B {
		opposite = model.DirectionB2S
	}
	var count int64
	err := m.deps.DB.WithContext(ctx).Model(&model.OrderPlan{}).
		Where("user_id = ? AND exchange = ? AND symbol = ? AND is_virtual = ? AND direction = ? AND active >= ? AND id <> ?",
			p.UserID, p.Exchange, p.Symbol, p.IsVirtual, opposite, model.AliveWaiting, p.ID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.NewWrongDirectionError(string(opposite))
	}
	return nil
}

// Start 创建并启动一个新计划
func (m *Manager) Start(ctx context.Context, in *PlanInput) (*model.OrderPlan, error) {
	if in.UserID == "" || in.Exchange == "" || in.Symbol == "" {
		return nil, domain.NewParameterError("userId/exchange/symbol")
	}
	switch in.PlanType {
	case model.PlanBasic, model.PlanDefault, model.PlanTrendLine, model.PlanStrategy:
	default:
		return nil, domain.NewParameterError("planType")
	}
	if in.PlanType != model.PlanStrategy {
		switch in.Direction {
		case model.DirectionB2S, model.DirectionS2B, model.DirectionCross:
		default:
			return nil, domain.NewParameterError("direction")
		}
	}
	if err := m.checkPlanLimit(ctx, in.UserID, in.Exchange, in.IsVirtual); err != nil {
		return nil, err
	}

	p := model.NewOrderPlan(in.UserID, in.Exchange, in.Symbol, in.PlanType, in.Direction,
		in.IsVirtual, in.IsCloseTypeAmount)
	if in.PlanType == model.PlanStrategy {
		if in.StrategyID == "" {
			return nil, domain.NewStrategyMissingError("start")
		}
		strategyID := in.StrategyID
		p.StrategyID = &strategyID
	}
	v := m.variantFor(p)

	open, take, loss, err := v.makeSubOrderSpecs(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := m.checkDirection(ctx, p); err != nil {
		return nil, err
	}
	err = m.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return v.start(ctx, tx, open, take, loss)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("OrderPlan: START %s type=%s symbol=%s", p.ID, p.PlanType, p.Symbol)
	core := v.core()
	core.uiNotify(ctx)
	core.notify(ctx, "START")
	return p, nil
}

func (m *Manager) withPlan(ctx context.Context, userID, planID string, fn func(v variant) error) error {
	unlock := m.locks.Lock(planID)
	defer unlock()
	p, err := m.loadPlan(ctx, userID, planID)
	if err != nil {
		return err
	}
	return fn(m.variantFor(p))
}

func (m *Manager) Modify(ctx context.Context, userID, planID string, in *PlanInput) error {
	return m.withPlan(ctx, userID, planID, func(v variant) error {
		return v.modify(ctx, in)
	})
}

func (m *Manager) Pause(ctx context.Context, userID, planID string) error {
	return m.withPlan(ctx, userID, planID, func(v variant) error {
		return v.pause(ctx)
	})
}

func (m *Manager) Resume(ctx context.Context, userID, planID string) error {
	return m.withPlan(ctx, userID, planID, func(v variant) error {
		core := v.core()
		if err := m.checkDirection(ctx, core.plan); err != nil {
			return err
		}
		return v.resume(ctx)
	})
}

func (m *Manager) Cancel(ctx context.Context, userID, planID string) error {
	return m.withPlan(ctx, userID, planID, func(v variant) error {
		return v.cancel(ctx)
	})
}

func (m *Manager) SellMarketNow(ctx context.Context, userID, planID string) error {
	return m.withPlan(ctx, userID, planID, func(v variant) error {
		return v.sellMarketNow(ctx)
	})
}

// StopAfterTrade 仅策略计划：本轮结束后暂停
func (m *Manager) StopAfterTrade(ctx context.Context, userID, planID string) error {
	return m.withPlan(ctx, userID, planID, func(v variant) error {
		sp, ok := v.(*strategyPlan)
		if !ok {
			return domain.NewParameterError("planType")
		}
		return sp.stopAfterTrade(ctx)
	})
}

// CompleteAfterTrade 仅策略计划：本轮结束后完结，可选立即市价平仓
func (m *Manager) CompleteAfterTrade(ctx context.Context, userID, planID string, sellNow bool) error {
	return m.withPlan(ctx, userID, planID, func(v variant) error {
		sp, ok := v.(*strategyPlan)
		if !ok {
			return domain.NewParameterError("planType")
		}
		return sp.completeAfterTrade(ctx, sellNow)
	})
}

func (m *Manager) ongoingPlans(ctx context.Context, userID, exchange string, isVirtual bool) ([]*model.OrderPlan, error) {
	var plans []*model.OrderPlan
	err := m.deps.DB.WithContext(ctx).
		Where("user_id = ? AND exchange = ? AND is_virtual = ? AND active >= ?",
			userID, exchange, isVirtual, model.AliveWaiting).
		Order("created_at").
		Find(&plans).Error
	return plans, err
}

// PauseAll 暂停该用户在该所的全部活跃计划；单个失败不阻断其余
func (m *Manager) PauseAll(ctx context.Context, userID, exchange string, isVirtual bool) (*BulkResult, error) {
	plans, err := m.ongoingPlans(ctx, userID, exchange, isVirtual)
	if err != nil {
		return nil, err
	}
	result := &BulkResult{}
	for _, p := range plans {
		if p.Active != model.AliveActive {
			continue
		}
		if err := m.Pause(ctx, userID, p.ID); err != nil {
			log.Printf("OrderPlan: pause-all skip %s: %v", p.ID, err)
			result.FailedCount++
			continue
		}
		result.SuccessCount++
	}
	return result, nil
}

// ResumeAll 恢复该用户在该所的全部停摆计划
func (m *Manager) ResumeAll(ctx context.Context, userID, exchange string, isVirtual bool) (*BulkResult, error) {
	plans, err := m.ongoingPlans(ctx, userID, exchange, isVirtual)
	if err != nil {
		return nil, err
	}
	result := &BulkResult{}
	for _, p := range plans {
		if !p.Active.Stopped() {
			continue
		}
		if err := m.Resume(ctx, userID, p.ID); err != nil {
			log.Printf("OrderPlan: resume-all skip %s: %v", p.ID, err)
			result.FailedCount++
			continue
		}
		result.SuccessCount++
	}
	return result, nil
}

// CancelAllByAsset 撤销交易对包含该资产的全部进行中计划
func (m *Manager) CancelAllByAsset(ctx context.Context, userID, exchange, asset string) (*BulkResult, error) {
	var plans []*model.OrderPlan
	err := m.deps.DB.WithContext(ctx).
		Where("user_id = ? AND exchange = ? AND active >= ? AND (symbol LIKE ? OR symbol LIKE ?)",
			userID, exchange, model.AliveWaiting, asset+"-%", "%-"+asset).
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	result := &BulkResult{}
	for _, p := range plans {
		if err := m.Cancel(ctx, userID, p.ID); err != nil {
			log.Printf("OrderPlan: cancel-all skip %s: %v", p.ID, err)
			result.FailedCount++
			continue
		}
		result.SuccessCount++
	}
	return result, nil
}

// OnExecutionReport 执行回报入口：按 uKey 找到子订单，对其计划加锁
// 后走级联。来历不明的 uKey 记录后丢弃。
func (m *Manager) OnExecutionReport(ctx context.Context, report ExecutionReport) error {
	var order model.Order
	err := m.deps.DB.WithContext(ctx).First(&order, "u_key = ?", report.UKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Order: unknown uKey %s status=%s", report.UKey, report.Status)
		return nil
	}
	if err != nil {
		return err
	}

	unlock := m.locks.Lock(order.OrderPlanID)
	defer unlock()

	var p model.OrderPlan
	if err := m.deps.DB.WithContext(ctx).First(&p, "id = ?", order.OrderPlanID).Error; err != nil {
		return err
	}
	return applyExecutionReport(ctx, m.variantFor(&p), &order, report)
}
