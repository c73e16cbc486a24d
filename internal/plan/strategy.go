package plan

import (
	"context"
	"errors"
	"log"
	"math"

	"gorm.io/gorm"

	"etstrade.com/internal/calc"
	"etstrade.com/internal/domain"
	"etstrade.com/internal/model"
)

// strategyPlan 策略计划：按策略模板逐轮（bundle）生成开/平腿，
// 一轮平仓完结后自动链式开启下一轮，直到用户叫停。
type strategyPlan struct {
	*planCore
}

var _ variant = (*strategyPlan)(nil)

func newStrategyPlan(core *planCore) *strategyPlan {
	return &strategyPlan{planCore: core}
}

func (p *strategyPlan) loadStrategy(ctx context.Context) (*model.Strategy, error) {
	if p.plan.StrategyID == nil {
		return nil, domain.NewStrategyMissingError("strategy")
	}
	var strategy model.Strategy
	err := p.deps.DB.WithContext(ctx).First(&strategy, "id = ?", *p.plan.StrategyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewStrategyMissingError("strategy")
	}
	if err != nil {
		return nil, err
	}
	return &strategy, nil
}

// makeBundleSpecs 从策略模板实例化第 bundle 轮的全部腿
func (p *strategyPlan) makeBundleSpecs(ctx context.Context, bundle int) ([]model.SubOrderSpec, []model.SubOrderSpec, []model.SubOrderSpec, error) {
	strategy, err := p.loadStrategy(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	p.plan.Direction = strategy.Direction
	p.plan.StrategyName = strategy.Name

	var open, take, loss []model.SubOrderSpec
	for _, leg := range strategy.OpenInfo {
		open = append(open, model.SubOrderSpec{
			Side:          leg.Side,
			TradeType:     model.TradeMarket,
			IndicatorType: model.IndicatorOpen,
			Qty:           p.plan.StrategyQty,
			Indicator:     model.SignalIndicator(leg.Indicators),
			Bundle:        bundle,
		})
	}

	trailQty := 0.0
	hasTrailing := strategy.HasTrailing()
	for _, leg := range strategy.TakeProfitInfo {
		if hasTrailing {
			trailQty = math.Round(leg.Qty * strategy.TrailingInfo.TrailingVolume / 100)
		}
		if len(leg.Indicators) == 0 {
			continue
		}
		indicator := model.SignalIndicator(leg.Indicators)
		if pct, ok := leg.Indicators[0]["takeProfitPercent"]; ok {
			indicator = model.TakePercentIndicator(pct)
		}
		take = append(take, model.SubOrderSpec{
			Side:          leg.Side,
			TradeType:     model.TakeProfitTradeType(leg),
			IndicatorType: model.IndicatorTake,
			Qty:           p.plan.StrategyQty - trailQty,
			Indicator:     indicator,
			Bundle:        bundle,
		})
	}
	if hasTrailing {
		take = append(take, model.SubOrderSpec{
			Side:          strategy.TrailingInfo.Side,
			TradeType:     model.TradeTrail,
			IndicatorType: model.IndicatorTrail,
			Qty:           trailQty,
			TrailingValue: strategy.TrailingInfo.TrailingValue,
			Indicator:     model.TakePercentIndicator(0),
			Bundle:        bundle,
		})
	}

	if len(strategy.StopLossInfo) > 0 {
		lossSide := model.SideSell
		if p.plan.Direction != model.DirectionB2S {
			lossSide = model.SideBuy
		}
		indicator := model.Indicator{Kind: model.IndicatorKindLossPercent}
		if pct, ok := strategy.StopLossInfo["stopLossPercent"]; ok {
			indicator = model.LossPercentIndicator(pct)
		}
		loss = append(loss, model.SubOrderSpec{
			Side:          lossSide,
			TradeType:     model.TradeMarket,
			IndicatorType: model.IndicatorLoss,
			Qty:           p.plan.StrategyQty,
			Indicator:     indicator,
			Bundle:        bundle,
		})
	}
	return open, take, loss, nil
}

func (p *strategyPlan) makeSubOrderSpecs(ctx context.Context, in *PlanInput) ([]model.SubOrderSpec, []model.SubOrderSpec, []model.SubOrderSpec, error) {
	if in != nil {
		if in.Qty <= 0 {
			return nil, nil, nil, domain.NewParameterError("qty")
		}
		stepSize, err := p.deps.Market.StepSize(ctx, p.plan.Exchange, p.plan.Symbol)
		if err != nil {
			return nil, nil, nil, err
		}
		p.plan.StrategyQty = calc.FloorTicker(stepSize, 8, in.Qty)
	}
	return p.makeBundleSpecs(ctx, 1)
}

// start 开仓腿立即监视；CROSS 方向的止盈腿与开仓并行监视，
// 其余平仓腿等待开仓成交
func (p *strategyPlan) start(ctx context.Context, tx *gorm.DB, open, take, loss []model.SubOrderSpec) error {
	db := tx
	if db == nil {
		db = p.deps.DB.WithContext(ctx)
	}
	var orders, watch []*model.Order
	for _, spec := range open {
		order := model.NewOrder(p.plan.UserID, p.plan.ID, p.plan.Exchange, p.plan.Symbol, p.plan.PlanType, spec)
		order.ExecQty = spec.Qty
		orders = append(orders, order)
		watch = append(watch, order)
	}
	for _, spec := range take {
		order := model.NewOrder(p.plan.UserID, p.plan.ID, p.plan.Exchange, p.plan.Symbol, p.plan.PlanType, spec)
		if p.plan.Direction == model.DirectionCross {
			watch = append(watch, order)
		} else {
			order.Active = model.AliveWaiting
		}
		orders = append(orders, order)
	}
	for _, spec := range loss {
		order := model.NewOrder(p.plan.UserID, p.plan.ID, p.plan.Exchange, p.plan.Symbol, p.plan.PlanType, spec)
		order.Active = model.AliveWaiting
		orders = append(orders, order)
	}
	if len(orders) == 0 {
		return domain.NewNoSubOrderError("start")
	}
	if err := db.Create(&orders).Error; err != nil {
		return err
	}
	for _, order := range watch {
		if err := p.deps.Queue.PushWatch(db, order); err != nil {
			return err
		}
		p.logByStatus(order)
	}
	return nil
}

// modify 策略计划只能改每轮数量
func (p *strategyPlan) modify(ctx context.Context, in *PlanInput) error {
	if p.plan.StrategyID == nil {
		return domain.NewStrategyMissingError("modify")
	}
	if p.plan.Active.Terminal() {
		return domain.NewNotAllowedStateError("modify", int(p.plan.Active))
	}
	if in.Qty <= 0 {
		return domain.NewParameterError("strategyQty")
	}
	stepSize, err := p.deps.Market.StepSize(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return err
	}
	p.plan.StrategyQty = calc.FloorTicker(stepSize, 8, in.Qty)
	if err := p.savePlan(ctx); err != nil {
		return err
	}
	log.Printf("OrderPlan: MODIFY %s strategyQty=%g", p.plan.ID, p.plan.StrategyQty)
	p.uiNotify(ctx)
	p.notify(ctx, "MODIFY")
	return nil
}

// resume 有存活腿则恢复它们；全部完结则从最后一轮重新开始
func (p *strategyPlan) resume(ctx context.Context) error {
	if p.plan.StrategyID == nil {
		return domain.NewStrategyMissingError("resume")
	}
	if p.plan.Active.Terminal() {
		return domain.NewNotAllowedStateError("resume", int(p.plan.Active))
	}
	p.plan.Active = model.AliveActive
	p.plan.SystemMessage = ""
	if err := p.savePlan(ctx); err != nil {
		return err
	}
	log.Printf("OrderPlan: RESUME %s", p.plan.ID)
	subOrders, err := p.keepAliveSubOrders(ctx)
	if err != nil {
		return err
	}
	if len(subOrders) > 0 {
		if err := p.resumeSubOrders(ctx, subOrders); err != nil {
			return err
		}
	} else {
		lastBundle, err := p.lastBundle(ctx)
		if err != nil {
			return err
		}
		open, take, loss, err := p.makeBundleSpecs(ctx, lastBundle)
		if err != nil {
			return err
		}
		if err := p.start(ctx, nil, open, take, loss); err != nil {
			return err
		}
	}
	p.uiNotify(ctx)
	p.notify(ctx, "RESUME")
	return nil
}

// cancel 有已实现平仓额时视作完成，否则视作撤销
func (p *strategyPlan) cancel(ctx context.Context) error {
	if p.plan.StrategyID == nil {
		return domain.NewStrategyMissingError("cancel")
	}
	if p.plan.Active.Terminal() {
		return domain.NewNotAllowedStateError("cancel", int(p.plan.Active))
	}
	p.plan.Active = model.AliveComplete
	if p.plan.CloseAmount() == 0 {
		p.plan.Active = model.AliveCanceled
	}
	if err := p.savePlan(ctx); err != nil {
		return err
	}
	if err := p.cancelSubOrders(ctx); err != nil {
		return err
	}
	log.Printf("OrderPlan: END %s", p.plan.ID)
	p.notify(ctx, "CANCEL")
	return nil
}

// stopAfterTrade 本轮交易走完后暂停
func (p *strategyPlan) stopAfterTrade(ctx context.Context) error {
	if p.plan.StrategyID == nil {
		return domain.NewStrategyMissingError("stopAfterTrade")
	}
	if p.plan.UnrealizedQty() <= 0 {
		return domain.NewNotOpenFilledError("stopAfterTrade")
	}
	p.plan.Active = model.AliveStopAfterTrade
	if err := p.savePlan(ctx); err != nil {
		return err
	}
	p.uiNotify(ctx)
	return nil
}

// completeAfterTrade 本轮交易走完后完结；sellNow 时立即市价平仓
func (p *strategyPlan) completeAfterTrade(ctx context.Context, sellNow bool) error {
	if p.plan.StrategyID == nil {
		return domain.NewStrategyMissingError("completeAfterTrade")
	}
	p.plan.Active = model.AliveCompleteAfterTrade
	if err := p.savePlan(ctx); err != nil {
		return err
	}
	if sellNow {
		return p.sellMarketNow(ctx)
	}
	return nil
}

func (p *strategyPlan) lastBundle(ctx context.Context) (int, error) {
	var order model.Order
	err := p.deps.DB.WithContext(ctx).
		Where("order_plan_id = ?", p.plan.ID).
		Order("bundle DESC").
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return order.Bundle, nil
}

// bundleOrders 取一轮的各角色腿
type bundleOrders struct {
	open, take, loss, trail, sellNow *model.Order
	all                              []*model.Order
}

func (p *strategyPlan) bundleOrders(ctx context.Context, bundle int) (*bundleOrders, error) {
	var orders []*model.Order
	err := p.deps.DB.WithContext(ctx).
		Where("order_plan_id = ? AND bundle = ?", p.plan.ID, bundle).
		Order("bundle, indicator_type").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	b := &bundleOrders{all: orders}
	for _, order := range orders {
		switch order.IndicatorType {
		case model.IndicatorOpen:
			b.open = order
		case model.IndicatorTake:
			b.take = order
		case model.IndicatorLoss:
			b.loss = order
		case model.IndicatorTrail:
			b.trail = order
		case model.IndicatorSellMarketNow:
			b.sellNow = order
		}
	}
	return b, nil
}

// recordRoundContest 以本轮自身的开/平金额计分，不含此前各轮；尽力而为
func (p *strategyPlan) recordRoundContest(ctx context.Context, b *bundleOrders) {
	if b == nil || b.open == nil {
		return
	}
	closeAmount := 0.0
	switch {
	case b.sellNow != nil && b.sellNow.FilledAmount > 0:
		closeAmount = b.sellNow.FilledAmount
	case b.take != nil && b.take.FilledAmount > 0:
		closeAmount = b.take.FilledAmount
		if b.trail != nil && b.trail.FilledAmount > 0 {
			closeAmount += b.trail.FilledAmount
		}
	case b.trail != nil && b.trail.FilledAmount > 0:
		closeAmount = b.trail.FilledAmount
	case b.loss != nil && b.loss.FilledAmount > 0:
		closeAmount = b.loss.FilledAmount
	}
	if err := p.deps.Contest.RecordRoundReturn(ctx, p.plan, b.open.FilledAmount, closeAmount); err != nil {
		log.Printf("OrderPlan: contest record failed plan=%s: %v", p.plan.ID, err)
	}
}

// nextRound 根据挂起的延迟状态决定是否链式开下一轮
func (p *strategyPlan) nextRound() bool {
	switch p.plan.Active {
	case model.AliveCompleteAfterTrade:
		p.plan.Active = model.AliveComplete
		return false
	case model.AliveStopAfterTrade:
		p.plan.Active = model.AliveStopByUser
		return false
	}
	return true
}

func (p *strategyPlan) startNextBundle(ctx context.Context, bundle int) error {
	open, take, loss, err := p.makeBundleSpecs(ctx, bundle)
	if err != nil {
		return err
	}
	return p.start(ctx, nil, open, take, loss)
}

// reprice 百分比腿按开仓均价换算具体价格
func (p *strategyPlan) reprice(ctx context.Context, subOrder *model.Order, openPrice float64) error {
	if subOrder.Indicator.Kind != model.IndicatorKindTakePercent &&
		subOrder.Indicator.Kind != model.IndicatorKindLossPercent {
		return nil
	}
	currentPrice, err := p.deps.Market.CurrentPrice(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return err
	}
	tickSize, err := p.deps.Market.TickSize(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return err
	}
	slippage, err := p.deps.Slippage.ForPrice(ctx, currentPrice)
	if err != nil {
		return err
	}
	prices := calc.TrendLinePrice(openPrice, subOrder.Indicator.Percent, slippage,
		subOrder.TradeType, subOrder.IndicatorType, subOrder.Side, tickSize, p.plan.IsVirtual)
	subOrder.Indicator = model.PriceIndicator(prices.Enter, prices.Trigger, prices.Cancel)
	return nil
}

// processCompleteOpen 开仓成交：激活本轮平仓腿
func (p *strategyPlan) processCompleteOpen(ctx context.Context, order *model.Order) error {
	b, err := p.bundleOrders(ctx, order.Bundle)
	if err != nil {
		return err
	}
	stepSize, err := p.deps.Market.StepSize(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return err
	}
	openPrice := order.FilledPrice()
	d := &dispatch{}

	if b.take != nil {
		b.take.Active = model.AliveActive
		if b.take.OrigQty >= order.FilledQty {
			b.take.ExecQty = calc.FloorTicker(stepSize, 8, order.FilledQty)
		} else {
			b.take.ExecQty = b.take.OrigQty
		}
		if err := p.reprice(ctx, b.take, openPrice); err != nil {
			return err
		}
		d.save = append(d.save, b.take)
		d.watch = append(d.watch, b.take)
	}
	if b.take == nil && b.trail != nil {
		b.trail.Active = model.AliveActive
		b.trail.ExecQty = calc.FloorTicker(stepSize, 8, order.FilledQty)
		if err := p.reprice(ctx, b.trail, openPrice); err != nil {
			return err
		}
		d.save = append(d.save, b.trail)
		d.watch = append(d.watch, b.trail)
	}
	if b.loss != nil {
		b.loss.Active = model.AliveActive
		b.loss.ExecQty = calc.FloorTicker(stepSize, 8, order.FilledQty)
		if err := p.reprice(ctx, b.loss, openPrice); err != nil {
			return err
		}
		d.save = append(d.save, b.loss)
		d.watch = append(d.watch, b.loss)
	}
	return p.saveAndSend(ctx, d)
}

// processCompleteTake 止盈/追踪成交：先把守护腿调整到位，
// 本轮走完则视延迟状态链式开下一轮
func (p *strategyPlan) processCompleteTake(ctx context.Context, order *model.Order) error {
	b, err := p.bundleOrders(ctx, order.Bundle)
	if err != nil {
		return err
	}
	stepSize, err := p.deps.Market.StepSize(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return err
	}
	chainNext := false
	recordContest := false
	d := &dispatch{}

	switch order.IndicatorType {
	case model.IndicatorTake:
		if b.trail != nil {
			b.trail.Active = model.AliveActive
			if b.open != nil {
				b.trail.ExecQty = calc.FloorTicker(stepSize, 8, b.open.FilledQty-order.FilledQty)
			}
			d.save = append(d.save, b.trail)
			d.watch = append(d.watch, b.trail)
			if b.loss != nil {
				b.loss.ExecQty = b.trail.ExecQty
				d.save = append(d.save, b.loss)
				d.watch = append(d.watch, b.loss)
			}
		} else {
			recordContest = true
			if b.loss != nil {
				b.loss.CancelByComplete()
				d.save = append(d.save, b.loss)
				d.watch = append(d.watch, b.loss)
			}
			chainNext = p.nextRound()
		}
	case model.IndicatorTrail:
		if b.loss != nil {
			b.loss.CancelByComplete()
			d.save = append(d.save, b.loss)
			d.watch = append(d.watch, b.loss)
		}
		chainNext = p.nextRound()
		recordContest = true
	}

	if err := p.savePlan(ctx); err != nil {
		return err
	}
	if err := p.saveAndSend(ctx, d); err != nil {
		return err
	}
	if recordContest {
		p.recordRoundContest(ctx, b)
	}
	if chainNext {
		return p.startNextBundle(ctx, order.Bundle+1)
	}
	if p.plan.Active == model.AliveComplete {
		log.Printf("OrderPlan: END %s", p.plan.ID)
	}
	return nil
}

// processCompleteLoss 止损成交：撤掉本轮其余腿后视状态链式开下一轮
func (p *strategyPlan) processCompleteLoss(ctx context.Context, order *model.Order) error {
	b, err := p.bundleOrders(ctx, order.Bundle)
	if err != nil {
		return err
	}
	d := &dispatch{}
	for _, subOrder := range b.all {
		if subOrder.ID == order.ID || (b.open != nil && subOrder.ID == b.open.ID) {
			continue
		}
		wasPending := subOrder.Status == model.StatusPending
		subOrder.CancelByComplete()
		d.save = append(d.save, subOrder)
		if wasPending {
			d.execCancel = append(d.execCancel, subOrder.ID)
		} else {
			d.watch = append(d.watch, subOrder)
		}
	}
	chainNext := p.nextRound()
	if err := p.savePlan(ctx); err != nil {
		return err
	}
	if err := p.saveAndSend(ctx, d); err != nil {
		return err
	}
	p.recordRoundContest(ctx, b)
	if chainNext {
		return p.startNextBundle(ctx, order.Bundle+1)
	}
	if p.plan.Active == model.AliveComplete {
		log.Printf("OrderPlan: END %s", p.plan.ID)
	}
	return nil
}

// processCompleteSellNow 市价平仓腿成交：按延迟状态收尾或续轮
func (p *strategyPlan) processCompleteSellNow(ctx context.Context, order *model.Order) error {
	b, err := p.bundleOrders(ctx, order.Bundle)
	if err != nil {
		return err
	}
	chainNext := p.nextRound()
	p.recordRoundContest(ctx, b)
	if chainNext {
		return p.startNextBundle(ctx, order.Bundle+1)
	}
	p.plan.Active = model.AliveComplete
	if err := p.savePlan(ctx); err != nil {
		return err
	}
	log.Printf("OrderPlan: END %s", p.plan.ID)
	return nil
}
