package plan

import (
	"context"
	"log"

	"gorm.io/gorm"

	"etstrade.com/internal/calc"
	"etstrade.com/internal/domain"
	"etstrade.com/internal/model"
)

// basicPlan 单腿直发：一条开仓腿直接进执行队列，成交即完结。
// 不走价格监视器，也没有平仓腿。
type basicPlan struct {
	*planCore
}

var _ variant = (*basicPlan)(nil)

func newBasicPlan(core *planCore) *basicPlan {
	return &basicPlan{planCore: core}
}

func (p *basicPlan) makeSubOrderSpecs(ctx context.Context, in *PlanInput) ([]model.SubOrderSpec, []model.SubOrderSpec, []model.SubOrderSpec, error) {
	if len(in.OpenInfo) == 0 {
		return nil, nil, nil, domain.NewParameterError("openInfo")
	}
	leg := in.OpenInfo[0]
	if leg.Qty <= 0 {
		return nil, nil, nil, domain.NewParameterError("qty")
	}
	if leg.TradeType != model.TradeMarket && leg.EnterPrice <= 0 {
		return nil, nil, nil, domain.NewParameterError("enterPrice")
	}
	tickSize, err := p.deps.Market.TickSize(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := p.checkTickPrice(tickSize, in.OpenInfo); err != nil {
		return nil, nil, nil, err
	}
	stepSize, err := p.deps.Market.StepSize(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return nil, nil, nil, err
	}
	qty := calc.FloorTicker(stepSize, 8, leg.Qty)
	open := []model.SubOrderSpec{{
		Side:          leg.Side,
		TradeType:     leg.TradeType,
		IndicatorType: model.IndicatorOpen,
		Qty:           qty,
		ExecQty:       qty,
		Indicator: model.Indicator{
			Kind:         model.IndicatorKindPrice,
			EnterPrice:   leg.EnterPrice,
			TriggerPrice: leg.EnterPrice,
			ActualPrice:  leg.EnterPrice,
		},
	}}
	return open, nil, nil, nil
}

// start 直接把腿交给执行机器人，不经过监视器
func (p *basicPlan) start(ctx context.Context, tx *gorm.DB, open, take, loss []model.SubOrderSpec) error {
	if len(open) == 0 {
		return domain.NewNoSubOrderError("start")
	}
	db := tx
	if db == nil {
		db = p.deps.DB.WithContext(ctx)
	}
	order := model.NewOrder(p.plan.UserID, p.plan.ID, p.plan.Exchange, p.plan.Symbol, p.plan.PlanType, open[0])
	order.ExecQty = open[0].Qty
	if err := db.Create(order).Error; err != nil {
		return err
	}
	log.Printf("Order: NEW %s basic", order.ID)
	return p.deps.Queue.PushExecute(db, []string{order.ID}, executeAction(order))
}

// modify 未成交时撤旧发新；已有成交则拒绝
func (p *basicPlan) modify(ctx context.Context, in *PlanInput) error {
	if p.plan.Active.Terminal() {
		return domain.NewNotAllowedStateError("modify", int(p.plan.Active))
	}
	log.Printf("OrderPlan: MODIFY %s", p.plan.ID)
	open, _, _, err := p.makeSubOrderSpecs(ctx, in)
	if err != nil {
		return err
	}
	var orders []*model.Order
	err = p.deps.DB.WithContext(ctx).
		Where("order_plan_id = ? AND active >= ?", p.plan.ID, model.AliveWaiting).
		Find(&orders).Error
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return domain.NewNoSubOrderError("modify")
	}
	order := orders[0]
	if order.FilledQty > 0 {
		return domain.NewBasicFilledError()
	}
	order.ApplySpec(open[0])
	order.Status = model.StatusModifyCancel
	order.Active = model.AliveCanceled

	d := &dispatch{
		save:       []*model.Order{order},
		execCancel: []string{order.ID},
	}
	if err := p.saveAndSend(ctx, d); err != nil {
		return err
	}
	p.uiNotify(ctx)
	p.notify(ctx, "MODIFY")
	return nil
}

// processCompleteOpen 成交即完结
func (p *basicPlan) processCompleteOpen(ctx context.Context, order *model.Order) error {
	if order.Status != model.StatusComplete {
		return nil
	}
	p.plan.Active = model.AliveComplete
	if err := p.savePlan(ctx); err != nil {
		return err
	}
	log.Printf("OrderPlan: END %s", p.plan.ID)
	return nil
}
