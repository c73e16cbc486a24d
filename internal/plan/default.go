package plan

import (
	"context"
	"log"

	"etstrade.com/internal/calc"
	"etstrade.com/internal/domain"
	"etstrade.com/internal/model"
)

// defaultPlan 定价计划：固定价开仓，按价挂止盈，市价止损。
// 开仓成交后把成交数量逐级分配给平仓腿。
type defaultPlan struct {
	*planCore
}

var _ variant = (*defaultPlan)(nil)

func newDefaultPlan(core *planCore) *defaultPlan {
	return &defaultPlan{planCore: core}
}

func (p *defaultPlan) makeSubOrderSpecs(ctx context.Context, in *PlanInput) ([]model.SubOrderSpec, []model.SubOrderSpec, []model.SubOrderSpec, error) {
	currentPrice, err := p.deps.Market.CurrentPrice(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return nil, nil, nil, err
	}
	tickSize, err := p.deps.Market.TickSize(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return nil, nil, nil, err
	}
	stepSize, err := p.deps.Market.StepSize(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := p.checkTickPrice(tickSize, in.OpenInfo, in.TakeProfitInfo, in.StopLossInfo); err != nil {
		return nil, nil, nil, err
	}
	slippage, err := p.deps.Slippage.ForPrice(ctx, currentPrice)
	if err != nil {
		return nil, nil, nil, err
	}

	var open, take, loss []model.SubOrderSpec
	for _, leg := range in.OpenInfo {
		// 已越过当前价的开仓直接市价吃单，否则限价等待
		tradeType := model.TradeLimit
		if (leg.Side == model.SideBuy && leg.EnterPrice >= currentPrice) ||
			(leg.Side == model.SideSell && leg.EnterPrice <= currentPrice) {
			tradeType = model.TradeMarket
		}
		specs, err := p.makePriceSpecs(model.IndicatorOpen, leg, tradeType, slippage, tickSize, stepSize)
		if err != nil {
			return nil, nil, nil, err
		}
		open = append(open, specs...)
	}
	for _, leg := range in.TakeProfitInfo {
		specs, err := p.makePriceSpecs(model.IndicatorTake, leg, model.TradeTakeProfitLimit, slippage, tickSize, stepSize)
		if err != nil {
			return nil, nil, nil, err
		}
		take = append(take, specs...)
	}
	for _, leg := range in.StopLossInfo {
		spec, err := p.makeStopLossSpec(leg, model.TradeMarket, slippage, tickSize, stepSize)
		if err != nil {
			return nil, nil, nil, err
		}
		loss = append(loss, spec)
	}
	return open, take, loss, nil
}

func (p *defaultPlan) modify(ctx context.Context, in *PlanInput) error {
	if p.plan.Active.Terminal() {
		return domain.NewNotAllowedStateError("modify", int(p.plan.Active))
	}
	log.Printf("OrderPlan: MODIFY %s", p.plan.ID)
	m, err := p.getSubOrderMap(ctx)
	if err != nil {
		return err
	}
	open, take, loss, err := p.makeSubOrderSpecs(ctx, in)
	if err != nil {
		return err
	}
	if err := p.modifySubOrders(ctx, m, open, take, loss); err != nil {
		return err
	}
	p.uiNotify(ctx)
	p.notify(ctx, "MODIFY")
	return nil
}

// processCompleteOpen 把累计开仓量逐级分配给平仓腿并激活。止盈腿按
// 原始数量封顶领取，止损腿始终覆盖全部未平量（S2B 时受余额约束）。
func (p *defaultPlan) processCompleteOpen(ctx context.Context, order *model.Order) error {
	stepSize, err := p.deps.Market.StepSize(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return err
	}
	subOrders, err := p.closeSubOrders(ctx)
	if err != nil {
		return err
	}
	d := &dispatch{}
	allocated := 0.0
	for _, subOrder := range subOrders {
		if allocated != 0 && allocated >= p.plan.OpenExecuteQty() {
			break
		}
		if subOrder.IndicatorType == model.IndicatorLoss {
			orderQty := calc.FloorTicker(stepSize, 8, p.plan.OpenExecuteQty())
			if p.plan.Direction == model.DirectionS2B {
				if p.plan.IsCloseTypeAmount {
					orderQty = calc.FloorTicker(stepSize, 8, p.plan.OpenAmount()/subOrder.Indicator.EnterPrice)
				} else {
					free, err := p.deps.Balance.Available(ctx, p.plan.UserID, p.plan.Exchange, p.plan.QuoteAsset(), p.plan.IsVirtual)
					if err != nil {
						return err
					}
					if subOrder.Indicator.EnterPrice*orderQty > free {
						orderQty = calc.FloorTicker(stepSize, 8, free/subOrder.Indicator.EnterPrice)
					}
				}
			}
			if subOrder.ExecQty == orderQty {
				continue
			}
			subOrder.Active = model.AliveActive
			subOrder.ExecQty = orderQty
			d.save = append(d.save, subOrder)
			d.watch = append(d.watch, subOrder)
			continue
		}

		var orderQty float64
		if p.plan.IsCloseTypeAmount {
			subOrderAmount := p.plan.OpenAmount() * subOrder.OrigQty / 100
			orderQty = calc.FloorTicker(stepSize, 8, subOrderAmount/subOrder.Indicator.EnterPrice)
		} else {
			floorOpenQty := calc.FloorTicker(stepSize, 8, p.plan.OpenExecuteQty())
			if floorOpenQty >= subOrder.OrigQty+allocated {
				orderQty = subOrder.OrigQty
			} else {
				orderQty = floorOpenQty - allocated
			}
		}
		allocated += orderQty
		if subOrder.Active == model.AliveActive && subOrder.ExecQty == orderQty {
			continue
		}
		subOrder.ExecQty = calc.FloorTicker(stepSize, 8, orderQty)
		subOrder.Active = model.AliveActive
		d.save = append(d.save, subOrder)
		d.watch = append(d.watch, subOrder)
	}
	return p.saveAndSend(ctx, d)
}
