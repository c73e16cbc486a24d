package plan

import (
	"context"
	"log"
	"math"

	"etstrade.com/internal/calc"
	"etstrade.com/internal/domain"
	"etstrade.com/internal/model"
)

// trendLinePlan 趋势线计划：开仓由价格窗口触发，平仓腿以开仓均价的
// 百分比定价，只有开仓成交后才能算出具体价格。
type trendLinePlan struct {
	*planCore
}

var _ variant = (*trendLinePlan)(nil)

func newTrendLinePlan(core *planCore) *trendLinePlan {
	return &trendLinePlan{planCore: core}
}

func makeTrendOpenSpec(leg LegInput) (model.SubOrderSpec, error) {
	if leg.Qty <= 0 {
		return model.SubOrderSpec{}, domain.NewParameterError("openQty")
	}
	if leg.EndDate.IsZero() || !leg.EndDate.After(leg.StartDate) {
		return model.SubOrderSpec{}, domain.NewParameterError("trendWindow")
	}
	return model.SubOrderSpec{
		Side:          leg.Side,
		TradeType:     model.TradeMarket,
		IndicatorType: model.IndicatorOpen,
		Qty:           leg.Qty,
		Indicator: model.TrendWindowIndicator(leg.StartDate, leg.EndDate, leg.Period,
			leg.TradingStartPrice, leg.TradingEndPrice),
		Bundle: leg.Bundle,
	}, nil
}

// makeTrendTakeSpecs 按百分比定价的止盈，可拆出追踪腿
func makeTrendTakeSpecs(leg LegInput, stepSize float64) ([]model.SubOrderSpec, error) {
	var specs []model.SubOrderSpec
	trailQty := 0.0
	if leg.TrailingVolume > 0 {
		trailQty = calc.FloorTicker(stepSize, 8, math.Round(leg.Qty*leg.TrailingVolume/100))
		specs = append(specs, model.SubOrderSpec{
			Side:          leg.Side,
			TradeType:     model.TradeTrail,
			IndicatorType: model.IndicatorTrail,
			Qty:           trailQty,
			TrailingValue: leg.TrailingValue,
			Indicator:     model.TakePercentIndicator(leg.TakeProfitPercent),
			Bundle:        leg.Bundle,
		})
	}
	if leg.TrailingVolume < 100 {
		specs = append(specs, model.SubOrderSpec{
			Side:          leg.Side,
			TradeType:     model.TradeTakeProfitLimit,
			IndicatorType: model.IndicatorTake,
			Qty:           calc.FloorTicker(stepSize, 8, leg.Qty-trailQty),
			Indicator:     model.TakePercentIndicator(leg.TakeProfitPercent),
			Bundle:        leg.Bundle,
		})
	}
	for _, spec := range specs {
		if spec.Qty <= 0 {
			return nil, domain.NewParameterError("takeProfitQty")
		}
	}
	return specs, nil
}

// makeTrendLossSpec 百分比止损；给了固定价则退回基础定价止损
func (p *trendLinePlan) makeTrendLossSpec(leg LegInput, slippage, tickSize, stepSize float64) (model.SubOrderSpec, error) {
	if leg.Qty <= 0 {
		return model.SubOrderSpec{}, domain.NewParameterError("stopLossQty")
	}
	if leg.StopLossPercent > 0 {
		return model.SubOrderSpec{
			Side:          leg.Side,
			TradeType:     model.TradeMarket,
			IndicatorType: model.IndicatorLoss,
			Qty:           calc.FloorTicker(stepSize, 8, leg.Qty),
			Indicator:     model.LossPercentIndicator(leg.StopLossPercent),
			Bundle:        leg.Bundle,
		}, nil
	}
	return p.makeStopLossSpec(leg, model.TradeMarket, slippage, tickSize, stepSize)
}

func (p *trendLinePlan) makeSubOrderSpecs(ctx context.Context, in *PlanInput) ([]model.SubOrderSpec, []model.SubOrderSpec, []model.SubOrderSpec, error) {
	if len(in.OpenInfo) == 0 {
		return nil, nil, nil, domain.NewParameterError("openInfo")
	}
	openSpec, err := makeTrendOpenSpec(in.OpenInfo[0])
	if err != nil {
		return nil, nil, nil, err
	}
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
	slippage, err := p.deps.Slippage.ForPrice(ctx, currentPrice)
	if err != nil {
		return nil, nil, nil, err
	}

	var take, loss []model.SubOrderSpec
	for _, leg := range in.TakeProfitInfo {
		specs, err := makeTrendTakeSpecs(leg, stepSize)
		if err != nil {
			return nil, nil, nil, err
		}
		take = append(take, specs...)
	}
	for _, leg := range in.StopLossInfo {
		spec, err := p.makeTrendLossSpec(leg, slippage, tickSize, stepSize)
		if err != nil {
			return nil, nil, nil, err
		}
		loss = append(loss, spec)
	}
	return []model.SubOrderSpec{openSpec}, take, loss, nil
}

func (p *trendLinePlan) modify(ctx context.Context, in *PlanInput) error {
	if p.plan.Active.Terminal() {
		return domain.NewNotAllowedStateError("modify", int(p.plan.Active))
	}
	log.Printf("OrderPlan: MODIFY %s", p.plan.ID)
	m, err := p.getSubOrderMap(ctx)
	if err != nil {
		return err
	}
	openSpec, err := makeTrendOpenSpec(in.OpenInfo[0])
	if err != nil {
		return err
	}
	currentPrice, err := p.deps.Market.CurrentPrice(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return err
	}
	tickSize, err := p.deps.Market.TickSize(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return err
	}
	stepSize, err := p.deps.Market.StepSize(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return err
	}
	if err := p.checkTickPrice(tickSize, in.TakeProfitInfo, in.StopLossInfo); err != nil {
		return err
	}
	slippage, err := p.deps.Slippage.ForPrice(ctx, currentPrice)
	if err != nil {
		return err
	}

	var take, loss []model.SubOrderSpec
	for _, leg := range in.TakeProfitInfo {
		var specs []model.SubOrderSpec
		if leg.TakeProfitPercent > 0 {
			specs, err = makeTrendTakeSpecs(leg, stepSize)
		} else {
			specs, err = p.makePriceSpecs(model.IndicatorTake, leg, model.TradeTakeProfitLimit, slippage, tickSize, stepSize)
		}
		if err != nil {
			return err
		}
		take = append(take, specs...)
	}
	for _, leg := range in.StopLossInfo {
		spec, err := p.makeTrendLossSpec(leg, slippage, tickSize, stepSize)
		if err != nil {
			return err
		}
		loss = append(loss, spec)
	}
	if err := p.modifySubOrders(ctx, m, []model.SubOrderSpec{openSpec}, take, loss); err != nil {
		return err
	}
	p.uiNotify(ctx)
	p.notify(ctx, "MODIFY")
	return nil
}

// processCompleteOpen 开仓成交：以开仓均价换算百分比腿的具体价格，
// 分配数量并全部交给监视器
func (p *trendLinePlan) processCompleteOpen(ctx context.Context, order *model.Order) error {
	if order.FilledQty <= 0 {
		return nil
	}
	openPrice := order.FilledPrice()
	subOrders, err := p.closeSubOrders(ctx)
	if err != nil {
		return err
	}
	currentPrice, err := p.deps.Market.CurrentPrice(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return err
	}
	tickSize, err := p.deps.Market.TickSize(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return err
	}
	stepSize, err := p.deps.Market.StepSize(ctx, p.plan.Exchange, p.plan.Symbol)
	if err != nil {
		return err
	}
	slippage, err := p.deps.Slippage.ForPrice(ctx, currentPrice)
	if err != nil {
		return err
	}

	d := &dispatch{}
	allocated := 0.0
	for _, subOrder := range subOrders {
		var orderQty float64
		switch subOrder.Indicator.Kind {
		case model.IndicatorKindTakePercent:
			prices := calc.TrendLinePrice(openPrice, subOrder.Indicator.Percent, slippage,
				subOrder.TradeType, subOrder.IndicatorType, subOrder.Side, tickSize, p.plan.IsVirtual)
			subOrder.Indicator = model.PriceIndicator(prices.Enter, prices.Trigger, prices.Cancel)
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
			d.watch = append(d.watch, subOrder)

		case model.IndicatorKindLossPercent:
			prices := calc.TrendLinePrice(openPrice, subOrder.Indicator.Percent, slippage,
				subOrder.TradeType, subOrder.IndicatorType, subOrder.Side, tickSize, p.plan.IsVirtual)
			subOrder.Indicator = model.PriceIndicator(prices.Enter, prices.Trigger, prices.Cancel)
			orderQty = calc.FloorTicker(stepSize, 8, p.plan.OpenExecuteQty())
			if p.plan.Direction == model.DirectionS2B {
				if p.plan.IsCloseTypeAmount {
					subOrderAmount := p.plan.OpenAmount() * subOrder.OrigQty / 100
					orderQty = calc.FloorTicker(stepSize, 8, subOrderAmount/subOrder.Indicator.EnterPrice)
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
			d.watch = append(d.watch, subOrder)

		default:
			continue
		}
		subOrder.ExecQty = orderQty
		subOrder.Active = model.AliveActive
		d.save = append(d.save, subOrder)
	}
	return p.saveAndSend(ctx, d)
}
