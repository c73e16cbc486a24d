package plan

import (
	"context"

	"etstrade.com/internal/calc"
	"etstrade.com/internal/domain"
	"etstrade.com/internal/model"
)

// subOrderMap 按角色索引的可编辑子订单。部分成交与改单中的腿不可编辑。
type subOrderMap struct {
	open []*model.Order
	take map[int]map[model.IndicatorType]*model.Order // bundle -> TAKE/TRAIL
	loss []*model.Order
}

func (c *planCore) getSubOrderMap(ctx context.Context) (*subOrderMap, error) {
	subOrders, err := c.keepAliveSubOrders(ctx)
	if err != nil {
		return nil, err
	}
	m := &subOrderMap{take: map[int]map[model.IndicatorType]*model.Order{}}
	count := 0
	for _, order := range subOrders {
		if order.Status == model.StatusPartiallyFilled || order.Status == model.StatusModifyCancel {
			continue
		}
		switch order.IndicatorType {
		case model.IndicatorOpen:
			m.open = append(m.open, order)
			count++
		case model.IndicatorTake, model.IndicatorTrail:
			if m.take[order.Bundle] == nil {
				m.take[order.Bundle] = map[model.IndicatorType]*model.Order{}
			}
			m.take[order.Bundle][order.IndicatorType] = order
			count++
		case model.IndicatorLoss:
			m.loss = append(m.loss, order)
			count++
		}
	}
	if count == 0 {
		return nil, domain.NewNoSubOrderError("modify")
	}
	return m, nil
}

func specChanged(order *model.Order, spec model.SubOrderSpec) bool {
	return order.OrigQty != spec.Qty || !order.Indicator.Equal(spec.Indicator)
}

// resizeForAmount 按金额平仓的腿在已激活时重算执行数量
func (c *planCore) resizeForAmount(ctx context.Context, order *model.Order, spec *model.SubOrderSpec) error {
	if !c.plan.IsCloseTypeAmount || order.ExecQty <= 0 || !spec.Indicator.HasPrice() {
		return nil
	}
	stepSize, err := c.deps.Market.StepSize(ctx, c.plan.Exchange, c.plan.Symbol)
	if err != nil {
		return err
	}
	spec.ExecQty = calc.RoundTicker(stepSize, 8, c.plan.OpenAmount()/spec.Indicator.EnterPrice)
	return nil
}

// replaceAcknowledged 已挂到交易所的腿不能原地改：撤旧腿并以新参数
// 重建一条同角色腿
func (c *planCore) replaceAcknowledged(d *dispatch, order *model.Order, spec model.SubOrderSpec) {
	order.Status = model.StatusModifyCancel
	order.Active = model.AliveCanceled
	d.execCancel = append(d.execCancel, order.ID)

	replacement := model.NewOrder(c.plan.UserID, c.plan.ID, c.plan.Exchange, c.plan.Symbol, c.plan.PlanType, spec)
	replacement.Bundle = order.Bundle
	if spec.IndicatorType == model.IndicatorOpen {
		replacement.ExecQty = spec.Qty
	} else if spec.ExecQty > 0 {
		replacement.ExecQty = spec.ExecQty
	} else {
		replacement.ExecQty = order.ExecQty
	}
	d.save = append(d.save, replacement)
	d.watch = append(d.watch, replacement)
}

// applyLegChange 落一条腿的修改：等待中的腿原地改并重新注册监视，
// 已挂单的腿撤销重建
func (c *planCore) applyLegChange(d *dispatch, order *model.Order, spec model.SubOrderSpec) {
	order.ApplySpec(spec)
	d.save = append(d.save, order)
	if order.Active != model.AliveActive {
		return
	}
	if order.Status.Acknowledged() {
		c.replaceAcknowledged(d, order, spec)
		return
	}
	d.watch = append(d.watch, order)
}

// removeLeg 用户在修改中删掉了这条腿
func (c *planCore) removeLeg(d *dispatch, order *model.Order) {
	wasPending := order.Status.Acknowledged()
	order.Status = model.StatusModifyCancel
	order.Active = model.AliveCanceled
	d.save = append(d.save, order)
	if wasPending {
		d.execCancel = append(d.execCancel, order.ID)
	} else {
		d.watch = append(d.watch, order)
	}
}

// modifySubOrders 把新的腿配置与现存子订单做对比落库。
// 开仓腿按当前价重选 Market/Limit。
func (c *planCore) modifySubOrders(ctx context.Context, m *subOrderMap, open, take, loss []model.SubOrderSpec) error {
	d := &dispatch{}

	if len(m.open) > 0 && len(open) > 0 {
		openOrder := m.open[0]
		spec := open[0]
		if specChanged(openOrder, spec) {
			if spec.Indicator.HasPrice() {
				currentPrice, err := c.deps.Market.CurrentPrice(ctx, c.plan.Exchange, c.plan.Symbol)
				if err != nil {
					return err
				}
				diff := spec.Indicator.EnterPrice - currentPrice
				if (diff < 0 && openOrder.Side == model.SideBuy) || (diff > 0 && openOrder.Side == model.SideSell) {
					openOrder.TradeType = model.TradeLimit
				} else {
					openOrder.TradeType = model.TradeMarket
				}
				spec.TradeType = openOrder.TradeType
			}
			spec.IndicatorType = model.IndicatorOpen
			c.applyLegChange(d, openOrder, spec)
		}
	}

	newTakeByBundle := map[int]map[model.IndicatorType]model.SubOrderSpec{}
	for _, spec := range take {
		bundle := spec.Bundle
		if newTakeByBundle[bundle] == nil {
			newTakeByBundle[bundle] = map[model.IndicatorType]model.SubOrderSpec{}
		}
		newTakeByBundle[bundle][spec.IndicatorType] = spec
	}
	bundles := map[int]bool{}
	for b := range newTakeByBundle {
		bundles[b] = true
	}
	for b := range m.take {
		bundles[b] = true
	}
	for bundle := range bundles {
		for _, itype := range []model.IndicatorType{model.IndicatorTake, model.IndicatorTrail} {
			var existing *model.Order
			if m.take[bundle] != nil {
				existing = m.take[bundle][itype]
			}
			spec, hasNew := model.SubOrderSpec{}, false
			if newTakeByBundle[bundle] != nil {
				spec, hasNew = newTakeByBundle[bundle][itype]
			}
			switch {
			case existing != nil && hasNew:
				if specChanged(existing, spec) {
					if err := c.resizeForAmount(ctx, existing, &spec); err != nil {
						return err
					}
					c.applyLegChange(d, existing, spec)
				}
			case existing != nil:
				c.removeLeg(d, existing)
			case hasNew:
				order := model.NewOrder(c.plan.UserID, c.plan.ID, c.plan.Exchange, c.plan.Symbol, c.plan.PlanType, spec)
				if len(m.open) > 0 {
					// 开仓腿未成交，新平仓腿等待激活
					order.Active = model.AliveWaiting
				} else {
					d.watch = append(d.watch, order)
				}
				d.save = append(d.save, order)
			}
		}
	}

	if len(m.loss) > 0 && len(loss) > 0 {
		lossOrder := m.loss[0]
		spec := loss[0]
		if specChanged(lossOrder, spec) {
			if err := c.resizeForAmount(ctx, lossOrder, &spec); err != nil {
				return err
			}
			lossOrder.ApplySpec(spec)
			d.save = append(d.save, lossOrder)
			if lossOrder.Active == model.AliveActive {
				d.watch = append(d.watch, lossOrder)
			}
		}
	}
	return c.saveAndSend(ctx, d)
}
