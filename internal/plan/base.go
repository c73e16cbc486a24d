package plan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"gorm.io/gorm"

	"etstrade.com/internal/calc"
	"etstrade.com/internal/constants"
	"etstrade.com/internal/domain"
	"etstrade.com/internal/model"
)

// planCore 各计划类型共享的编排逻辑；变体按需覆盖 variant 钩子
type planCore struct {
	plan *model.OrderPlan
	deps *Deps
}

func (c *planCore) core() *planCore { return c }

// dispatch 一次操作产生的全部副作用，统一在单个事务里落库并入队
type dispatch struct {
	save       []*model.Order
	execOpen   []string
	execClose  []string
	execCancel []string
	watch      []*model.Order
}

// executeAction 开仓腿发 OPEN 指令，其余腿发 CLOSE
func executeAction(order *model.Order) string {
	if order.IndicatorType == model.IndicatorOpen {
		return constants.ExecuteActionOpen
	}
	return constants.ExecuteActionClose
}

func (d *dispatch) empty() bool {
	return len(d.save) == 0 && len(d.execOpen) == 0 && len(d.execClose) == 0 &&
		len(d.execCancel) == 0 && len(d.watch) == 0
}

// saveAndSend 保存子订单并按清单推送执行/撤销/监视消息
func (c *planCore) saveAndSend(ctx context.Context, d *dispatch) error {
	if d.empty() {
		return nil
	}
	return c.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, order := range d.save {
			if err := tx.Save(order).Error; err != nil {
				return err
			}
		}
		if err := c.deps.Queue.PushExecute(tx, d.execOpen, constants.ExecuteActionOpen); err != nil {
			return err
		}
		if err := c.deps.Queue.PushExecute(tx, d.execClose, constants.ExecuteActionClose); err != nil {
			return err
		}
		if err := c.deps.Queue.PushExecute(tx, d.execCancel, constants.ExecuteActionCancel); err != nil {
			return err
		}
		for _, order := range d.watch {
			if err := c.deps.Queue.PushWatch(tx, order); err != nil {
				return err
			}
			c.logByStatus(order)
		}
		return nil
	})
}

func (c *planCore) logByStatus(order *model.Order) {
	switch order.Active {
	case model.AliveActive:
		if order.Status == model.StatusWaiting {
			log.Printf("Order: START %s execQty=%g", order.ID, order.ExecQty)
		}
	case model.AliveStopByUser:
		log.Printf("Order: PAUSE %s status=%s", order.ID, order.Status)
	case model.AliveCanceled:
		log.Printf("Order: CANCELED %s status=%s", order.ID, order.Status)
	case model.AliveStopByError:
		log.Printf("Order: STOP %s", order.ID)
	}
}

// uiNotify 推送前端刷新；失败只记录，不影响主流程
func (c *planCore) uiNotify(ctx context.Context) {
	if err := c.deps.Queue.PushUiNotify(c.deps.DB.WithContext(ctx), c.plan); err != nil {
		log.Printf("OrderPlan: ui notify failed plan=%s: %v", c.plan.ID, err)
	}
}

// notify 投递用户通知事件；尽力而为
func (c *planCore) notify(ctx context.Context, action string) {
	event := fmt.Sprintf("ORDERPLAN-ALL-%s", action)
	payload := map[string]any{
		"orderPlanId": c.plan.ID,
		"planType":    c.plan.PlanType,
		"symbol":      c.plan.Symbol,
		"exchange":    c.plan.Exchange,
		"isVirtual":   c.plan.IsVirtual,
	}
	if err := c.deps.Queue.PushNotify(c.deps.DB.WithContext(ctx), c.plan.UserID, event, payload); err != nil {
		log.Printf("OrderPlan: notify failed plan=%s: %v", c.plan.ID, err)
	}
}

// recordContest 完结时计入大赛成绩；尽力而为
func (c *planCore) recordContest(ctx context.Context) {
	if err := c.deps.Contest.RecordPlanReturn(ctx, c.plan); err != nil {
		log.Printf("OrderPlan: contest record failed plan=%s: %v", c.plan.ID, err)
	}
}

func (c *planCore) savePlan(ctx context.Context) error {
	return c.deps.DB.WithContext(ctx).Save(c.plan).Error
}

// keepAliveSubOrders 返回尚未完结的子订单，最近更新在前
func (c *planCore) keepAliveSubOrders(ctx context.Context) ([]*model.Order, error) {
	var orders []*model.Order
	err := c.deps.DB.WithContext(ctx).
		Where("order_plan_id = ? AND active NOT IN ?", c.plan.ID,
			[]model.Alive{model.AliveComplete, model.AliveCanceled}).
		Order("updated_at DESC").
		Find(&orders).Error
	return orders, err
}

// closeSubOrders 返回未完结的平仓侧子订单，bundle 升序
func (c *planCore) closeSubOrders(ctx context.Context) ([]*model.Order, error) {
	var orders []*model.Order
	err := c.deps.DB.WithContext(ctx).
		Where("order_plan_id = ? AND active NOT IN ? AND indicator_type <> ?", c.plan.ID,
			[]model.Alive{model.AliveComplete, model.AliveCanceled}, model.IndicatorOpen).
		Order("bundle, indicator_type").
		Find(&orders).Error
	return orders, err
}

// ---- 价格指标构造 ----

// checkTickPrice 校验用户价格是否落在 tick 网格上
func (c *planCore) checkTickPrice(tickSize float64, legGroups ...[]LegInput) error {
	tickValue := int64(math.Round(tickSize * constants.BalanceIntegerScale))
	if tickValue <= 0 {
		return domain.NewParameterError("tickSize")
	}
	for _, legs := range legGroups {
		for _, leg := range legs {
			if leg.EnterPrice <= 0 {
				continue
			}
			enter := int64(math.Round(leg.EnterPrice * constants.BalanceIntegerScale))
			if enter%tickValue != 0 {
				return domain.NewTickSizeError(c.plan.Symbol)
			}
		}
	}
	return nil
}

// makePriceSpecs 把一条用户输入展开为定价子订单（可能拆出 TRAIL 腿）
func (c *planCore) makePriceSpecs(itype model.IndicatorType, leg LegInput, tradeType model.TradeType, slippage, tickSize, stepSize float64) ([]model.SubOrderSpec, error) {
	if leg.EnterPrice <= 0 {
		return nil, domain.NewParameterError("enterPrice")
	}
	if leg.Qty <= 0 {
		return nil, domain.NewParameterError("qty")
	}
	trigger := leg.EnterPrice
	if !c.plan.IsVirtual {
		trigger = calc.TriggerPrice(leg.EnterPrice, slippage, tradeType, leg.Side, tickSize)
	}
	indicator := model.PriceIndicator(leg.EnterPrice, trigger,
		calc.CancelPrice(leg.EnterPrice, slippage, tradeType, leg.Side, tickSize))

	var specs []model.SubOrderSpec
	trailQty := 0.0
	if leg.TrailingVolume > 0 {
		trailQty = calc.FloorTicker(stepSize, 8, math.Round(leg.Qty*leg.TrailingVolume/100))
	}
	if leg.TrailingVolume < 100 {
		mainQty := leg.Qty
		if leg.TrailingVolume > 0 {
			mainQty = leg.Qty - math.Round(leg.Qty*leg.TrailingVolume/100)
		}
		specs = append(specs, model.SubOrderSpec{
			Side:          leg.Side,
			TradeType:     tradeType,
			IndicatorType: itype,
			Qty:           calc.FloorTicker(stepSize, 8, mainQty),
			Indicator:     indicator,
			Bundle:        leg.Bundle,
		})
	}
	if trailQty > 0 {
		specs = append(specs, model.SubOrderSpec{
			Side:          leg.Side,
			TradeType:     model.TradeTrail,
			IndicatorType: model.IndicatorTrail,
			Qty:           trailQty,
			TrailingValue: leg.TrailingValue,
			Indicator:     indicator,
			Bundle:        leg.Bundle,
		})
	}
	for _, spec := range specs {
		if spec.Qty <= 0 {
			return nil, domain.NewParameterError(string(itype) + "Qty")
		}
	}
	return specs, nil
}

// makeStopLossSpec 构造止损腿
func (c *planCore) makeStopLossSpec(leg LegInput, tradeType model.TradeType, slippage, tickSize, stepSize float64) (model.SubOrderSpec, error) {
	if leg.Qty <= 0 {
		return model.SubOrderSpec{}, domain.NewParameterError("stopLossQty")
	}
	if leg.EnterPrice <= 0 {
		return model.SubOrderSpec{}, domain.NewParameterError("stopLossEnterPrice")
	}
	trigger := leg.EnterPrice
	if !c.plan.IsVirtual {
		trigger = calc.TriggerPrice(leg.EnterPrice, slippage, tradeType, leg.Side, tickSize)
	}
	return model.SubOrderSpec{
		Side:          leg.Side,
		TradeType:     tradeType,
		IndicatorType: model.IndicatorLoss,
		Qty:           calc.FloorTicker(stepSize, 8, leg.Qty),
		Indicator: model.PriceIndicator(leg.EnterPrice, trigger,
			calc.CancelPrice(leg.EnterPrice, slippage, tradeType, leg.Side, tickSize)),
		Bundle: leg.Bundle,
	}, nil
}

// ---- 共享生命周期操作 ----

// start 批量落库：首个 bundle 的开仓腿立即激活，其余腿等待开仓成交
func (c *planCore) start(ctx context.Context, tx *gorm.DB, open, take, loss []model.SubOrderSpec) error {
	db := tx
	if db == nil {
		db = c.deps.DB.WithContext(ctx)
	}
	var orders []*model.Order
	var watch []*model.Order

	firstBundle := 0
	for i, spec := range open {
		order := model.NewOrder(c.plan.UserID, c.plan.ID, c.plan.Exchange, c.plan.Symbol, c.plan.PlanType, spec)
		order.ExecQty = spec.Qty
		if i == 0 {
			firstBundle = order.Bundle
		}
		if order.Bundle != firstBundle {
			order.Active = model.AliveWaiting
		} else {
			watch = append(watch, order)
		}
		orders = append(orders, order)
	}
	for _, spec := range take {
		order := model.NewOrder(c.plan.UserID, c.plan.ID, c.plan.Exchange, c.plan.Symbol, c.plan.PlanType, spec)
		order.Active = model.AliveWaiting
		orders = append(orders, order)
	}
	for _, spec := range loss {
		order := model.NewOrder(c.plan.UserID, c.plan.ID, c.plan.Exchange, c.plan.Symbol, c.plan.PlanType, spec)
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
		if err := c.deps.Queue.PushWatch(db, order); err != nil {
			return err
		}
		c.logByStatus(order)
	}
	return nil
}

// pause 暂停：挂单撤回、观察腿停摆，计划进入 STOP_BY_USER
func (c *planCore) pause(ctx context.Context) error {
	if c.plan.Active.Terminal() {
		return domain.NewNotAllowedStateError("pause", int(c.plan.Active))
	}
	if c.plan.Active != model.AliveActive {
		return domain.NewPauseOnlyActiveError()
	}
	c.plan.Active = model.AliveStopByUser
	if err := c.savePlan(ctx); err != nil {
		return err
	}
	subOrders, err := c.keepAliveSubOrders(ctx)
	if err != nil {
		return err
	}
	if len(subOrders) == 0 {
		return domain.NewNoSubOrderError("pause")
	}
	d := &dispatch{}
	for _, order := range subOrders {
		if order.Active != model.AliveActive {
			continue
		}
		switch order.Status {
		case model.StatusWaiting:
			order.Active = model.AliveStopByUser
			d.save = append(d.save, order)
			d.watch = append(d.watch, order)
		case model.StatusPending, model.StatusPartiallyFilled:
			order.Active = model.AliveStopByUser
			order.Status = model.StatusUserCancel
			d.save = append(d.save, order)
			d.execCancel = append(d.execCancel, order.ID)
		}
	}
	log.Printf("OrderPlan: PAUSE %s", c.plan.ID)
	if err := c.saveAndSend(ctx, d); err != nil {
		return err
	}
	c.uiNotify(ctx)
	c.notify(ctx, "PAUSE")
	return nil
}

// resume 恢复被暂停/出错的计划
func (c *planCore) resume(ctx context.Context) error {
	if c.plan.Active.Terminal() {
		return domain.NewNotAllowedStateError("resume", int(c.plan.Active))
	}
	if !c.plan.Active.Stopped() {
		return domain.NewResumeOnlyPausedError()
	}
	c.plan.Active = model.AliveActive
	c.plan.SystemMessage = ""
	if err := c.savePlan(ctx); err != nil {
		return err
	}
	subOrders, err := c.keepAliveSubOrders(ctx)
	if err != nil {
		return err
	}
	if len(subOrders) == 0 {
		return domain.NewNoSubOrderError("resume")
	}
	log.Printf("OrderPlan: RESUME %s", c.plan.ID)
	if err := c.resumeSubOrders(ctx, subOrders); err != nil {
		return err
	}
	c.uiNotify(ctx)
	c.notify(ctx, "RESUME")
	return nil
}

// resumeSubOrders 逐腿恢复。定价开仓腿按当前价重选 Market/Limit；
// 实盘止损腿直接回到执行队列，其余回到监视队列。
func (c *planCore) resumeSubOrders(ctx context.Context, subOrders []*model.Order) error {
	d := &dispatch{}
	for _, order := range subOrders {
		if !order.Active.Stopped() {
			continue
		}
		if order.IndicatorType == model.IndicatorOpen && order.Indicator.HasPrice() {
			currentPrice, err := c.deps.Market.CurrentPrice(ctx, c.plan.Exchange, c.plan.Symbol)
			if err != nil {
				return err
			}
			if order.Indicator.EnterPrice >= currentPrice {
				order.TradeType = model.TradeMarket
			} else {
				order.TradeType = model.TradeLimit
			}
		}
		switch order.Status {
		case model.StatusWaiting:
			order.Active = model.AliveActive
			d.save = append(d.save, order)
			d.watch = append(d.watch, order)
		case model.StatusUserCancel, model.StatusErrorStop:
			order.Active = model.AliveActive
			order.Status = model.StatusWaiting
			if order.FilledQty > 0 {
				order.Status = model.StatusPartiallyFilled
			}
			d.save = append(d.save, order)
			if !c.plan.IsVirtual && order.IndicatorType == model.IndicatorLoss {
				d.execClose = append(d.execClose, order.ID)
			} else {
				d.watch = append(d.watch, order)
			}
		}
	}
	return c.saveAndSend(ctx, d)
}

// cancel 用户撤销整个计划
func (c *planCore) cancel(ctx context.Context) error {
	if c.plan.Active.Terminal() {
		return domain.NewNotAllowedStateError("cancel", int(c.plan.Active))
	}
	c.plan.Active = model.AliveCanceled
	if err := c.savePlan(ctx); err != nil {
		return err
	}
	log.Printf("OrderPlan: CANCEL %s", c.plan.ID)
	if err := c.cancelSubOrders(ctx); err != nil {
		return err
	}
	c.notify(ctx, "CANCEL")
	return nil
}

func (c *planCore) cancelSubOrders(ctx context.Context) error {
	subOrders, err := c.keepAliveSubOrders(ctx)
	if err != nil {
		return err
	}
	if len(subOrders) == 0 {
		return domain.NewNoSubOrderError("cancel")
	}
	d := &dispatch{}
	for _, order := range subOrders {
		lastStatus, lastActive := order.Status, order.Active
		order.CancelByUser()
		d.save = append(d.save, order)
		if lastActive == model.AliveActive {
			switch lastStatus {
			case model.StatusWaiting:
				d.watch = append(d.watch, order)
			case model.StatusPending, model.StatusPartiallyFilled:
				d.execCancel = append(d.execCancel, order.ID)
			}
		}
	}
	if err := c.saveAndSend(ctx, d); err != nil {
		return err
	}
	c.uiNotify(ctx)
	return nil
}

// sellMarketNow 立即市价平掉未实现仓位，其余腿全部完结撤销
func (c *planCore) sellMarketNow(ctx context.Context) error {
	if c.plan.Active.Terminal() {
		return domain.NewNotAllowedStateError("sellMarketNow", int(c.plan.Active))
	}
	log.Printf("OrderPlan: SELLMARKETNOW %s", c.plan.ID)
	subOrders, err := c.keepAliveSubOrders(ctx)
	if err != nil {
		return err
	}
	stepSize, err := c.deps.Market.StepSize(ctx, c.plan.Exchange, c.plan.Symbol)
	if err != nil {
		return err
	}
	lastBundle := 1
	if len(subOrders) > 0 {
		lastBundle = subOrders[0].Bundle
	}
	diffQty := calc.FloorTicker(stepSize, 8, c.plan.OpenExecuteQty()-c.plan.CloseExecuteQty())
	if diffQty <= 0 {
		return domain.NewNotOpenFilledError("sellMarketNow")
	}
	if c.plan.IsCloseTypeAmount {
		currentPrice, err := c.deps.Market.CurrentPrice(ctx, c.plan.Exchange, c.plan.Symbol)
		if err != nil {
			return err
		}
		diffQty = calc.RoundTicker(stepSize, 8, c.plan.OpenAmount()/currentPrice)
	}

	d := &dispatch{}
	for _, order := range subOrders {
		lastStatus, lastActive := order.Status, order.Active
		order.CancelByComplete()
		d.save = append(d.save, order)
		if lastActive == model.AliveActive {
			switch lastStatus {
			case model.StatusWaiting:
				d.watch = append(d.watch, order)
			case model.StatusPending, model.StatusTrailing:
				d.execCancel = append(d.execCancel, order.ID)
			}
		}
	}
	closeSide := model.SideSell
	if c.plan.Direction != model.DirectionB2S {
		closeSide = model.SideBuy
	}
	marketOrder := model.NewOrder(c.plan.UserID, c.plan.ID, c.plan.Exchange, c.plan.Symbol, c.plan.PlanType, model.SubOrderSpec{
		Side:          closeSide,
		TradeType:     model.TradeMarket,
		IndicatorType: model.IndicatorSellMarketNow,
		Qty:           diffQty,
		ExecQty:       diffQty,
		Bundle:        lastBundle,
	})
	d.save = append(d.save, marketOrder)
	d.execClose = append(d.execClose, marketOrder.ID)
	return c.saveAndSend(ctx, d)
}

// processExchangeErrorRaise 交易所报错：计划停摆，但仍有未平仓位时
// 保留止损腿继续守护
func (c *planCore) processExchangeErrorRaise(ctx context.Context, errorCode string) error {
	c.plan.Active = model.AliveStopByError
	c.plan.SystemMessage = errorCode
	if err := c.savePlan(ctx); err != nil {
		return err
	}
	var subOrders []*model.Order
	err := c.deps.DB.WithContext(ctx).
		Where("order_plan_id = ? AND active = ?", c.plan.ID, model.AliveActive).
		Find(&subOrders).Error
	if err != nil {
		return err
	}
	d := &dispatch{}
	for _, order := range subOrders {
		if order.IndicatorType == model.IndicatorLoss && c.plan.UnrealizedQty() > 0 {
			continue
		}
		order.Active = model.AliveStopByError
		if order.Status == model.StatusPending {
			d.execCancel = append(d.execCancel, order.ID)
		}
		order.Status = model.StatusErrorStop
		d.save = append(d.save, order)
		d.watch = append(d.watch, order)
	}
	if err := c.saveAndSend(ctx, d); err != nil {
		return err
	}
	log.Printf("OrderPlan: STOP %s error=%s", c.plan.ID, errorCode)
	c.uiNotify(ctx)
	c.notify(ctx, "ERROR")
	return nil
}

// processUnknownCancelRaise 交易所侧出现未知撤单，停摆待用户处理
func (c *planCore) processUnknownCancelRaise(ctx context.Context) error {
	c.plan.Active = model.AliveStopByError
	c.plan.SystemMessage = "EX_INVALID_UNKNOWN"
	if err := c.savePlan(ctx); err != nil {
		return err
	}
	var subOrders []*model.Order
	err := c.deps.DB.WithContext(ctx).
		Where("order_plan_id = ? AND active = ?", c.plan.ID, model.AliveActive).
		Find(&subOrders).Error
	if err != nil {
		return err
	}
	d := &dispatch{}
	for _, order := range subOrders {
		order.Active = model.AliveStopByError
		if order.Status == model.StatusPending || order.IndicatorType == model.IndicatorTrail {
			d.execCancel = append(d.execCancel, order.ID)
		}
		order.Status = model.StatusErrorStop
		d.save = append(d.save, order)
		d.watch = append(d.watch, order)
	}
	if err := c.saveAndSend(ctx, d); err != nil {
		return err
	}
	log.Printf("OrderPlan: STOP %s unknown cancel", c.plan.ID)
	return nil
}

// processEnd 外部判定计划结束（如趋势窗口超时），完结全部活跃腿
func (c *planCore) processEnd(ctx context.Context) error {
	c.plan.Active = model.AliveComplete
	if err := c.savePlan(ctx); err != nil {
		return err
	}
	var subOrders []*model.Order
	err := c.deps.DB.WithContext(ctx).
		Where("order_plan_id = ? AND active = ?", c.plan.ID, model.AliveActive).
		Find(&subOrders).Error
	if err != nil {
		return err
	}
	d := &dispatch{}
	for _, order := range subOrders {
		wasPending := order.Status == model.StatusPending
		order.EndByTimeOver()
		d.save = append(d.save, order)
		if wasPending {
			d.execCancel = append(d.execCancel, order.ID)
		} else {
			d.watch = append(d.watch, order)
		}
	}
	return c.saveAndSend(ctx, d)
}

// ---- 平仓侧成交的默认处理 ----

// processCompleteTake 止盈/追踪腿完结。还有存活的止盈腿时重算止损
// 数量继续守护，否则撤销止损并完结计划。
func (c *planCore) processCompleteTake(ctx context.Context, order *model.Order) error {
	var liveTakes []*model.Order
	err := c.deps.DB.WithContext(ctx).
		Where("order_plan_id = ? AND active NOT IN ? AND indicator_type IN ?", c.plan.ID,
			[]model.Alive{model.AliveComplete, model.AliveCanceled},
			[]model.IndicatorType{model.IndicatorTake, model.IndicatorTrail}).
		Order("bundle, indicator_type").
		Find(&liveTakes).Error
	if err != nil {
		return err
	}
	var stopLoss model.Order
	hasStopLoss := true
	err = c.deps.DB.WithContext(ctx).
		Where("order_plan_id = ? AND indicator_type = ?", c.plan.ID, model.IndicatorLoss).
		First(&stopLoss).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hasStopLoss = false
	} else if err != nil {
		return err
	}

	d := &dispatch{}
	if len(liveTakes) == 0 {
		if hasStopLoss {
			stopLoss.CancelByComplete()
			d.save = append(d.save, &stopLoss)
			d.watch = append(d.watch, &stopLoss)
		}
		c.plan.Active = model.AliveComplete
		if err := c.savePlan(ctx); err != nil {
			return err
		}
		if err := c.saveAndSend(ctx, d); err != nil {
			return err
		}
		c.recordContest(ctx)
	} else if hasStopLoss {
		stepSize, err := c.deps.Market.StepSize(ctx, c.plan.Exchange, c.plan.Symbol)
		if err != nil {
			return err
		}
		stopLoss.ExecQty = calc.FloorTicker(stepSize, 8, c.plan.UnrealizedQty())
		d.save = append(d.save, &stopLoss)
		d.watch = append(d.watch, &stopLoss)
		if err := c.saveAndSend(ctx, d); err != nil {
			return err
		}
	}
	log.Printf("OrderPlan: END %s", c.plan.ID)
	return nil
}

// processCompleteLoss 止损成交：撤销剩余止盈腿并完结计划
func (c *planCore) processCompleteLoss(ctx context.Context, order *model.Order) error {
	var closeOrders []*model.Order
	err := c.deps.DB.WithContext(ctx).
		Where("order_plan_id = ? AND active = ? AND indicator_type IN ?", c.plan.ID,
			model.AliveActive,
			[]model.IndicatorType{model.IndicatorTake, model.IndicatorTrail}).
		Find(&closeOrders).Error
	if err != nil {
		return err
	}
	d := &dispatch{}
	for _, closeOrder := range closeOrders {
		lastStatus := closeOrder.Status
		closeOrder.CancelByComplete()
		d.save = append(d.save, closeOrder)
		switch lastStatus {
		case model.StatusWaiting:
			d.watch = append(d.watch, closeOrder)
		case model.StatusPending:
			d.execCancel = append(d.execCancel, closeOrder.ID)
		}
	}
	c.plan.Active = model.AliveComplete
	if err := c.savePlan(ctx); err != nil {
		return err
	}
	if err := c.saveAndSend(ctx, d); err != nil {
		return err
	}
	c.recordContest(ctx)
	log.Printf("OrderPlan: END %s", c.plan.ID)
	return nil
}

// processCompleteSellNow 市价平仓腿完结即计划完结
func (c *planCore) processCompleteSellNow(ctx context.Context, order *model.Order) error {
	c.plan.Active = model.AliveComplete
	if err := c.savePlan(ctx); err != nil {
		return err
	}
	c.recordContest(ctx)
	log.Printf("OrderPlan: END %s", c.plan.ID)
	return nil
}
