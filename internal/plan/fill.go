package plan

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"etstrade.com/internal/model"
)

// updateSummary 把一笔成交累加进计划的方向×阶段累计值，并回读计划。
// 累加用 SQL 表达式完成，并发成交不会互相覆盖。
func (c *planCore) updateSummary(ctx context.Context, order *model.Order, report ExecutionReport) error {
	amountCol, qtyCol := "buy_open_amount", "buy_open_execute_qty"
	switch {
	case order.Side == model.SideBuy && order.IndicatorType.IsClose():
		amountCol, qtyCol = "buy_close_amount", "buy_close_execute_qty"
	case order.Side == model.SideSell && !order.IndicatorType.IsClose():
		amountCol, qtyCol = "sell_open_amount", "sell_open_execute_qty"
	case order.Side == model.SideSell && order.IndicatorType.IsClose():
		amountCol, qtyCol = "sell_close_amount", "sell_close_execute_qty"
	}
	updates := map[string]interface{}{
		amountCol: gorm.Expr(amountCol+" + ?", report.Amount),
		qtyCol:    gorm.Expr(qtyCol+" + ?", report.ExecutedQty),
	}
	if report.Status == ReportStatusFilled {
		updates["trade_count"] = gorm.Expr("trade_count + 1")
	}
	err := c.deps.DB.WithContext(ctx).Model(&model.OrderPlan{}).
		Where("id = ?", c.plan.ID).
		Updates(updates).Error
	if err != nil {
		return err
	}
	return c.deps.DB.WithContext(ctx).First(c.plan, "id = ?", c.plan.ID).Error
}

// recordFill 幂等账本：同一 fillId 重复投递时返回 false，整条级联跳过
func (c *planCore) recordFill(ctx context.Context, order *model.Order, report ExecutionReport) (bool, error) {
	fill := model.Fill{
		OrderID: order.ID,
		FillID:  report.FillID,
		Qty:     report.ExecutedQty,
		Amount:  report.Amount,
		Price:   report.Price,
		Status:  report.Status,
	}
	result := c.deps.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&fill)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// updateNew 交易所受理回报。市价单不会挂住，跳过。
func (c *planCore) updateNew(ctx context.Context, order *model.Order, report ExecutionReport) error {
	if order.TradeType == model.TradeMarket {
		return nil
	}
	if order.FilledQty > 0 {
		order.Status = model.StatusPartiallyFilled
	} else if order.TradeType == model.TradeTrail {
		order.Status = model.StatusTrailing
	} else {
		order.Status = model.StatusPending
	}
	order.TransactTime = time.Now()
	return c.deps.DB.WithContext(ctx).Save(order).Error
}

// updateFilled 成交回报落到子订单上
func (c *planCore) updateFilled(ctx context.Context, order *model.Order, report ExecutionReport) error {
	order.FilledQty += report.ExecutedQty
	order.FilledAmount += report.Amount
	order.TransactTime = time.Now()
	switch report.Status {
	case ReportStatusFilled:
		order.Status = model.StatusComplete
		order.Active = model.AliveComplete
	case model.StatusPartiallyFilled:
		if order.Active == model.AliveComplete {
			order.Status = model.StatusComplete
		} else {
			order.Status = model.StatusPartiallyFilled
		}
	}
	return c.deps.DB.WithContext(ctx).Save(order).Error
}

// expectedCancel 本地已经走过撤销流程的腿，交易所的 CANCELED 回报只是确认
func expectedCancel(status model.OrderStatus) bool {
	switch status {
	case model.StatusUserCancel, model.StatusModifyCancel,
		model.StatusCompleteCancel, model.StatusErrorStop, model.StatusCanceled:
		return true
	}
	return false
}

// applyExecutionReport 执行回报级联：先落子订单与累计值，再按腿角色
// 调用变体的完结钩子推进计划。
func applyExecutionReport(ctx context.Context, v variant, order *model.Order, report ExecutionReport) error {
	c := v.core()
	switch report.Status {
	case ReportStatusError:
		order.RejectStopByError()
		order.ErrorMessage = report.ErrorCode
		if err := c.deps.DB.WithContext(ctx).Save(order).Error; err != nil {
			return err
		}
		return c.processExchangeErrorRaise(ctx, report.ErrorCode)

	case model.StatusCanceled:
		if expectedCancel(order.Status) {
			return nil
		}
		log.Printf("Order: unknown cancel %s status=%s", order.ID, order.Status)
		return c.processUnknownCancelRaise(ctx)

	case ReportStatusNew:
		return c.updateNew(ctx, order, report)

	case ReportStatusFilled, model.StatusPartiallyFilled:
		applied, err := c.recordFill(ctx, order, report)
		if err != nil {
			return err
		}
		if !applied {
			log.Printf("Order: duplicate fill %s fillId=%s", order.ID, report.FillID)
			return nil
		}
		if err := c.updateFilled(ctx, order, report); err != nil {
			return err
		}
		if err := model.UpsertCommissions(c.deps.DB.WithContext(ctx), c.plan.ID, report.Commission); err != nil {
			return err
		}
		if err := c.updateSummary(ctx, order, report); err != nil {
			return err
		}
		c.uiNotify(ctx)

		if report.Status == model.StatusPartiallyFilled {
			// 部分成交只推进开仓侧的平仓腿分配
			if order.IndicatorType == model.IndicatorOpen {
				return v.processCompleteOpen(ctx, order)
			}
			return nil
		}
		switch order.IndicatorType {
		case model.IndicatorOpen:
			return v.processCompleteOpen(ctx, order)
		case model.IndicatorTake, model.IndicatorTrail:
			return v.processCompleteTake(ctx, order)
		case model.IndicatorLoss:
			return v.processCompleteLoss(ctx, order)
		case model.IndicatorSellMarketNow:
			return v.processCompleteSellNow(ctx, order)
		}
		return nil
	}

	log.Printf("Order: unhandled report status %s uKey=%s", report.Status, report.UKey)
	return nil
}
