package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"etstrade.com/internal/model"
)

func TestTriggerPrice(t *testing.T) {
	// Limit-class legs buffer adversely; buys up, sells down.
	assert.InDelta(t, 100.3, TriggerPrice(100, 0.003, model.TradeLimit, model.SideBuy, 0.01), 1e-9)
	assert.InDelta(t, 99.7, TriggerPrice(100, 0.003, model.TradeLimit, model.SideSell, 0.01), 1e-9)
	// Market legs take no buffer.
	assert.InDelta(t, 100, TriggerPrice(100, 0.003, model.TradeMarket, model.SideBuy, 0.01), 1e-9)
}

func TestTriggerPriceRoundsToTick(t *testing.T) {
	// 100 + 100*0.003 = 100.3, on a 0.25 tick rounds to 100.25.
	assert.InDelta(t, 100.25, TriggerPrice(100, 0.003, model.TradeLimit, model.SideBuy, 0.25), 1e-9)
}

func TestActualPriceInverseOfTrigger(t *testing.T) {
	// The execution buffer applies exactly where the trigger buffer does not.
	assert.InDelta(t, 100.3, ActualPrice(100, 0.003, model.TradeMarket, model.SideBuy, 0.01), 1e-9)
	assert.InDelta(t, 100, ActualPrice(100, 0.003, model.TradeLimit, model.SideBuy, 0.01), 1e-9)
	assert.InDelta(t, 99.7, ActualPrice(100, 0.003, model.TradeMarket, model.SideSell, 0.01), 1e-9)
}

func TestCancelPrice(t *testing.T) {
	// One and a half buffers past entry.
	assert.InDelta(t, 100.45, CancelPrice(100, 0.003, model.TradeLimit, model.SideBuy, 0.01), 1e-9)
	assert.InDelta(t, 99.55, CancelPrice(100, 0.003, model.TradeLimit, model.SideSell, 0.01), 1e-9)
	assert.InDelta(t, 100, CancelPrice(100, 0.003, model.TradeMarket, model.SideBuy, 0.01), 1e-9)
}

func TestTickerRounding(t *testing.T) {
	assert.InDelta(t, 0.123, FloorTicker(0.001, 8, 0.12345), 1e-9)
	assert.InDelta(t, 10.5, RoundTicker(0.5, 8, 10.3), 1e-9)
	// Flooring never rounds up even one tick short of the boundary.
	assert.InDelta(t, 0.12, FloorTicker(0.01, 8, 0.1299), 1e-9)
}

func TestTrendLinePriceTakeProfit(t *testing.T) {
	// Long position closed by a SELL take-profit 5% above the open price.
	p := TrendLinePrice(200, 0.05, 0.003, model.TradeTakeProfitLimit, model.IndicatorTake, model.SideSell, 0.01, false)
	assert.InDelta(t, 210, p.Enter, 1e-9)
	assert.InDelta(t, 209.37, p.Trigger, 1e-9)
	assert.InDelta(t, 210, p.Actual, 1e-9)
	assert.InDelta(t, 209.06, p.Cancel, 1e-9)
}

func TestTrendLinePriceStopLoss(t *testing.T) {
	// Stop loss moves the other way: 5% below the open for a long.
	p := TrendLinePrice(200, 0.05, 0.003, model.TradeMarket, model.IndicatorLoss, model.SideSell, 0.01, false)
	assert.InDelta(t, 190, p.Enter, 1e-9)
	// Market legs trigger at the entry itself.
	assert.InDelta(t, 190, p.Trigger, 1e-9)
}

func TestTrendLinePriceVirtual(t *testing.T) {
	// Virtual plans have no resting order, so the trigger is the entry.
	p := TrendLinePrice(200, 0.05, 0.003, model.TradeTakeProfitLimit, model.IndicatorTake, model.SideSell, 0.01, true)
	assert.InDelta(t, p.Enter, p.Trigger, 1e-9)
}
