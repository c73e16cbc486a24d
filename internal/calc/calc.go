// Package calc holds the price arithmetic shared by every plan variant:
// slippage-adjusted trigger/cancel prices and tick/step rounding. All
// functions are pure so the plan layer stays testable without market data.
package calc

import (
	"math"

	"etstrade.com/internal/model"
)

// toFixed rounds v to the given number of decimal places. Used after tick
// math to strip float noise.
func toFixed(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// RoundTicker rounds value to the nearest tickSize multiple, then to
// places decimals.
func RoundTicker(tickSize float64, places int, value float64) float64 {
	t := 1 / tickSize
	return toFixed(math.Round(value*t)/t, places)
}

// FloorTicker floors value to a tickSize multiple, then rounds to places
// decimals. Quantities always floor so we never order more than we hold.
func FloorTicker(tickSize float64, places int, value float64) float64 {
	t := 1 / tickSize
	return toFixed(math.Floor(value*t)/t, places)
}

// TriggerPrice is the price at which a resting leg fires: the entry price
// buffered by slippage in the adverse direction. Market orders take no
// buffer, buys buffer upward and sells downward.
func TriggerPrice(enterPrice, slippage float64, tradeType model.TradeType, side model.Side, tickSize float64) float64 {
	roundValue := 1 / tickSize
	price := enterPrice + enterPrice*slippage*tradeType.SlippageSign()*side.Sign()
	return math.Round(price*roundValue) / roundValue
}

// ActualPrice is the expected execution price. The buffer applies exactly
// when TriggerPrice takes none (Market orders cross the spread; limit
// orders rest at their entry price).
func ActualPrice(enterPrice, slippage float64, tradeType model.TradeType, side model.Side, tickSize float64) float64 {
	roundValue := math.Round(1 / tickSize)
	price := enterPrice + enterPrice*slippage*(1-tradeType.SlippageSign())*side.Sign()
	return math.Round(price*roundValue) / roundValue
}

// CancelPrice is the give-up level for a resting leg: one and a half
// buffers past the entry price.
func CancelPrice(enterPrice, slippage float64, tradeType model.TradeType, side model.Side, tickSize float64) float64 {
	roundValue := math.Round(1 / tickSize)
	price := enterPrice + enterPrice*slippage*1.5*tradeType.SlippageSign()*side.Sign()
	return math.Round(price*roundValue) / roundValue
}

// TrendPrices is the full price set for a trend-line closing leg.
type TrendPrices struct {
	Enter   float64
	Trigger float64
	Actual  float64
	Cancel  float64
}

// TrendLinePrice derives a closing leg's prices from the realized open
// price: the entry moves percentage away from openPrice, toward profit
// for TAKE legs and toward loss for LOSS legs. Virtual plans trigger at
// the entry itself since no real order rests on the book.
func TrendLinePrice(openPrice, percentage, slippage float64, tradeType model.TradeType, indicatorType model.IndicatorType, side model.Side, tickSize float64, virtual bool) TrendPrices {
	roundValue := math.Round(1 / tickSize)
	price := openPrice + openPrice*percentage*indicatorType.CloseSign()*side.Sign()*-1
	enterPrice := math.Round(price*roundValue) / roundValue

	trigger := enterPrice
	if !virtual {
		trigger = TriggerPrice(enterPrice, slippage, tradeType, side, tickSize)
	}
	return TrendPrices{
		Enter:   enterPrice,
		Trigger: trigger,
		Actual:  enterPrice,
		Cancel:  CancelPrice(enterPrice, slippage, tradeType, side, tickSize),
	}
}
