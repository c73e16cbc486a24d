package model

import "time"

// IndicatorKind tags the payload variant attached to a sub-order.
type IndicatorKind string

const (
	// IndicatorKindPrice carries fixed enter/trigger/cancel prices.
	IndicatorKindPrice IndicatorKind = "price"
	// IndicatorKindTakePercent prices the leg relative to the realized
	// open price once the OPEN leg fills.
	IndicatorKindTakePercent IndicatorKind = "takePercent"
	// IndicatorKindLossPercent mirrors takePercent for the stop loss.
	IndicatorKindLossPercent IndicatorKind = "lossPercent"
	// IndicatorKindTrendWindow triggers on a time/price trend window
	// instead of a fixed price.
	IndicatorKindTrendWindow IndicatorKind = "trendWindow"
	// IndicatorKindSignal triggers on technical signal conditions
	// evaluated by the strategy watcher.
	IndicatorKindSignal IndicatorKind = "signal"
)

// Indicator is the tagged union of sub-order trigger payloads. Only the
// fields of the tagged kind are meaningful; the plan layer validates them
// before a sub-order is built.
type Indicator struct {
	Kind IndicatorKind `json:"kind"`

	// price
	EnterPrice   float64 `json:"enterPrice,omitempty"`
	TriggerPrice float64 `json:"triggerPrice,omitempty"`
	ActualPrice  float64 `json:"actualPrice,omitempty"`
	CancelPrice  float64 `json:"cancelPrice,omitempty"`

	// takePercent / lossPercent
	Percent float64 `json:"percent,omitempty"`

	// signal
	Conditions []map[string]float64 `json:"conditions,omitempty"`

	// trendWindow
	StartDate         time.Time `json:"startDate,omitempty"`
	EndDate           time.Time `json:"endDate,omitempty"`
	Period            string    `json:"period,omitempty"`
	TradingStartPrice float64   `json:"tradingStartPrice,omitempty"`
	TradingEndPrice   float64   `json:"tradingEndPrice,omitempty"`
}

// PriceIndicator builds a fixed-price indicator. Trigger and cancel prices
// come from the calculator; virtual plans carry the enter price for both.
func PriceIndicator(enter, trigger, cancel float64) Indicator {
	return Indicator{
		Kind:         IndicatorKindPrice,
		EnterPrice:   enter,
		TriggerPrice: trigger,
		ActualPrice:  enter,
		CancelPrice:  cancel,
	}
}

// TakePercentIndicator builds a take-profit indicator priced as a
// percentage of the eventual open price.
func TakePercentIndicator(percent float64) Indicator {
	return Indicator{Kind: IndicatorKindTakePercent, Percent: percent}
}

// LossPercentIndicator builds a stop-loss indicator priced as a percentage
// of the eventual open price.
func LossPercentIndicator(percent float64) Indicator {
	return Indicator{Kind: IndicatorKindLossPercent, Percent: percent}
}

// SignalIndicator carries strategy signal conditions for the watcher.
func SignalIndicator(conditions []map[string]float64) Indicator {
	return Indicator{Kind: IndicatorKindSignal, Conditions: conditions}
}

// TrendWindowIndicator builds the OPEN trigger of a trend-line plan.
func TrendWindowIndicator(start, end time.Time, period string, startPrice, endPrice float64) Indicator {
	return Indicator{
		Kind:              IndicatorKindTrendWindow,
		StartDate:         start,
		EndDate:           end,
		Period:            period,
		TradingStartPrice: startPrice,
		TradingEndPrice:   endPrice,
	}
}

// HasPrice reports whether the indicator already carries a concrete enter
// price (percent kinds gain one only after the OPEN leg fills).
func (i Indicator) HasPrice() bool {
	return i.Kind == IndicatorKindPrice && i.EnterPrice > 0
}

// Equal compares the fields a user can edit; it drives the modify diff.
func (i Indicator) Equal(o Indicator) bool {
	return i.Kind == o.Kind &&
		i.EnterPrice == o.EnterPrice &&
		i.Percent == o.Percent &&
		i.StartDate.Equal(o.StartDate) &&
		i.EndDate.Equal(o.EndDate) &&
		i.TradingStartPrice == o.TradingStartPrice &&
		i.TradingEndPrice == o.TradingEndPrice
}
