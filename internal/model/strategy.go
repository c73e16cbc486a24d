package model

import "time"

// StrategyLeg is one templated sub-order of a strategy definition. Open
// legs carry signal conditions watched upstream; take-profit legs carry a
// takeProfitPercent indicator when they should rest as limit orders.
type StrategyLeg struct {
	Side       Side                 `json:"side"`
	Qty        float64              `json:"qty"`
	Indicators []map[string]float64 `json:"indicators"`
	Options    map[string]string    `json:"orderOptions,omitempty"`
}

// TrailingInfo describes the optional trailing-stop slice of a strategy:
// TrailingVolume percent of each bundle's quantity trails with
// TrailingValue as the callback distance.
type TrailingInfo struct {
	Side           Side    `json:"side"`
	TrailingVolume float64 `json:"trailingVolume"`
	TrailingValue  float64 `json:"trailingValue"`
}

// Strategy is a reusable plan template. Plans reference it by id and
// instantiate one bundle of legs from it per trading round.
type Strategy struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:50;not null"`
	Direction Direction `gorm:"size:15;not null"`

	OpenInfo       []StrategyLeg      `gorm:"serializer:json"`
	TakeProfitInfo []StrategyLeg      `gorm:"serializer:json"`
	StopLossInfo   map[string]float64 `gorm:"serializer:json"`
	TrailingInfo   TrailingInfo       `gorm:"serializer:json"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasTrailing reports whether the template allocates a trailing slice.
func (s *Strategy) HasTrailing() bool {
	return s.TrailingInfo.TrailingVolume > 0
}

// TakeProfitTradeType picks how a take-profit leg executes: legs keyed by
// takeProfitPercent rest as limit orders, everything else fires at market.
func TakeProfitTradeType(leg StrategyLeg) TradeType {
	if len(leg.Indicators) > 0 {
		if _, ok := leg.Indicators[0]["takeProfitPercent"]; ok {
			return TradeTakeProfitLimit
		}
	}
	return TradeMarket
}
