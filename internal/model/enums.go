package model

// Alive is the shared lifecycle enum used by both OrderPlan and Order.
// Negative values are terminal.
type Alive int

const (
	AliveCanceled           Alive = -2
	AliveComplete           Alive = -1
	AliveWaiting            Alive = 0
	AliveActive             Alive = 1
	AliveStopByUser         Alive = 2
	AliveStopByError        Alive = 3
	AliveStopAfterTrade     Alive = 4
	AliveCompleteAfterTrade Alive = 5
)

// Terminal reports whether the lifecycle state can never change again.
func (a Alive) Terminal() bool {
	return a == AliveCanceled || a == AliveComplete
}

// Stopped reports whether the state is one of the two resumable stop states.
func (a Alive) Stopped() bool {
	return a == AliveStopByUser || a == AliveStopByError
}

// OrderStatus is the string progression of a sub-order on its way through
// the exchange. WAITING legs have not been dispatched yet; PENDING legs are
// acknowledged and resting on the exchange.
type OrderStatus string

const (
	StatusWaiting         OrderStatus = "WAITING"
	StatusPending         OrderStatus = "PENDING"
	StatusTrailing        OrderStatus = "TRAILING"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusComplete        OrderStatus = "COMPLETE"
	StatusCanceled        OrderStatus = "CANCELED"
	StatusUserCancel      OrderStatus = "USER_CANCEL"
	StatusModifyCancel    OrderStatus = "MODIFY_CANCEL"
	StatusCompleteCancel  OrderStatus = "COMPLETE_CANCEL"
	StatusErrorStop       OrderStatus = "ERROR_STOP"
)

// Acknowledged reports whether the leg is resting on the exchange and
// therefore needs a remote cancel before it can be changed or discarded.
func (s OrderStatus) Acknowledged() bool {
	return s == StatusPending || s == StatusPartiallyFilled || s == StatusTrailing
}

// Side is the exchange order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Sign returns +1 for BUY and -1 for SELL, used by the price calculator.
func (s Side) Sign() float64 {
	if s == SideBuy {
		return 1
	}
	return -1
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Direction is the overall direction of a plan. B2S opens with a buy and
// closes with a sell (long), S2B the reverse (short), CROSS runs both.
type Direction string

const (
	DirectionB2S   Direction = "B2S"
	DirectionS2B   Direction = "S2B"
	DirectionCross Direction = "CROSS"
)

// Sign returns +1 for B2S and -1 otherwise, the factor applied to
// rate-of-return and amount-of-return projections.
func (d Direction) Sign() float64 {
	if d == DirectionB2S {
		return 1
	}
	return -1
}

// OpenSide returns the side an OPEN leg trades on for this direction.
func (d Direction) OpenSide() Side {
	if d == DirectionS2B {
		return SideSell
	}
	return SideBuy
}

// TradeType is the exchange order type of a sub-order.
type TradeType string

const (
	TradeLimit           TradeType = "Limit"
	TradeMarket          TradeType = "Market"
	TradeTrail           TradeType = "Trail"
	TradeTakeProfitLimit TradeType = "TakeProfitLimit"
)

// SlippageSign returns the slippage multiplier for the trade type: 0 for
// Market-class types (they execute at whatever the book gives), 1 for
// Limit-class types that need a trigger buffer.
func (t TradeType) SlippageSign() float64 {
	if t == TradeMarket {
		return 0
	}
	return 1
}

// IndicatorType classifies what role a sub-order plays inside its bundle.
type IndicatorType string

const (
	IndicatorOpen          IndicatorType = "OPEN"
	IndicatorTake          IndicatorType = "TAKE"
	IndicatorLoss          IndicatorType = "LOSS"
	IndicatorTrail         IndicatorType = "TRAIL"
	IndicatorSellMarketNow IndicatorType = "SELLMARKETNOW"
)

// CloseSign returns +1 for profit-taking indicators and -1 for the stop
// loss; it decides which way a trend-line close price moves off the open.
func (i IndicatorType) CloseSign() float64 {
	if i == IndicatorLoss {
		return -1
	}
	return 1
}

// IsClose reports whether the leg closes a position opened by an OPEN leg.
func (i IndicatorType) IsClose() bool {
	return i != IndicatorOpen
}

// PlanType selects the plan variant driving sub-order orchestration.
type PlanType string

const (
	PlanBasic     PlanType = "basic"
	PlanDefault   PlanType = "default"
	PlanTrendLine PlanType = "trendLine"
	PlanStrategy  PlanType = "strategy"
)

// Plan-level operating limits.
const (
	OngoingPlanLimit  = 15
	CompletePageLimit = 30
	SlippageDefault   = 0.003
)
