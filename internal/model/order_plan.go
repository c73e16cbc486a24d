package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// OrderPlan is a user's overall trading intent: one row per plan, with the
// four side/phase accumulators mutated only by fill processing.
type OrderPlan struct {
	ID       string `gorm:"type:uuid;primaryKey"`
	UserID   string `gorm:"not null;index:idx_plans_lookup"`
	Active   Alive  `gorm:"not null;index:idx_plans_lookup"`
	Exchange string `gorm:"size:10;not null;index:idx_plans_lookup"`
	Symbol   string `gorm:"size:20;not null"`

	PlanType          PlanType  `gorm:"size:10;not null"`
	Direction         Direction `gorm:"size:15;not null"`
	IsCloseTypeAmount bool      `gorm:"not null;default:false"`
	IsVirtual         bool      `gorm:"not null;default:false;index:idx_plans_lookup"`

	// Accumulators, incremented by fill processing only. openAmount and
	// friends are direction-dependent projections over these.
	BuyOpenAmount      float64 `gorm:"not null;default:0"`
	BuyOpenExecuteQty  float64 `gorm:"not null;default:0"`
	SellOpenAmount     float64 `gorm:"not null;default:0"`
	SellOpenExecuteQty float64 `gorm:"not null;default:0"`
	BuyCloseAmount     float64 `gorm:"not null;default:0"`
	BuyCloseExecuteQty float64 `gorm:"not null;default:0"`
	SellCloseAmount    float64 `gorm:"not null;default:0"`
	SellCloseExecuteQty float64 `gorm:"not null;default:0"`

	StrategyID    *string `gorm:"type:uuid"`
	StrategyName  string  `gorm:"default:''"`
	StrategyQty   float64 `gorm:"not null;default:0"`
	SystemMessage string  `gorm:"size:100;default:''"`
	TradeCount    int     `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time

	SubOrders   []Order      `gorm:"foreignKey:OrderPlanID" json:"subOrders,omitempty"`
	Commissions []Commission `gorm:"foreignKey:OrderPlanID" json:"commissions,omitempty"`
}

// NewOrderPlan builds a plan shell; strategy plans additionally set the
// strategy link and per-bundle quantity before the first start.
func NewOrderPlan(userID, exchange, symbol string, planType PlanType, direction Direction, isVirtual, isCloseTypeAmount bool) *OrderPlan {
	return &OrderPlan{
		ID:                uuid.NewString(),
		UserID:            userID,
		Active:            AliveActive,
		Exchange:          exchange,
		Symbol:            symbol,
		PlanType:          planType,
		Direction:         direction,
		IsVirtual:         isVirtual,
		IsCloseTypeAmount: isCloseTypeAmount,
	}
}

// OpenAmount projects the opening-phase notional for the plan direction.
func (p *OrderPlan) OpenAmount() float64 {
	switch p.Direction {
	case DirectionB2S:
		return p.BuyOpenAmount
	case DirectionS2B:
		return p.SellOpenAmount
	}
	return p.BuyOpenAmount + p.SellOpenAmount
}

// OpenExecuteQty projects the opening-phase filled quantity.
func (p *OrderPlan) OpenExecuteQty() float64 {
	switch p.Direction {
	case DirectionB2S:
		return p.BuyOpenExecuteQty
	case DirectionS2B:
		return p.SellOpenExecuteQty
	}
	return p.BuyOpenExecuteQty + p.SellOpenExecuteQty
}

// CloseAmount projects the closing-phase notional.
func (p *OrderPlan) CloseAmount() float64 {
	switch p.Direction {
	case DirectionB2S:
		return p.SellCloseAmount
	case DirectionS2B:
		return p.BuyCloseAmount
	}
	return p.BuyCloseAmount + p.SellCloseAmount
}

// CloseExecuteQty projects the closing-phase filled quantity.
func (p *OrderPlan) CloseExecuteQty() float64 {
	switch p.Direction {
	case DirectionB2S:
		return p.SellCloseExecuteQty
	case DirectionS2B:
		return p.BuyCloseExecuteQty
	}
	return p.BuyCloseExecuteQty + p.SellCloseExecuteQty
}

// UnrealizedQty is what has been opened but not yet closed.
func (p *OrderPlan) UnrealizedQty() float64 {
	return p.OpenExecuteQty() - p.CloseExecuteQty()
}

// RateOfReturn is (closePrice-openPrice)/openPrice*100 signed by direction,
// rounded to two decimals. The minus arguments subtract an in-flight open
// fill so a progress report excludes the round still running.
func (p *OrderPlan) RateOfReturn(minusOpenAmount, minusOpenQty float64) float64 {
	if p.CloseExecuteQty() <= 0 {
		return 0
	}
	openQty := p.OpenExecuteQty() - minusOpenQty
	if openQty <= 0 {
		return 0
	}
	openPrice := (p.OpenAmount() - minusOpenAmount) / openQty
	closePrice := p.CloseAmount() / p.CloseExecuteQty()
	if openPrice == 0 {
		return 0
	}
	r := (closePrice - openPrice) / openPrice * 100
	return math.Round(r*100) / 100 * p.Direction.Sign()
}

// AmountOfReturn is the realized notional P&L signed by direction.
func (p *OrderPlan) AmountOfReturn() float64 {
	if p.CloseAmount() <= 0 {
		return 0
	}
	return (p.CloseAmount() - p.OpenAmount()) * p.Direction.Sign()
}

// QuoteAsset extracts the quote asset from a BASE-QUOTE symbol.
func (p *OrderPlan) QuoteAsset() string {
	for i := len(p.Symbol) - 1; i >= 0; i-- {
		if p.Symbol[i] == '-' {
			return p.Symbol[i+1:]
		}
	}
	return p.Symbol
}
