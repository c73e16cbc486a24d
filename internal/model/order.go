package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubOrderSpec is the fully-resolved specification of one leg, produced by
// a plan variant and consumed by NewOrder. Qty is the user-facing original
// quantity; ExecQty the quantity actually sent to the exchange (close legs
// start at 0 and are sized when the OPEN leg fills).
type SubOrderSpec struct {
	Side          Side
	TradeType     TradeType
	IndicatorType IndicatorType
	Qty           float64
	ExecQty       float64
	TrailingValue float64
	Indicator     Indicator
	Bundle        int
}

// Order is one exchange-facing leg of an OrderPlan.
type Order struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	UKey        string `gorm:"uniqueIndex"`
	UserID      string `gorm:"index:idx_orders_user_plan"`
	OrderPlanID string `gorm:"index:idx_orders_user_plan;index:idx_orders_plan_indicator"`
	Exchange    string `gorm:"size:10;not null"`
	Symbol      string `gorm:"size:20;not null"`
	Bundle      int    `gorm:"not null;default:0"`

	Side   Side        `gorm:"size:10;not null"`
	Status OrderStatus `gorm:"size:20;not null;default:'WAITING'"`
	// no column default: WAITING is the zero value and a default would
	// override it on insert
	Active        Alive         `gorm:"not null"`
	PlanType      PlanType      `gorm:"size:20;not null"`
	TradeType     TradeType     `gorm:"size:20;not null;default:'Limit'"`
	IndicatorType IndicatorType `gorm:"size:20;not null;default:'OPEN';index:idx_orders_plan_indicator"`

	OrigQty      float64 `gorm:"not null;default:0"`
	ExecQty      float64 `gorm:"not null;default:0"`
	FilledQty    float64 `gorm:"not null;default:0"`
	FilledAmount float64 `gorm:"not null;default:0"`

	TrailingValue float64   `gorm:"default:0"`
	Indicator     Indicator `gorm:"serializer:json"`
	TransactTime  time.Time
	ErrorMessage  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// GenerateUKey builds the idempotency key the exchange workers use to
// correlate execution reports: first segment of the user id plus the first
// segment of a fresh uuid. A resent leg always gets a new key.
func GenerateUKey(userID string) string {
	userPart, _, _ := strings.Cut(userID, "-")
	uuidPart, _, _ := strings.Cut(uuid.NewString(), "-")
	return userPart + "-" + uuidPart
}

// NewOrder builds a sub-order from a resolved spec. The caller decides the
// initial Active value (ACTIVE for immediately dispatched legs, WAITING for
// legs gated behind an OPEN fill).
func NewOrder(userID, planID, exchange, symbol string, planType PlanType, spec SubOrderSpec) *Order {
	bundle := spec.Bundle
	if bundle == 0 {
		bundle = 1
	}
	return &Order{
		ID:            uuid.NewString(),
		UKey:          GenerateUKey(userID),
		UserID:        userID,
		OrderPlanID:   planID,
		Exchange:      exchange,
		Symbol:        symbol,
		Bundle:        bundle,
		Side:          spec.Side,
		Status:        StatusWaiting,
		Active:        AliveActive,
		PlanType:      planType,
		TradeType:     spec.TradeType,
		IndicatorType: spec.IndicatorType,
		OrigQty:       spec.Qty,
		ExecQty:       spec.ExecQty,
		TrailingValue: spec.TrailingValue,
		Indicator:     spec.Indicator,
	}
}

// FilledPrice is the volume-weighted average fill price.
func (o *Order) FilledPrice() float64 {
	if o.FilledAmount > 0 && o.FilledQty > 0 {
		return o.FilledAmount / o.FilledQty
	}
	return 0
}

// RemainingQty is what is still out on the exchange for this leg.
func (o *Order) RemainingQty() float64 {
	return o.ExecQty - o.FilledQty
}

// ApplySpec overwrites the user-editable fields from a new spec. Used for
// in-place modification of not-yet-acknowledged legs.
func (o *Order) ApplySpec(spec SubOrderSpec) {
	o.OrigQty = spec.Qty
	if spec.ExecQty > 0 {
		o.ExecQty = spec.ExecQty
	}
	if o.IndicatorType == IndicatorOpen {
		o.ExecQty = spec.Qty
	}
	o.TrailingValue = spec.TrailingValue
	o.Indicator = spec.Indicator
}

// CancelByUser marks the leg user-canceled; uKey is rotated so a later
// resend cannot collide with stale execution reports.
func (o *Order) CancelByUser() {
	o.Active = AliveCanceled
	o.Status = StatusUserCancel
	o.UKey = GenerateUKey(o.UserID)
}

// CancelByComplete cancels a sibling because its bundle finished.
func (o *Order) CancelByComplete() {
	o.Active = AliveCanceled
	o.Status = StatusCompleteCancel
}

// RejectStopByError parks the leg in the error-stopped state pending an
// explicit user resume.
func (o *Order) RejectStopByError() {
	o.Active = AliveStopByError
	o.Status = StatusErrorStop
	o.UKey = GenerateUKey(o.UserID)
}

// EndByTimeOver completes a trend-window leg whose window expired.
func (o *Order) EndByTimeOver() {
	o.Active = AliveComplete
	o.Status = StatusComplete
}

// ResetByTrigger rearms a leg after its remote cancel was confirmed,
// with a fresh idempotency key.
func (o *Order) ResetByTrigger() {
	o.Active = AliveActive
	o.Status = StatusWaiting
	o.UKey = GenerateUKey(o.UserID)
}
