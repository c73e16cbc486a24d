package model

import "time"

// Fill is the idempotency ledger for execution reports: one row per
// exchange fill identifier per order. The unique index makes duplicate
// delivery of the same fill a no-op for the whole cascade.
type Fill struct {
	ID        uint   `gorm:"primaryKey"`
	OrderID   string `gorm:"type:uuid;uniqueIndex:idx_fills_order_fill"`
	FillID    string `gorm:"size:64;uniqueIndex:idx_fills_order_fill"`
	Qty       float64
	Amount    float64
	Price     float64
	Status    OrderStatus `gorm:"size:20"`
	CreatedAt time.Time
}
