package model

// Slippage is one price band with its execution-buffer fraction. Bands are
// half-open [MinimumPrice, MaximumPrice).
type Slippage struct {
	ID           uint    `gorm:"primaryKey"`
	MinimumPrice float64 `gorm:"not null"`
	MaximumPrice float64 `gorm:"not null"`
	Slippage     float64 `gorm:"not null"`
}
