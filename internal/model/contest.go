package model

import "time"

// Contest scoring modes.
const (
	ScoreBestRateOfReturn  = "BestRateOfReturn"
	ScoreTotalRateOfReturn = "TotalRateOfReturn"
)

// TradingContest is a scored competition window on one exchange.
type TradingContest struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:50;not null"`
	Exchange  string    `gorm:"size:10;not null"`
	ScoreType string    `gorm:"size:25;not null"`
	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null"`
	IsActive  bool      `gorm:"not null;default:true"`
}

// TradingContestRecord holds a participant's running score. Best-rate
// contests keep one row per user with the max plan return; total-return
// contests keep one row per (user, symbol) accumulating realized P&L.
type TradingContestRecord struct {
	ID               uint   `gorm:"primaryKey"`
	TradingContestID uint   `gorm:"not null;uniqueIndex:idx_contest_entry"`
	UserID           string `gorm:"type:uuid;not null;uniqueIndex:idx_contest_entry"`
	Symbol           string `gorm:"size:20;default:'';uniqueIndex:idx_contest_entry"`
	Score            float64
	UpdatedAt        time.Time
}
