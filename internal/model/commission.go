package model

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Commission is the append-only fee ledger: one row per (plan, asset),
// monotonically incremented via upsert and never overwritten.
type Commission struct {
	OrderPlanID string  `gorm:"type:uuid;primaryKey"`
	Asset       string  `gorm:"size:10;primaryKey"`
	Qty         float64 `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpsertCommissions atomically adds the per-asset fees of one fill to the
// plan's ledger. Safe under concurrent fills on the same asset.
func UpsertCommissions(db *gorm.DB, planID string, fees map[string]float64) error {
	for asset, qty := range fees {
		if qty == 0 {
			continue
		}
		row := Commission{OrderPlanID: planID, Asset: asset, Qty: qty}
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_plan_id"}, {Name: "asset"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"qty":        gorm.Expr("commissions.qty + excluded.qty"),
				"updated_at": time.Now(),
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}
