package domain

import (
	"context"

	"gorm.io/gorm"

	"etstrade.com/internal/model"
)

// MarketDataProvider reads instrument metadata and last prices published
// by the market-data collectors.
type MarketDataProvider interface {
	TickSize(ctx context.Context, exchange, symbol string) (float64, error)
	StepSize(ctx context.Context, exchange, symbol string) (float64, error)
	CurrentPrice(ctx context.Context, exchange, symbol string) (float64, error)
}

// BalanceProvider reads a user's available balance for one asset.
// Virtual plans read the paper-trading balance set.
type BalanceProvider interface {
	Available(ctx context.Context, userID, exchange, asset string, virtual bool) (float64, error)
}

// SlippageProvider resolves the execution-buffer fraction for a price.
type SlippageProvider interface {
	ForPrice(ctx context.Context, price float64) (float64, error)
}

// OutboundQueue enqueues downstream work. Implementations must write the
// message in the same transaction as the entity change (hence the *gorm.DB
// argument) so a crash never acknowledges state the consumers never heard
// about.
type OutboundQueue interface {
	// PushExecute hands sub-orders to the exchange bot. action is one of
	// OPEN, CLOSE, CANCEL.
	PushExecute(db *gorm.DB, orderIDs []string, action string) error
	// PushWatch registers a WAITING leg with the price watcher.
	PushWatch(db *gorm.DB, order *model.Order) error
	// PushUiNotify tells the socket fanout a plan changed.
	PushUiNotify(db *gorm.DB, plan *model.OrderPlan) error
	// PushNotify queues a user-facing notification event.
	PushNotify(db *gorm.DB, userID, event string, payload map[string]any) error
}

// ContestSink records realized returns into any running contests.
// Implementations are best-effort; callers log and continue on error.
type ContestSink interface {
	// RecordPlanReturn scores a finished plan from its cumulative
	// open/close amounts.
	RecordPlanReturn(ctx context.Context, plan *model.OrderPlan) error
	// RecordRoundReturn scores one closed round from that round's own
	// open/close notionals. Used by chaining plans so earlier rounds are
	// not counted again.
	RecordRoundReturn(ctx context.Context, plan *model.OrderPlan, openAmount, closeAmount float64) error
}
