package plan

import (
	"context"

	"gorm.io/gorm"

	"etstrade.com/internal/domain"
	"etstrade.com/internal/model"
)

// Deps bundles everything the plan layer talks to. Tests swap the
// providers for fakes and run the DB on in-memory sqlite.
type Deps struct {
	DB       *gorm.DB
	Queue    domain.OutboundQueue
	Market   domain.MarketDataProvider
	Balance  domain.BalanceProvider
	Slippage domain.SlippageProvider
	Contest  domain.ContestSink
}

// variant is the behavior a plan type layers over planCore. planCore
// itself provides the shared defaults; each plan type overrides the
// hooks where its orchestration differs.
type variant interface {
	// makeSubOrderSpecs resolves user input into concrete leg specs:
	// (open, takeProfit, stopLoss).
	makeSubOrderSpecs(ctx context.Context, in *PlanInput) ([]model.SubOrderSpec, []model.SubOrderSpec, []model.SubOrderSpec, error)
	// start persists the legs inside tx and queues the initial pushes.
	start(ctx context.Context, tx *gorm.DB, open, take, loss []model.SubOrderSpec) error
	modify(ctx context.Context, in *PlanInput) error

	pause(ctx context.Context) error
	resume(ctx context.Context) error
	cancel(ctx context.Context) error
	sellMarketNow(ctx context.Context) error

	processCompleteOpen(ctx context.Context, order *model.Order) error
	processCompleteTake(ctx context.Context, order *model.Order) error
	processCompleteLoss(ctx context.Context, order *model.Order) error
	processCompleteSellNow(ctx context.Context, order *model.Order) error

	core() *planCore
}
