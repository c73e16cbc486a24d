package plan

import (
	"time"

	"etstrade.com/internal/model"
)

// LegInput is one user-supplied sub-order line. Which fields apply depends
// on the plan type and the leg's role; the variant validates before use.
type LegInput struct {
	Side       model.Side      `json:"side"`
	TradeType  model.TradeType `json:"tradeType"`
	EnterPrice float64         `json:"enterPrice"`
	Qty        float64         `json:"qty"`

	// optional trailing slice carved out of this leg
	TrailingVolume float64 `json:"trailingVolume"` // percent of qty
	TrailingValue  float64 `json:"trailingValue"`

	// trend-line close legs
	TakeProfitPercent float64 `json:"takeProfitPercent"`
	StopLossPercent   float64 `json:"stopLossPercent"`

	// trend-line open window
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	Period            string    `json:"period"`
	TradingStartPrice float64   `json:"tradingStartPrice"`
	TradingEndPrice   float64   `json:"tradingEndPrice"`

	Bundle int `json:"bundle"`
}

// PlanInput is the request body of a start or modify operation.
type PlanInput struct {
	UserID            string          `json:"-"`
	Exchange          string          `json:"exchange"`
	Symbol            string          `json:"symbol"`
	PlanType          model.PlanType  `json:"planType"`
	Direction         model.Direction `json:"direction"`
	IsVirtual         bool            `json:"isVirtual"`
	IsCloseTypeAmount bool            `json:"isCloseTypeAmount"`

	OpenInfo       []LegInput `json:"openInfo"`
	TakeProfitInfo []LegInput `json:"takeProfitInfo"`
	StopLossInfo   []LegInput `json:"stopLossInfo"`

	// strategy plans
	StrategyID string  `json:"strategyId"`
	Qty        float64 `json:"qty"`
}

// BulkResult reports the outcome of a pause-all / resume-all / cancel-all.
type BulkResult struct {
	SuccessCount int `json:"successCount"`
	FailedCount  int `json:"failedCount"`
}

// ExecutionReport is one message off the order response queue.
type ExecutionReport struct {
	UKey        string             `json:"uKey"`
	Status      model.OrderStatus  `json:"status"`
	ExecutedQty float64            `json:"executedQty"`
	Amount      float64            `json:"amount"`
	Price       float64            `json:"price"`
	FillID      string             `json:"fillId"`
	Commission  map[string]float64 `json:"commission"`
	ErrorCode   string             `json:"errorCode"`
}

// Report statuses beyond the persisted order statuses.
const (
	ReportStatusNew    model.OrderStatus = "NEW"
	ReportStatusFilled model.OrderStatus = "FILLED"
	ReportStatusError  model.OrderStatus = "ERROR"
)
