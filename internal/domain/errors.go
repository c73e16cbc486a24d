package domain

import (
	"errors"
	"fmt"
)

// 定义通用业务错误
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrStateConflict   = errors.New("operation illegal for current state")
	ErrInternalError   = errors.New("internal error")
	ErrPlanTerminal    = errors.New("order plan already in terminal state")
	ErrDuplicateFill   = errors.New("fill already applied")
	ErrNoSubOrders     = errors.New("no live sub-orders")
	ErrNotOpenFilled   = errors.New("no unrealized open quantity")
	ErrWrongDirection  = errors.New("opposite direction plan is active")
	ErrPlanCountLimit  = errors.New("ongoing plan count limit reached")
	ErrStrategyMissing = errors.New("strategy definition not linked")
)

// AppError 应用错误，包含 HTTP 状态码、稳定的用户错误码和原始错误
type AppError struct {
	Status  int    // HTTP 状态码
	Code    string // 稳定的用户侧错误码，客户端据此映射文案
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// User-facing error codes, kept stable for client mapping.
const (
	CodeParameter       = "NONE_PARAMETER"
	CodeNotAllowedState = "NOT_ALLOWED_ORDER_STATE"
	CodeOnlyActivePause = "ONLY_ACTIVE_PAUSE"
	CodeOnlyPauseResume = "ONLY_PAUSED_RESUME"
	CodeNoSubOrder      = "NOT_EXIST_SUB_ORDER"
	CodeNotOpenFilled   = "NOT_OPEN_FILLED"
	CodeInvalidTick     = "INVALID_TICK_PRICE"
	CodeWrongDirection  = "WRONG_DIRECTION"
	CodeOrderCountLimit = "ORDER_COUNT_LIMIT"
	CodeNoStrategy      = "NOT_EXIST_STRATEGY"
	CodeBasicFilled     = "NOT_ACTION_BASIC_FILLED"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL_ERROR"
)

// 创建常见错误的便捷函数

func NewParameterError(name string) *AppError {
	return &AppError{Status: 400, Code: CodeParameter, Message: fmt.Sprintf("missing or invalid parameter: %s", name), Err: ErrInvalidInput}
}

func NewTickSizeError(symbol string) *AppError {
	return &AppError{Status: 400, Code: CodeInvalidTick, Message: fmt.Sprintf("price does not fit the %s tick size", symbol), Err: ErrInvalidInput}
}

func NewNotAllowedStateError(op string, active int) *AppError {
	return &AppError{Status: 409, Code: CodeNotAllowedState, Message: fmt.Sprintf("%s not allowed, plan active=%d", op, active), Err: ErrPlanTerminal}
}

func NewPauseOnlyActiveError() *AppError {
	return &AppError{Status: 409, Code: CodeOnlyActivePause, Message: "pause is only allowed on an active plan", Err: ErrStateConflict}
}

func NewResumeOnlyPausedError() *AppError {
	return &AppError{Status: 409, Code: CodeOnlyPauseResume, Message: "resume is only allowed on a stopped plan", Err: ErrStateConflict}
}

func NewNoSubOrderError(op string) *AppError {
	return &AppError{Status: 404, Code: CodeNoSubOrder, Message: op + ": no live sub-orders", Err: ErrNoSubOrders}
}

func NewNotOpenFilledError(op string) *AppError {
	return &AppError{Status: 409, Code: CodeNotOpenFilled, Message: op + ": open filled quantity is zero or less", Err: ErrNotOpenFilled}
}

func NewWrongDirectionError(direction string) *AppError {
	return &AppError{Status: 409, Code: CodeWrongDirection, Message: direction + " plan already activated", Err: ErrWrongDirection}
}

func NewOrderCountError() *AppError {
	return &AppError{Status: 409, Code: CodeOrderCountLimit, Message: "ongoing plan count limit reached", Err: ErrPlanCountLimit}
}

func NewStrategyMissingError(op string) *AppError {
	return &AppError{Status: 400, Code: CodeNoStrategy, Message: op + ": strategy not linked", Err: ErrStrategyMissing}
}

func NewBasicFilledError() *AppError {
	return &AppError{Status: 409, Code: CodeBasicFilled, Message: "basic order already has fills", Err: ErrStateConflict}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Status: 404, Code: CodeNotFound, Message: msg, Err: ErrNotFound}
}

func NewInternalError(msg string, err error) *AppError {
	return &AppError{Status: 500, Code: CodeInternal, Message: msg, Err: err}
}
