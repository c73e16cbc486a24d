package api

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"etstrade.com/internal/domain"
	"etstrade.com/internal/plan"
	"etstrade.com/internal/service"
)

// PlanHandler 处理计划相关的 HTTP 请求
type PlanHandler struct {
	manager *plan.Manager
	query   *service.QueryService
}

// NewPlanHandler 创建计划处理器
func NewPlanHandler(manager *plan.Manager, query *service.QueryService) *PlanHandler {
	return &PlanHandler{manager: manager, query: query}
}

// StartPlan 创建并启动计划
// POST /api/plans
func (h *PlanHandler) StartPlan(c *fiber.Ctx) error {
	var in plan.PlanInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"code": domain.CodeParameter, "message": "invalid request body"})
	}
	in.UserID = userID(c)
	p, err := h.manager.Start(context.Background(), &in)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// ModifyPlan 修改计划
// PUT /api/plans/:id
func (h *PlanHandler) ModifyPlan(c *fiber.Ctx) error {
	var in plan.PlanInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"code": domain.CodeParameter, "message": "invalid request body"})
	}
	if err := h.manager.Modify(context.Background(), userID(c), c.Params("id"), &in); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "modified"})
}

// PausePlan 暂停计划
// POST /api/plans/:id/pause
func (h *PlanHandler) PausePlan(c *fiber.Ctx) error {
	if err := h.manager.Pause(context.Background(), userID(c), c.Params("id")); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "paused"})
}

// ResumePlan 恢复计划
// POST /api/plans/:id/resume
func (h *PlanHandler) ResumePlan(c *fiber.Ctx) error {
	if err := h.manager.Resume(context.Background(), userID(c), c.Params("id")); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "resumed"})
}

// CancelPlan 撤销计划
// POST /api/plans/:id/cancel
func (h *PlanHandler) CancelPlan(c *fiber.Ctx) error {
	if err := h.manager.Cancel(context.Background(), userID(c), c.Params("id")); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "canceled"})
}

// SellMarketNow 立即市价平仓
// POST /api/plans/:id/sell-market-now
func (h *PlanHandler) SellMarketNow(c *fiber.Ctx) error {
	if err := h.manager.SellMarketNow(context.Background(), userID(c), c.Params("id")); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "sell market sent"})
}

// StopAfterTrade 本轮结束后暂停（仅策略计划）
// POST /api/plans/:id/stop-after-trade
func (h *PlanHandler) StopAfterTrade(c *fiber.Ctx) error {
	if err := h.manager.StopAfterTrade(context.Background(), userID(c), c.Params("id")); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "stop scheduled"})
}

// CompleteAfterTrade 本轮结束后完结（仅策略计划）
// POST /api/plans/:id/complete-after-trade?sellNow=true
func (h *PlanHandler) CompleteAfterTrade(c *fiber.Ctx) error {
	sellNow := c.QueryBool("sellNow")
	if err := h.manager.CompleteAfterTrade(context.Background(), userID(c), c.Params("id"), sellNow); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "complete scheduled"})
}

// PauseAll 暂停全部活跃计划
// POST /api/plans/pause-all
func (h *PlanHandler) PauseAll(c *fiber.Ctx) error {
	result, err := h.manager.PauseAll(context.Background(), userID(c), c.Query("exchange"), c.QueryBool("isVirtual"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(result)
}

// ResumeAll 恢复全部停摆计划
// POST /api/plans/resume-all
func (h *PlanHandler) ResumeAll(c *fiber.Ctx) error {
	result, err := h.manager.ResumeAll(context.Background(), userID(c), c.Query("exchange"), c.QueryBool("isVirtual"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(result)
}

// CancelAllByAsset 撤销涉及某资产的全部计划
// POST /api/plans/cancel-all?asset=BTC
func (h *PlanHandler) CancelAllByAsset(c *fiber.Ctx) error {
	asset := c.Query("asset")
	if asset == "" {
		return handleError(c, domain.NewParameterError("asset"))
	}
	result, err := h.manager.CancelAllByAsset(context.Background(), userID(c), c.Query("exchange"), asset)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(result)
}

// GetOngoingPlans 进行中的计划列表
// GET /api/plans/ongoing
func (h *PlanHandler) GetOngoingPlans(c *fiber.Ctx) error {
	plans, err := h.query.OngoingPlans(context.Background(), userID(c), c.Query("exchange"), c.QueryBool("isVirtual"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(plans)
}

// GetCompletePlans 已完结计划分页列表
// GET /api/plans/complete?page=1
func (h *PlanHandler) GetCompletePlans(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	plans, err := h.query.CompletePlans(context.Background(), userID(c), c.Query("exchange"), c.QueryBool("isVirtual"), page)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(plans)
}

// GetPlanDetail 计划详情（含子订单与手续费）
// GET /api/plans/:id
func (h *PlanHandler) GetPlanDetail(c *fiber.Ctx) error {
	p, err := h.query.PlanDetail(context.Background(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(p)
}

// GetPlanTransactions 按轮聚合的成交记录
// GET /api/plans/:id/transactions
func (h *PlanHandler) GetPlanTransactions(c *fiber.Ctx) error {
	rounds, openCount, closeCount, err := h.query.Transactions(context.Background(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"rounds":     rounds,
		"openCount":  openCount,
		"closeCount": closeCount,
	})
}
