package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"etstrade.com/internal/plan"
	"etstrade.com/internal/service"
)

func NewServer(manager *plan.Manager, query *service.QueryService) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "etstrade order core",
	})

	app.Use(logger.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "Service is healthy",
		})
	})

	planHandler := NewPlanHandler(manager, query)

	// 计划路由；批量操作先于 :id 注册，避免路径被参数吞掉
	api := app.Group("/api")
	plans := api.Group("/plans")
	plans.Post("/pause-all", planHandler.PauseAll)
	plans.Post("/resume-all", planHandler.ResumeAll)
	plans.Post("/cancel-all", planHandler.CancelAllByAsset)
	plans.Get("/ongoing", planHandler.GetOngoingPlans)
	plans.Get("/complete", planHandler.GetCompletePlans)

	plans.Post("/", planHandler.StartPlan)
	plans.Put("/:id", planHandler.ModifyPlan)
	plans.Post("/:id/pause", planHandler.PausePlan)
	plans.Post("/:id/resume", planHandler.ResumePlan)
	plans.Post("/:id/cancel", planHandler.CancelPlan)
	plans.Post("/:id/sell-market-now", planHandler.SellMarketNow)
	plans.Post("/:id/stop-after-trade", planHandler.StopAfterTrade)
	plans.Post("/:id/complete-after-trade", planHandler.CompleteAfterTrade)
	plans.Get("/:id", planHandler.GetPlanDetail)
	plans.Get("/:id/transactions", planHandler.GetPlanTransactions)

	return app
}
