package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"etstrade.com/internal/domain"
)

// handleError 把业务错误映射为统一的 HTTP 响应。
// AppError 携带状态码与稳定错误码，客户端据码映射文案。
func handleError(c *fiber.Ctx, err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(fiber.Map{
			"code":    appErr.Code,
			"message": appErr.Message,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"code":    domain.CodeInternal,
		"message": err.Error(),
	})
}

// userID 从请求头或查询串解析用户标识；鉴权网关在上游完成
func userID(c *fiber.Ctx) string {
	if id := c.Get("X-User-Id"); id != "" {
		return id
	}
	return c.Query("userId")
}
