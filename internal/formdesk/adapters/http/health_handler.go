package http

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"formdesk/pkg/logger"
)

// LogHealthFailed сообщение о недоступности хранилища.
const LogHealthFailed = "health check failed"

// Healthz возвращает 200, если хранилище доступно, иначе 503.
func Healthz(checker HealthChecker) fiber.Handler {
	return func(ctx fiber.Ctx) error {
		reqCtx := requestContext(ctx)
		if err := checker.Ping(reqCtx); err != nil {
			logger.Log(reqCtx).Warn(reqCtx, LogHealthFailed, zap.Error(err))
			return sendJSON(ctx, fiber.StatusServiceUnavailable, fiber.Map{"status": "unavailable"})
		}
		return sendJSON(ctx, fiber.StatusOK, fiber.Map{"status": "ok"})
	}
}
