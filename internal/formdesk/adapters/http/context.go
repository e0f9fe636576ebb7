// Package http содержит HTTP сервер сервиса formdesk: HTML страницы и JSON API.
package http

import (
	"context"

	"github.com/gofiber/fiber/v3"
)

// Ключи fiber.Locals.
const (
	localUserContext = "userContext"
	localSessionID   = "sessionID"
)

// requestContext возвращает контекст запроса с логгером и request id.
func requestContext(ctx fiber.Ctx) context.Context {
	if reqCtx, ok := ctx.Locals(localUserContext).(context.Context); ok {
		return reqCtx
	}
	return ctx.Context()
}

// sessionID возвращает идентификатор сессии посетителя.
func sessionID(ctx fiber.Ctx) string {
	sid, _ := ctx.Locals(localSessionID).(string)
	return sid
}
