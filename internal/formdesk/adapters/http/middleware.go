package http

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"formdesk/pkg/logger"
)

// Константы сообщений middleware.
const (
	LogRequestStarted   = "request started"
	LogRequestCompleted = "request completed"
	LogRequestFailed    = "request failed"
	LogServerPanic      = "server panic"
	LogPanicResponse    = "failed to send error response after panic"
	LogSessionStarted   = "new visitor session"

	ErrMsgInternal = "Internal Server Error"
)

// NewRequestContextMiddleware создает контекст запроса с request id и логгером.
func NewRequestContextMiddleware(base *logger.Logger) fiber.Handler {
	return func(ctx fiber.Ctx) error {
		requestID, _ := logger.AcceptRequestID(ctx.Get(fiber.HeaderXRequestID))
		ctx.Set(fiber.HeaderXRequestID, requestID)

		reqCtx := logger.NewRequestIDContext(ctx.Context(), requestID)
		if base != nil {
			reqCtx = logger.NewContext(reqCtx, base)
		}
		ctx.Locals(localUserContext, reqCtx)

		return ctx.Next()
	}
}

// NewLoggerMiddleware создает новое промежуточное ПО для логирования HTTP запросов.
func NewLoggerMiddleware() fiber.Handler {
	return func(ctx fiber.Ctx) error {
		requestCtx := requestContext(ctx)
		start := time.Now()

		log := logger.Log(requestCtx).With(
			zap.String("path", ctx.Path()),
			zap.String("method", ctx.Method()),
			zap.String("ip", ctx.IP()),
		)

		log.Debug(requestCtx, LogRequestStarted)

		err := ctx.Next()

		logFields := []zap.Field{
			zap.Int("status", ctx.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		}

		if err != nil {
			log.Error(requestCtx, LogRequestFailed, append(logFields, zap.Error(err))...)
			return fmt.Errorf("request processing error: %w", err)
		}

		log.Info(requestCtx, LogRequestCompleted, logFields...)
		return nil
	}
}

// NewRecoveryMiddleware создает новое промежуточное ПО для восстановления после паники.
func NewRecoveryMiddleware() fiber.Handler {
	return func(ctx fiber.Ctx) (err error) {
		requestCtx := requestContext(ctx)
		log := logger.Log(requestCtx)

		defer func() {
			if r := recover(); r != nil {
				log.Error(requestCtx, LogServerPanic,
					zap.String("error", fmt.Sprintf("%v", r)),
					zap.String("stack", string(debug.Stack())),
				)

				if sendErr := ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": ErrMsgInternal,
				}); sendErr != nil {
					log.Error(requestCtx, LogPanicResponse, zap.Error(sendErr))
				}
				err = nil
			}
		}()

		return ctx.Next()
	}
}

// SessionOptions настройки cookie сессии.
type SessionOptions struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// NewSessionMiddleware выдает посетителю cookie сессии, если ее нет или она некорректна.
func NewSessionMiddleware(opts SessionOptions) fiber.Handler {
	return func(ctx fiber.Ctx) error {
		sid := ctx.Cookies(opts.CookieName)
		if _, err := uuid.Parse(sid); err != nil {
			sid = uuid.NewString()
			requestCtx := requestContext(ctx)
			logger.Log(requestCtx).Debug(requestCtx, LogSessionStarted, zap.String("session", sid))
		}

		cookie := &fiber.Cookie{
			Name:     opts.CookieName,
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			Secure:   opts.Secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		}
		if opts.TTL > 0 {
			cookie.Expires = time.Now().Add(opts.TTL)
		}
		ctx.Cookie(cookie)
		ctx.Locals(localSessionID, sid)

		return ctx.Next()
	}
}
