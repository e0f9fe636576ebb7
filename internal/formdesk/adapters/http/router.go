package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	"formdesk/pkg/logger"
)

// Константы сервера.
const (
	AppName        = "formdesk"
	ErrMsgNotFound = "Route not found"
)

// ServerOptions настройки HTTP сервера.
type ServerOptions struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Dependencies зависимости маршрутов.
type Dependencies struct {
	Submission SubmissionService
	Browser    BrowserService
	Health     HealthChecker
	Views      *Views
	Logger     *logger.Logger
	Session    SessionOptions
}

// NewServer создает fiber приложение с обработчиком ошибок сервиса.
func NewServer(opts ServerOptions) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      AppName,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		ErrorHandler: errorHandler,
	})
}

// SetupRouter настраивает маршрутизацию для HTTP сервера.
func SetupRouter(app *fiber.App, deps Dependencies) {
	pages := NewPageHandler(deps.Submission, deps.Browser, deps.Views)
	api := NewAPIHandler(deps.Submission, deps.Browser)

	// Middleware для всех запросов.
	app.Use(NewRequestContextMiddleware(deps.Logger))
	app.Use(NewLoggerMiddleware())
	app.Use(NewRecoveryMiddleware())

	app.Get("/healthz", Healthz(deps.Health))

	// API версии 1.
	apiV1 := app.Group("/api/v1")
	apiV1.Post("/records", api.CreateRecord)
	apiV1.Get("/records", api.ListRecords)
	apiV1.Patch("/records/:id", api.UpdateRecord)

	// HTML страницы привязаны к сессии посетителя.
	web := app.Group("", NewSessionMiddleware(deps.Session))
	web.Get("/", pages.Index)
	web.Post("/records", pages.Submit)
	web.Post("/records/reload", pages.Reload)
	web.Post("/records/:id/edit", pages.SelectForEdit)
	web.Post("/records/:id/draft", pages.EditField)
	web.Post("/records/:id/cancel", pages.CancelEdit)
	web.Post("/records/:id", pages.SaveEdit)

	// Обработчик для несуществующих маршрутов.
	app.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: ErrMsgNotFound})
	})
}

func errorHandler(ctx fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := ErrMsgInternal

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	return ctx.Status(code).JSON(ErrorResponse{Error: msg})
}
