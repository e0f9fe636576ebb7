package http

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"formdesk/internal/formdesk/app"
	"formdesk/internal/formdesk/domain/entities"
	"formdesk/pkg/logger"
)

// Константы ошибок и сообщений для JSON API.
const (
	LogHandlerCreateRecord = "handling create record request"
	LogHandlerListRecords  = "handling list records request"
	LogHandlerUpdateRecord = "handling update record request"

	ErrMsgInvalidRequestBody = "invalid request body"
	ErrMsgStoreUnavailable   = "record store request failed"
	ErrMsgRecordNotFound     = "record not found"
	ErrMsgUnknownField       = "unknown or read-only field"
	ErrMsgSendResponse       = "error sending response"
)

// APIHandler обработчик JSON API записей.
type APIHandler struct {
	submission SubmissionService
	browser    BrowserService
	validate   *validator.Validate
}

// NewAPIHandler создает новый обработчик API.
func NewAPIHandler(submission SubmissionService, browser BrowserService) *APIHandler {
	return &APIHandler{
		submission: submission,
		browser:    browser,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// CreateRecord проверяет и сохраняет запись.
func (h *APIHandler) CreateRecord(ctx fiber.Ctx) error {
	reqCtx := requestContext(ctx)
	log := logger.Log(reqCtx).With(zap.String("handler", "APIHandler.CreateRecord"))
	log.Debug(reqCtx, LogHandlerCreateRecord)

	var rec entities.Record
	if err := ctx.Bind().Body(&rec); err != nil {
		log.Debug(reqCtx, ErrMsgInvalidRequestBody, zap.Error(err))
		return sendJSON(ctx, fiber.StatusBadRequest, ErrorResponse{Error: ErrMsgInvalidRequestBody})
	}

	res, err := h.submission.Create(reqCtx, &rec)
	if err != nil {
		return handleError(ctx, err)
	}
	if !res.FieldErrors.Valid() {
		return sendJSON(ctx, fiber.StatusUnprocessableEntity, ValidationErrorResponse{Errors: res.FieldErrors})
	}

	return sendJSON(ctx, fiber.StatusCreated, res.Record)
}

// ListRecords возвращает первую страницу записей.
func (h *APIHandler) ListRecords(ctx fiber.Ctx) error {
	reqCtx := requestContext(ctx)
	logger.Log(reqCtx).Debug(reqCtx, LogHandlerListRecords)

	records, err := h.browser.List(reqCtx)
	if err != nil {
		return handleError(ctx, err)
	}

	return sendJSON(ctx, fiber.StatusOK, ListRecordsResponse{Records: records})
}

// UpdateRecord применяет частичное обновление.
func (h *APIHandler) UpdateRecord(ctx fiber.Ctx) error {
	reqCtx := requestContext(ctx)
	log := logger.Log(reqCtx).With(zap.String("handler", "APIHandler.UpdateRecord"))
	log.Debug(reqCtx, LogHandlerUpdateRecord)

	id, err := recordID(ctx)
	if err != nil {
		return sendJSON(ctx, fiber.StatusBadRequest, ErrorResponse{Error: ErrMsgInvalidID})
	}

	var req UpdateRecordRequest
	if err := ctx.Bind().Body(&req); err != nil {
		return sendJSON(ctx, fiber.StatusBadRequest, ErrorResponse{Error: ErrMsgInvalidRequestBody})
	}
	if err := h.validate.Struct(&req); err != nil {
		log.Debug(reqCtx, ErrMsgInvalidRequestBody, zap.Error(err))
		return sendJSON(ctx, fiber.StatusBadRequest, ErrorResponse{Error: ErrMsgInvalidRequestBody})
	}

	if err := h.browser.Update(reqCtx, id, req.Patch()); err != nil {
		return handleError(ctx, err)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func handleError(ctx fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, app.ErrRecordNotFound):
		return sendJSON(ctx, fiber.StatusNotFound, ErrorResponse{Error: ErrMsgRecordNotFound})
	case errors.Is(err, app.ErrUnknownField):
		return sendJSON(ctx, fiber.StatusBadRequest, ErrorResponse{Error: ErrMsgUnknownField})
	case errors.Is(err, app.ErrStore):
		return sendJSON(ctx, fiber.StatusBadGateway, ErrorResponse{Error: ErrMsgStoreUnavailable})
	default:
		return sendJSON(ctx, fiber.StatusInternalServerError, ErrorResponse{Error: ErrMsgInternal})
	}
}

func sendJSON(ctx fiber.Ctx, status int, body any) error {
	if err := ctx.Status(status).JSON(body); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgSendResponse, err)
	}
	return nil
}
