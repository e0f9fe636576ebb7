package http

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"formdesk/internal/formdesk/app"
	"formdesk/internal/formdesk/domain/entities"
	"formdesk/internal/formdesk/domain/validation"
	"formdesk/pkg/logger"
)

// Константы сообщений для страниц.
const (
	LogHandlerIndex      = "handling index page"
	LogHandlerSubmit     = "handling form submission"
	LogHandlerEdit       = "handling select for edit"
	LogHandlerEditField  = "handling draft field edit"
	LogHandlerSaveEdit   = "handling edit save"
	LogHandlerCancelEdit = "handling edit cancel"
	LogHandlerReload     = "handling records reload"
	LogRenderFailed      = "failed to render page"
	LogSubmitFailed      = "submission failed"
	LogActionFailed      = "browser action failed"

	MsgSubmitFailed      = "Failed to save the record. Please try again."
	MsgDuplicateSubmit   = "This form has already been submitted."
	MsgRecordNotLoaded   = "The record is not in the loaded list."
	MsgNotEditing        = "The record is not being edited."
	MsgUnknownField      = "The field cannot be edited."
	MsgSessionFailed     = "Your session could not be loaded. Please try again."
	ErrMsgInvalidID      = "invalid record id"
	ErrMsgSendHTML       = "failed to send page"
	formTokenField       = "form_token"
	editFieldNameField   = "name"
	editFieldValueField  = "value"
	redirectAfterPostURL = "/"
)

// PageHandler обработчик HTML страниц.
type PageHandler struct {
	submission SubmissionService
	browser    BrowserService
	views      *Views
}

// NewPageHandler создает новый обработчик страниц.
func NewPageHandler(submission SubmissionService, browser BrowserService, views *Views) *PageHandler {
	return &PageHandler{
		submission: submission,
		browser:    browser,
		views:      views,
	}
}

// Index отрисовывает форму и список записей. Список загружается, если его нет в сессии.
func (h *PageHandler) Index(ctx fiber.Ctx) error {
	reqCtx := requestContext(ctx)
	logger.Log(reqCtx).Debug(reqCtx, LogHandlerIndex)

	return h.render(ctx, fiber.StatusOK, pageOptions{})
}

// Submit обрабатывает отправку формы.
func (h *PageHandler) Submit(ctx fiber.Ctx) error {
	reqCtx := requestContext(ctx)
	log := logger.Log(reqCtx).With(zap.String("handler", "PageHandler.Submit"))
	log.Debug(reqCtx, LogHandlerSubmit)

	rec := recordFromForm(ctx)
	token := ctx.FormValue(formTokenField)

	res, err := h.submission.Submit(reqCtx, sessionID(ctx), token, rec)
	switch {
	case errors.Is(err, app.ErrDuplicateSubmission):
		return h.render(ctx, fiber.StatusConflict, pageOptions{record: rec, notice: MsgDuplicateSubmit})
	case errors.Is(err, app.ErrStore):
		return h.render(ctx, fiber.StatusBadGateway, pageOptions{record: rec, token: res.Token, globalError: MsgSubmitFailed})
	case err != nil:
		log.Error(reqCtx, LogSubmitFailed, zap.Error(err))
		return h.render(ctx, fiber.StatusInternalServerError, pageOptions{record: rec, globalError: MsgSessionFailed})
	}

	if !res.FieldErrors.Valid() {
		return h.render(ctx, fiber.StatusUnprocessableEntity, pageOptions{record: rec, token: res.Token, fieldErrors: res.FieldErrors})
	}

	return ctx.Redirect().Status(fiber.StatusSeeOther).To(redirectAfterPostURL)
}

// SelectForEdit открывает запись в режиме редактирования.
func (h *PageHandler) SelectForEdit(ctx fiber.Ctx) error {
	reqCtx := requestContext(ctx)
	logger.Log(reqCtx).Debug(reqCtx, LogHandlerEdit)

	id, err := recordID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, ErrMsgInvalidID)
	}

	_, err = h.browser.SelectForEdit(reqCtx, sessionID(ctx), id)
	return h.afterBrowserAction(ctx, err)
}

// EditField меняет одно поле черновика.
func (h *PageHandler) EditField(ctx fiber.Ctx) error {
	reqCtx := requestContext(ctx)
	logger.Log(reqCtx).Debug(reqCtx, LogHandlerEditField)

	id, err := recordID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, ErrMsgInvalidID)
	}

	_, err = h.browser.EditField(reqCtx, sessionID(ctx), id,
		ctx.FormValue(editFieldNameField), ctx.FormValue(editFieldValueField))
	return h.afterBrowserAction(ctx, err)
}

// SaveEdit отправляет черновик в хранилище.
func (h *PageHandler) SaveEdit(ctx fiber.Ctx) error {
	reqCtx := requestContext(ctx)
	logger.Log(reqCtx).Debug(reqCtx, LogHandlerSaveEdit)

	id, err := recordID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, ErrMsgInvalidID)
	}

	_, err = h.browser.SubmitEdit(reqCtx, sessionID(ctx), id, patchFromForm(ctx))
	return h.afterBrowserAction(ctx, err)
}

// Reload загружает список записей заново.
func (h *PageHandler) Reload(ctx fiber.Ctx) error {
	reqCtx := requestContext(ctx)
	logger.Log(reqCtx).Debug(reqCtx, LogHandlerReload)

	_, err := h.browser.Reload(reqCtx, sessionID(ctx))
	return h.afterBrowserAction(ctx, err)
}

// CancelEdit закрывает режим редактирования.
func (h *PageHandler) CancelEdit(ctx fiber.Ctx) error {
	reqCtx := requestContext(ctx)
	logger.Log(reqCtx).Debug(reqCtx, LogHandlerCancelEdit)

	_, err := h.browser.CancelEdit(reqCtx, sessionID(ctx))
	return h.afterBrowserAction(ctx, err)
}

func (h *PageHandler) afterBrowserAction(ctx fiber.Ctx, err error) error {
	switch {
	case err == nil:
		return ctx.Redirect().Status(fiber.StatusSeeOther).To(redirectAfterPostURL)
	case errors.Is(err, app.ErrStore):
		// текст ошибки уже сохранен в сессии и показывается в форме редактирования
		return h.render(ctx, fiber.StatusBadGateway, pageOptions{})
	case errors.Is(err, app.ErrRecordNotCached):
		return h.render(ctx, fiber.StatusNotFound, pageOptions{notice: MsgRecordNotLoaded})
	case errors.Is(err, app.ErrNotEditing):
		return h.render(ctx, fiber.StatusConflict, pageOptions{notice: MsgNotEditing})
	case errors.Is(err, app.ErrUnknownField):
		return h.render(ctx, fiber.StatusBadRequest, pageOptions{notice: MsgUnknownField})
	default:
		reqCtx := requestContext(ctx)
		logger.Log(reqCtx).Error(reqCtx, LogActionFailed, zap.Error(err))
		return h.render(ctx, fiber.StatusInternalServerError, pageOptions{notice: MsgSessionFailed})
	}
}

type pageOptions struct {
	record      *entities.Record
	token       string
	fieldErrors validation.Errors
	globalError string
	notice      string
}

func (h *PageHandler) render(ctx fiber.Ctx, status int, opts pageOptions) error {
	reqCtx := requestContext(ctx)
	sid := sessionID(ctx)

	data, err := h.pageData(reqCtx, sid, opts)
	if err != nil {
		logger.Log(reqCtx).Error(reqCtx, LogRenderFailed, zap.Error(err))
		status = fiber.StatusInternalServerError
		data = &pageData{Notice: MsgSessionFailed, Browser: entities.BrowserState{Status: entities.FetchFailed, Error: err.Error()}}
	}

	body, err := h.views.Render("index", data)
	if err != nil {
		logger.Log(reqCtx).Error(reqCtx, LogRenderFailed, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrMsgSendHTML, err)
	}

	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.Status(status).Send(body)
}

func (h *PageHandler) pageData(ctx context.Context, sid string, opts pageOptions) (*pageData, error) {
	token := opts.token
	if token == "" {
		issued, err := h.submission.IssueToken(ctx, sid)
		if err != nil {
			return nil, err
		}
		token = issued
	}

	sess, err := h.browser.Mount(ctx, sid)
	if err != nil {
		return nil, err
	}

	form := newFormView(token, opts.record, opts.fieldErrors)
	form.GlobalError = opts.globalError

	return &pageData{
		Form:    form,
		Browser: sess.Browser,
		Notice:  opts.notice,
	}, nil
}

func recordID(ctx fiber.Ctx) (int64, error) {
	return strconv.ParseInt(ctx.Params("id"), 10, 64)
}
