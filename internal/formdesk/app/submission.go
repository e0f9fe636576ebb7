package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"formdesk/internal/formdesk/domain/entities"
	"formdesk/internal/formdesk/domain/validation"
	"formdesk/internal/formdesk/ports/repositories"
	"formdesk/internal/formdesk/ports/sessions"
	"formdesk/pkg/logger"
)

// SubmitResult результат отправки формы.
type SubmitResult struct {
	// FieldErrors заполнено, если запись не прошла валидацию. В этом случае хранилище не вызывалось.
	FieldErrors validation.Errors
	// Record сохраненная запись при успехе.
	Record *entities.StoredRecord
	// Token токен формы для следующей отправки.
	Token string
}

// SubmissionUseCase отправка новых записей.
type SubmissionUseCase struct {
	store     repositories.RecordStore
	sessions  sessions.Store
	validator *validation.Validator
	newToken  func() string
}

// NewSubmissionUseCase создает новый экземпляр SubmissionUseCase.
func NewSubmissionUseCase(store repositories.RecordStore, sessionStore sessions.Store, validator *validation.Validator) *SubmissionUseCase {
	return &SubmissionUseCase{
		store:     store,
		sessions:  sessionStore,
		validator: validator,
		newToken:  uuid.NewString,
	}
}

// IssueToken возвращает текущий токен формы сессии, выпуская новый при необходимости.
func (uc *SubmissionUseCase) IssueToken(ctx context.Context, sessionID string) (string, error) {
	var token string
	_, err := updateSession(ctx, uc.sessions, sessionID, func(s *entities.Session) error {
		if s.Form.Token == "" {
			s.Form.Token = uc.newToken()
		}
		token = s.Form.Token
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSession, err)
	}
	return token, nil
}

// Submit проверяет и сохраняет запись, отправленную из формы.
//
// Токен формы погашается до обращения к хранилищу, поэтому повторная отправка
// с тем же токеном завершается ErrDuplicateSubmission. При ошибке хранилища
// возвращается результат с новым токеном вместе с ошибкой, обернутой в ErrStore.
func (uc *SubmissionUseCase) Submit(ctx context.Context, sessionID, formToken string, rec *entities.Record) (*SubmitResult, error) {
	log := logger.Log(ctx).With(zap.String("method", "SubmissionUseCase.Submit"))

	if errs := uc.validator.Validate(rec); !errs.Valid() {
		log.Debug(ctx, LogValidationFailed, zap.Int("violations", len(errs)))
		return &SubmitResult{FieldErrors: errs, Token: formToken}, nil
	}

	_, err := uc.sessions.Update(ctx, sessionID, func(s *entities.Session) error {
		if formToken == "" || s.Form.Token != formToken {
			return ErrDuplicateSubmission
		}
		s.Form.Token = ""
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSubmission) {
			return nil, ErrDuplicateSubmission
		}
		return nil, fmt.Errorf("%w: %w", ErrSession, err)
	}

	stored, storeErr := uc.store.Insert(ctx, rec)

	next := uc.newToken()
	_, err = uc.sessions.Update(ctx, sessionID, func(s *entities.Session) error {
		s.Form.Token = next
		if storeErr == nil {
			s.Browser.Reset()
		}
		return nil
	})
	if err != nil {
		log.Warn(ctx, LogTokenRotateFailed, zap.Error(err))
	}

	if storeErr != nil {
		log.Error(ctx, LogInsertFailed, zap.Error(storeErr))
		return &SubmitResult{Token: next}, fmt.Errorf("%w: %w", ErrStore, storeErr)
	}

	log.Info(ctx, LogRecordInserted, zap.Int64("id", stored.ID))
	return &SubmitResult{Record: stored, Token: next}, nil
}

// Create проверяет и сохраняет запись без привязки к сессии.
func (uc *SubmissionUseCase) Create(ctx context.Context, rec *entities.Record) (*SubmitResult, error) {
	log := logger.Log(ctx).With(zap.String("method", "SubmissionUseCase.Create"))

	if errs := uc.validator.Validate(rec); !errs.Valid() {
		log.Debug(ctx, LogValidationFailed, zap.Int("violations", len(errs)))
		return &SubmitResult{FieldErrors: errs}, nil
	}

	stored, err := uc.store.Insert(ctx, rec)
	if err != nil {
		log.Error(ctx, LogInsertFailed, zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	log.Info(ctx, LogRecordInserted, zap.Int64("id", stored.ID))
	return &SubmitResult{Record: stored}, nil
}
