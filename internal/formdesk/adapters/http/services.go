package http

import (
	"context"

	"formdesk/internal/formdesk/app"
	"formdesk/internal/formdesk/domain/entities"
)

// SubmissionService отправка новых записей.
type SubmissionService interface {
	IssueToken(ctx context.Context, sessionID string) (string, error)
	Submit(ctx context.Context, sessionID, formToken string, rec *entities.Record) (*app.SubmitResult, error)
	Create(ctx context.Context, rec *entities.Record) (*app.SubmitResult, error)
}

// BrowserService просмотр и редактирование записей.
type BrowserService interface {
	Mount(ctx context.Context, sessionID string) (*entities.Session, error)
	Reload(ctx context.Context, sessionID string) (*entities.Session, error)
	SelectForEdit(ctx context.Context, sessionID string, id int64) (*entities.Session, error)
	EditField(ctx context.Context, sessionID string, id int64, name, value string) (*entities.Session, error)
	SubmitEdit(ctx context.Context, sessionID string, id int64, values entities.Patch) (*entities.Session, error)
	CancelEdit(ctx context.Context, sessionID string) (*entities.Session, error)
	List(ctx context.Context) ([]*entities.StoredRecord, error)
	Update(ctx context.Context, id int64, patch entities.Patch) error
}

// HealthChecker проверяет доступность хранилища.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

var (
	_ SubmissionService = (*app.SubmissionUseCase)(nil)
	_ BrowserService    = (*app.BrowserUseCase)(nil)
)
