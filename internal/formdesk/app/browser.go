package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"formdesk/internal/formdesk/domain/entities"
	"formdesk/internal/formdesk/ports/repositories"
	"formdesk/internal/formdesk/ports/sessions"
	"formdesk/pkg/logger"
)

// DefaultPageSize количество записей, загружаемых при монтировании.
const DefaultPageSize = 10

// DefaultLoadingTimeout время, после которого незавершенная загрузка списка начинается заново.
const DefaultLoadingTimeout = 30 * time.Second

// BrowserUseCase просмотр и редактирование сохраненных записей.
type BrowserUseCase struct {
	store          repositories.RecordStore
	sessions       sessions.Store
	pageSize       int
	loadingTimeout time.Duration
	now            func() time.Time
}

// BrowserOption настраивает BrowserUseCase.
type BrowserOption func(*BrowserUseCase)

// WithLoadingTimeout задает время жизни состояния loading. Значение <= 0 оставляет значение по умолчанию.
func WithLoadingTimeout(d time.Duration) BrowserOption {
	return func(uc *BrowserUseCase) {
		if d > 0 {
			uc.loadingTimeout = d
		}
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) BrowserOption {
	return func(uc *BrowserUseCase) {
		uc.now = now
	}
}

// NewBrowserUseCase создает новый экземпляр BrowserUseCase.
func NewBrowserUseCase(store repositories.RecordStore, sessionStore sessions.Store, pageSize int, opts ...BrowserOption) *BrowserUseCase {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	uc := &BrowserUseCase{
		store:          store,
		sessions:       sessionStore,
		pageSize:       pageSize,
		loadingTimeout: DefaultLoadingTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// State возвращает состояние сессии без изменений.
func (uc *BrowserUseCase) State(ctx context.Context, sessionID string) (*entities.Session, error) {
	sess, err := uc.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSession, err)
	}
	return sess, nil
}

// Mount загружает первую страницу записей, если браузер сессии в состоянии idle
// или предыдущая загрузка брошена (loading дольше loadingTimeout).
// В остальных состояниях возвращает текущее состояние без обращения к хранилищу.
// Ошибка хранилища не возвращается, а сохраняется в состоянии браузера.
func (uc *BrowserUseCase) Mount(ctx context.Context, sessionID string) (*entities.Session, error) {
	log := logger.Log(ctx).With(zap.String("method", "BrowserUseCase.Mount"))

	var (
		started bool
		gen     uint64
	)
	sess, err := updateSession(ctx, uc.sessions, sessionID, func(s *entities.Session) error {
		if !s.Browser.NeedsFetch(uc.now(), uc.loadingTimeout) {
			return nil
		}
		if s.Browser.Status == entities.FetchLoading {
			log.Warn(ctx, LogFetchAbandoned, zap.Time("loading_since", s.Browser.LoadingSince))
		}
		s.Browser.Status = entities.FetchLoading
		s.Browser.LoadingSince = uc.now()
		s.Browser.Error = ""
		s.Browser.Records = nil
		s.Browser.FetchGeneration++
		gen = s.Browser.FetchGeneration
		started = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSession, err)
	}
	if !started {
		return sess, nil
	}

	log.Debug(ctx, LogFetchStarted, zap.Int("limit", uc.pageSize), zap.Uint64("generation", gen))
	records, fetchErr := uc.store.Select(ctx, uc.pageSize)
	if fetchErr != nil {
		log.Error(ctx, LogFetchFailed, zap.Error(fetchErr))
	}

	// Итог загрузки записывается и после отмены запроса, иначе сессия останется в loading.
	sess, err = uc.sessions.Update(context.WithoutCancel(ctx), sessionID, func(s *entities.Session) error {
		if s.Browser.FetchGeneration != gen {
			log.Debug(ctx, LogFetchStale, zap.Uint64("generation", gen))
			return nil
		}
		if fetchErr != nil {
			s.Browser.Status = entities.FetchFailed
			s.Browser.Error = fetchErr.Error()
			s.Browser.Records = nil
			return nil
		}
		s.Browser.Status = entities.FetchReady
		s.Browser.Error = ""
		s.Browser.Records = records
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSession, err)
	}
	return sess, nil
}

// Reload сбрасывает кэш сессии и загружает записи заново.
// Черновик редактирования отбрасывается вместе с кэшем.
func (uc *BrowserUseCase) Reload(ctx context.Context, sessionID string) (*entities.Session, error) {
	_, err := updateSession(ctx, uc.sessions, sessionID, func(s *entities.Session) error {
		s.Browser.Reset()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSession, err)
	}
	return uc.Mount(ctx, sessionID)
}

// SelectForEdit открывает черновик для записи из кэша. Предыдущий черновик отбрасывается.
func (uc *BrowserUseCase) SelectForEdit(ctx context.Context, sessionID string, id int64) (*entities.Session, error) {
	return uc.update(ctx, sessionID, func(s *entities.Session) error {
		rec, ok := s.Browser.Find(id)
		if !ok {
			return ErrRecordNotCached
		}
		s.Browser.Editing = entities.NewDraft(rec)
		s.Browser.EditError = ""
		s.Browser.EditGeneration++
		return nil
	})
}

// EditField меняет одно поле черновика. Кэш и хранилище не затрагиваются.
func (uc *BrowserUseCase) EditField(ctx context.Context, sessionID string, id int64, name, value string) (*entities.Session, error) {
	return uc.update(ctx, sessionID, func(s *entities.Session) error {
		draft := s.Browser.Editing
		if draft == nil || draft.ID != id {
			return ErrNotEditing
		}
		return draft.Set(name, value)
	})
}

// CancelEdit закрывает черновик без обращения к хранилищу.
// Незавершенное сохранение после отмены считается устаревшим.
func (uc *BrowserUseCase) CancelEdit(ctx context.Context, sessionID string) (*entities.Session, error) {
	return uc.update(ctx, sessionID, func(s *entities.Session) error {
		s.Browser.Editing = nil
		s.Browser.EditError = ""
		s.Browser.EditGeneration++
		return nil
	})
}

// SubmitEdit применяет values к черновику и отправляет черновик целиком как частичное обновление.
//
// При успехе черновик накладывается на запись в кэше и режим редактирования закрывается.
// При ошибке черновик сохраняется, текст ошибки доступен в EditError, кэш не меняется.
// Результат, пришедший после смены поколения редактирования, отбрасывается.
func (uc *BrowserUseCase) SubmitEdit(ctx context.Context, sessionID string, id int64, values entities.Patch) (*entities.Session, error) {
	log := logger.Log(ctx).With(zap.String("method", "BrowserUseCase.SubmitEdit"), zap.Int64("id", id))

	var (
		draft *entities.Draft
		gen   uint64
	)
	if _, err := uc.update(ctx, sessionID, func(s *entities.Session) error {
		current := s.Browser.Editing
		if current == nil || current.ID != id {
			return ErrNotEditing
		}
		for _, f := range values {
			if err := current.Set(f.Name, f.Value); err != nil {
				return fmt.Errorf("%w: %s", err, f.Name)
			}
		}
		draft = current.Clone()
		gen = s.Browser.EditGeneration
		return nil
	}); err != nil {
		return nil, err
	}

	updated, storeErr := uc.store.Update(ctx, id, draft.Patch())
	if storeErr == nil && updated == 0 {
		storeErr = ErrRecordNotFound
	}
	if storeErr != nil {
		log.Error(ctx, LogUpdateFailed, zap.Error(storeErr))
	}

	stale := false
	sess, err := uc.sessions.Update(ctx, sessionID, func(s *entities.Session) error {
		if s.Browser.EditGeneration != gen || s.Browser.Editing == nil || s.Browser.Editing.ID != id {
			stale = true
			return nil
		}
		if storeErr != nil {
			s.Browser.EditError = storeErr.Error()
			return nil
		}
		s.Browser.Merge(draft)
		s.Browser.Editing = nil
		s.Browser.EditError = ""
		s.Browser.EditGeneration++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSession, err)
	}

	if stale {
		log.Debug(ctx, LogUpdateStale, zap.Uint64("generation", gen))
		return sess, nil
	}
	if storeErr != nil {
		return sess, fmt.Errorf("%w: %w", ErrStore, storeErr)
	}

	log.Info(ctx, LogRecordUpdated)
	return sess, nil
}

// List возвращает первую страницу записей без привязки к сессии.
func (uc *BrowserUseCase) List(ctx context.Context) ([]*entities.StoredRecord, error) {
	records, err := uc.store.Select(ctx, uc.pageSize)
	if err != nil {
		logger.Log(ctx).Error(ctx, LogFetchFailed, zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return records, nil
}

// Update применяет частичное обновление к записи без привязки к сессии.
func (uc *BrowserUseCase) Update(ctx context.Context, id int64, patch entities.Patch) error {
	for _, f := range patch {
		if !entities.IsEditable(f.Name) {
			return fmt.Errorf("%w: %s", ErrUnknownField, f.Name)
		}
	}

	updated, err := uc.store.Update(ctx, id, patch)
	if err == nil && updated == 0 {
		err = ErrRecordNotFound
	}
	if err != nil {
		logger.Log(ctx).Error(ctx, LogUpdateFailed, zap.Int64("id", id), zap.Error(err))
		if errors.Is(err, ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

func (uc *BrowserUseCase) update(ctx context.Context, sessionID string, fn sessions.UpdateFunc) (*entities.Session, error) {
	sess, err := uc.sessions.Update(ctx, sessionID, fn)
	if err != nil {
		if errors.Is(err, ErrUnknownField) || errors.Is(err, ErrNotEditing) || errors.Is(err, ErrRecordNotCached) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrSession, err)
	}
	return sess, nil
}
