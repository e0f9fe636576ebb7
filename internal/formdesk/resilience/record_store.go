package resilience

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"formdesk/internal/formdesk/domain/entities"
	"formdesk/internal/formdesk/ports/repositories"
	"formdesk/pkg/logger"
)

// RecordStore оборачивает хранилище записей в Circuit Breaker.
// При открытом Circuit Breaker запросы сразу завершаются ErrCircuitOpen.
type RecordStore struct {
	next    repositories.RecordStore
	breaker *CircuitBreaker
}

// NewRecordStore создает обертку над хранилищем.
func NewRecordStore(next repositories.RecordStore, config CircuitBreakerConfig) *RecordStore {
	return &RecordStore{
		next:    next,
		breaker: NewCircuitBreaker("record_store", config),
	}
}

var _ repositories.RecordStore = (*RecordStore)(nil)

// Breaker возвращает используемый Circuit Breaker.
func (s *RecordStore) Breaker() *CircuitBreaker {
	return s.breaker
}

// Insert выполняет Insert через Circuit Breaker.
func (s *RecordStore) Insert(ctx context.Context, rec *entities.Record) (*entities.StoredRecord, error) {
	var out *entities.StoredRecord
	err := s.execute(ctx, "insert", func() error {
		var err error
		out, err = s.next.Insert(ctx, rec)
		return err
	})
	return out, err
}

// Select выполняет Select через Circuit Breaker.
func (s *RecordStore) Select(ctx context.Context, limit int) ([]*entities.StoredRecord, error) {
	var out []*entities.StoredRecord
	err := s.execute(ctx, "select", func() error {
		var err error
		out, err = s.next.Select(ctx, limit)
		return err
	})
	return out, err
}

// Update выполняет Update через Circuit Breaker.
func (s *RecordStore) Update(ctx context.Context, id int64, patch entities.Patch) (int64, error) {
	var out int64
	err := s.execute(ctx, "update", func() error {
		var err error
		out, err = s.next.Update(ctx, id, patch)
		return err
	})
	return out, err
}

// Ping проверяет хранилище напрямую, минуя Circuit Breaker.
func (s *RecordStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *RecordStore) execute(ctx context.Context, operation string, fn func() error) error {
	err := s.breaker.Execute(ctx, fn, isStoreFailure)
	if errors.Is(err, ErrCircuitOpen) {
		logger.Log(ctx).Warn(ctx, LogCircuitReject, zap.String("operation", operation))
	}
	return err
}

// isStoreFailure отделяет отказы хранилища от ответов, которые хранилище дало штатно.
func isStoreFailure(err error) bool {
	return !errors.Is(err, repositories.ErrRecordNotFound) &&
		!errors.Is(err, entities.ErrUnknownField) &&
		!errors.Is(err, context.Canceled)
}
