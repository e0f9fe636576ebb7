// Package repositories defines repository interfaces for the formdesk service.
package repositories

import (
	"context"
	"errors"

	"formdesk/internal/formdesk/domain/entities"
)

// ErrRecordNotFound возвращается, когда обновление не затронуло ни одной записи.
var ErrRecordNotFound = errors.New("record not found")

// RecordStore внешнее хранилище записей (коллекция formdata).
type RecordStore interface {
	Insert(ctx context.Context, rec *entities.Record) (*entities.StoredRecord, error)
	Select(ctx context.Context, limit int) ([]*entities.StoredRecord, error)
	Update(ctx context.Context, id int64, patch entities.Patch) (int64, error)
	Ping(ctx context.Context) error
}
