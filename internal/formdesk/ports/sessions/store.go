// Package sessions defines the per-visitor session storage port.
package sessions

import (
	"context"
	"errors"

	"formdesk/internal/formdesk/domain/entities"
)

// ErrSessionConflict возвращается, когда сессию не удалось обновить из-за конкурентных изменений.
var ErrSessionConflict = errors.New("session update conflict")

// ErrSessionCorrupt возвращается, когда сохраненную сессию не удалось разобрать.
var ErrSessionCorrupt = errors.New("session payload is corrupt")

// UpdateFunc изменяет сессию. Ошибка отменяет сохранение.
type UpdateFunc func(s *entities.Session) error

// Store хранилище состояния сессий.
//
// Load возвращает новую пустую сессию, если сессии с таким id нет.
// Update применяет fn атомарно относительно других Update той же сессии.
// Нечитаемая сохраненная сессия дает ErrSessionCorrupt; Delete убирает ее.
type Store interface {
	Load(ctx context.Context, id string) (*entities.Session, error)
	Update(ctx context.Context, id string, fn UpdateFunc) (*entities.Session, error)
	Delete(ctx context.Context, id string) error
}
