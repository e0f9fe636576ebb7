// Package memory содержит хранилище сессий в памяти процесса.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"formdesk/internal/formdesk/domain/entities"
	"formdesk/internal/formdesk/ports/sessions"
)

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// SessionStore реализует sessions.Store в памяти. Подходит для одного экземпляра сервиса.
// Сессии хранятся сериализованными, поэтому вызывающий код не может изменить их в обход Update.
type SessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

// NewSessionStore создает новый экземпляр SessionStore. ttl <= 0 отключает истечение.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

var _ sessions.Store = (*SessionStore)(nil)

// Load возвращает копию сессии или новую пустую сессию.
func (s *SessionStore) Load(_ context.Context, id string) (*entities.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.get(id)
}

// Update применяет fn к копии сессии и сохраняет ее, если fn не вернула ошибку.
func (s *SessionStore) Update(ctx context.Context, id string, fn sessions.UpdateFunc) (*entities.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}

	e := entry{payload: payload}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[id] = e

	return sess, nil
}

// Delete удаляет сессию.
func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

func (s *SessionStore) get(id string) (*entities.Session, error) {
	e, ok := s.entries[id]
	if !ok || (!e.expiresAt.IsZero() && s.now().After(e.expiresAt)) {
		delete(s.entries, id)
		return entities.NewSession(id), nil
	}

	var sess entities.Session
	if err := json.Unmarshal(e.payload, &sess); err != nil {
		return nil, fmt.Errorf("%w: %w", sessions.ErrSessionCorrupt, err)
	}
	return &sess, nil
}
