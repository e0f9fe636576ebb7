// Package cache содержит хранилище сессий на Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"formdesk/internal/formdesk/domain/entities"
	"formdesk/internal/formdesk/ports/sessions"
	"formdesk/pkg/logger"
)

// Константы для логирования.
const (
	LogMethodLoad   = "SessionStore.Load"
	LogMethodUpdate = "SessionStore.Update"
	LogMethodDelete = "SessionStore.Delete"

	ErrorFailedToGet    = "failed to get session from redis"
	ErrorFailedToSet    = "failed to set session in redis"
	ErrorFailedToDelete = "failed to delete session from redis"
	ErrorFailedToDecode = "failed to decode session"
	ErrorFailedToEncode = "failed to encode session"
	ErrorTxConflict     = "session transaction conflict, retrying"
)

// DefaultKeyPrefix префикс ключей сессий.
const DefaultKeyPrefix = "formdesk:session:"

// DefaultMaxRetries количество повторов транзакции при конкурентном изменении сессии.
const DefaultMaxRetries = 5

// SessionStore реализует sessions.Store поверх Redis.
type SessionStore struct {
	client     redis.UniversalClient
	ttl        time.Duration
	prefix     string
	maxRetries int
}

// NewSessionStore создает новый экземпляр SessionStore.
func NewSessionStore(client redis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:     client,
		ttl:        ttl,
		prefix:     DefaultKeyPrefix,
		maxRetries: DefaultMaxRetries,
	}
}

var _ sessions.Store = (*SessionStore)(nil)

func (s *SessionStore) key(id string) string {
	return s.prefix + id
}

// Load возвращает сессию или новую пустую сессию, если ключа нет.
func (s *SessionStore) Load(ctx context.Context, id string) (*entities.Session, error) {
	log := logger.Log(ctx).With(zap.String("method", LogMethodLoad), zap.String("session", id))

	sess, err := s.get(ctx, s.client, id)
	if err != nil {
		log.Error(ctx, ErrorFailedToGet, zap.Error(err))
		return nil, err
	}
	return sess, nil
}

// Update применяет fn под WATCH, повторяя транзакцию при конфликте.
func (s *SessionStore) Update(ctx context.Context, id string, fn sessions.UpdateFunc) (*entities.Session, error) {
	log := logger.Log(ctx).With(zap.String("method", LogMethodUpdate), zap.String("session", id))
	key := s.key(id)

	var result *entities.Session
	txf := func(tx *redis.Tx) error {
		sess, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}

		payload, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("%s: %w", ErrorFailedToEncode, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = sess
		return nil
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			log.Debug(ctx, ErrorTxConflict, zap.Int("attempt", attempt+1))
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	log.Warn(ctx, sessions.ErrSessionConflict.Error(), zap.Int("attempts", s.maxRetries))
	return nil, sessions.ErrSessionConflict
}

// Delete удаляет сессию.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	log := logger.Log(ctx).With(zap.String("method", LogMethodDelete), zap.String("session", id))

	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		log.Error(ctx, ErrorFailedToDelete, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToDelete, err)
	}
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *SessionStore) get(ctx context.Context, cmd getter, id string) (*entities.Session, error) {
	raw, err := cmd.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entities.NewSession(id), nil
		}
		return nil, fmt.Errorf("%s: %w", ErrorFailedToGet, err)
	}

	var sess entities.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", sessions.ErrSessionCorrupt, ErrorFailedToDecode, err)
	}
	sess.ID = id
	return &sess, nil
}
