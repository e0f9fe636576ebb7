package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"formdesk/internal/formdesk/domain/entities"
	"formdesk/internal/formdesk/ports/sessions"
	"formdesk/pkg/logger"
)

// updateSession применяет fn к сессии. Нечитаемая сессия удаляется и fn применяется к новой.
func updateSession(ctx context.Context, store sessions.Store, sessionID string, fn sessions.UpdateFunc) (*entities.Session, error) {
	sess, err := store.Update(ctx, sessionID, fn)
	if !errors.Is(err, sessions.ErrSessionCorrupt) {
		return sess, err
	}

	logger.Log(ctx).Warn(ctx, LogSessionDiscarded, zap.String("session", sessionID), zap.Error(err))
	if delErr := store.Delete(ctx, sessionID); delErr != nil {
		return nil, fmt.Errorf("%w: %w", err, delErr)
	}
	return store.Update(ctx, sessionID, fn)
}
