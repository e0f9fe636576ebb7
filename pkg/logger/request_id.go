package logger

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxRequestIDLength максимальная длина принимаемого извне идентификатора запроса.
const MaxRequestIDLength = 128

type requestIDKeyType struct{}

var requestIDKey = requestIDKeyType{}

// NewRequestIDContext кладет идентификатор запроса в контекст, генерируя новый при пустом requestID.
func NewRequestIDContext(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = GenerateRequestID()
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID извлекает идентификатор запроса из контекста.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// GenerateRequestID генерирует новый идентификатор запроса.
func GenerateRequestID() string {
	return uuid.NewString()
}

// AcceptRequestID возвращает идентификатор из заголовка клиента или новый,
// если заголовок пуст, слишком длинный или содержит символы вне [A-Za-z0-9._:-].
// Идентификатор попадает в журнал и ответ, поэтому произвольный ввод не пропускается.
func AcceptRequestID(incoming string) (string, bool) {
	if incoming == "" || len(incoming) > MaxRequestIDLength {
		return GenerateRequestID(), false
	}
	for i := 0; i < len(incoming); i++ {
		if !requestIDChar(incoming[i]) {
			return GenerateRequestID(), false
		}
	}
	return incoming, true
}

func requestIDChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == ':':
		return true
	default:
		return false
	}
}

// WithRequestID возвращает копию logger с полем request_id, если оно есть в контексте.
func (l *Logger) WithRequestID(ctx context.Context) *Logger {
	if id, ok := GetRequestID(ctx); ok {
		return l.With(zap.String(RequestID, id))
	}
	return l
}
