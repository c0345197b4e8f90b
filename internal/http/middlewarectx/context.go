// Package middlewarectx содержит HTTP middleware сессий пользователя и админки,
// ограничения частоты запросов и помещает проверенную сессию в контекст.
package middlewarectx

import (
	"context"
	"net/http"
	"strings"

	"github.com/wingoboss/wingoboss-api/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// SessionKey ключ сессии пользователя в контексте.
	SessionKey Key = "session"
	// AdminKey ключ признака админской сессии.
	AdminKey Key = "admin"
)

// Session проверенная сессия пользователя.
type Session struct {
	UID      string
	Email    string
	DeviceID string
	Profile  *models.UserProfile
}

// WithSession кладёт сессию в контекст.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// SessionFrom достаёт сессию из контекста.
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(SessionKey).(*Session)
	return s, ok && s != nil
}

// IsAdmin сообщает, что запрос прошёл AdminMiddleware.
func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(AdminKey).(bool)
	return v
}

// BearerToken возвращает токен из заголовка Authorization или параметра token.
// Параметр нужен для websocket, где браузер не передаёт заголовки.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
