// Package jwt реализует выпуск и разбор JWT для пользовательских сессий и админки.
package jwt

import (
	"time"
)

// Роли, которые кладутся в токен.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Maker описывает выпуск и проверку токенов.
type Maker interface {
	GenerateSession(uid, email, deviceID string) (string, error)
	GenerateAdmin() (string, error)
	ParseToken(tokenStr string) (*SessionClaims, error)
}

// MakerImpl подписывает токены HS256 общим секретом.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration // сессия пользователя
	adminTTL  time.Duration // сессия админки
}

// NewJWTMaker создаёт MakerImpl. Нулевой adminTTL приравнивается к tokenTTL.
func NewJWTMaker(secretKey string, ttl, adminTTL time.Duration) *MakerImpl {
	if adminTTL == 0 {
		adminTTL = ttl
	}
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		adminTTL:  adminTTL,
	}
}
