package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims описывает данные, которые хранятся в токене.
// DeviceID сверяется с профилем на каждом запросе.
type SessionClaims struct {
	UID      string `json:"uid,omitempty"`
	Email    string `json:"email,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin сообщает, выпущен ли токен для админки.
func (c *SessionClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// GenerateSession выпускает пользовательский токен, привязанный к устройству.
func (j *MakerImpl) GenerateSession(uid, email, deviceID string) (string, error) {
	claims := SessionClaims{
		UID:      uid,
		Email:    email,
		DeviceID: deviceID,
		Role:     RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.tokenTTL)),
		},
	}
	return j.sign(claims)
}

// GenerateAdmin выпускает короткоживущий токен админки.
func (j *MakerImpl) GenerateAdmin() (string, error) {
	claims := SessionClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   RoleAdmin,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.adminTTL)),
		},
	}
	return j.sign(claims)
}

func (j *MakerImpl) sign(claims SessionClaims) (string, error) {
	const op = "jwt.sign"
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена и возвращает его claims.
func (j *MakerImpl) ParseToken(tokenStr string) (*SessionClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
