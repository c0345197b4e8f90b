// Package entitlement вычисляет право доступа к премиум-контенту и следит
// за тем, что аккаунт активен только на одном устройстве.
package entitlement

import (
	"errors"
	"strings"
	"time"

	"github.com/wingoboss/wingoboss-api/internal/models"
)

// ErrSessionSuperseded сессия вытеснена входом на другом устройстве.
var ErrSessionSuperseded = errors.New("logged in on another device")

// Entitlement производное состояние подписки для клиента.
type Entitlement struct {
	IsSubscribed bool        `json:"isSubscribed"`
	Plan         models.Plan `json:"plan,omitempty"`
	ExpiresAt    *time.Time  `json:"expiresAt,omitempty"`
}

// IsValid сообщает, действует ли подписка в момент now.
func IsValid(sub *models.Subscription, now time.Time) bool {
	return sub != nil && sub.ExpiresAt != nil && sub.ExpiresAt.After(now)
}

// Derive строит Entitlement из профиля. Тариф раскрывается только для действующей подписки.
func Derive(p *models.UserProfile, now time.Time) Entitlement {
	if p == nil || p.Subscription == nil {
		return Entitlement{}
	}
	sub := p.Subscription
	if !IsValid(sub, now) {
		return Entitlement{ExpiresAt: sub.ExpiresAt}
	}
	return Entitlement{
		IsSubscribed: true,
		Plan:         sub.Plan,
		ExpiresAt:    sub.ExpiresAt,
	}
}

// CheckDevice возвращает ErrSessionSuperseded, если оба идентификатора заданы и различаются.
func CheckDevice(remote, local string) error {
	if remote != "" && local != "" && remote != local {
		return ErrSessionSuperseded
	}
	return nil
}

// Admins список email администраторов.
type Admins struct {
	emails map[string]struct{}
}

// NewAdmins создаёт список, сравнение без учёта регистра.
func NewAdmins(emails []string) *Admins {
	a := &Admins{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			a.emails[e] = struct{}{}
		}
	}
	return a
}

// IsAdmin сообщает, входит ли email в список.
func (a *Admins) IsAdmin(email string) bool {
	if a == nil || email == "" {
		return false
	}
	_, ok := a.emails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}
