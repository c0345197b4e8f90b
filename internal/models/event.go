package models

import "time"

// ProfileEvent публикуется при каждом изменении профиля.
// Подписчики перечитывают профиль или используют снимок из события.
type ProfileEvent struct {
	UID        string       `json:"uid"`
	Reason     string       `json:"reason"`
	Profile    *UserProfile `json:"profile,omitempty"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// Причины изменения профиля.
const (
	ReasonSignIn    = "sign_in"
	ReasonSignOut   = "sign_out"
	ReasonActivated = "subscription_activated"
	ReasonGranted   = "subscription_granted"
	ReasonRevoked   = "subscription_revoked"
)

// ActivationMessage сообщение в очередь уведомлений об оплате.
type ActivationMessage struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Plan        Plan      `json:"plan"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	OrderID     string    `json:"orderId"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
