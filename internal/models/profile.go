// Package models содержит доменные структуры: профиль пользователя,
// вложенный блок подписки, тарифы, страницы CMS и событие смены профиля.
package models

import "time"

// Plan тариф подписки.
type Plan string

const (
	// PlanWeekly недельный тариф.
	PlanWeekly Plan = "weekly"
	// PlanMonthly месячный тариф.
	PlanMonthly Plan = "monthly"
)

// Valid сообщает, является ли значение известным тарифом.
func (p Plan) Valid() bool {
	return p == PlanWeekly || p == PlanMonthly
}

// Duration возвращает срок действия тарифа.
func (p Plan) Duration() time.Duration {
	if p == PlanWeekly {
		return 7 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}

// CurrencyINR единственная валюта заказов.
const CurrencyINR = "INR"

// UserProfile запись профиля, созданная при первом входе.
type UserProfile struct {
	UID          string        `json:"uid"`
	Email        string        `json:"email"`
	DisplayName  string        `json:"displayName"`
	PhotoURL     string        `json:"photoURL,omitempty"`
	DeviceID     string        `json:"deviceId,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
	LastLogin    time.Time     `json:"lastLogin"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Subscription вложенный блок подписки. IsSubscribed хранится как кэш,
// источником истины служит ExpiresAt.
type Subscription struct {
	IsSubscribed  bool       `json:"isSubscribed"`
	Plan          Plan       `json:"plan,omitempty"`
	StartDate     *time.Time `json:"startDate,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	Amount        float64    `json:"amount,omitempty"`
	Currency      string     `json:"currency,omitempty"`
	OrderID       string     `json:"orderId,omitempty"`
	TransactionID string     `json:"transactionId,omitempty"`
}

// Activation описывает оплату или ручную выдачу подписки.
type Activation struct {
	Plan          Plan
	Amount        float64
	Currency      string
	OrderID       string
	TransactionID string
	// Duration переопределяет срок тарифа (ручная выдача из админки).
	Duration time.Duration
}

// NewSubscription строит блок подписки, начинающийся в момент now.
func NewSubscription(a Activation, now time.Time) *Subscription {
	d := a.Duration
	if d <= 0 {
		d = a.Plan.Duration()
	}
	start := now
	expires := now.Add(d)
	return &Subscription{
		IsSubscribed:  true,
		Plan:          a.Plan,
		StartDate:     &start,
		ExpiresAt:     &expires,
		Amount:        a.Amount,
		Currency:      a.Currency,
		OrderID:       a.OrderID,
		TransactionID: a.TransactionID,
	}
}

// ProfileUpsert поля, которые перезаписываются при каждом входе.
type ProfileUpsert struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	DeviceID    string
	LastLogin   time.Time
}

// Identity проверенная личность пользователя от провайдера входа.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}
