package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wingoboss/wingoboss-api/internal/models"
)

func TestIsValid(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Second)

	tests := []struct {
		name string
		sub  *models.Subscription
		want bool
	}{
		{name: "nil subscription", sub: nil, want: false},
		{name: "no expiry", sub: &models.Subscription{IsSubscribed: true}, want: false},
		{name: "expires in future", sub: &models.Subscription{ExpiresAt: &future}, want: true},
		{name: "expired", sub: &models.Subscription{IsSubscribed: true, ExpiresAt: &past}, want: false},
		{name: "expires exactly now", sub: &models.Subscription{ExpiresAt: &now}, want: false},
		{name: "stale cached flag ignored", sub: &models.Subscription{IsSubscribed: false, ExpiresAt: &future}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.sub, now))
			assert.Equal(t, tt.want, IsValid(tt.sub, now), "must be idempotent")
		})
	}
}

func TestDerive(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	assert.Equal(t, Entitlement{}, Derive(nil, now))
	assert.Equal(t, Entitlement{}, Derive(&models.UserProfile{UID: "u"}, now))

	active := Derive(&models.UserProfile{Subscription: &models.Subscription{Plan: models.PlanWeekly, ExpiresAt: &future}}, now)
	assert.True(t, active.IsSubscribed)
	assert.Equal(t, models.PlanWeekly, active.Plan)

	expired := Derive(&models.UserProfile{Subscription: &models.Subscription{IsSubscribed: true, Plan: models.PlanMonthly, ExpiresAt: &past}}, now)
	assert.False(t, expired.IsSubscribed)
	assert.Empty(t, expired.Plan, "plan is hidden unless valid")
}

func TestCheckDevice(t *testing.T) {
	tests := []struct {
		remote, local string
		wantErr       bool
	}{
		{"dev-a", "dev-a", false},
		{"dev-a", "dev-b", true},
		{"", "dev-b", false},
		{"dev-a", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		err := CheckDevice(tt.remote, tt.local)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrSessionSuperseded, "remote=%q local=%q", tt.remote, tt.local)
		} else {
			assert.NoError(t, err, "remote=%q local=%q", tt.remote, tt.local)
		}
	}
}

func TestAdmins(t *testing.T) {
	admins := NewAdmins([]string{" Boss@Example.com ", "", "ops@example.com"})

	assert.True(t, admins.IsAdmin("boss@example.com"))
	assert.True(t, admins.IsAdmin("OPS@EXAMPLE.COM"))
	assert.False(t, admins.IsAdmin("user@example.com"))
	assert.False(t, admins.IsAdmin(""))

	var none *Admins
	assert.False(t, none.IsAdmin("boss@example.com"))
}
