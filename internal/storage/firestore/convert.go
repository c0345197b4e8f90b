package firestore

import (
	"encoding/json"
	"time"

	"github.com/wingoboss/wingoboss-api/internal/models"
)

// Имена полей документа users/{uid}.
const (
	fieldUID          = "uid"
	fieldEmail        = "email"
	fieldDisplayName  = "displayName"
	fieldPhotoURL     = "photoURL"
	fieldDeviceID     = "deviceId"
	fieldLastLogin    = "lastLogin"
	fieldCreatedAt    = "createdAt"
	fieldSubscription = "subscription"
)

func profileFromData(data map[string]any) *models.UserProfile {
	p := &models.UserProfile{
		UID:         asString(data[fieldUID]),
		Email:       asString(data[fieldEmail]),
		DisplayName: asString(data[fieldDisplayName]),
		PhotoURL:    asString(data[fieldPhotoURL]),
		DeviceID:    asString(data[fieldDeviceID]),
	}
	if t, ok := asTime(data[fieldLastLogin]); ok {
		p.LastLogin = t
	}
	if t, ok := asTime(data[fieldCreatedAt]); ok {
		p.CreatedAt = t
	}
	if raw, ok := data[fieldSubscription].(map[string]any); ok {
		p.Subscription = subscriptionFromData(raw)
	}
	return p
}

func subscriptionFromData(data map[string]any) *models.Subscription {
	sub := &models.Subscription{
		IsSubscribed:  asBool(data["isSubscribed"]),
		Plan:          models.Plan(asString(data["plan"])),
		Amount:        asFloat(data["amount"]),
		Currency:      asString(data["currency"]),
		OrderID:       asString(data["orderId"]),
		TransactionID: asString(data["transactionId"]),
	}
	if t, ok := asTime(data["startDate"]); ok {
		sub.StartDate = &t
	}
	if t, ok := asTime(data["expiresAt"]); ok {
		sub.ExpiresAt = &t
	}
	return sub
}

// subscriptionData строит блок подписки для записи. nil даёт очищенный блок.
func subscriptionData(sub *models.Subscription) map[string]any {
	if sub == nil {
		return map[string]any{
			"isSubscribed":  false,
			"plan":          nil,
			"startDate":     nil,
			"expiresAt":     nil,
			"amount":        0,
			"currency":      nil,
			"orderId":       nil,
			"transactionId": nil,
		}
	}
	data := map[string]any{
		"isSubscribed":  sub.IsSubscribed,
		"plan":          string(sub.Plan),
		"amount":        sub.Amount,
		"currency":      sub.Currency,
		"orderId":       sub.OrderID,
		"transactionId": sub.TransactionID,
		"startDate":     nil,
		"expiresAt":     nil,
	}
	if sub.StartDate != nil {
		data["startDate"] = sub.StartDate.UTC()
	}
	if sub.ExpiresAt != nil {
		data["expiresAt"] = sub.ExpiresAt.UTC()
	}
	return data
}

// asTime понимает Timestamp, ISO-строку и карту {seconds, nanos}.
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		if t == "" {
			return time.Time{}, false
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	case map[string]any:
		secs, ok := t["seconds"]
		if !ok {
			secs, ok = t["_seconds"]
		}
		if !ok {
			return time.Time{}, false
		}
		nanos := t["nanoseconds"]
		if nanos == nil {
			nanos = t["nanos"]
		}
		return time.Unix(int64(asFloat(secs)), int64(asFloat(nanos))).UTC(), true
	default:
		return time.Time{}, false
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

// toDocument переводит значение в карту с ключами из json-тегов.
func toDocument(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
