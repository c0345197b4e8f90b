package paymentprovider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// VerifyWebhookSignature проверяет подпись уведомления:
// base64(HMAC-SHA256(secret, timestamp + rawBody)).
func (c *Client) VerifyWebhookSignature(timestamp string, rawBody []byte, signature string) bool {
	if c.secretKey == "" || timestamp == "" || signature == "" {
		return false
	}
	expected := Sign(c.secretKey, timestamp, rawBody)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign вычисляет подпись уведомления.
func Sign(secret, timestamp string, rawBody []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(rawBody)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ParseWebhook разбирает тело уведомления.
func ParseWebhook(rawBody []byte) (*WebhookEvent, error) {
	const op = "paymentprovider.ParseWebhook"
	var event WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &event, nil
}
