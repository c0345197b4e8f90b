package paymentprovider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Статусы заказа Cashfree, которые нас интересуют.
const (
	StatusPaid   = "PAID"
	StatusActive = "ACTIVE"

	// EventPaymentSuccess тип уведомления об успешной оплате.
	EventPaymentSuccess = "PAYMENT_SUCCESS_WEBHOOK"
)

// FlexibleID принимает идентификатор шлюза и строкой, и числом.
type FlexibleID string

// UnmarshalJSON реализует json.Unmarshaler.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flexible id: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}

// CustomerDetails данные покупателя в заказе.
type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

// OrderMeta адреса возврата и уведомлений плюс разрешённые способы оплаты.
type OrderMeta struct {
	ReturnURL      string `json:"return_url,omitempty"`
	NotifyURL      string `json:"notify_url,omitempty"`
	PaymentMethods string `json:"payment_methods,omitempty"`
}

// CreateOrderRequest тело POST /orders.
type CreateOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	OrderMeta       OrderMeta       `json:"order_meta"`
	OrderNote       string          `json:"order_note,omitempty"`
}

// Order заказ в том виде, в котором его возвращает шлюз.
type Order struct {
	CFOrderID        FlexibleID      `json:"cf_order_id"`
	OrderID          string          `json:"order_id"`
	OrderAmount      float64         `json:"order_amount"`
	OrderCurrency    string          `json:"order_currency"`
	OrderStatus      string          `json:"order_status"`
	OrderNote        string          `json:"order_note"`
	PaymentSessionID string          `json:"payment_session_id"`
	CustomerDetails  CustomerDetails `json:"customer_details"`
}

// IsPaid сообщает, оплачен ли заказ.
func (o *Order) IsPaid() bool {
	return o.OrderStatus == StatusPaid
}

// WebhookEvent уведомление от шлюза о платеже.
type WebhookEvent struct {
	Type      string      `json:"type"`
	EventTime string      `json:"event_time"`
	Data      WebhookData `json:"data"`
}

// WebhookData полезная нагрузка уведомления.
type WebhookData struct {
	Order struct {
		OrderID       string  `json:"order_id"`
		OrderAmount   float64 `json:"order_amount"`
		OrderCurrency string  `json:"order_currency"`
	} `json:"order"`
	Payment struct {
		CFPaymentID   FlexibleID `json:"cf_payment_id"`
		PaymentStatus string     `json:"payment_status"`
		PaymentAmount float64    `json:"payment_amount"`
	} `json:"payment"`
	CustomerDetails CustomerDetails `json:"customer_details"`
}

// errorBody тело ответа шлюза с ошибкой.
type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// GatewayError ответ шлюза с кодом вне 2xx.
type GatewayError struct {
	StatusCode int
	Message    string
	Code       string
	Type       string
}

func (e *GatewayError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "status " + strconv.Itoa(e.StatusCode)
	}
	return "cashfree: " + msg
}

// Temporary сообщает, стоит ли считать ошибку сбоем шлюза (5xx и 429).
func (e *GatewayError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
