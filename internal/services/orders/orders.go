// Package orders реализует создание и проверку заказов в платёжном шлюзе.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/wingoboss/wingoboss-api/internal/apperr"
	"github.com/wingoboss/wingoboss-api/internal/lib/orderid"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/paymentprovider"
)

const (
	// DefaultPhone подставляется, если телефон не передан.
	DefaultPhone = "9999999999"
	// PaymentMethods разрешённые способы оплаты.
	PaymentMethods = "cc,dc,ccc,ppc,nb,upi,paypal,emi"
	// WebhookPath путь уведомлений шлюза относительно публичного адреса API.
	WebhookPath = "/api/payments/webhook"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// Gateway описывает нужные сервису методы платёжного шлюза.
type Gateway interface {
	Configured() bool
	CreateOrder(ctx context.Context, req paymentprovider.CreateOrderRequest) (*paymentprovider.Order, error)
	GetOrder(ctx context.Context, orderID string) (*paymentprovider.Order, error)
}

// PriceSource возвращает действующие цены тарифов.
type PriceSource interface {
	Get(ctx context.Context) (models.Prices, error)
}

// CreateOrderInput входные данные для создания заказа.
type CreateOrderInput struct {
	Plan          models.Plan
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	// Amount присланная клиентом сумма. Только для сверки, в заказ не идёт.
	Amount float64
	Origin string
}

// CreatedOrder результат создания заказа.
type CreatedOrder struct {
	OrderID          string      `json:"orderId"`
	PaymentSessionID string      `json:"paymentSessionId"`
	CFOrderID        string      `json:"cfOrderId"`
	Plan             models.Plan `json:"plan"`
	Amount           float64     `json:"amount"`
	Currency         string      `json:"currency"`
}

// VerifiedOrder результат проверки заказа.
type VerifiedOrder struct {
	OrderID  string      `json:"orderId"`
	IsPaid   bool        `json:"isPaid"`
	Status   string      `json:"status"`
	Plan     models.Plan `json:"plan"`
	Currency string      `json:"currency"`
	Amount   float64     `json:"amount"`

	// CustomerID и CustomerEmail покупатель, указанный при создании заказа.
	CustomerID    string `json:"-"`
	CustomerEmail string `json:"-"`
}

// Options адреса, которые попадают в заказ.
type Options struct {
	ProductionOrigin string
	PublicAPIURL     string
}

// Service создаёт и проверяет заказы.
type Service struct {
	gateway Gateway
	prices  PriceSource
	opts    Options
	now     func() time.Time
	log     *slog.Logger
}

// New создаёт Service.
func New(gateway Gateway, prices PriceSource, opts Options, log *slog.Logger) *Service {
	return &Service{
		gateway: gateway,
		prices:  prices,
		opts:    opts,
		now:     time.Now,
		log:     log,
	}
}

// CreateOrder проверяет вход, вычисляет сумму по тарифу и создаёт заказ в шлюзе.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreatedOrder, error) {
	const op = "orders.CreateOrder"
	log := s.log.With(slog.String("op", op))

	if !in.Plan.Valid() || strings.TrimSpace(in.CustomerName) == "" || strings.TrimSpace(in.CustomerEmail) == "" {
		return nil, apperr.Validation("Missing required fields")
	}
	phone, err := NormalizePhone(in.CustomerPhone)
	if err != nil {
		return nil, err
	}
	if !s.gateway.Configured() {
		log.Error("payment gateway credentials are missing")
		return nil, apperr.Configuration(paymentprovider.ErrNotConfigured)
	}

	prices, err := s.prices.Get(ctx)
	if err != nil {
		log.Warn("failed to load prices, using defaults", sl.Err(err))
		prices = models.DefaultPrices()
	}
	amount := prices.For(in.Plan)
	if in.Amount != 0 && in.Amount != amount {
		log.Warn("client amount differs from plan price",
			slog.Float64("client_amount", in.Amount),
			slog.Float64("amount", amount),
			slog.String("plan", string(in.Plan)),
		)
	}

	id := orderid.New(s.now())
	origin := ResolveOrigin(in.Origin, s.opts.ProductionOrigin)
	req := paymentprovider.CreateOrderRequest{
		OrderID:       id,
		OrderAmount:   amount,
		OrderCurrency: models.CurrencyINR,
		CustomerDetails: paymentprovider.CustomerDetails{
			CustomerID:    CustomerID(in.CustomerEmail),
			CustomerName:  in.CustomerName,
			CustomerEmail: in.CustomerEmail,
			CustomerPhone: phone,
		},
		OrderMeta: paymentprovider.OrderMeta{
			ReturnURL:      origin + "/payment-success?order_id=" + id,
			NotifyURL:      s.notifyURL(),
			PaymentMethods: PaymentMethods,
		},
		OrderNote: string(in.Plan) + " subscription",
	}

	order, err := s.gateway.CreateOrder(ctx, req)
	if err != nil {
		log.Error("gateway rejected order", slog.String("order_id", id), sl.Err(err))
		return nil, gatewayError("Payment Gateway Error", err)
	}

	log.Info("order created", slog.String("order_id", id), slog.String("plan", string(in.Plan)))
	return &CreatedOrder{
		OrderID:          id,
		PaymentSessionID: order.PaymentSessionID,
		CFOrderID:        string(order.CFOrderID),
		Plan:             in.Plan,
		Amount:           amount,
		Currency:         models.CurrencyINR,
	}, nil
}

// VerifyOrder запрашивает статус заказа в шлюзе.
func (s *Service) VerifyOrder(ctx context.Context, orderID string) (*VerifiedOrder, error) {
	const op = "orders.VerifyOrder"
	log := s.log.With(slog.String("op", op))

	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperr.Validation("Missing orderId")
	}
	if !s.gateway.Configured() {
		log.Error("payment gateway credentials are missing")
		return nil, apperr.Configuration(paymentprovider.ErrNotConfigured)
	}

	order, err := s.gateway.GetOrder(ctx, orderID)
	if err != nil {
		log.Error("failed to verify order", slog.String("order_id", orderID), sl.Err(err))
		return nil, gatewayError("Verification Failed", err)
	}

	return &VerifiedOrder{
		OrderID:  orderID,
		IsPaid:   order.IsPaid(),
		Status:   order.OrderStatus,
		Plan:     PlanFromNote(order.OrderNote),
		Currency: order.OrderCurrency,
		Amount:   order.OrderAmount,

		CustomerID:    order.CustomerDetails.CustomerID,
		CustomerEmail: order.CustomerDetails.CustomerEmail,
	}, nil
}

func (s *Service) notifyURL() string {
	if s.opts.PublicAPIURL == "" {
		return ""
	}
	return strings.TrimRight(s.opts.PublicAPIURL, "/") + WebhookPath
}

func gatewayError(msg string, err error) error {
	var gwErr *paymentprovider.GatewayError
	switch {
	case errors.As(err, &gwErr):
		return apperr.Gateway(msg, gwErr.StatusCode, gwErr.Message, err)
	case errors.Is(err, paymentprovider.ErrNotConfigured):
		return apperr.Configuration(err)
	case errors.Is(err, paymentprovider.ErrCircuitOpen):
		return apperr.Unavailable(msg, err)
	default:
		return apperr.Internal(fmt.Errorf("%s: %w", msg, err))
	}
}

// NormalizePhone подставляет телефон по умолчанию и проверяет формат из 10 цифр.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return DefaultPhone, nil
	}
	if !phonePattern.MatchString(phone) {
		return "", apperr.Validation("Phone number must be exactly 10 digits")
	}
	return phone, nil
}

// ResolveOrigin заменяет локальный или незащищённый origin на боевой.
func ResolveOrigin(origin, production string) string {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" || strings.Contains(origin, "localhost") || strings.HasPrefix(origin, "http://") {
		return strings.TrimRight(production, "/")
	}
	return origin
}

// CustomerID строит идентификатор покупателя из email: всё, кроме букв и цифр, заменяется на "_".
func CustomerID(email string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return '_'
	}, email)
}

// BelongsTo сообщает, что заказ оформлен на email: совпадает адрес
// или идентификатор покупателя, построенный из него.
func (v *VerifiedOrder) BelongsTo(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	if v.CustomerEmail != "" {
		return strings.EqualFold(v.CustomerEmail, email)
	}
	return v.CustomerID != "" && v.CustomerID == CustomerID(email)
}

// PlanFromNote восстанавливает тариф по заметке заказа.
func PlanFromNote(note string) models.Plan {
	if strings.Contains(strings.ToLower(note), "weekly") {
		return models.PlanWeekly
	}
	return models.PlanMonthly
}
