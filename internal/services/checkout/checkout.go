// Package checkout ведёт попытку оплаты от создания заказа до активации
// подписки. Попытки хранятся в redis, активация выполняется ровно один раз.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wingoboss/wingoboss-api/internal/apperr"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/paymentprovider"
	"github.com/wingoboss/wingoboss-api/internal/services/orders"
)

// DefaultTTL время жизни попытки в redis.
const DefaultTTL = 24 * time.Hour

// ErrAuthRequired оплата начата без сессии.
var ErrAuthRequired = apperr.Unauthorized("sign in required")

// Orders создаёт и проверяет заказы в шлюзе.
type Orders interface {
	CreateOrder(ctx context.Context, in orders.CreateOrderInput) (*orders.CreatedOrder, error)
	VerifyOrder(ctx context.Context, orderID string) (*orders.VerifiedOrder, error)
}

// Store хранилище попыток и флагов активации.
type Store interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

// Activator записывает оплаченную подписку в профиль.
type Activator interface {
	ActivatePayment(ctx context.Context, uid string, a models.Activation) (*models.UserProfile, error)
}

// Notifier отправляет событие об активации уведомителю.
type Notifier interface {
	PublishActivation(ctx context.Context, msg models.ActivationMessage) error
}

// Service управляет попытками оплаты.
type Service struct {
	orders    Orders
	store     Store
	activator Activator
	notifier  Notifier
	ttl       time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// New создаёт Service. notifier может быть nil.
func New(o Orders, store Store, activator Activator, notifier Notifier, ttl time.Duration, log *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		orders:    o,
		store:     store,
		activator: activator,
		notifier:  notifier,
		ttl:       ttl,
		log:       log,
		now:       time.Now,
	}
}

// activation запись о выданной по заказу подписке.
type activation struct {
	UID         string    `json:"uid"`
	ActivatedAt time.Time `json:"activatedAt"`
}

func attemptKey(orderID string) string {
	return "checkout:" + orderID
}

func activatedKey(orderID string) string {
	return "checkout:" + orderID + ":activated"
}

// Start создаёт заказ для пользователя и сохраняет попытку в состоянии awaiting_gateway.
// Без профиля возвращается попытка в состоянии awaiting_auth и ErrAuthRequired.
func (s *Service) Start(ctx context.Context, profile *models.UserProfile, plan models.Plan, origin string) (*Attempt, error) {
	const op = "checkout.Start"
	log := s.log.With(slog.String("op", op))

	now := s.now()
	a := &Attempt{State: StateIdle, Plan: plan, CreatedAt: now, UpdatedAt: now}

	if profile == nil {
		if err := a.Transition(StateAwaitingAuth); err != nil {
			return nil, apperr.Internal(err)
		}
		return a, ErrAuthRequired
	}
	a.UID = profile.UID
	a.Email = profile.Email
	a.DisplayName = profile.DisplayName
	log = log.With(slog.String("uid", profile.UID))

	if err := a.Transition(StateCreatingOrder); err != nil {
		return nil, apperr.Internal(err)
	}

	created, err := s.orders.CreateOrder(ctx, orders.CreateOrderInput{
		Plan:          plan,
		CustomerName:  customerName(profile),
		CustomerEmail: profile.Email,
		Origin:        origin,
	})
	if err != nil {
		_ = a.Transition(StateFailure)
		log.Warn("order creation failed", sl.Err(err))
		return a, err
	}

	a.OrderID = created.OrderID
	a.PaymentSessionID = created.PaymentSessionID
	a.CFOrderID = created.CFOrderID
	a.Amount = created.Amount
	a.Currency = created.Currency
	if err := a.Transition(StateAwaitingGateway); err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.save(ctx, a); err != nil {
		log.Error("failed to store checkout attempt", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	log.Info("checkout started", slog.String("order_id", a.OrderID), slog.String("plan", string(plan)))
	return a, nil
}

// Complete проверяет заказ в шлюзе после возврата пользователя. Оплаченный
// заказ активирует подписку один раз, иначе попытка завершается неудачей.
// Повторный вызов для завершённой попытки возвращает сохранённый результат.
// Заказ без сохранённой попытки принимается, только если он оформлен на email
// вызывающего.
func (s *Service) Complete(ctx context.Context, uid, email, orderID string) (*Attempt, error) {
	const op = "checkout.Complete"
	log := s.log.With(slog.String("op", op), slog.String("uid", uid), slog.String("order_id", orderID))

	if orderID == "" {
		return nil, apperr.Validation("Missing orderId")
	}

	a, err := s.load(ctx, orderID)
	if err != nil {
		log.Error("failed to load checkout attempt", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if a != nil && a.UID != uid {
		return nil, apperr.NotFound("checkout not found")
	}
	if a != nil && a.State.Terminal() {
		return a, nil
	}

	verified, err := s.orders.VerifyOrder(ctx, orderID)
	if err != nil {
		log.Warn("order verification failed", sl.Err(err))
		return nil, err
	}

	if a == nil {
		// попытка истекла или заказ создан напрямую через create-order
		if !verified.BelongsTo(email) {
			log.Warn("order belongs to another customer")
			return nil, apperr.NotFound("checkout not found")
		}
		now := s.now()
		a = &Attempt{
			OrderID:   orderID,
			UID:       uid,
			Email:     email,
			Plan:      verified.Plan,
			Amount:    verified.Amount,
			Currency:  verified.Currency,
			State:     StateAwaitingGateway,
			CreatedAt: now,
		}
	}
	a.GatewayStatus = verified.Status

	if !verified.IsPaid {
		if err := a.Transition(StateFailure); err != nil {
			return nil, apperr.Internal(err)
		}
		a.Reason = "payment not completed"
		if err := s.save(ctx, a); err != nil {
			log.Error("failed to store checkout attempt", sl.Err(err))
		}
		log.Info("checkout failed", slog.String("status", verified.Status))
		return a, nil
	}

	if err := s.activate(ctx, a, ""); err != nil {
		return nil, err
	}
	if err := s.save(ctx, a); err != nil {
		log.Error("failed to store checkout attempt", sl.Err(err))
	}
	return a, nil
}

// Cancel фиксирует закрытие окна оплаты. Завершённая попытка не меняется.
func (s *Service) Cancel(ctx context.Context, uid, orderID string) (*Attempt, error) {
	const op = "checkout.Cancel"
	log := s.log.With(slog.String("op", op), slog.String("uid", uid), slog.String("order_id", orderID))

	if orderID == "" {
		return nil, apperr.Validation("Missing orderId")
	}
	a, err := s.load(ctx, orderID)
	if err != nil {
		log.Error("failed to load checkout attempt", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if a == nil || a.UID != uid {
		return nil, apperr.NotFound("checkout not found")
	}
	if a.State.Terminal() {
		return a, nil
	}

	if err := a.Transition(StateFailure); err != nil {
		return nil, apperr.Internal(err)
	}
	a.Reason = "cancelled"
	if err := s.save(ctx, a); err != nil {
		log.Error("failed to store checkout attempt", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	log.Info("checkout cancelled")
	return a, nil
}

// Get возвращает попытку пользователя.
func (s *Service) Get(ctx context.Context, uid, orderID string) (*Attempt, error) {
	const op = "checkout.Get"
	a, err := s.load(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if a == nil || a.UID != uid {
		return nil, apperr.NotFound("checkout not found")
	}
	return a, nil
}

// HandleWebhook обрабатывает уведомление шлюза об успешной оплате.
// Неизвестные заказы и другие типы событий подтверждаются без изменений.
func (s *Service) HandleWebhook(ctx context.Context, event *paymentprovider.WebhookEvent) error {
	const op = "checkout.HandleWebhook"
	log := s.log.With(slog.String("op", op), slog.String("type", event.Type))

	if event.Type != paymentprovider.EventPaymentSuccess {
		log.Debug("webhook ignored")
		return nil
	}
	orderID := event.Data.Order.OrderID
	log = log.With(slog.String("order_id", orderID))

	a, err := s.load(ctx, orderID)
	if err != nil {
		log.Error("failed to load checkout attempt", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if a == nil {
		log.Warn("webhook for unknown order")
		return nil
	}
	if a.State == StateSuccess {
		return nil
	}
	if a.State == StateFailure {
		// деньги списаны после закрытия окна: подписку всё равно выдаём, попытку не трогаем
		log.Warn("payment received for closed checkout")
		closed := *a
		closed.State = StateAwaitingGateway
		return s.activate(ctx, &closed, string(event.Data.Payment.CFPaymentID))
	}

	a.GatewayStatus = paymentprovider.StatusPaid
	if err := s.activate(ctx, a, string(event.Data.Payment.CFPaymentID)); err != nil {
		return err
	}
	if err := s.save(ctx, a); err != nil {
		log.Error("failed to store checkout attempt", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// activate записывает подписку, если флаг активации для заказа ещё не выставлен,
// и переводит попытку в success.
func (s *Service) activate(ctx context.Context, a *Attempt, transactionID string) error {
	const op = "checkout.activate"
	log := s.log.With(slog.String("op", op), slog.String("uid", a.UID), slog.String("order_id", a.OrderID))

	// запись об активации бессрочная, в отличие от самой попытки
	first, err := s.store.SetNX(ctx, activatedKey(a.OrderID), activation{UID: a.UID, ActivatedAt: s.now()}, 0)
	if err != nil {
		log.Error("failed to acquire activation flag", sl.Err(err))
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if !first {
		var prev activation
		if _, err := s.store.Get(ctx, activatedKey(a.OrderID), &prev); err != nil {
			log.Error("failed to read activation flag", sl.Err(err))
			return apperr.Internal(fmt.Errorf("%s: %w", op, err))
		}
		if prev.UID != "" && prev.UID != a.UID {
			log.Warn("order already activated for another user")
			return apperr.NotFound("checkout not found")
		}
		log.Info("order already activated")
		return a.Transition(StateSuccess)
	}

	profile, err := s.activator.ActivatePayment(ctx, a.UID, models.Activation{
		Plan:          a.Plan,
		Amount:        a.Amount,
		Currency:      a.Currency,
		OrderID:       a.OrderID,
		TransactionID: transactionID,
	})
	if err != nil {
		log.Error("failed to activate subscription", sl.Err(err))
		if delErr := s.store.Invalidate(ctx, activatedKey(a.OrderID)); delErr != nil {
			log.Error("failed to release activation flag", sl.Err(delErr))
		}
		return err
	}
	if err := a.Transition(StateSuccess); err != nil {
		return apperr.Internal(err)
	}
	log.Info("subscription activated", slog.String("plan", string(a.Plan)))

	s.notify(ctx, log, a, profile)
	return nil
}

func (s *Service) notify(ctx context.Context, log *slog.Logger, a *Attempt, p *models.UserProfile) {
	if s.notifier == nil || p == nil {
		return
	}
	msg := models.ActivationMessage{
		UID:         p.UID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Plan:        a.Plan,
		Amount:      a.Amount,
		Currency:    a.Currency,
		OrderID:     a.OrderID,
	}
	if p.Subscription != nil && p.Subscription.ExpiresAt != nil {
		msg.ExpiresAt = *p.Subscription.ExpiresAt
	}
	if err := s.notifier.PublishActivation(ctx, msg); err != nil {
		log.Warn("failed to publish activation", sl.Err(err))
	}
}

func (s *Service) load(ctx context.Context, orderID string) (*Attempt, error) {
	var a Attempt
	found, err := s.store.Get(ctx, attemptKey(orderID), &a)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &a, nil
}

func (s *Service) save(ctx context.Context, a *Attempt) error {
	now := s.now()
	a.UpdatedAt = now
	if a.ExpiresAt == nil {
		exp := now.Add(s.ttl)
		a.ExpiresAt = &exp
	}
	ttl := a.ExpiresAt.Sub(now)
	if ttl <= 0 {
		ttl = time.Minute
	}
	return s.store.Set(ctx, attemptKey(a.OrderID), a, ttl)
}

func customerName(p *models.UserProfile) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Email
}

// IsAuthRequired сообщает, что ошибка означает отсутствие сессии.
func IsAuthRequired(err error) bool {
	return errors.Is(err, ErrAuthRequired)
}
