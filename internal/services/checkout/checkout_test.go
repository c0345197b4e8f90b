package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wingoboss/wingoboss-api/internal/apperr"
	"github.com/wingoboss/wingoboss-api/internal/cache"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/paymentprovider"
	"github.com/wingoboss/wingoboss-api/internal/services/orders"
)

type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) CreateOrder(ctx context.Context, in orders.CreateOrderInput) (*orders.CreatedOrder, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.CreatedOrder), args.Error(1)
}

func (m *MockOrders) VerifyOrder(ctx context.Context, orderID string) (*orders.VerifiedOrder, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.VerifiedOrder), args.Error(1)
}

type MockActivator struct {
	mock.Mock
}

func (m *MockActivator) ActivatePayment(ctx context.Context, uid string, a models.Activation) (*models.UserProfile, error) {
	args := m.Called(ctx, uid, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PublishActivation(ctx context.Context, msg models.ActivationMessage) error {
	return m.Called(ctx, msg).Error(0)
}

const orderID = "ORDER_1736923829000_abc1234"

var fixedNow = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	orders    *MockOrders
	activator *MockActivator
	notifier  *MockNotifier
	mr        *miniredis.Miniredis
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	f := &fixture{
		orders:    new(MockOrders),
		activator: new(MockActivator),
		notifier:  new(MockNotifier),
		mr:        mr,
	}
	store := &cache.Cache{Db: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	f.svc = New(f.orders, store, f.activator, f.notifier, time.Hour, newNoopLogger())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func user() *models.UserProfile {
	return &models.UserProfile{UID: "u1", Email: "user@example.com", DisplayName: "User One"}
}

func (f *fixture) start(t *testing.T) *Attempt {
	t.Helper()
	f.orders.On("CreateOrder", mock.Anything, orders.CreateOrderInput{
		Plan:          models.PlanWeekly,
		CustomerName:  "User One",
		CustomerEmail: "user@example.com",
		Origin:        "https://lluui.vercel.app",
	}).Return(&orders.CreatedOrder{
		OrderID:          orderID,
		PaymentSessionID: "session_1",
		CFOrderID:        "123",
		Plan:             models.PlanWeekly,
		Amount:           99,
		Currency:         models.CurrencyINR,
	}, nil).Once()

	a, err := f.svc.Start(context.Background(), user(), models.PlanWeekly, "https://lluui.vercel.app")
	require.NoError(t, err)
	return a
}

func activated(expires time.Time) *models.UserProfile {
	p := user()
	p.Subscription = &models.Subscription{IsSubscribed: true, Plan: models.PlanWeekly, ExpiresAt: &expires}
	return p
}

func TestService_Start(t *testing.T) {
	f := newFixture(t)
	a := f.start(t)

	assert.Equal(t, StateAwaitingGateway, a.State)
	assert.Equal(t, orderID, a.OrderID)
	assert.Equal(t, "session_1", a.PaymentSessionID)
	assert.Equal(t, float64(99), a.Amount)

	assert.True(t, f.mr.Exists("checkout:"+orderID))
	assert.Equal(t, time.Hour, f.mr.TTL("checkout:"+orderID))
}

func TestService_Start_NoSession(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Start(context.Background(), nil, models.PlanMonthly, "")
	require.Error(t, err)
	assert.True(t, IsAuthRequired(err))
	assert.Equal(t, StateAwaitingAuth, a.State)
	f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestService_Start_OrderFailure(t *testing.T) {
	f := newFixture(t)
	f.orders.On("CreateOrder", mock.Anything, mock.Anything).
		Return(nil, apperr.Gateway("Payment Gateway Error", 400, "bad", nil))

	a, err := f.svc.Start(context.Background(), user(), models.PlanWeekly, "")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindGateway))
	assert.Equal(t, StateFailure, a.State)
	assert.Empty(t, f.mr.Keys())
}

func TestService_Complete_PaidActivatesOnce(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	f.orders.On("VerifyOrder", mock.Anything, orderID).Return(&orders.VerifiedOrder{
		OrderID: orderID, IsPaid: true, Status: "PAID", Plan: models.PlanMonthly, Amount: 99, Currency: "INR",
	}, nil).Once()
	f.activator.On("ActivatePayment", mock.Anything, "u1", models.Activation{
		Plan:     models.PlanWeekly,
		Amount:   99,
		Currency: models.CurrencyINR,
		OrderID:  orderID,
	}).Return(activated(fixedNow.Add(7*24*time.Hour)), nil).Once()
	f.notifier.On("PublishActivation", mock.Anything, mock.MatchedBy(func(msg models.ActivationMessage) bool {
		return msg.OrderID == orderID && msg.Email == "user@example.com" && msg.ExpiresAt.Equal(fixedNow.Add(7*24*time.Hour))
	})).Return(nil).Once()

	a, err := f.svc.Complete(context.Background(), "u1", "user@example.com", orderID)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, a.State)
	assert.Equal(t, "PAID", a.GatewayStatus)

	again, err := f.svc.Complete(context.Background(), "u1", "user@example.com", orderID)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, again.State)

	f.orders.AssertExpectations(t)
	f.activator.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	assert.True(t, f.mr.Exists("checkout:"+orderID+":activated"))
}

func TestService_Complete_NotPaid(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.orders.On("VerifyOrder", mock.Anything, orderID).
		Return(&orders.VerifiedOrder{OrderID: orderID, Status: "ACTIVE"}, nil)

	a, err := f.svc.Complete(context.Background(), "u1", "user@example.com", orderID)
	require.NoError(t, err)
	assert.Equal(t, StateFailure, a.State)
	assert.Equal(t, "ACTIVE", a.GatewayStatus)
	f.activator.AssertNotCalled(t, "ActivatePayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Complete_ForeignAttempt(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	_, err := f.svc.Complete(context.Background(), "intruder", "intruder@example.com", orderID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestService_Complete_MissingAttemptUsesVerifiedPlan(t *testing.T) {
	f := newFixture(t)
	f.orders.On("VerifyOrder", mock.Anything, "ORDER_2").Return(&orders.VerifiedOrder{
		OrderID: "ORDER_2", IsPaid: true, Status: "PAID", Plan: models.PlanMonthly, Amount: 299, Currency: "INR",
		CustomerEmail: "user@example.com",
	}, nil)
	f.activator.On("ActivatePayment", mock.Anything, "u1", mock.MatchedBy(func(a models.Activation) bool {
		return a.Plan == models.PlanMonthly && a.Amount == 299 && a.OrderID == "ORDER_2"
	})).Return(activated(fixedNow.Add(30*24*time.Hour)), nil)
	f.notifier.On("PublishActivation", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	a, err := f.svc.Complete(context.Background(), "u1", "user@example.com", "ORDER_2")
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, a.State)
	assert.Equal(t, models.PlanMonthly, a.Plan)
}

func TestService_Complete_MissingAttemptForeignCustomer(t *testing.T) {
	f := newFixture(t)
	f.orders.On("VerifyOrder", mock.Anything, "ORDER_2").Return(&orders.VerifiedOrder{
		OrderID: "ORDER_2", IsPaid: true, Status: "PAID", Plan: models.PlanMonthly, Amount: 299, Currency: "INR",
		CustomerID: "owner_example_com", CustomerEmail: "owner@example.com",
	}, nil)

	_, err := f.svc.Complete(context.Background(), "intruder", "intruder@example.com", "ORDER_2")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	f.activator.AssertNotCalled(t, "ActivatePayment", mock.Anything, mock.Anything, mock.Anything)
	assert.False(t, f.mr.Exists("checkout:ORDER_2:activated"))
}

func TestService_Complete_NotReplayedAfterAttemptExpires(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	f.orders.On("VerifyOrder", mock.Anything, orderID).Return(&orders.VerifiedOrder{
		OrderID: orderID, IsPaid: true, Status: "PAID", Plan: models.PlanWeekly, Amount: 99, Currency: "INR",
		CustomerEmail: "user@example.com",
	}, nil)
	f.activator.On("ActivatePayment", mock.Anything, "u1", mock.Anything).
		Return(activated(fixedNow.Add(7*24*time.Hour)), nil).Once()
	f.notifier.On("PublishActivation", mock.Anything, mock.Anything).Return(nil).Once()

	a, err := f.svc.Complete(context.Background(), "u1", "user@example.com", orderID)
	require.NoError(t, err)
	require.Equal(t, StateSuccess, a.State)

	f.mr.FastForward(2 * time.Hour)
	require.False(t, f.mr.Exists("checkout:"+orderID))
	require.True(t, f.mr.Exists("checkout:"+orderID+":activated"))
	assert.Zero(t, f.mr.TTL("checkout:"+orderID+":activated"))

	again, err := f.svc.Complete(context.Background(), "u1", "user@example.com", orderID)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, again.State)

	// другой аккаунт с тем же email не получает подписку по чужому заказу
	_, err = f.svc.Complete(context.Background(), "u2", "user@example.com", orderID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	f.activator.AssertNumberOfCalls(t, "ActivatePayment", 1)
	f.notifier.AssertNumberOfCalls(t, "PublishActivation", 1)
}

func TestService_Complete_ActivationFailureReleasesFlag(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.orders.On("VerifyOrder", mock.Anything, orderID).
		Return(&orders.VerifiedOrder{OrderID: orderID, IsPaid: true, Status: "PAID"}, nil)
	f.activator.On("ActivatePayment", mock.Anything, "u1", mock.Anything).
		Return(nil, apperr.Internal(errors.New("db down"))).Once()

	_, err := f.svc.Complete(context.Background(), "u1", "user@example.com", orderID)
	require.Error(t, err)
	assert.False(t, f.mr.Exists("checkout:"+orderID+":activated"))

	stored, err := f.svc.Get(context.Background(), "u1", orderID)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingGateway, stored.State)
}

func TestService_Complete_Validation(t *testing.T) {
	_, err := newFixture(t).svc.Complete(context.Background(), "u1", "user@example.com", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestService_Cancel(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	a, err := f.svc.Cancel(context.Background(), "u1", orderID)
	require.NoError(t, err)
	assert.Equal(t, StateFailure, a.State)
	assert.Equal(t, "cancelled", a.Reason)

	// завершённая попытка не меняется
	again, err := f.svc.Complete(context.Background(), "u1", "user@example.com", orderID)
	require.NoError(t, err)
	assert.Equal(t, StateFailure, again.State)
	f.orders.AssertNotCalled(t, "VerifyOrder", mock.Anything, mock.Anything)

	_, err = f.svc.Cancel(context.Background(), "u1", "ORDER_missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func webhook(orderID string) *paymentprovider.WebhookEvent {
	ev := &paymentprovider.WebhookEvent{Type: paymentprovider.EventPaymentSuccess}
	ev.Data.Order.OrderID = orderID
	ev.Data.Payment.CFPaymentID = "pay_1"
	return ev
}

func TestService_HandleWebhook(t *testing.T) {
	t.Run("activates known attempt once", func(t *testing.T) {
		f := newFixture(t)
		f.start(t)
		f.activator.On("ActivatePayment", mock.Anything, "u1", mock.MatchedBy(func(a models.Activation) bool {
			return a.TransactionID == "pay_1" && a.Plan == models.PlanWeekly
		})).Return(activated(fixedNow.Add(7*24*time.Hour)), nil).Once()
		f.notifier.On("PublishActivation", mock.Anything, mock.Anything).Return(nil).Once()

		require.NoError(t, f.svc.HandleWebhook(context.Background(), webhook(orderID)))
		require.NoError(t, f.svc.HandleWebhook(context.Background(), webhook(orderID)))

		a, err := f.svc.Get(context.Background(), "u1", orderID)
		require.NoError(t, err)
		assert.Equal(t, StateSuccess, a.State)
		f.activator.AssertExpectations(t)
	})

	t.Run("webhook then complete does not extend twice", func(t *testing.T) {
		f := newFixture(t)
		f.start(t)
		f.activator.On("ActivatePayment", mock.Anything, "u1", mock.Anything).
			Return(activated(fixedNow.Add(7*24*time.Hour)), nil).Once()
		f.notifier.On("PublishActivation", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, f.svc.HandleWebhook(context.Background(), webhook(orderID)))
		a, err := f.svc.Complete(context.Background(), "u1", "user@example.com", orderID)
		require.NoError(t, err)
		assert.Equal(t, StateSuccess, a.State)
		f.activator.AssertNumberOfCalls(t, "ActivatePayment", 1)
	})

	t.Run("unknown order acknowledged", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.HandleWebhook(context.Background(), webhook("ORDER_unknown")))
		f.activator.AssertNotCalled(t, "ActivatePayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("other event types ignored", func(t *testing.T) {
		f := newFixture(t)
		ev := webhook(orderID)
		ev.Type = "PAYMENT_FAILED_WEBHOOK"
		require.NoError(t, f.svc.HandleWebhook(context.Background(), ev))
	})

	t.Run("payment after cancel still activates", func(t *testing.T) {
		f := newFixture(t)
		f.start(t)
		_, err := f.svc.Cancel(context.Background(), "u1", orderID)
		require.NoError(t, err)
		f.activator.On("ActivatePayment", mock.Anything, "u1", mock.Anything).
			Return(activated(fixedNow.Add(7*24*time.Hour)), nil).Once()
		f.notifier.On("PublishActivation", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, f.svc.HandleWebhook(context.Background(), webhook(orderID)))

		a, err := f.svc.Get(context.Background(), "u1", orderID)
		require.NoError(t, err)
		assert.Equal(t, StateFailure, a.State)
		f.activator.AssertExpectations(t)
	})
}
