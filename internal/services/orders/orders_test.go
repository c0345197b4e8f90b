package orders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wingoboss/wingoboss-api/internal/apperr"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/paymentprovider"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockGateway) CreateOrder(ctx context.Context, req paymentprovider.CreateOrderRequest) (*paymentprovider.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Order), args.Error(1)
}

func (m *MockGateway) GetOrder(ctx context.Context, orderID string) (*paymentprovider.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Order), args.Error(1)
}

type MockPrices struct {
	mock.Mock
}

func (m *MockPrices) Get(ctx context.Context) (models.Prices, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Prices), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(gw *MockGateway, prices *MockPrices) *Service {
	svc := New(gw, prices, Options{
		ProductionOrigin: "https://lluui.vercel.app",
		PublicAPIURL:     "https://api.wingoboss.example/",
	}, newNoopLogger())
	svc.now = func() time.Time { return time.UnixMilli(1736923829000) }
	return svc
}

func TestService_CreateOrder(t *testing.T) {
	tests := []struct {
		name       string
		input      CreateOrderInput
		setupMocks func(*MockGateway, *MockPrices)
		check      func(t *testing.T, got *CreatedOrder, req paymentprovider.CreateOrderRequest)
		errKind    *apperr.Kind
		errMsg     string
	}{
		{
			name: "weekly plan uses stored price and default phone",
			input: CreateOrderInput{
				Plan:          models.PlanWeekly,
				CustomerName:  "Asha",
				CustomerEmail: "asha.k@gmail.com",
				Origin:        "https://lluui.vercel.app",
			},
			setupMocks: func(gw *MockGateway, p *MockPrices) {
				gw.On("Configured").Return(true)
				p.On("Get", mock.Anything).Return(models.Prices{Weekly: 149, Monthly: 399}, nil)
				gw.On("CreateOrder", mock.Anything, mock.Anything).
					Return(&paymentprovider.Order{PaymentSessionID: "sess_1", CFOrderID: "777"}, nil)
			},
			check: func(t *testing.T, got *CreatedOrder, req paymentprovider.CreateOrderRequest) {
				assert.Equal(t, float64(149), got.Amount)
				assert.Equal(t, "sess_1", got.PaymentSessionID)
				assert.Equal(t, "777", got.CFOrderID)
				assert.Equal(t, DefaultPhone, req.CustomerDetails.CustomerPhone)
				assert.Equal(t, "asha_k_gmail_com", req.CustomerDetails.CustomerID)
				assert.Equal(t, "weekly subscription", req.OrderNote)
				assert.Equal(t, "INR", req.OrderCurrency)
				assert.Equal(t, PaymentMethods, req.OrderMeta.PaymentMethods)
				assert.Equal(t, "https://lluui.vercel.app/payment-success?order_id="+got.OrderID, req.OrderMeta.ReturnURL)
				assert.Equal(t, "https://api.wingoboss.example/api/payments/webhook", req.OrderMeta.NotifyURL)
				assert.True(t, strings.HasPrefix(got.OrderID, "ORDER_1736923829000_"))
			},
		},
		{
			name: "client amount is ignored",
			input: CreateOrderInput{
				Plan:          models.PlanMonthly,
				CustomerName:  "Ravi",
				CustomerEmail: "ravi@example.com",
				CustomerPhone: "9876543210",
				Amount:        1,
				Origin:        "http://localhost:5173",
			},
			setupMocks: func(gw *MockGateway, p *MockPrices) {
				gw.On("Configured").Return(true)
				p.On("Get", mock.Anything).Return(models.DefaultPrices(), nil)
				gw.On("CreateOrder", mock.Anything, mock.Anything).
					Return(&paymentprovider.Order{PaymentSessionID: "sess_2"}, nil)
			},
			check: func(t *testing.T, got *CreatedOrder, req paymentprovider.CreateOrderRequest) {
				assert.Equal(t, float64(299), got.Amount)
				assert.Equal(t, float64(299), req.OrderAmount)
				assert.Equal(t, "9876543210", req.CustomerDetails.CustomerPhone)
				assert.True(t, strings.HasPrefix(req.OrderMeta.ReturnURL, "https://lluui.vercel.app/payment-success"))
			},
		},
		{
			name: "prices store failure falls back to defaults",
			input: CreateOrderInput{
				Plan:          models.PlanWeekly,
				CustomerName:  "Ravi",
				CustomerEmail: "ravi@example.com",
			},
			setupMocks: func(gw *MockGateway, p *MockPrices) {
				gw.On("Configured").Return(true)
				p.On("Get", mock.Anything).Return(models.Prices{}, errors.New("redis down"))
				gw.On("CreateOrder", mock.Anything, mock.Anything).
					Return(&paymentprovider.Order{PaymentSessionID: "sess_3"}, nil)
			},
			check: func(t *testing.T, got *CreatedOrder, req paymentprovider.CreateOrderRequest) {
				assert.Equal(t, float64(99), req.OrderAmount)
			},
		},
		{
			name:       "unknown plan",
			input:      CreateOrderInput{Plan: "yearly", CustomerName: "A", CustomerEmail: "a@b.c"},
			setupMocks: func(*MockGateway, *MockPrices) {},
			errKind:    kindPtr(apperr.KindValidation),
			errMsg:     "Missing required fields",
		},
		{
			name:       "missing email",
			input:      CreateOrderInput{Plan: models.PlanWeekly, CustomerName: "A"},
			setupMocks: func(*MockGateway, *MockPrices) {},
			errKind:    kindPtr(apperr.KindValidation),
			errMsg:     "Missing required fields",
		},
		{
			name:       "bad phone",
			input:      CreateOrderInput{Plan: models.PlanWeekly, CustomerName: "A", CustomerEmail: "a@b.c", CustomerPhone: "+919876543210"},
			setupMocks: func(*MockGateway, *MockPrices) {},
			errKind:    kindPtr(apperr.KindValidation),
			errMsg:     "Phone number must be exactly 10 digits",
		},
		{
			name:  "gateway not configured",
			input: CreateOrderInput{Plan: models.PlanWeekly, CustomerName: "A", CustomerEmail: "a@b.c"},
			setupMocks: func(gw *MockGateway, _ *MockPrices) {
				gw.On("Configured").Return(false)
			},
			errKind: kindPtr(apperr.KindConfiguration),
			errMsg:  "Server configuration error",
		},
		{
			name:  "gateway rejects order",
			input: CreateOrderInput{Plan: models.PlanWeekly, CustomerName: "A", CustomerEmail: "a@b.c"},
			setupMocks: func(gw *MockGateway, p *MockPrices) {
				gw.On("Configured").Return(true)
				p.On("Get", mock.Anything).Return(models.DefaultPrices(), nil)
				gw.On("CreateOrder", mock.Anything, mock.Anything).
					Return(nil, &paymentprovider.GatewayError{StatusCode: http.StatusUnauthorized, Message: "authentication Failed"})
			},
			errKind: kindPtr(apperr.KindGateway),
			errMsg:  "Payment Gateway Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(MockGateway)
			prices := new(MockPrices)
			tt.setupMocks(gw, prices)
			svc := newService(gw, prices)

			got, err := svc.CreateOrder(context.Background(), tt.input)
			if tt.errKind != nil {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, *tt.errKind))
				assert.Equal(t, tt.errMsg, apperr.From(err).Message)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			var sent paymentprovider.CreateOrderRequest
			for _, call := range gw.Calls {
				if call.Method == "CreateOrder" {
					sent = call.Arguments.Get(1).(paymentprovider.CreateOrderRequest)
				}
			}
			tt.check(t, got, sent)
			gw.AssertExpectations(t)
			prices.AssertExpectations(t)
		})
	}
}

func TestService_CreateOrder_GatewayStatusPassThrough(t *testing.T) {
	gw := new(MockGateway)
	prices := new(MockPrices)
	gw.On("Configured").Return(true)
	prices.On("Get", mock.Anything).Return(models.DefaultPrices(), nil)
	gw.On("CreateOrder", mock.Anything, mock.Anything).
		Return(nil, &paymentprovider.GatewayError{StatusCode: http.StatusBadRequest, Message: "customer_phone invalid"})

	_, err := newService(gw, prices).CreateOrder(context.Background(), CreateOrderInput{
		Plan: models.PlanMonthly, CustomerName: "A", CustomerEmail: "a@b.c",
	})

	appErr := apperr.From(err)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus())
	assert.Equal(t, "customer_phone invalid", appErr.Details)
}

func TestService_VerifyOrder(t *testing.T) {
	tests := []struct {
		name    string
		orderID string
		order   *paymentprovider.Order
		gwErr   error
		want    *VerifiedOrder
		errKind *apperr.Kind
	}{
		{
			name:    "paid weekly order",
			orderID: "ORDER_1",
			order:   &paymentprovider.Order{OrderStatus: "PAID", OrderNote: "Weekly subscription", OrderAmount: 99, OrderCurrency: "INR"},
			want:    &VerifiedOrder{OrderID: "ORDER_1", IsPaid: true, Status: "PAID", Plan: models.PlanWeekly, Currency: "INR", Amount: 99},
		},
		{
			name:    "active monthly order",
			orderID: "ORDER_2",
			order: &paymentprovider.Order{
				OrderStatus: "ACTIVE", OrderNote: "monthly subscription", OrderAmount: 299, OrderCurrency: "INR",
				CustomerDetails: paymentprovider.CustomerDetails{CustomerID: "asha_k_gmail_com", CustomerEmail: "asha.k@gmail.com"},
			},
			want: &VerifiedOrder{
				OrderID: "ORDER_2", IsPaid: false, Status: "ACTIVE", Plan: models.PlanMonthly, Currency: "INR", Amount: 299,
				CustomerID: "asha_k_gmail_com", CustomerEmail: "asha.k@gmail.com",
			},
		},
		{
			name:    "empty note defaults to monthly",
			orderID: "ORDER_3",
			order:   &paymentprovider.Order{OrderStatus: "PAID"},
			want:    &VerifiedOrder{OrderID: "ORDER_3", IsPaid: true, Status: "PAID", Plan: models.PlanMonthly},
		},
		{
			name:    "gateway 404",
			orderID: "ORDER_404",
			gwErr:   &paymentprovider.GatewayError{StatusCode: http.StatusNotFound, Message: "order not found"},
			errKind: kindPtr(apperr.KindGateway),
		},
		{
			name:    "breaker open",
			orderID: "ORDER_5",
			gwErr:   paymentprovider.ErrCircuitOpen,
			errKind: kindPtr(apperr.KindUnavailable),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(MockGateway)
			gw.On("Configured").Return(true)
			if tt.gwErr != nil {
				gw.On("GetOrder", mock.Anything, tt.orderID).Return(nil, tt.gwErr)
			} else {
				gw.On("GetOrder", mock.Anything, tt.orderID).Return(tt.order, nil)
			}

			got, err := newService(gw, new(MockPrices)).VerifyOrder(context.Background(), tt.orderID)
			if tt.errKind != nil {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, *tt.errKind))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_VerifyOrder_MissingID(t *testing.T) {
	_, err := newService(new(MockGateway), new(MockPrices)).VerifyOrder(context.Background(), "  ")
	require.Error(t, err)
	assert.Equal(t, "Missing orderId", apperr.From(err).Message)
}

func TestHelpers(t *testing.T) {
	t.Run("resolve origin", func(t *testing.T) {
		prod := "https://lluui.vercel.app"
		assert.Equal(t, prod, ResolveOrigin("", prod))
		assert.Equal(t, prod, ResolveOrigin("http://localhost:3000", prod))
		assert.Equal(t, prod, ResolveOrigin("https://localhost:3000", prod))
		assert.Equal(t, prod, ResolveOrigin("http://wingo.example", prod))
		assert.Equal(t, "https://preview.vercel.app", ResolveOrigin("https://preview.vercel.app/", prod))
	})

	t.Run("customer id", func(t *testing.T) {
		assert.Equal(t, "john_doe_mail_co_in", CustomerID("john.doe@mail.co.in"))
		assert.Equal(t, "abc123", CustomerID("abc123"))
		assert.Equal(t, "_ber_x", CustomerID("über.x"))
	})

	t.Run("phone", func(t *testing.T) {
		p, err := NormalizePhone("")
		require.NoError(t, err)
		assert.Equal(t, DefaultPhone, p)
		_, err = NormalizePhone("12345")
		assert.Error(t, err)
		_, err = NormalizePhone("98765432ab")
		assert.Error(t, err)
	})

	t.Run("plan from note", func(t *testing.T) {
		assert.Equal(t, models.PlanWeekly, PlanFromNote("WEEKLY subscription"))
		assert.Equal(t, models.PlanMonthly, PlanFromNote("monthly subscription"))
		assert.Equal(t, models.PlanMonthly, PlanFromNote(""))
	})
}

func kindPtr(k apperr.Kind) *apperr.Kind {
	return &k
}

func TestVerifiedOrder_BelongsTo(t *testing.T) {
	tests := []struct {
		name  string
		order VerifiedOrder
		email string
		want  bool
	}{
		{name: "same email", order: VerifiedOrder{CustomerEmail: "Asha.K@gmail.com"}, email: "asha.k@gmail.com", want: true},
		{name: "other email", order: VerifiedOrder{CustomerEmail: "asha.k@gmail.com"}, email: "intruder@example.com", want: false},
		{name: "customer id only", order: VerifiedOrder{CustomerID: "asha_k_gmail_com"}, email: "asha.k@gmail.com", want: true},
		{name: "customer id mismatch", order: VerifiedOrder{CustomerID: "asha_k_gmail_com"}, email: "intruder@example.com", want: false},
		{name: "no customer on order", order: VerifiedOrder{}, email: "asha.k@gmail.com", want: false},
		{name: "caller without email", order: VerifiedOrder{CustomerEmail: "asha.k@gmail.com"}, email: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.order.BelongsTo(tt.email))
		})
	}
}
