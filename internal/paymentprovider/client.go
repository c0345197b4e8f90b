// Package paymentprovider реализует клиент платёжного шлюза Cashfree PG.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/wingoboss/wingoboss-api/internal/metrics"
)

const (
	// APIVersion версия API, которую отправляем в x-api-version.
	APIVersion = "2023-08-01"

	productionURL = "https://api.cashfree.com/pg"
	sandboxURL    = "https://sandbox.cashfree.com/pg"
)

var (
	// ErrNotConfigured возвращается, если не заданы ключи шлюза.
	ErrNotConfigured = errors.New("payment gateway is not configured")
	// ErrCircuitOpen возвращается, пока предохранитель разомкнут.
	ErrCircuitOpen = errors.New("payment gateway temporarily unavailable")
)

// Options настройки клиента.
type Options struct {
	AppID           string
	SecretKey       string
	Environment     string
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Client клиент Cashfree. Безопасен для конкурентного использования.
type Client struct {
	appID      string
	secretKey  string
	apiURL     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*Order]
	log        *slog.Logger
}

// NewClient создаёт клиент. BaseURL из опций имеет приоритет над Environment.
func NewClient(opts Options, log *slog.Logger) *Client {
	apiURL := opts.BaseURL
	if apiURL == "" {
		apiURL = BaseURLFor(opts.Environment)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}

	c := &Client{
		appID:      opts.AppID,
		secretKey:  opts.SecretKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: opts.Timeout},
		log:        log,
	}

	failures := opts.BreakerFailures
	c.breaker = gobreaker.NewCircuitBreaker[*Order](gobreaker.Settings{
		Name:        "cashfree",
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var gwErr *GatewayError
			if errors.As(err, &gwErr) {
				return !gwErr.Temporary()
			}
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return c
}

// BaseURLFor выбирает адрес API по окружению.
func BaseURLFor(env string) string {
	if env == "production" {
		return productionURL
	}
	return sandboxURL
}

// Configured сообщает, заданы ли ключи.
func (c *Client) Configured() bool {
	return c.appID != "" && c.secretKey != ""
}

// CreateOrder создаёт заказ в шлюзе.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	const op = "paymentprovider.CreateOrder"
	order, err := c.execute(ctx, "create_order", http.MethodPost, "/orders", req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

// GetOrder получает заказ по идентификатору.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	const op = "paymentprovider.GetOrder"
	order, err := c.execute(ctx, "get_order", http.MethodGet, "/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

func (c *Client) execute(ctx context.Context, operation, method, path string, body any) (*Order, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	order, err := c.breaker.Execute(func() (*Order, error) {
		return c.do(ctx, method, path, body)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.GatewayRequests.WithLabelValues(operation, "circuit_open").Inc()
		return nil, ErrCircuitOpen
	case err != nil:
		metrics.GatewayRequests.WithLabelValues(operation, "error").Inc()
	default:
		metrics.GatewayRequests.WithLabelValues(operation, "ok").Inc()
	}
	return order, err
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", APIVersion)
	req.Header.Set("x-client-id", c.appID)
	req.Header.Set("x-client-secret", c.secretKey)
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*Order, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		return nil, &GatewayError{
			StatusCode: resp.StatusCode,
			Message:    eb.Message,
			Code:       eb.Code,
			Type:       eb.Type,
		}
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	return &order, nil
}
