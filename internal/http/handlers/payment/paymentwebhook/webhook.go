// Package paymentwebhook принимает уведомления Cashfree о платежах.
package paymentwebhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/paymentprovider"
)

// Заголовки подписи уведомления.
const (
	HeaderTimestamp = "x-webhook-timestamp"
	HeaderSignature = "x-webhook-signature"
)

// maxBodySize ограничение на размер тела уведомления.
const maxBodySize = 1 << 20

// MaxAge допустимое расхождение x-webhook-timestamp с текущим временем.
const MaxAge = 5 * time.Minute

// SignatureVerifier проверяет подпись уведомления.
type SignatureVerifier interface {
	VerifyWebhookSignature(timestamp string, rawBody []byte, signature string) bool
}

// Service обрабатывает событие шлюза.
type Service interface {
	HandleWebhook(ctx context.Context, event *paymentprovider.WebhookEvent) error
}

// Handler обрабатывает POST /api/payments/webhook.
type Handler struct {
	log      *slog.Logger
	verifier SignatureVerifier
	service  Service
	now      func() time.Time
}

// New создаёт Handler.
func New(log *slog.Logger, verifier SignatureVerifier, service Service) *Handler {
	return &Handler{
		log:      log,
		verifier: verifier,
		service:  service,
		now:      time.Now,
	}
}

// ServeHTTP godoc
// @Summary Уведомление шлюза
// @Description Проверяет подпись и активирует подписку по PAYMENT_SUCCESS_WEBHOOK
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param x-webhook-timestamp header string true "Время подписи"
// @Param x-webhook-signature header string true "base64(HMAC-SHA256(secret, timestamp + body))"
// @Success 200 {object} response.OKResponse
// @Failure 400 {object} response.ErrorResponse "Некорректное тело"
// @Failure 401 {object} response.ErrorResponse "Неверная или устаревшая подпись"
// @Failure 500 {object} response.ErrorResponse "Ошибка обработки"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	defer r.Body.Close()

	if !h.verifier.VerifyWebhookSignature(r.Header.Get(HeaderTimestamp), body, r.Header.Get(HeaderSignature)) {
		log.Warn("invalid or missing webhook signature")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	if !fresh(r.Header.Get(HeaderTimestamp), h.now()) {
		log.Warn("stale webhook timestamp", slog.String("timestamp", r.Header.Get(HeaderTimestamp)))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("stale webhook"))
		return
	}

	event, err := paymentprovider.ParseWebhook(body)
	if err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.service.HandleWebhook(r.Context(), event); err != nil {
		log.Error("failed to process webhook event", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("webhook processed", slog.String("type", event.Type), slog.String("order_id", event.Data.Order.OrderID))
	render.JSON(w, r, response.OK())
}

// fresh проверяет, что метка времени (секунды или миллисекунды unix)
// отстоит от now не больше чем на MaxAge.
func fresh(raw string, now time.Time) bool {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return false
	}
	var ts time.Time
	if n > 1e12 {
		ts = time.UnixMilli(n)
	} else {
		ts = time.Unix(n, 0)
	}
	d := now.Sub(ts)
	return d <= MaxAge && d >= -MaxAge
}
