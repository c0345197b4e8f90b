// Package ordercreate обрабатывает создание заказа в платёжном шлюзе.
package ordercreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/services/orders"
)

// Request тело запроса на создание заказа.
type Request struct {
	Plan          string  `json:"plan" validate:"required" example:"monthly"`
	CustomerName  string  `json:"customerName" validate:"required" example:"Ravi"`
	CustomerEmail string  `json:"customerEmail" validate:"required" example:"ravi@example.com"`
	CustomerPhone string  `json:"customerPhone,omitempty" example:"9876543210"`
	Amount        float64 `json:"amount,omitempty" example:"299"`
}

// Response ответ с данными для открытия платёжного окна.
type Response struct {
	Success          bool   `json:"success" example:"true"`
	OrderID          string `json:"orderId" example:"ORDER_1736935200000_k3j9x2a"`
	PaymentSessionID string `json:"paymentSessionId"`
	CFOrderID        string `json:"cfOrderId"`
}

// Service создаёт заказы.
type Service interface {
	CreateOrder(ctx context.Context, in orders.CreateOrderInput) (*orders.CreatedOrder, error)
}

// Handler обрабатывает POST /api/create-order.
type Handler struct {
	log      *slog.Logger
	svc      Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{
		log:      log,
		svc:      svc,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать заказ
// @Description Создаёт заказ в Cashfree. Сумма берётся из цены тарифа, присланная клиентом игнорируется.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Тариф и данные покупателя"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Нет обязательных полей или неверный телефон"
// @Failure 500 {object} response.ErrorResponse "Шлюз не настроен"
// @Failure 503 {object} response.ErrorResponse "Шлюз временно недоступен"
// @Router /create-order [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.ordercreate"
	log := h.log.With(slog.String("op", op))

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("Missing required fields"))
		return
	}

	created, err := h.svc.CreateOrder(r.Context(), orders.CreateOrderInput{
		Plan:          models.Plan(req.Plan),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Amount:        req.Amount,
		Origin:        RequestOrigin(r),
	})
	if err != nil {
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, Response{
		Success:          true,
		OrderID:          created.OrderID,
		PaymentSessionID: created.PaymentSessionID,
		CFOrderID:        created.CFOrderID,
	})
}

// RequestOrigin берёт origin из заголовка Origin, иначе схему и хост из Referer.
// Путь и query из Referer отбрасываются.
func RequestOrigin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		return o
	}
	ref, err := url.Parse(r.Header.Get("Referer"))
	if err != nil || ref.Scheme == "" || ref.Host == "" {
		return ""
	}
	return ref.Scheme + "://" + ref.Host
}
