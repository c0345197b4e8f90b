// Package orderverify обрабатывает проверку статуса заказа.
package orderverify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/services/orders"
)

// Request тело запроса.
type Request struct {
	OrderID string `json:"orderId" example:"ORDER_1736935200000_k3j9x2a"`
}

// Response статус заказа.
type Response struct {
	Success  bool        `json:"success" example:"true"`
	IsPaid   bool        `json:"isPaid" example:"true"`
	Status   string      `json:"status" example:"PAID"`
	Plan     models.Plan `json:"plan" example:"monthly"`
	Currency string      `json:"currency" example:"INR"`
	Amount   float64     `json:"amount" example:"299"`
}

// Service проверяет заказы.
type Service interface {
	VerifyOrder(ctx context.Context, orderID string) (*orders.VerifiedOrder, error)
}

// Handler обрабатывает POST /api/verify-order.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создаёт Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Проверить заказ
// @Description Запрашивает статус заказа в Cashfree
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификатор заказа"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Не передан orderId"
// @Failure 500 {object} response.ErrorResponse "Шлюз не настроен"
// @Router /verify-order [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.orderverify"
	log := h.log.With(slog.String("op", op))

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	verified, err := h.svc.VerifyOrder(r.Context(), req.OrderID)
	if err != nil {
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, Response{
		Success:  true,
		IsPaid:   verified.IsPaid,
		Status:   verified.Status,
		Plan:     verified.Plan,
		Currency: verified.Currency,
		Amount:   verified.Amount,
	})
}
