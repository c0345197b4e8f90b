// Package cancel фиксирует закрытие платёжного окна пользователем.
package cancel

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/wingoboss/wingoboss-api/internal/http/middlewarectx"
	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/services/checkout"
)

// Request идентификатор заказа.
type Request struct {
	OrderID string `json:"orderId"`
}

// Response попытка после отмены.
type Response struct {
	Success bool `json:"success"`
	*checkout.Attempt
}

// Service отменяет попытки.
type Service interface {
	Cancel(ctx context.Context, uid, orderID string) (*checkout.Attempt, error)
}

// Handler обрабатывает POST /api/checkout/cancel.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создаёт Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Отменить оплату
// @Description Переводит незавершённую попытку в failure. Завершённая попытка не меняется.
// @Tags Checkout
// @Accept  json
// @Produce  json
// @Param request body Request true "Заказ"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Не передан orderId"
// @Failure 404 {object} response.ErrorResponse "Попытка не найдена"
// @Router /checkout/cancel [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.cancel"
	log := h.log.With(slog.String("op", op))

	sess, ok := middlewarectx.SessionFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	attempt, err := h.svc.Cancel(r.Context(), sess.UID, req.OrderID)
	if err != nil {
		response.RenderError(w, r, err)
		return
	}
	log.Info("checkout cancel handled", slog.String("order_id", attempt.OrderID), slog.String("state", string(attempt.State)))
	render.JSON(w, r, Response{Success: true, Attempt: attempt})
}
