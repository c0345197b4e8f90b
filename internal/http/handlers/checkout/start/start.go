// Package start начинает попытку оплаты для вошедшего пользователя.
package start

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/wingoboss/wingoboss-api/internal/http/handlers/payment/ordercreate"
	"github.com/wingoboss/wingoboss-api/internal/http/middlewarectx"
	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/services/checkout"
)

// Request выбранный тариф.
type Request struct {
	Plan string `json:"plan" validate:"required,oneof=weekly monthly" example:"monthly"`
}

// Response попытка оплаты.
type Response struct {
	Success bool `json:"success"`
	*checkout.Attempt
}

// Service начинает попытку.
type Service interface {
	Start(ctx context.Context, profile *models.UserProfile, plan models.Plan, origin string) (*checkout.Attempt, error)
}

// Handler обрабатывает POST /api/checkout.
type Handler struct {
	log      *slog.Logger
	svc      Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Начать оплату
// @Description Создаёт заказ по профилю текущего пользователя и сохраняет попытку в состоянии awaiting_gateway
// @Tags Checkout
// @Accept  json
// @Produce  json
// @Param request body Request true "Тариф"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Неизвестный тариф"
// @Failure 401 {object} response.ErrorResponse "Нужен вход, state=awaiting_auth"
// @Router /checkout [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.start"
	log := h.log.With(slog.String("op", op))

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.RenderValidation(w, r, err)
		return
	}

	var profile *models.UserProfile
	if sess, ok := middlewarectx.SessionFrom(r.Context()); ok {
		profile = sess.Profile
	}

	attempt, err := h.svc.Start(r.Context(), profile, models.Plan(req.Plan), ordercreate.RequestOrigin(r))
	if checkout.IsAuthRequired(err) {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.ErrorResponse{Error: "sign in required", State: string(checkout.StateAwaitingAuth)})
		return
	}
	if err != nil {
		log.Warn("checkout start failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, Response{Success: true, Attempt: attempt})
}
