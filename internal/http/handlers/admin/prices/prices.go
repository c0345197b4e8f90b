// Package prices меняет цены тарифов из админки.
package prices

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
)

// Service сохраняет цены.
type Service interface {
	Set(ctx context.Context, prices models.Prices) (models.Prices, error)
}

// Handler обрабатывает PUT /api/admin/prices.
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
// @Summary Изменить цены
// @Description Обе цены должны быть больше нуля
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body models.Prices true "Цены"
// @Success 200 {object} models.Prices
// @Failure 400 {object} response.ErrorResponse "Цена не больше нуля"
// @Router /admin/prices [put]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.prices"
	log := h.log.With(slog.String("op", op))

	var req models.Prices
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

	saved, err := h.svc.Set(r.Context(), req)
	if err != nil {
		log.Error("failed to save prices", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("prices updated", slog.Float64("weekly", saved.Weekly), slog.Float64("monthly", saved.Monthly))
	render.JSON(w, r, saved)
}
