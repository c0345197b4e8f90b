// Package prices отдаёт действующие цены тарифов.
package prices

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
)

// Service читает цены.
type Service interface {
	Get(ctx context.Context) (models.Prices, error)
}

// Handler обрабатывает GET /api/prices и GET /api/admin/prices.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создаёт Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Цены тарифов
// @Tags Content
// @Produce  json
// @Success 200 {object} models.Prices
// @Router /prices [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.prices"

	p, err := h.svc.Get(r.Context())
	if err != nil {
		h.log.Error("failed to load prices", slog.String("op", op), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, p)
}
