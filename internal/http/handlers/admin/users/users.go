// Package users отдаёт админке список пользователей.
package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/services/profile"
)

// Response список пользователей.
type Response struct {
	Users []*profile.View `json:"users"`
	Total int             `json:"total"`
}

// Service перечисляет профили.
type Service interface {
	List(ctx context.Context) ([]*profile.View, error)
}

// Handler обрабатывает GET /api/admin/users.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создаёт Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Пользователи
// @Description Все профили с состоянием подписки
// @Tags Admin
// @Produce  json
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse "Нет токена админки"
// @Router /admin/users [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.users"

	views, err := h.svc.List(r.Context())
	if err != nil {
		h.log.Error("failed to list users", slog.String("op", op), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	if views == nil {
		views = []*profile.View{}
	}
	render.JSON(w, r, Response{Users: views, Total: len(views)})
}
