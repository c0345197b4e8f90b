// Package get отдаёт премиум-страницу подписчику.
package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/services/content"
)

// Response страница с HTML-содержимым.
type Response struct {
	ID      string `json:"id" example:"page1"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Service читает страницы.
type Service interface {
	GetPage(ctx context.Context, id string) (content.Page, error)
}

// Handler обрабатывает GET /api/pages/{id}.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создаёт Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Премиум-страница
// @Description Содержимое отдаётся как есть, без санитизации
// @Tags Content
// @Produce  json
// @Param id path string true "Идентификатор страницы" Enums(page1, page2, page3, page4, page5)
// @Success 200 {object} Response
// @Failure 403 {object} response.ErrorResponse "Нет действующей подписки"
// @Failure 404 {object} response.ErrorResponse "Страница не найдена"
// @Router /pages/{id} [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.content.get"
	log := h.log.With(slog.String("op", op))

	id := chi.URLParam(r, "id")
	page, err := h.svc.GetPage(r.Context(), id)
	if errors.Is(err, content.ErrPageNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("page not found"))
		return
	}
	if err != nil {
		log.Error("failed to read page", slog.String("page", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, Response{ID: page.ID, Title: page.Title, Content: page.Content})
}
