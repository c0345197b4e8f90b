// Package list отдаёт публичный список страниц без содержимого.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/services/content"
)

// Service читает страницы.
type Service interface {
	ListPages(ctx context.Context) ([]content.Page, error)
}

// Handler обрабатывает GET /api/pages.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создаёт Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Список страниц
// @Description Идентификатор, заголовок и признак заполненности каждой страницы
// @Tags Content
// @Produce  json
// @Success 200 {array} content.Page
// @Router /pages [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.content.list"

	pages, err := h.svc.ListPages(r.Context())
	if err != nil {
		h.log.Error("failed to list pages", slog.String("op", op), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	for i := range pages {
		pages[i].Content = ""
	}
	render.JSON(w, r, pages)
}
