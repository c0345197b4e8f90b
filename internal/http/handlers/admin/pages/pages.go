// Package pages управляет страницами премиум-контента из админки.
package pages

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/services/content"
)

// UpdateRequest новый заголовок и HTML.
type UpdateRequest struct {
	Title   string `json:"title" example:"Basics"`
	Content string `json:"content" example:"<h1>Basics</h1>"`
}

// Service читает и пишет страницы.
type Service interface {
	ListPages(ctx context.Context) ([]content.Page, error)
	SetPage(ctx context.Context, id, title, body string) (content.Page, error)
}

// List обрабатывает GET /api/admin/pages.
type List struct {
	log *slog.Logger
	svc Service
}

// NewList создаёт List.
func NewList(log *slog.Logger, svc Service) *List {
	return &List{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Страницы с содержимым
// @Tags Admin
// @Produce  json
// @Success 200 {array} content.Page
// @Router /admin/pages [get]
// @Security BearerAuth
func (h *List) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.pages.list"

	pages, err := h.svc.ListPages(r.Context())
	if err != nil {
		h.log.Error("failed to list pages", slog.String("op", op), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, pages)
}

// Update обрабатывает PUT /api/admin/pages/{id}.
type Update struct {
	log *slog.Logger
	svc Service
}

// NewUpdate создаёт Update.
func NewUpdate(log *slog.Logger, svc Service) *Update {
	return &Update{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Изменить страницу
// @Description Перезаписывает заголовок и HTML. Пустые поля возвращают страницу к встроенному тексту.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param id path string true "Идентификатор страницы"
// @Param request body UpdateRequest true "Заголовок и HTML"
// @Success 200 {object} content.Page
// @Failure 404 {object} response.ErrorResponse "Страница не найдена"
// @Router /admin/pages/{id} [put]
// @Security BearerAuth
func (h *Update) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.pages.update"
	id := chi.URLParam(r, "id")
	log := h.log.With(slog.String("op", op), slog.String("page", id))

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	page, err := h.svc.SetPage(r.Context(), id, req.Title, req.Content)
	if err != nil {
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, page)
}
