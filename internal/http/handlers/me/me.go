// Package me отдаёт профиль текущего пользователя.
package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/wingoboss/wingoboss-api/internal/http/middlewarectx"
	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/services/profile"
)

// Service читает профиль.
type Service interface {
	Get(ctx context.Context, uid string) (*profile.View, error)
}

// Handler обрабатывает GET /api/me.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создаёт Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Текущий пользователь
// @Description Профиль, состояние подписки и признак администратора
// @Tags Auth
// @Produce  json
// @Success 200 {object} profile.View
// @Failure 401 {object} response.ErrorResponse "Нет сессии или вход с другого устройства"
// @Router /me [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.me"
	log := h.log.With(slog.String("op", op))

	sess, ok := middlewarectx.SessionFrom(r.Context())
	if !ok {
		log.Error("session not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	view, err := h.svc.Get(r.Context(), sess.UID)
	if err != nil {
		log.Error("failed to load profile", slog.String("uid", sess.UID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}
