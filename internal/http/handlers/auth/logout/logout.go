// Package logout закрывает текущую сессию пользователя.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/wingoboss/wingoboss-api/internal/http/middlewarectx"
	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
)

// Service снимает устройство с профиля.
type Service interface {
	SignOut(ctx context.Context, uid, deviceID string) error
}

// Handler обрабатывает POST /api/auth/logout.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создаёт Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Выход
// @Description Очищает deviceId профиля, если он совпадает с устройством сессии
// @Tags Auth
// @Produce  json
// @Success 200 {object} response.OKResponse
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/logout [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"
	log := h.log.With(slog.String("op", op))

	sess, ok := middlewarectx.SessionFrom(r.Context())
	if !ok {
		log.Error("session not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.svc.SignOut(r.Context(), sess.UID, sess.DeviceID); err != nil {
		log.Error("sign out failed", slog.String("uid", sess.UID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("signed out", slog.String("uid", sess.UID))
	render.JSON(w, r, response.OK())
}
