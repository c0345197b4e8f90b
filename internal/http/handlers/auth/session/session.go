// Package session обменивает ID-токен провайдера на сессию WingoBoss.
//
// Токен проверяется через реестр провайдеров (Firebase или Google), после чего
// профиль обновляется, устройство перезаписывается и выдаётся JWT сессии.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/identity"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/services/profile"
)

// Request ID-токен и необязательное имя провайдера.
type Request struct {
	IDToken  string `json:"idToken" validate:"required"`
	Provider string `json:"provider,omitempty" validate:"omitempty,oneof=firebase google" example:"firebase"`
}

// Verifier проверяет ID-токен выбранного провайдера.
type Verifier interface {
	Verify(ctx context.Context, provider, rawToken string) (*models.Identity, error)
}

// Service открывает сессию для проверенной личности.
type Service interface {
	SignIn(ctx context.Context, id models.Identity) (*profile.SignInResult, error)
}

// Handler обрабатывает POST /api/auth/session.
type Handler struct {
	log      *slog.Logger
	verifier Verifier
	svc      Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, verifier Verifier, svc Service) *Handler {
	return &Handler{
		log:      log,
		verifier: verifier,
		svc:      svc,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вход
// @Description Проверяет ID-токен Firebase или Google и выдаёт сессию. Предыдущее устройство вытесняется.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "ID-токен"
// @Success 200 {object} profile.SignInResult
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Токен не прошёл проверку"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/session [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.session"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		response.RenderValidation(w, r, err)
		return
	}

	id, err := h.verifier.Verify(r.Context(), req.Provider, req.IDToken)
	if err != nil {
		log.Warn("id token rejected", slog.String("provider", req.Provider), sl.Err(err))
		status := http.StatusUnauthorized
		if errors.Is(err, identity.ErrUnknownProvider) {
			status = http.StatusBadRequest
		}
		render.Status(r, status)
		render.JSON(w, r, response.Error("invalid id token"))
		return
	}

	result, err := h.svc.SignIn(r.Context(), *id)
	if err != nil {
		log.Error("sign in failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("signed in", slog.String("uid", id.UID))
	render.JSON(w, r, result)
}
