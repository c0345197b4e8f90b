// Package subscription выдаёт и отзывает подписку вручную из админки.
package subscription

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
)

// GrantRequest тариф и необязательный срок в днях.
type GrantRequest struct {
	Plan string `json:"plan" validate:"required,oneof=weekly monthly" example:"monthly"`
	Days int    `json:"days,omitempty" validate:"gte=0,lte=3650" example:"30"`
}

// Response профиль после изменения.
type Response struct {
	Success bool                `json:"success"`
	Profile *models.UserProfile `json:"profile"`
}

// Service меняет подписку пользователя.
type Service interface {
	GrantSubscription(ctx context.Context, uid string, a models.Activation) (*models.UserProfile, error)
	RevokeSubscription(ctx context.Context, uid string) (*models.UserProfile, error)
}

// Grant обрабатывает PUT /api/admin/users/{uid}/subscription.
type Grant struct {
	log      *slog.Logger
	svc      Service
	validate *validator.Validate
}

// NewGrant создаёт Grant.
func NewGrant(log *slog.Logger, svc Service) *Grant {
	return &Grant{log: log, svc: svc, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Выдать подписку
// @Description Ручная выдача без оплаты. Срок по умолчанию равен сроку тарифа.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param uid path string true "UID пользователя"
// @Param request body GrantRequest true "Тариф и срок"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Неизвестный тариф"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /admin/users/{uid}/subscription [put]
// @Security BearerAuth
func (h *Grant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.subscription.grant"
	uid := chi.URLParam(r, "uid")
	log := h.log.With(slog.String("op", op), slog.String("uid", uid))

	var req GrantRequest
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

	p, err := h.svc.GrantSubscription(r.Context(), uid, models.Activation{
		Plan:     models.Plan(req.Plan),
		Currency: models.CurrencyINR,
		Duration: time.Duration(req.Days) * 24 * time.Hour,
	})
	if err != nil {
		log.Error("failed to grant subscription", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("subscription granted", slog.String("plan", req.Plan), slog.Int("days", req.Days))
	render.JSON(w, r, Response{Success: true, Profile: p})
}

// Revoke обрабатывает DELETE /api/admin/users/{uid}/subscription.
type Revoke struct {
	log *slog.Logger
	svc Service
}

// NewRevoke создаёт Revoke.
func NewRevoke(log *slog.Logger, svc Service) *Revoke {
	return &Revoke{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Отозвать подписку
// @Tags Admin
// @Produce  json
// @Param uid path string true "UID пользователя"
// @Success 200 {object} Response
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /admin/users/{uid}/subscription [delete]
// @Security BearerAuth
func (h *Revoke) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.subscription.revoke"
	uid := chi.URLParam(r, "uid")
	log := h.log.With(slog.String("op", op), slog.String("uid", uid))

	p, err := h.svc.RevokeSubscription(r.Context(), uid)
	if err != nil {
		log.Error("failed to revoke subscription", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("subscription revoked")
	render.JSON(w, r, Response{Success: true, Profile: p})
}
