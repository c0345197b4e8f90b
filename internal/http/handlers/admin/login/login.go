// Package login выдаёт токен админки по общему паролю.
package login

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/password"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
)

// Request пароль админки.
type Request struct {
	Password string `json:"password" validate:"required"`
}

// Response токен админки.
type Response struct {
	Token string `json:"token"`
}

// TokenIssuer выпускает токен с ролью admin.
type TokenIssuer interface {
	GenerateAdmin() (string, error)
}

// Handler обрабатывает POST /api/admin/login.
type Handler struct {
	log          *slog.Logger
	passwordHash string
	tokens       TokenIssuer
	validate     *validator.Validate
}

// New создаёт Handler. passwordHash: bcrypt-хеш из конфига.
func New(log *slog.Logger, passwordHash string, tokens TokenIssuer) *Handler {
	return &Handler{
		log:          log,
		passwordHash: passwordHash,
		tokens:       tokens,
		validate:     validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вход в админку
// @Description Сверяет пароль с bcrypt-хешем и выдаёт короткоживущий токен админки
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Пароль"
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse "Неверный пароль"
// @Failure 500 {object} response.ErrorResponse "Пароль админки не настроен"
// @Router /admin/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.login"
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
		response.RenderValidation(w, r, err)
		return
	}

	if err := password.CompareHash(h.passwordHash, req.Password); err != nil {
		if errors.Is(err, password.ErrNoHash) {
			log.Error("admin password hash is not configured")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Server configuration error"))
			return
		}
		log.Warn("admin login rejected")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid password"))
		return
	}

	token, err := h.tokens.GenerateAdmin()
	if err != nil {
		log.Error("failed to issue admin token", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("Internal Server Error"))
		return
	}

	log.Info("admin logged in")
	render.JSON(w, r, Response{Token: token})
}
