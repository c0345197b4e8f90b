// Package google реализует вход через редирект на страницу согласия Google
// для устройств, где всплывающее окно недоступно.
package google

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/render"

	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/identity"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/services/profile"
)

const (
	// StateCookie cookie с одноразовым state.
	StateCookie = "wb_oauth_state"
	statePath   = "/api/auth/google"
	stateTTL    = 10 * time.Minute
	// ReceiverPath страница фронтенда, принимающая токен сессии.
	ReceiverPath = "/auth-receiver"
)

// Flow серверная часть OAuth.
type Flow interface {
	Configured() bool
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*models.Identity, error)
}

// Service открывает сессию.
type Service interface {
	SignIn(ctx context.Context, id models.Identity) (*profile.SignInResult, error)
}

// Login обрабатывает GET /api/auth/google/login.
type Login struct {
	log      *slog.Logger
	flow     Flow
	newState func() (string, error)
}

// NewLogin создаёт Login.
func NewLogin(log *slog.Logger, flow Flow) *Login {
	return &Login{log: log, flow: flow, newState: identity.NewState}
}

// ServeHTTP godoc
// @Summary Вход через Google
// @Description Ставит cookie со state и перенаправляет на страницу согласия Google
// @Tags Auth
// @Success 302
// @Failure 500 {object} response.ErrorResponse "Вход через Google не настроен"
// @Router /auth/google/login [get]
func (h *Login) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.google.login"
	log := h.log.With(slog.String("op", op))

	if !h.flow.Configured() {
		log.Error("google redirect sign-in is not configured")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("Server configuration error"))
		return
	}

	state, err := h.newState()
	if err != nil {
		log.Error("failed to generate state", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("Internal Server Error"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     statePath,
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.flow.AuthURL(state), http.StatusFound)
}

// Callback обрабатывает GET /api/auth/google/callback.
type Callback struct {
	log         *slog.Logger
	flow        Flow
	svc         Service
	frontendURL string
}

// NewCallback создаёт Callback. frontendURL: адрес фронтенда без завершающего слэша.
func NewCallback(log *slog.Logger, flow Flow, svc Service, frontendURL string) *Callback {
	return &Callback{
		log:         log,
		flow:        flow,
		svc:         svc,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// ServeHTTP godoc
// @Summary Возврат от Google
// @Description Проверяет state, меняет код на id_token и перенаправляет на фронтенд с токеном сессии или ошибкой
// @Tags Auth
// @Param code query string true "Код авторизации"
// @Param state query string true "State из cookie"
// @Success 302
// @Router /auth/google/callback [get]
func (h *Callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.google.callback"
	log := h.log.With(slog.String("op", op))

	http.SetCookie(w, &http.Cookie{Name: StateCookie, Path: statePath, MaxAge: -1})

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		log.Info("google consent declined", slog.String("error", e))
		h.redirect(w, r, "error", e)
		return
	}

	cookie, err := r.Cookie(StateCookie)
	if err != nil || cookie.Value == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(q.Get("state"))) != 1 {
		log.Warn("oauth state mismatch")
		h.redirect(w, r, "error", "invalid state")
		return
	}

	code := q.Get("code")
	if code == "" {
		h.redirect(w, r, "error", "missing code")
		return
	}

	id, err := h.flow.Exchange(r.Context(), code)
	if err != nil {
		log.Warn("code exchange failed", sl.Err(err))
		h.redirect(w, r, "error", "sign in failed")
		return
	}

	result, err := h.svc.SignIn(r.Context(), *id)
	if err != nil {
		log.Error("sign in failed", sl.Err(err))
		h.redirect(w, r, "error", "sign in failed")
		return
	}

	log.Info("signed in via redirect", slog.String("uid", id.UID))
	h.redirect(w, r, "token", result.Token)
}

func (h *Callback) redirect(w http.ResponseWriter, r *http.Request, key, value string) {
	target := h.frontendURL + ReceiverPath + "?" + url.Values{key: {value}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
