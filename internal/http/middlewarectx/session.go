package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/wingoboss/wingoboss-api/internal/apperr"
	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/jwt"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/services/entitlement"
	"github.com/wingoboss/wingoboss-api/internal/storage"
)

// MsgSuperseded ответ для сессии, вытесненной входом с другого устройства.
const MsgSuperseded = "Logged in on another device"

// TokenParser разбирает токены сессий.
type TokenParser interface {
	ParseToken(token string) (*jwt.SessionClaims, error)
}

// ProfileReader читает профиль пользователя.
type ProfileReader interface {
	GetProfile(ctx context.Context, uid string) (*models.UserProfile, error)
}

var (
	errNoToken      = errors.New("missing or invalid authorization header")
	errInvalidToken = errors.New("invalid or expired token")
)

// SessionMiddleware требует действующую сессию пользователя. deviceId из токена
// сравнивается с сохранённым в профиле на каждом запросе.
func SessionMiddleware(tokens TokenParser, profiles ProfileReader, log *slog.Logger) func(http.Handler) http.Handler {
	return sessionMiddleware(tokens, profiles, log, true)
}

// OptionalSession пропускает запрос без токена, но отклоняет недействительный.
func OptionalSession(tokens TokenParser, profiles ProfileReader, log *slog.Logger) func(http.Handler) http.Handler {
	return sessionMiddleware(tokens, profiles, log, false)
}

func sessionMiddleware(tokens TokenParser, profiles ProfileReader, log *slog.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Session"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			raw := BearerToken(r)
			if raw == "" {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w, r, errNoToken.Error())
				return
			}

			session, err := Authenticate(r.Context(), tokens, profiles, raw)
			if err != nil {
				if apperr.Is(err, apperr.KindUnauthorized) {
					log.Info("session rejected", sl.Err(err))
				} else {
					log.Error("failed to load session profile", sl.Err(err))
				}
				response.RenderError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// Authenticate проверяет токен сессии и устройство.
func Authenticate(ctx context.Context, tokens TokenParser, profiles ProfileReader, raw string) (*Session, error) {
	claims, err := tokens.ParseToken(raw)
	if err != nil || claims.Role != jwt.RoleUser || claims.UID == "" {
		return nil, apperr.Unauthorized(errInvalidToken.Error())
	}

	profile, err := profiles.GetProfile(ctx, claims.UID)
	if errors.Is(err, storage.ErrProfileNotFound) {
		return nil, apperr.Unauthorized(errInvalidToken.Error())
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	// пустой deviceId в профиле означает выход на всех устройствах
	if profile.DeviceID == "" || entitlement.CheckDevice(profile.DeviceID, claims.DeviceID) != nil {
		return nil, apperr.Unauthorized(MsgSuperseded)
	}

	return &Session{
		UID:      claims.UID,
		Email:    claims.Email,
		DeviceID: claims.DeviceID,
		Profile:  profile,
	}, nil
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error(msg))
}
