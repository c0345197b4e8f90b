package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/wingoboss/wingoboss-api/internal/http/response"
)

// AdminMiddleware пропускает только запросы с токеном роли admin.
func AdminMiddleware(tokens TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Admin"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			raw := BearerToken(r)
			if raw == "" {
				unauthorized(w, r, errNoToken.Error())
				return
			}
			claims, err := tokens.ParseToken(raw)
			if err != nil {
				log.Info("admin token rejected")
				unauthorized(w, r, errInvalidToken.Error())
				return
			}
			if !claims.IsAdmin() {
				log.Warn("non-admin token on admin route")
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("admin access required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), AdminKey, true)))
		})
	}
}
