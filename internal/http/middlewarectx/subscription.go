package middlewarectx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/services/entitlement"
)

// MsgPremiumRequired ответ для пользователя без действующей подписки.
const MsgPremiumRequired = "Premium subscription required"

// RequireSubscription пропускает только сессии с действующей подпиской.
// Должен стоять после SessionMiddleware.
func RequireSubscription(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFrom(r.Context())
			if !ok {
				unauthorized(w, r, errNoToken.Error())
				return
			}
			if !entitlement.IsValid(session.Profile.Subscription, time.Now()) {
				log.Debug("premium content denied", slog.String("uid", session.UID))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error(MsgPremiumRequired))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
