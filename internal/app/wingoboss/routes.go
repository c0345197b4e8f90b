package wingoboss

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	adminlogin "github.com/wingoboss/wingoboss-api/internal/http/handlers/admin/login"
	adminpages "github.com/wingoboss/wingoboss-api/internal/http/handlers/admin/pages"
	adminprices "github.com/wingoboss/wingoboss-api/internal/http/handlers/admin/prices"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/admin/subscription"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/admin/users"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/auth/google"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/auth/logout"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/auth/session"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/checkout/cancel"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/checkout/complete"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/checkout/start"
	contentget "github.com/wingoboss/wingoboss-api/internal/http/handlers/content/get"
	contentlist "github.com/wingoboss/wingoboss-api/internal/http/handlers/content/list"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/health"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/me"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/payment/ordercreate"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/payment/orderverify"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/payment/paymentwebhook"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/prices"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/sessionws"
	"github.com/wingoboss/wingoboss-api/internal/http/middlewarectx"
	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/identity"
	"github.com/wingoboss/wingoboss-api/internal/lib/jwt"
	"github.com/wingoboss/wingoboss-api/internal/metrics"
	"github.com/wingoboss/wingoboss-api/internal/paymentprovider"
	"github.com/wingoboss/wingoboss-api/internal/services/checkout"
	"github.com/wingoboss/wingoboss-api/internal/services/content"
	"github.com/wingoboss/wingoboss-api/internal/services/entitlement"
	"github.com/wingoboss/wingoboss-api/internal/services/orders"
	"github.com/wingoboss/wingoboss-api/internal/services/pricing"
	"github.com/wingoboss/wingoboss-api/internal/services/profile"
)

// Deps зависимости обработчиков.
type Deps struct {
	Profiles          *profile.Service
	Orders            *orders.Service
	Checkout          *checkout.Service
	Pricing           *pricing.Service
	Content           *content.Service
	Gateway           *paymentprovider.Client
	Identity          *identity.Registry
	Redirect          *identity.RedirectFlow
	Watcher           *entitlement.Watcher
	Tokens            *jwt.MakerImpl
	Limiter           *middlewarectx.RateLimiter
	AdminPasswordHash string
	FrontendURL       string
	Health            map[string]health.Check
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		metrics.Middleware,
		cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{
				"Authorization",
				"Content-Type",
				paymentwebhook.HeaderTimestamp,
				paymentwebhook.HeaderSignature,
			},
		}).Handler,
	)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusMethodNotAllowed)
		render.JSON(w, r, response.ErrorResponse{Error: "Method not allowed"})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ErrorResponse{Error: "not found"})
	})

	requireSession := middlewarectx.SessionMiddleware(d.Tokens, d.Profiles, logger)
	limit := middlewarectx.RateLimitMiddleware(d.Limiter, logger)

	r.Route("/api", func(r chi.Router) {
		// Платёжные конечные точки с ограничением частоты
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/create-order", ordercreate.New(logger, d.Orders).ServeHTTP)
			r.Post("/verify-order", orderverify.New(logger, d.Orders).ServeHTTP)
		})

		// Открытые конечные точки
		r.Post("/payments/webhook", paymentwebhook.New(logger, d.Gateway, d.Checkout).ServeHTTP)
		r.Get("/prices", prices.New(logger, d.Pricing).ServeHTTP)
		r.Get("/pages", contentlist.New(logger, d.Content).ServeHTTP)
		r.Post("/auth/session", session.New(logger, d.Identity, d.Profiles).ServeHTTP)
		r.Get("/auth/google/login", google.NewLogin(logger, d.Redirect).ServeHTTP)
		r.Get("/auth/google/callback", google.NewCallback(logger, d.Redirect, d.Profiles, d.FrontendURL).ServeHTTP)
		r.Get("/session/ws", sessionws.New(logger, d.Tokens, d.Watcher).ServeHTTP)

		// Старт оплаты доступен и без входа: ответ подскажет, что нужно войти
		r.With(middlewarectx.OptionalSession(d.Tokens, d.Profiles, logger), limit).
			Post("/checkout", start.New(logger, d.Checkout).ServeHTTP)

		// Группа с сессией пользователя
		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Post("/auth/logout", logout.New(logger, d.Profiles).ServeHTTP)
			r.Get("/me", me.New(logger, d.Profiles).ServeHTTP)
			r.Post("/checkout/complete", complete.New(logger, d.Checkout).ServeHTTP)
			r.Post("/checkout/cancel", cancel.New(logger, d.Checkout).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireSubscription(logger))
				r.Get("/pages/{id}", contentget.New(logger, d.Content).ServeHTTP)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(limit).Post("/login", adminlogin.New(logger, d.AdminPasswordHash, d.Tokens).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminMiddleware(d.Tokens, logger))
				r.Get("/users", users.New(logger, d.Profiles).ServeHTTP)
				r.Put("/users/{uid}/subscription", subscription.NewGrant(logger, d.Profiles).ServeHTTP)
				r.Delete("/users/{uid}/subscription", subscription.NewRevoke(logger, d.Profiles).ServeHTTP)
				r.Get("/prices", prices.New(logger, d.Pricing).ServeHTTP)
				r.Put("/prices", adminprices.New(logger, d.Pricing).ServeHTTP)
				r.Get("/pages", adminpages.NewList(logger, d.Content).ServeHTTP)
				r.Put("/pages/{id}", adminpages.NewUpdate(logger, d.Content).ServeHTTP)
			})
		})
	})

	r.Get("/healthz", health.New(logger, d.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
