// Package wingoboss собирает HTTP API: хранилище, кэш, шину событий профиля,
// платёжный шлюз, проверку личности и обработчики.
package wingoboss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/wingoboss/wingoboss-api/internal/cache"
	"github.com/wingoboss/wingoboss-api/internal/config"
	"github.com/wingoboss/wingoboss-api/internal/http/handlers/health"
	"github.com/wingoboss/wingoboss-api/internal/http/middlewarectx"
	"github.com/wingoboss/wingoboss-api/internal/identity"
	"github.com/wingoboss/wingoboss-api/internal/lib/jwt"
	"github.com/wingoboss/wingoboss-api/internal/lib/rabbitmq"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/migrations"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/paymentprovider"
	"github.com/wingoboss/wingoboss-api/internal/pubsub"
	"github.com/wingoboss/wingoboss-api/internal/services/checkout"
	"github.com/wingoboss/wingoboss-api/internal/services/content"
	"github.com/wingoboss/wingoboss-api/internal/services/entitlement"
	"github.com/wingoboss/wingoboss-api/internal/services/orders"
	"github.com/wingoboss/wingoboss-api/internal/services/pricing"
	"github.com/wingoboss/wingoboss-api/internal/services/profile"
	"github.com/wingoboss/wingoboss-api/internal/storage"
	fsstore "github.com/wingoboss/wingoboss-api/internal/storage/firestore"
	"github.com/wingoboss/wingoboss-api/internal/storage/repository"
)

// Драйверы хранилища.
const (
	DriverPostgres  = "postgres"
	DriverFirestore = "firestore"
)

const shutdownTimeout = 15 * time.Second

// backend общий интерфейс хранилищ профилей и настроек.
type backend interface {
	profile.Repository
	pricing.SettingsRepository
	Close() error
}

// App HTTP API WingoBoss.
type App struct {
	server  *http.Server
	logger  *slog.Logger
	store   backend
	cache   *cache.Cache
	bridge  *pubsub.RedisBridge
	amqp    *amqp.Connection
	channel *amqp.Channel
}

// New инициализирует зависимости и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "wingoboss.New"

	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("%s: jwt secret key is required", op)
	}

	fbApp, err := firebaseApp(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	store, storeCheck, err := openStore(ctx, cfg, fbApp, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hub := pubsub.NewHub(pubsub.DefaultBuffer, logger)
	bridge := pubsub.NewRedisBridge(cacheRedis.Db, hub, logger)

	a := &App{
		logger: logger,
		store:  store,
		cache:  cacheRedis,
		bridge: bridge,
	}

	var notifier checkout.Notifier
	if cfg.RabbitMQURL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
		if err != nil {
			_ = conn.Close()
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.amqp, a.channel = conn, ch
		notifier = rabbitmq.NewPublisher(ch)
	} else {
		logger.Warn("rabbitmq is not configured, activation receipts are disabled")
	}

	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL, cfg.AdminTokenTTL)
	profiles := profile.New(store, bridge, tokens, entitlement.NewAdmins(cfg.AdminEmails), logger)
	prices := pricing.New(store, cacheRedis, logger)
	pages, err := content.New(store, cacheRedis, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !cfg.GatewayConfigured() {
		logger.Warn("cashfree credentials are missing, order endpoints will fail")
	}
	gateway := paymentprovider.NewClient(paymentprovider.Options{
		AppID:           cfg.AppID,
		SecretKey:       cfg.SecretKey,
		Environment:     cfg.Environment,
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.Cashfree.Timeout,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
	}, logger)
	orderSvc := orders.New(gateway, prices, orders.Options{
		ProductionOrigin: cfg.ProductionOrigin,
		PublicAPIURL:     cfg.PublicAPIURL,
	}, logger)
	checkoutSvc := checkout.New(orderSvc, cacheRedis, profiles, notifier, cfg.CheckoutTTL, logger)

	registry := identity.NewRegistry()
	if fbApp != nil {
		fv, err := identity.NewFirebaseVerifier(ctx, fbApp)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		registry.Register(identity.ProviderFirebase, fv)
	}
	googleVerifier := identity.NewGoogleVerifier(cfg.GoogleClientID)
	if cfg.GoogleClientID != "" {
		registry.Register(identity.ProviderGoogle, googleVerifier)
	}
	redirect := identity.NewRedirectFlow(identity.RedirectOptions{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, googleVerifier)

	// Firestore отдаёт изменения профиля сам, остальным бэкендам нужен redis.
	var source entitlement.Source = bridge
	if fs, ok := store.(*fsstore.Store); ok {
		source = fs
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Profiles:          profiles,
		Orders:            orderSvc,
		Checkout:          checkoutSvc,
		Pricing:           prices,
		Content:           pages,
		Gateway:           gateway,
		Identity:          registry,
		Redirect:          redirect,
		Watcher:           entitlement.NewWatcher(source, profiles, logger),
		Tokens:            tokens,
		Limiter:           middlewarectx.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		AdminPasswordHash: cfg.AdminPasswordHash,
		FrontendURL:       cfg.FrontendURL,
		Health: map[string]health.Check{
			"storage": storeCheck,
			"redis": func(ctx context.Context) error {
				return cacheRedis.Db.Ping(ctx).Err()
			},
		},
	})

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return a, nil
}

// Run обслуживает запросы до отмены ctx, затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	bridgeCtx, stopBridge := context.WithCancel(ctx)
	defer stopBridge()
	go func() {
		if err := a.bridge.Run(bridgeCtx, nil); err != nil {
			a.logger.Error("profile event bridge stopped", sl.Err(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.channel != nil {
		if err := a.channel.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}

// firebaseApp нужен для проверки токенов Firebase и для бэкенда firestore.
func firebaseApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*firebase.App, error) {
	if cfg.FirebaseProjectID == "" && cfg.FirebaseCredentialsFile == "" && cfg.Driver != DriverFirestore {
		logger.Warn("firebase is not configured, popup sign-in is disabled")
		return nil, nil
	}
	return identity.NewFirebaseApp(ctx, cfg.Auth)
}

func openStore(ctx context.Context, cfg *config.Config, fbApp *firebase.App, logger *slog.Logger) (backend, health.Check, error) {
	switch cfg.Driver {
	case DriverFirestore:
		client, err := fbApp.Firestore(ctx)
		if err != nil {
			return nil, nil, err
		}
		store := fsstore.New(client, logger)
		check := func(ctx context.Context) error {
			var prices models.Prices
			_, err := store.GetSetting(ctx, storage.SettingPrices, &prices)
			return err
		}
		return store, check, nil
	case DriverPostgres, "":
		db, err := repository.New(ctx, cfg.ConnectionString)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if err := repository.CheckDatabaseReady(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return db, db.DB.PingContext, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
