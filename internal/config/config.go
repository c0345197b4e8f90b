// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env             string `yaml:"env" env:"APP_ENV" env-default:"local"`
	Storage         `yaml:"storage"`
	RedisConnection `yaml:"redis_connection"`
	HTTPServer      `yaml:"http_server"`
	RabbitMQ        `yaml:"rabbitmq"`
	SMTP            `yaml:"smtp"`
	Cashfree        `yaml:"cashfree"`
	Auth            `yaml:"auth"`
	App             `yaml:"app"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:"0.0.0.0:8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env:"HTTP_TIMEOUT" env-default:"15s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	// RateLimit количество запросов в секунду на платёжные маршруты
	RateLimit float64 `yaml:"rate_limit" env:"HTTP_RATE_LIMIT" env-default:"5"`
	RateBurst int     `yaml:"rate_burst" env:"HTTP_RATE_BURST" env-default:"10"`
}

// Storage структура для выбора и настройки хранилища профилей
type Storage struct {
	// Driver postgres или firestore
	Driver           string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	ConnectionString string `yaml:"connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath   string `yaml:"migrations_path" env:"STORAGE_MIGRATIONS_PATH" env-default:"./migrations"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	MaxRetries   int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env:"REDIS_TIMEOUT" env-default:"3s"`
}

// RabbitMQ структура для настройки подключения к брокеру
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env:"RABBITMQ_MAX_RETRIES" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"2s"`
}

// SMTP структура для отправки писем
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"password" env:"SMTP_PASSWORD"`
}

// Cashfree структура для доступа к платёжному шлюзу
type Cashfree struct {
	AppID       string        `yaml:"app_id" env:"CASHFREE_APP_ID"`
	SecretKey   string        `yaml:"secret_key" env:"CASHFREE_SECRET_KEY"`
	Environment string        `yaml:"environment" env:"CASHFREE_ENV" env-default:"sandbox"`
	BaseURL     string        `yaml:"base_url" env:"CASHFREE_BASE_URL"`
	Timeout     time.Duration `yaml:"timeout" env:"CASHFREE_TIMEOUT" env-default:"10s"`
	// BreakerFailures число подряд идущих ошибок, после которого размыкается предохранитель
	BreakerFailures uint32        `yaml:"breaker_failures" env:"CASHFREE_BREAKER_FAILURES" env-default:"5"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout" env:"CASHFREE_BREAKER_TIMEOUT" env-default:"30s"`
}

// Auth структура для настроек входа, сессий и админки
type Auth struct {
	FirebaseCredentialsFile string        `yaml:"firebase_credentials_file" env:"FIREBASE_CREDENTIALS"`
	FirebaseProjectID       string        `yaml:"firebase_project_id" env:"FIREBASE_PROJECT_ID"`
	GoogleClientID          string        `yaml:"google_client_id" env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret      string        `yaml:"google_client_secret" env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL       string        `yaml:"google_redirect_url" env:"GOOGLE_REDIRECT_URL"`
	JWTSecretKey            string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL                time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL" env-default:"720h"`
	AdminTokenTTL           time.Duration `yaml:"admin_token_ttl" env:"ADMIN_TOKEN_TTL" env-default:"2h"`
	AdminPasswordHash       string        `yaml:"admin_password_hash" env:"ADMIN_PASSWORD_HASH"`
	AdminEmails             []string      `yaml:"admin_emails" env:"ADMIN_EMAILS" env-separator:","`
}

// App структура для адресов фронтенда и публичного API
type App struct {
	ProductionOrigin string        `yaml:"production_origin" env:"APP_PRODUCTION_ORIGIN" env-default:"https://lluui.vercel.app"`
	FrontendURL      string        `yaml:"frontend_url" env:"APP_FRONTEND_URL" env-default:"https://lluui.vercel.app"`
	PublicAPIURL     string        `yaml:"public_api_url" env:"APP_PUBLIC_API_URL"`
	CheckoutTTL      time.Duration `yaml:"checkout_ttl" env:"APP_CHECKOUT_TTL" env-default:"24h"`
}

// MustLoad функция для загрузки конфига. Если CONFIG_PATH не задан,
// конфиг читается только из переменных окружения.
func MustLoad() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}

	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла (если путь непустой) с наложением переменных окружения.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", configPath)
	}
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GatewayConfigured сообщает, заданы ли учётные данные платёжного шлюза.
func (c *Config) GatewayConfigured() bool {
	return c.AppID != "" && c.SecretKey != ""
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Storage:\n"+
			"  Driver: %s\n"+
			"  MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Cashfree:\n"+
			"  Environment: %s\n"+
			"  Configured: %t\n"+
			"App:\n"+
			"  ProductionOrigin: %s\n"+
			"  FrontendURL: %s\n",
		c.Env,
		c.Driver,
		c.MigrationsPath,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.Environment,
		c.GatewayConfigured(),
		c.ProductionOrigin,
		c.FrontendURL,
	)
}
