package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Auth              AuthConfig
	Mayar             MayarConfig
	Resend            ResendConfig
	Redis             RedisConfig
	Payments          PaymentsConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
	// PublicURL is the browser-facing origin used for gateway redirects.
	PublicURL string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

type MayarConfig struct {
	APIKey      string
	BaseURL     string
	HTTPTimeout time.Duration
}

type ResendConfig struct {
	APIKey      string
	BaseURL     string
	From        string
	HTTPTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type PaymentsConfig struct {
	Currency               string
	SubscriptionPeriodDays int
	PendingTimeout         time.Duration
	ReconcileStaleAfter    time.Duration
	// InvoiceExpiry is how long the reconcile job waits on an open invoice
	// before failing it.
	InvoiceExpiry time.Duration
	JobBatchSize  int32
	// VerifyRateLimit is requests per second per client on public verify routes.
	VerifyRateLimit float64
}

type JobsConfig struct {
	ReconcileInterval     time.Duration
	ExpirePendingInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "billing-service"),
			PublicURL:   strings.TrimRight(getEnv("APP_PUBLIC_URL", "http://localhost:3000"), "/"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			JWTIssuer: getEnv("AUTH_JWT_ISSUER", ""),
		},
		Mayar: MayarConfig{
			APIKey:      getEnv("MAYAR_API_KEY", ""),
			BaseURL:     getEnv("MAYAR_BASE_URL", "https://api.mayar.id/hl/v1"),
			HTTPTimeout: getSecondsEnv("MAYAR_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
		Resend: ResendConfig{
			APIKey:      getEnv("RESEND_API_KEY", ""),
			BaseURL:     getEnv("RESEND_BASE_URL", "https://api.resend.com"),
			From:        getEnv("RESEND_FROM", "billing@example.com"),
			HTTPTimeout: getSecondsEnv("RESEND_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			LockTTL:  getSecondsEnv("REDIS_VERIFY_LOCK_TTL_SECONDS", 30*time.Second),
		},
		Payments: PaymentsConfig{
			Currency:               strings.ToUpper(getEnv("PAYMENTS_CURRENCY", "IDR")),
			SubscriptionPeriodDays: getIntEnv("PAYMENTS_SUBSCRIPTION_PERIOD_DAYS", 30),
			PendingTimeout:         getMinutesEnv("PAYMENTS_PENDING_TIMEOUT_MINUTES", 60*time.Minute),
			ReconcileStaleAfter:    getMinutesEnv("PAYMENTS_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			InvoiceExpiry:          getMinutesEnv("PAYMENTS_INVOICE_EXPIRY_MINUTES", 24*time.Hour),
			JobBatchSize:           int32(getIntEnv("PAYMENTS_JOB_BATCH_SIZE", 100)),
			VerifyRateLimit:        getFloatEnv("PAYMENTS_VERIFY_RATE_LIMIT", 5),
		},
		Jobs: JobsConfig{
			ReconcileInterval:     getMinutesEnv("PAYMENTS_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
			ExpirePendingInterval: getMinutesEnv("PAYMENTS_EXPIRE_PENDING_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
