package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	GatewayRazorpay = "razorpay"
	GatewayMock     = "mock"
)

type Config struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string

	StoreDriver string
	DatabaseURL string

	GatewayMode    string
	KeyID          string
	KeySecret      string
	WebhookSecret  string
	GatewayTimeout time.Duration
	GatewayRetries int

	ReconcileInterval time.Duration
	ReconcileAfter    time.Duration
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

// Load reads the environment. A .env file in the working directory is
// loaded first by the godotenv autoloader.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		Env:            getenv("APP_ENV", "development"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "*")),
		StoreDriver:    getenv("STORE_DRIVER", StorePostgres),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		GatewayMode:    getenv("GATEWAY_MODE", GatewayRazorpay),
		KeyID:          os.Getenv("RAZORPAY_KEY_ID"),
		KeySecret:      os.Getenv("RAZORPAY_KEY_SECRET"),
		WebhookSecret:  os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(getenv("PORT", "3000")); err != nil {
		errs = append(errs, fmt.Errorf("PORT: %w", err))
	}
	if cfg.GatewayRetries, err = strconv.Atoi(getenv("GATEWAY_RETRIES", "3")); err != nil {
		errs = append(errs, fmt.Errorf("GATEWAY_RETRIES: %w", err))
	}
	if cfg.GatewayTimeout, err = time.ParseDuration(getenv("GATEWAY_TIMEOUT", "10s")); err != nil {
		errs = append(errs, fmt.Errorf("GATEWAY_TIMEOUT: %w", err))
	}
	if cfg.ReconcileInterval, err = time.ParseDuration(getenv("RECONCILE_INTERVAL", "1m")); err != nil {
		errs = append(errs, fmt.Errorf("RECONCILE_INTERVAL: %w", err))
	}
	if cfg.ReconcileAfter, err = time.ParseDuration(getenv("RECONCILE_AFTER", "5m")); err != nil {
		errs = append(errs, fmt.Errorf("RECONCILE_AFTER: %w", err))
	}

	if cfg.DatabaseURL == "" && os.Getenv("DB_HOST") != "" {
		cfg.DatabaseURL = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
			os.Getenv("DB_USERNAME"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			getenv("DB_PORT", "5432"),
			os.Getenv("DB_DATABASE"),
			getenv("DB_SCHEMA", "public"),
		)
	}

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL or DB_HOST is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER: unknown driver %q", c.StoreDriver))
	}

	switch c.GatewayMode {
	case GatewayMock:
		if c.KeyID == "" {
			c.KeyID = "rzp_test_mock"
		}
		if c.KeySecret == "" {
			c.KeySecret = "mock_secret"
		}
	case GatewayRazorpay:
		if c.KeyID == "" || c.KeySecret == "" {
			errs = append(errs, errors.New("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("GATEWAY_MODE: unknown mode %q", c.GatewayMode))
	}

	if c.GatewayTimeout <= 0 {
		errs = append(errs, errors.New("GATEWAY_TIMEOUT must be positive"))
	}
	if c.GatewayRetries < 0 {
		errs = append(errs, errors.New("GATEWAY_RETRIES must not be negative"))
	}
	return errors.Join(errs...)
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
