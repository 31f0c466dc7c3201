package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	LogLevel       string // debug, info, warn or error
	DBUser         string
	DBPass         string // optional
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string // secret used to sign access tokens
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int

	// RefreshCleanupInterval is how often expired and revoked refresh
	// tokens are purged.  Zero disables the sweeper.
	RefreshCleanupInterval time.Duration

	SentryDSN   string // empty disables error reporting
	RabbitMQURL string // empty disables redemption events
	PromoLogDir string // where the redemption consumer appends promo.log

	Stripe StripeConfig
}

// StripeConfig carries the payment provider settings.  Checkout is only
// mounted when SecretKey is set.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
	SessionTTL    time.Duration
}

// Enabled reports whether checkout can be offered.
func (s StripeConfig) Enabled() bool { return s.SecretKey != "" }

// AccessTTL is the access token lifetime.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMin) * time.Minute }

// RefreshTTL is the refresh token lifetime.
func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}

// IsProduction controls the Secure flag on the refresh cookie.
func (c Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

// Load reads .env when present and then the process environment.  Missing
// required variables cause the program to exit with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: .env not loaded: %v", err)
	}
	cfg, err := FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// FromEnv builds a Config from the environment without exiting.
func FromEnv() (Config, error) {
	var missing []string
	req := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:                    envStr("APP_ENV", "dev"),
		Port:                   envStr("APP_PORT", "8080"),
		LogLevel:               envStr("LOG_LEVEL", "info"),
		DBUser:                 req("DB_USER"),
		DBPass:                 os.Getenv("DB_PASS"),
		DBHost:                 envStr("DB_HOST", "127.0.0.1"),
		DBPort:                 envStr("DB_PORT", "3306"),
		DBName:                 req("DB_NAME"),
		JWTSecret:              req("JWT_SECRET"),
		AccessTTLMin:           envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays:         envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:             envInt("BCRYPT_COST", 12),
		RefreshCleanupInterval: envDur("REFRESH_CLEANUP_INTERVAL", time.Hour),
		SentryDSN:              os.Getenv("SENTRY_DSN"),
		RabbitMQURL:            os.Getenv("RABBITMQ_URL"),
		PromoLogDir:            envStr("PROMO_LOG_DIR", "logs"),
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			Currency:      strings.ToLower(envStr("STRIPE_CURRENCY", "usd")),
			SuccessURL:    envStr("STRIPE_SUCCESS_URL", "http://localhost:3000/checkout/success"),
			CancelURL:     envStr("STRIPE_CANCEL_URL", "http://localhost:3000/checkout/cancel"),
			SessionTTL:    envDur("STRIPE_SESSION_TTL", 30*time.Minute),
		},
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if cfg.AccessTTLMin <= 0 || cfg.RefreshTTLDays <= 0 {
		return Config{}, errors.New("token TTLs must be positive")
	}
	if cfg.Stripe.Enabled() && cfg.Stripe.WebhookSecret == "" {
		return Config{}, errors.New("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("invalid APP_PORT %q", cfg.Port)
	}
	return cfg, nil
}
