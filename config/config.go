package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	OAuth      OAuthConfig
	Cloudinary CloudinaryConfig
	Payment    PaymentConfig
	Payout     PayoutConfig
	Mail       MailConfig
	Redis      RedisConfig
	Firebase   FirebaseConfig
	App        AppConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Driver          string // mysql | postgres
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	ResetSecret   string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	ResetExpiry   time.Duration
	Issuer        string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

type PaymentConfig struct {
	Provider      string // stripe | stub
	SecretKey     string
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
	SessionExpiry time.Duration
	// SettlementTimeout bounds one webhook settlement transaction.
	SettlementTimeout time.Duration
}

type PayoutConfig struct {
	MinimumCents      int64
	ReconcileInterval time.Duration
	StaleAfter        time.Duration
	MaxAttempts       int
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type FirebaseConfig struct {
	ServiceAccountPath string
}

type AppConfig struct {
	Name          string
	FrontendURL   string
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "5000"),
			Env:          getEnv("NODE_ENV", getEnv("APP_ENV", "development")),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("DB_DRIVER", "mysql")),
			DSN:             getEnv("DATABASE_URL", ""),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
			ResetSecret:   getEnv("RESET_PASS_SECRET", ""),
			AccessExpiry:  getEnvDuration("JWT_ACCESS_EXPIRES", 24*time.Hour),
			RefreshExpiry: getEnvDuration("JWT_REFRESH_EXPIRES", 90*24*time.Hour),
			ResetExpiry:   getEnvDuration("RESET_PASS_TOKEN_EXPIRES", 10*time.Minute),
			Issuer:        getEnv("JWT_ISSUER", "tourhub"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
			APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
			Folder:    getEnv("CLOUDINARY_FOLDER", "tourhub"),
		},
		Payment: PaymentConfig{
			Provider:          strings.ToLower(getEnv("PAYMENT_PROVIDER", "stripe")),
			SecretKey:         getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:     getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Currency:          strings.ToLower(getEnv("PAYMENT_CURRENCY", "usd")),
			SuccessURL:        getEnv("PAYMENT_SUCCESS_URL", ""),
			CancelURL:         getEnv("PAYMENT_CANCEL_URL", ""),
			SessionExpiry:     getEnvDuration("PAYMENT_SESSION_EXPIRY", 30*time.Minute),
			SettlementTimeout: getEnvDuration("PAYMENT_SETTLEMENT_TIMEOUT", 15*time.Second),
		},
		Payout: PayoutConfig{
			MinimumCents:      int64(getEnvInt("PAYOUT_MINIMUM", 50)) * 100,
			ReconcileInterval: getEnvDuration("PAYOUT_RECONCILE_INTERVAL", 5*time.Minute),
			StaleAfter:        getEnvDuration("PAYOUT_STALE_AFTER", 10*time.Minute),
			MaxAttempts:       getEnvInt("PAYOUT_MAX_ATTEMPTS", 5),
		},
		Mail: MailConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Firebase: FirebaseConfig{
			ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		},
		App: AppConfig{
			Name:          getEnv("APP_NAME", "TourHub"),
			FrontendURL:   strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
			AdminEmail:    getEnv("ADMIN_EMAIL", "admin@tourhub.com"),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
			AdminName:     getEnv("ADMIN_NAME", "Super Admin"),
		},
	}
	if cfg.Payment.SuccessURL == "" {
		cfg.Payment.SuccessURL = cfg.App.FrontendURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}"
	}
	if cfg.Payment.CancelURL == "" {
		cfg.Payment.CancelURL = cfg.App.FrontendURL + "/payment/cancel"
	}
	if cfg.JWT.ResetSecret == "" {
		cfg.JWT.ResetSecret = cfg.JWT.AccessSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed required setting at once.
func (c *Config) Validate() error {
	var problems []string
	require := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			problems = append(problems, name+" is required")
		}
	}
	require("DATABASE_URL", c.Database.DSN)
	require("JWT_ACCESS_SECRET", c.JWT.AccessSecret)
	require("JWT_REFRESH_SECRET", c.JWT.RefreshSecret)
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("DB_DRIVER %q is not supported", c.Database.Driver))
	}
	switch c.Payment.Provider {
	case "stripe":
		require("STRIPE_SECRET_KEY", c.Payment.SecretKey)
		require("STRIPE_WEBHOOK_SECRET", c.Payment.WebhookSecret)
	case "stub":
	default:
		problems = append(problems, fmt.Sprintf("PAYMENT_PROVIDER %q is not supported", c.Payment.Provider))
	}
	if c.Payout.MinimumCents <= 0 {
		problems = append(problems, "PAYOUT_MINIMUM must be positive")
	}
	for _, key := range []string{"PORT", "SMTP_PORT", "DB_MAX_IDLE_CONNS", "DB_MAX_OPEN_CONNS", "PAYOUT_MINIMUM", "PAYOUT_MAX_ATTEMPTS", "REDIS_DB"} {
		if v := os.Getenv(key); v != "" {
			if _, err := strconv.Atoi(v); err != nil {
				problems = append(problems, key+" must be an integer")
			}
		}
	}
	for _, key := range []string{"JWT_ACCESS_EXPIRES", "JWT_REFRESH_EXPIRES", "RESET_PASS_TOKEN_EXPIRES", "PAYMENT_SESSION_EXPIRY", "PAYOUT_RECONCILE_INTERVAL", "PAYOUT_STALE_AFTER"} {
		if v := os.Getenv(key); v != "" {
			if _, err := parseDuration(v); err != nil {
				problems = append(problems, key+" must be a duration (e.g. 15m, 24h, 90d)")
			}
		}
	}
	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := parseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return d
}

// parseDuration accepts Go durations plus a day suffix ("90d").
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
