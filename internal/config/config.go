// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Redis       RedisConfig
	Cache       CacheConfig
	AWS         AWSConfig
	Storage     StorageConfig
	Payment     PaymentConfig
	Pricing     PricingConfig
	Email       EmailConfig
	Queue       QueueConfig
	Reset       ResetConfig
	Sweep       SweepConfig
	Branding    BrandingConfig
	I18n        I18nConfig
	Frontend    FrontendConfig
	AdminSeed   AdminSeedConfig
}

// AdminSeedConfig creates the first admin on startup when Password is set.
type AdminSeedConfig struct {
	Name     string
	Email    string
	Password string
}

type FrontendConfig struct {
	BaseURL string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
	AllowOrigins []string
	Metrics      bool
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey               string
	AccessTokenTTL          int // in hours
	RefreshTokenTTL         int // in hours
	RememberAccessTokenTTL  int // in hours
	RememberRefreshTokenTTL int // in hours
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// CacheConfig selects the cache backend: "redis" or "memory".
type CacheConfig struct {
	Driver         string
	MemoryCapacity int
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
}

// StorageConfig selects where uploads go: "s3" or "local".
type StorageConfig struct {
	Driver    string
	LocalRoot string
	PublicURL string
}

type PaymentConfig struct {
	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string
	Currency             string
	ReturnURL            string
	GatewayTimeout       time.Duration
	InflightTTL          time.Duration
}

type PricingConfig struct {
	DeliveryCharge decimal.Decimal
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	AdminEmail   string
}

// QueueConfig enables queued email delivery when URL is set.
type QueueConfig struct {
	URL        string
	EmailQueue string
}

type ResetConfig struct {
	CodeTTL      time.Duration
	EmailLimit   int
	EmailWindow  time.Duration
	IPLimit      int
	IPWindow     time.Duration
	VerifyLimit  int
	VerifyWindow time.Duration
}

type SweepConfig struct {
	InProcess         bool
	CodeCutoff        time.Duration
	UsedCodeRetention time.Duration
	UnpaidRetention   time.Duration
	CodeInterval      time.Duration
	UnpaidInterval    time.Duration
}

type BrandingConfig struct {
	CompanyName    string
	CompanyAddress string
	CompanyEmail   string
	CompanyPhone   string
	LogoPath       string
}

type I18nConfig struct {
	DefaultLocale string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 60),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			AllowOrigins: getEnvAsSlice("CORS_ALLOW_ORIGINS", []string{"http://localhost:3000"}),
			Metrics:      getEnvAsBool("METRICS_ENABLED", true),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "bulkwear"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey:               getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL:          getEnvAsInt("JWT_ACCESS_TTL", 48),             // 2 days
			RefreshTokenTTL:         getEnvAsInt("JWT_REFRESH_TTL", 336),           // 14 days
			RememberAccessTokenTTL:  getEnvAsInt("JWT_REMEMBER_ACCESS_TTL", 720),   // 30 days
			RememberRefreshTokenTTL: getEnvAsInt("JWT_REMEMBER_REFRESH_TTL", 1440), // 60 days
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Driver:         getEnv("CACHE_DRIVER", "redis"),
			MemoryCapacity: getEnvAsInt("CACHE_MEMORY_CAPACITY", 10000),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "bulkwear-assets"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
		},
		Storage: StorageConfig{
			Driver:    getEnv("STORAGE_DRIVER", "local"),
			LocalRoot: getEnv("STORAGE_LOCAL_ROOT", "./uploads"),
			PublicURL: getEnv("STORAGE_PUBLIC_URL", "http://localhost:8080/uploads"),
		},
		Payment: PaymentConfig{
			StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			StripeWebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Currency:             getEnv("PAYMENT_CURRENCY", "usd"),
			ReturnURL:            getEnv("PAYMENT_RETURN_URL", "http://localhost:3000/payment/complete"),
			GatewayTimeout:       getEnvAsDuration("PAYMENT_GATEWAY_TIMEOUT", 30*time.Second),
			InflightTTL:          getEnvAsDuration("PAYMENT_INFLIGHT_TTL", 2*time.Minute),
		},
		Pricing: PricingConfig{
			DeliveryCharge: getEnvAsDecimal("DELIVERY_CHARGE", decimal.NewFromInt(20)),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@bulkwear.com"),
			FromName:     getEnv("FROM_NAME", "Bulkwear"),
			AdminEmail:   getEnv("ADMIN_EMAIL", "admin@bulkwear.com"),
		},
		Queue: QueueConfig{
			URL:        getEnv("RABBITMQ_URL", ""),
			EmailQueue: getEnv("RABBITMQ_EMAIL_QUEUE", "emails"),
		},
		Reset: ResetConfig{
			CodeTTL:      getEnvAsDuration("RESET_CODE_TTL", 10*time.Minute),
			EmailLimit:   getEnvAsInt("RESET_EMAIL_LIMIT", 30),
			EmailWindow:  getEnvAsDuration("RESET_EMAIL_WINDOW", 15*time.Minute),
			IPLimit:      getEnvAsInt("RESET_IP_LIMIT", 40),
			IPWindow:     getEnvAsDuration("RESET_IP_WINDOW", time.Hour),
			VerifyLimit:  getEnvAsInt("RESET_VERIFY_LIMIT", 30),
			VerifyWindow: getEnvAsDuration("RESET_VERIFY_WINDOW", 15*time.Minute),
		},
		Sweep: SweepConfig{
			InProcess:         getEnvAsBool("SWEEP_IN_PROCESS", true),
			CodeCutoff:        getEnvAsDuration("SWEEP_CODE_CUTOFF", 10*time.Minute),
			UsedCodeRetention: getEnvAsDuration("SWEEP_USED_CODE_RETENTION", 24*time.Hour),
			UnpaidRetention:   getEnvAsDuration("SWEEP_UNPAID_RETENTION", 5*time.Hour),
			CodeInterval:      getEnvAsDuration("SWEEP_CODE_INTERVAL", 10*time.Minute),
			UnpaidInterval:    getEnvAsDuration("SWEEP_UNPAID_INTERVAL", time.Hour),
		},
		Branding: BrandingConfig{
			CompanyName:    getEnv("COMPANY_NAME", "Bulkwear"),
			CompanyAddress: getEnv("COMPANY_ADDRESS", ""),
			CompanyEmail:   getEnv("COMPANY_EMAIL", "sales@bulkwear.com"),
			CompanyPhone:   getEnv("COMPANY_PHONE", ""),
			LogoPath:       getEnv("COMPANY_LOGO_PATH", ""),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
		Frontend: FrontendConfig{
			BaseURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		AdminSeed: AdminSeedConfig{
			Name:     getEnv("ADMIN_SEED_NAME", "Administrator"),
			Email:    getEnv("ADMIN_SEED_EMAIL", "admin@bulkwear.com"),
			Password: getEnv("ADMIN_SEED_PASSWORD", ""),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Pricing.DeliveryCharge.IsNegative() {
		return fmt.Errorf("delivery charge cannot be negative")
	}

	switch c.Cache.Driver {
	case "redis", "memory":
	default:
		return fmt.Errorf("unsupported cache driver %q", c.Cache.Driver)
	}

	switch c.Storage.Driver {
	case "s3", "local":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
