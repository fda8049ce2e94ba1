package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string
	Port      string
	DBDSN     string
	SeedDemo  bool
	BodyLimit int

	Log      LogConfig
	JWT      JWTConfig
	Timeouts TimeoutConfig
	Outbox   OutboxConfig
	SMTP     SMTPConfig
	Events   EventsConfig
	Limit    RateLimitConfig

	LowStockThreshold int
}

type LogConfig struct {
	Level    string
	Encoding string
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type TimeoutConfig struct {
	Request     time.Duration
	Store       time.Duration
	ReadRetries int
	Shutdown    time.Duration
}

type OutboxConfig struct {
	Path       string
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

type SMTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	FromEmail string
	FromName  string
}

// Enabled is false in development, where emails are only logged.
func (s SMTPConfig) Enabled() bool { return s.Host != "" && s.User != "" }

// RateLimitConfig bounds requests per client IP over a sliding window.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

type EventsConfig struct {
	URL      string
	Exchange string
}

func Load() Config {
	_ = godotenv.Load(".env")

	return Config{
		Env:       getString("APP_ENV", "development"),
		Port:      getString("PORT", "8080"),
		DBDSN:     getString("DB_DSN", "makiti.db"), // sqlite file in project root
		SeedDemo:  getBool("SEED_DEMO_DATA", true),
		BodyLimit: getInt("BODY_LIMIT", 1<<20),
		Log: LogConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "makiti-auth"),
		},
		Timeouts: TimeoutConfig{
			Request:     getDuration("REQUEST_TIMEOUT", 10*time.Second),
			Store:       getDuration("STORE_TIMEOUT", 3*time.Second),
			ReadRetries: getInt("STORE_READ_RETRIES", 2),
			Shutdown:    getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Outbox: OutboxConfig{
			Path:       getString("OUTBOX_PATH", "./data/outbox.db"),
			Interval:   getDuration("DISPATCH_INTERVAL", 5*time.Second),
			BatchSize:  getInt("DISPATCH_BATCH", 50),
			MaxRetries: getInt("DISPATCH_MAX_RETRIES", 5),
		},
		SMTP: SMTPConfig{
			Host:      os.Getenv("SMTP_HOST"),
			Port:      getInt("SMTP_PORT", 587),
			User:      os.Getenv("SMTP_USER"),
			Password:  os.Getenv("SMTP_PASSWORD"),
			FromEmail: getString("FROM_EMAIL", "noreply@makiti.local"),
			FromName:  getString("FROM_NAME", "Makiti"),
		},
		Events: EventsConfig{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: getString("ORDER_EXCHANGE", "orders"),
		},
		Limit: RateLimitConfig{
			Max:    getInt("RATE_LIMIT_MAX", 120),
			Window: getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		LowStockThreshold: getInt("LOW_STOCK_THRESHOLD", 5),
	}
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDuration accepts Go duration strings or a bare number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
