package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds environment-driven configuration shared by every binary.
type Config struct {
	AppEnv   string
	LogLevel string
	Addr     string

	DatabaseURL        string
	RedisAddr          string
	CheckoutSessionTTL time.Duration

	KafkaBrokers     []string
	OrderEventsTopic string
	WorkerGroupID    string

	JWTSecret string

	StorageRoot   string
	StorageSecret string
	PublicBaseURL string
	SignedURLTTL  time.Duration

	WelcomeCouponPercent int
	PaymentCurrency      string

	FetchTimeout     time.Duration
	FetchConcurrency int
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		AppEnv:   getenv("APP_ENV", "dev"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		Addr:     getenv("SHOP_ADDR", ":8080"),

		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          getenv("REDIS_ADDR", "localhost:6379"),
		CheckoutSessionTTL: getenvDuration("CHECKOUT_SESSION_TTL", 24*time.Hour),

		KafkaBrokers:     splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
		OrderEventsTopic: getenv("ORDER_EVENTS_TOPIC", "order.paid"),
		WorkerGroupID:    getenv("BUNDLE_WORKER_GROUP", "bundle-worker"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		StorageRoot:   getenv("STORAGE_ROOT", "./storage"),
		StorageSecret: getenv("STORAGE_SECRET", os.Getenv("JWT_SECRET")),
		PublicBaseURL: strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		SignedURLTTL:  getenvDuration("SIGNED_URL_TTL", time.Minute),

		WelcomeCouponPercent: getenvInt("WELCOME_COUPON_PERCENT", 15),
		PaymentCurrency:      getenv("PAYMENT_CURRENCY", "USD"),

		FetchTimeout:     getenvDuration("FETCH_TIMEOUT", 30*time.Second),
		FetchConcurrency: getenvInt("FETCH_CONCURRENCY", 4),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
