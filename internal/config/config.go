package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robertarktes/marketplace-checkout/internal/expiry"
)

type Config struct {
	CRDBDSN       string
	MongoURI      string
	RedisAddr     string
	RabbitURL     string
	GatewayURL    string
	GatewayAPIKey string
	JWTPublicKey  string
	OTLPEndpoint  string

	Currency        string
	ReservationTTL  time.Duration
	PaymentDeadline time.Duration
	SweepInterval   time.Duration
	SweepBatch      int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		CRDBDSN:       os.Getenv("CRDB_DSN"),
		MongoURI:      os.Getenv("MONGO_URI"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RabbitURL:     os.Getenv("RABBIT_URL"),
		GatewayURL:    os.Getenv("GATEWAY_URL"),
		GatewayAPIKey: os.Getenv("GATEWAY_API_KEY"),
		JWTPublicKey:  os.Getenv("JWT_PUBLIC_KEY"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		Currency:        envString("CURRENCY", "USD"),
		ReservationTTL:  envDuration("RESERVATION_TTL", expiry.ReservationTTL),
		PaymentDeadline: envDuration("PAYMENT_DEADLINE", expiry.PaymentDeadline),
		SweepInterval:   envDuration("SWEEP_INTERVAL", 30*time.Second),
		SweepBatch:      envInt("SWEEP_BATCH", 100),
	}, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d == 0 {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n == 0 {
		return fallback
	}
	return n
}
