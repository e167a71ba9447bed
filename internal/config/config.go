package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	PostgresDSN     string
	RedisAddr       string
	KafkaBrokers    []string
	PaystackSecret  string
	PaystackBaseURL string
	ClaimSecret     string
	HTTPAddr        string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		KafkaBrokers:    []string{os.Getenv("KAFKA_BROKER")},
		PaystackSecret:  os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL: os.Getenv("PAYSTACK_BASE_URL"),
		ClaimSecret:     os.Getenv("CLAIM_SECRET"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
	}

	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = "host=localhost user=postgres password=postgres dbname=creatorpay sslmode=disable"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if len(cfg.KafkaBrokers) == 1 && cfg.KafkaBrokers[0] == "" {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	if cfg.PaystackBaseURL == "" {
		cfg.PaystackBaseURL = "https://api.paystack.co"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	slog.Info("config loaded", "postgres_dsn", cfg.PostgresDSN, "redis_addr", cfg.RedisAddr, "kafka_brokers", cfg.KafkaBrokers, "paystack_base_url", cfg.PaystackBaseURL)
	return cfg
}
