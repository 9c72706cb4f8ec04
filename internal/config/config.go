package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	QueueDriverSQS   = "sqs"
	QueueDriverKafka = "kafka"
)

// Config holds every tunable of the API and consumer processes. Values come
// from the environment (optionally seeded from .env) with local defaults.
type Config struct {
	Port    string
	AppEnv  string
	BaseURL string

	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	QueueDriver        string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	SQSQueueURL        string
	SQSEndpoint        string
	KafkaBrokers       []string
	KafkaTopic         string
	KafkaGroup         string

	BidConsumerEnabled bool
	BidPollInterval    time.Duration
	BidWaitTime        time.Duration
	OutboxPollInterval time.Duration
	OutboxMaxAttempts  int
	OutboxBatchSize    int
	HighestBidCacheTTL time.Duration

	EmailFrom     string
	EmailPassword string
	SMTPHost      string
	SMTPPort      string
	ATUsername    string
	ATAPIKey      string

	FirebaseServiceAccountPath string

	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

func defaultConfig() Config {
	return Config{
		Port:               "8080",
		AppEnv:             "development",
		RedisURL:           "redis://redis:6379",
		QueueDriver:        QueueDriverSQS,
		AWSRegion:          "us-east-1",
		KafkaBrokers:       []string{"localhost:9092"},
		KafkaTopic:         "bid-intake",
		KafkaGroup:         "bid-intake-consumer",
		BidConsumerEnabled: true,
		BidPollInterval:    10 * time.Second,
		BidWaitTime:        20 * time.Second,
		OutboxPollInterval: 5 * time.Second,
		OutboxMaxAttempts:  5,
		OutboxBatchSize:    20,
		HighestBidCacheTTL: 5 * time.Minute,
		LogLevel:           "info",
		LogFormat:          "text",
		MetricsAddr:        ":2112",
	}
}

func Load() (Config, error) {
	cfg := defaultConfig()
	var errs []error

	setStringFromEnv(&cfg.Port, "PORT")
	setStringFromEnv(&cfg.AppEnv, "APP_ENV")
	setStringFromEnv(&cfg.BaseURL, "BASE_URL")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && os.Getenv("DB_HOST") != "" {
		cfg.DatabaseURL = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			os.Getenv("DB_HOST"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
			os.Getenv("DB_PORT"),
		)
	}
	setStringFromEnv(&cfg.RedisURL, "REDIS_URL")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")

	if v := os.Getenv("QUEUE_DRIVER"); v != "" {
		cfg.QueueDriver = strings.ToLower(strings.TrimSpace(v))
	}
	setStringFromEnv(&cfg.AWSRegion, "AWS_REGION")
	cfg.AWSAccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.AWSSecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	cfg.SQSQueueURL = os.Getenv("SQS_QUEUE_URL")
	cfg.SQSEndpoint = os.Getenv("SQS_ENDPOINT")
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")
	setStringFromEnv(&cfg.KafkaGroup, "KAFKA_GROUP")

	setBoolFromEnv(&cfg.BidConsumerEnabled, "BID_CONSUMER_ENABLED", &errs)
	setDurationFromEnv(&cfg.BidPollInterval, "BID_POLL_INTERVAL", &errs)
	setDurationFromEnv(&cfg.BidWaitTime, "BID_WAIT_TIME", &errs)
	setDurationFromEnv(&cfg.OutboxPollInterval, "OUTBOX_POLL_INTERVAL", &errs)
	setIntFromEnv(&cfg.OutboxMaxAttempts, "OUTBOX_MAX_ATTEMPTS", &errs)
	setIntFromEnv(&cfg.OutboxBatchSize, "OUTBOX_BATCH_SIZE", &errs)
	setDurationFromEnv(&cfg.HighestBidCacheTTL, "HIGHEST_BID_CACHE_TTL", &errs)

	cfg.EmailFrom = os.Getenv("EMAIL_FROM")
	cfg.EmailPassword = os.Getenv("EMAIL_PASSWORD")
	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = os.Getenv("SMTP_PORT")
	cfg.ATUsername = os.Getenv("AT_USERNAME")
	cfg.ATAPIKey = os.Getenv("AT_API_KEY")
	cfg.FirebaseServiceAccountPath = os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	setStringFromEnv(&cfg.MetricsAddr, "METRICS_ADDR")

	if cfg.QueueDriver != QueueDriverSQS && cfg.QueueDriver != QueueDriverKafka {
		errs = append(errs, fmt.Errorf("QUEUE_DRIVER must be %q or %q", QueueDriverSQS, QueueDriverKafka))
	}
	if cfg.BidPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("BID_POLL_INTERVAL must be > 0"))
	}
	// SQS caps long polling at 20 seconds.
	if cfg.BidWaitTime < 0 || cfg.BidWaitTime > 20*time.Second {
		errs = append(errs, fmt.Errorf("BID_WAIT_TIME must be between 0s and 20s"))
	}
	if cfg.OutboxMaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

// IsProduction reports whether error details and debug output must be hidden.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setBoolFromEnv(target *bool, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = b
	}
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
