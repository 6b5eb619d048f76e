package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Notifier selection values for the NOTIFIER variable.
const (
	NotifierWebhook  = "webhook"
	NotifierTelegram = "telegram"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL string
	HTTPAddr    string
	LogLevel    string
	Environment string

	// Outbound channel. Webhook needs WebhookURL; telegram needs
	// TelegramToken and TelegramChatID.
	Notifier       string
	WebhookURL     string
	TelegramToken  string
	TelegramChatID int64

	// Kafka producer/consumer split. Empty KafkaBrokers keeps the
	// dispatcher delivering in-process.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Cron specs for the periodic jobs.
	CronSpecDispatch string // due-window dispatch
	CronSpecRecovery string // daily recovery sweep

	// Local time-of-day at which birthday messages are delivered.
	SendHour   int
	SendMinute int
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.Notifier = strings.ToLower(os.Getenv("NOTIFIER"))
	if cfg.Notifier == "" {
		cfg.Notifier = NotifierWebhook
	}

	switch cfg.Notifier {
	case NotifierWebhook:
		cfg.WebhookURL = os.Getenv("WEBHOOK_URL")
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is not set")
		}
	case NotifierTelegram:
		cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
		if cfg.TelegramToken == "" {
			return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
		}
		chatIDStr := os.Getenv("TELEGRAM_CHAT_ID")
		if chatIDStr == "" {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID is not set")
		}
		cfg.TelegramChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown NOTIFIER %q (want %q or %q)", cfg.Notifier, NotifierWebhook, NotifierTelegram)
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
		cfg.KafkaTopic = os.Getenv("KAFKA_TOPIC")
		if cfg.KafkaTopic == "" {
			cfg.KafkaTopic = "birthday-notifications"
		}
		cfg.KafkaGroupID = os.Getenv("KAFKA_GROUP_ID")
		if cfg.KafkaGroupID == "" {
			cfg.KafkaGroupID = "birthday-consumer"
		}
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.CronSpecDispatch = os.Getenv("CRON_SPEC_DISPATCH")
	if cfg.CronSpecDispatch == "" {
		cfg.CronSpecDispatch = "*/15 * * * *" // Default: every 15 minutes
	}
	cfg.CronSpecRecovery = os.Getenv("CRON_SPEC_RECOVERY")
	if cfg.CronSpecRecovery == "" {
		cfg.CronSpecRecovery = "0 10 * * *" // Default: 10:00 AM daily
	}

	cfg.SendHour, err = intEnv("SEND_HOUR", 9)
	if err != nil {
		return nil, err
	}
	if cfg.SendHour < 0 || cfg.SendHour > 23 {
		return nil, fmt.Errorf("SEND_HOUR out of range: %d", cfg.SendHour)
	}
	cfg.SendMinute, err = intEnv("SEND_MINUTE", 0)
	if err != nil {
		return nil, err
	}
	if cfg.SendMinute < 0 || cfg.SendMinute > 59 {
		return nil, fmt.Errorf("SEND_MINUTE out of range: %d", cfg.SendMinute)
	}

	return cfg, nil
}

func intEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}
