package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"chainpulse/internal/secrets"
)

// CacheBackend selects the response-cache store implementation.
type CacheBackend string

const (
	CacheBackendMemory   CacheBackend = "memory"
	CacheBackendRedis    CacheBackend = "redis"
	CacheBackendDatabase CacheBackend = "database"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseDSN         string
	DatabaseMaxConns    int
	DatabaseMaxIdleTime time.Duration

	// Nodit Web3 Data API (query path)
	NoditBaseURL string
	NoditAPIKey  string
	NoditRPS     float64

	// CoinGecko (price metric source)
	CoingeckoBaseURL string
	CoingeckoRPS     float64

	// Ethereum JSON-RPC endpoint (gas price) and Etherscan fallback
	EthRPCURL        string
	EtherscanBaseURL string
	EtherscanAPIKey  string

	// Bitquery (whale transfers)
	BitqueryBaseURL string
	BitqueryAPIKey  string
	BitqueryRPS     float64

	// Upstream call deadline, applied to every provider request
	ProviderTimeout time.Duration

	// Response cache
	CacheBackend  CacheBackend
	CacheTTL      time.Duration
	PriceCacheTTL time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Alert engine
	AlertInterval       time.Duration
	TriggerLogRetention time.Duration
	TriggerLogPruneSec  int

	// Notifications
	NotifyMode       string // comma-separated: log, telegram, smtp, webhook
	TelegramBotToken string
	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPassword     string
	SMTPFrom         string
	SMTPTo           []string
	WebhookURL       string

	// Metrics/Health
	HealthPort int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Environment:         getEnv("ENVIRONMENT", "production"),
		DatabaseDSN:         getEnv("DATABASE_DSN", "chainpulse:chainpulse@tcp(mysql:3306)/chainpulse?parseTime=true"),
		DatabaseMaxConns:    getEnvInt("DATABASE_MAX_CONNS", 25),
		DatabaseMaxIdleTime: time.Duration(getEnvInt("DATABASE_MAX_IDLE_TIME_MINS", 5)) * time.Minute,
		NoditBaseURL:        getEnv("NODIT_API_BASE_URL", "https://web3.nodit.io/v1"),
		NoditAPIKey:         secrets.GetOptionalSecret("NODIT_API_KEY", ""),
		NoditRPS:            getEnvFloat("NODIT_API_RPS", 5.0),
		CoingeckoBaseURL:    getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		CoingeckoRPS:        getEnvFloat("COINGECKO_RPS", 2.0),
		EthRPCURL:           getEnv("ETH_RPC_URL", ""),
		EtherscanBaseURL:    getEnv("ETHERSCAN_BASE_URL", "https://api.etherscan.io/api"),
		EtherscanAPIKey:     secrets.GetOptionalSecret("ETHERSCAN_API_KEY", ""),
		BitqueryBaseURL:     getEnv("BITQUERY_BASE_URL", "https://streaming.bitquery.io/eap"),
		BitqueryAPIKey:      secrets.GetOptionalSecret("BITQUERY_API_KEY", ""),
		BitqueryRPS:         getEnvFloat("BITQUERY_RPS", 1.0),
		ProviderTimeout:     time.Duration(getEnvInt("PROVIDER_TIMEOUT_SEC", 10)) * time.Second,
		CacheBackend:        CacheBackend(getEnv("CACHE_BACKEND", "memory")),
		CacheTTL:            time.Duration(getEnvInt("CACHE_TTL_SEC", 300)) * time.Second,
		PriceCacheTTL:       time.Duration(getEnvInt("PRICE_CACHE_TTL_SEC", 300)) * time.Second,
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       secrets.GetOptionalSecret("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		AlertInterval:       time.Duration(getEnvInt("ALERT_INTERVAL_SEC", 60)) * time.Second,
		TriggerLogRetention: time.Duration(getEnvInt("TRIGGER_LOG_RETENTION_DAYS", 7)) * 24 * time.Hour,
		TriggerLogPruneSec:  getEnvInt("TRIGGER_LOG_PRUNE_SEC", 86400),
		NotifyMode:          getEnv("NOTIFY_MODE", "log"),
		TelegramBotToken:    secrets.GetOptionalSecret("TELEGRAM_BOT_TOKEN", ""),
		SMTPHost:            getEnv("SMTP_HOST", ""),
		SMTPPort:            getEnvInt("SMTP_PORT", 587),
		SMTPUser:            getEnv("SMTP_USER", ""),
		SMTPPassword:        secrets.GetOptionalSecret("SMTP_PASSWORD", ""),
		SMTPFrom:            getEnv("SMTP_FROM", "chainpulse@example.com"),
		WebhookURL:          secrets.GetOptionalSecret("NOTIFY_WEBHOOK_URL", ""),
		HealthPort:          getEnvInt("HEALTH_PORT", 8080),
	}

	// Parse SMTP_TO (comma-separated)
	if smtpTo := getEnv("SMTP_TO", ""); smtpTo != "" {
		cfg.SMTPTo = parseCSV(smtpTo)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}

	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendDatabase:
	case CacheBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CACHE_BACKEND is redis")
		}
	default:
		return fmt.Errorf("invalid CACHE_BACKEND: %s (must be memory, redis, or database)", c.CacheBackend)
	}

	if c.AlertInterval < time.Second {
		return fmt.Errorf("ALERT_INTERVAL_SEC must be at least 1")
	}

	// Validate notify mode (comma-separated list)
	hasTelegram := false
	hasSMTP := false
	hasWebhook := false

	for _, mode := range strings.Split(c.NotifyMode, ",") {
		switch strings.TrimSpace(mode) {
		case "log":
		case "telegram":
			hasTelegram = true
		case "smtp":
			hasSMTP = true
		case "webhook":
			hasWebhook = true
		default:
			return fmt.Errorf("invalid NOTIFY_MODE value: %s (valid values: log, telegram, smtp, webhook)", mode)
		}
	}

	if hasTelegram && c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required when telegram is in NOTIFY_MODE")
	}
	if hasSMTP && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required when smtp is in NOTIFY_MODE")
	}
	if hasWebhook && c.WebhookURL == "" {
		return fmt.Errorf("NOTIFY_WEBHOOK_URL is required when webhook is in NOTIFY_MODE")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func parseCSV(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
