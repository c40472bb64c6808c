package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// MongoDB configuration
	MongoURI     string
	DatabaseName string

	// Webhook configuration
	VerifyToken string

	// Classifier configuration
	ClassifierAPIKey  string
	ClassifierBaseURL string
	ClassifierModel   string
	ClassifyTimeout   time.Duration

	// WhatsApp (wasapi) configuration
	WasapiAPIKey   string
	WasapiBaseURL  string
	SendTimeout    time.Duration
	SendMaxRetries int

	// Support pipeline tuning
	ConfidenceThreshold float64
	HandoffTimeout      time.Duration
	DedupWindow         time.Duration
	DedupMaxEntries     int

	// Knowledge base
	KnowledgeBasePath string

	// Server configuration
	Port string
}

func LoadConfig() *Config {
	cfg := &Config{
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DatabaseName: getEnv("MONGO_DB_NAME", "yom-production"),
		VerifyToken:  getEnv("WEBHOOK_VERIFY_TOKEN", "webhook_verify_token"),

		ClassifierAPIKey:  getEnv("OPENAI_API_KEY", ""),
		ClassifierBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ClassifierModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		ClassifyTimeout:   getEnvDuration("CLASSIFY_TIMEOUT", 30*time.Second),

		WasapiAPIKey:   getEnv("WASAPI_API_KEY", ""),
		WasapiBaseURL:  getEnv("WASAPI_BASE_URL", "https://api.wasapi.io/prod/api/v1"),
		SendTimeout:    getEnvDuration("SEND_TIMEOUT", 15*time.Second),
		SendMaxRetries: getEnvInt("SEND_MAX_RETRIES", 3),

		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", 0.7),
		HandoffTimeout:      getEnvDuration("HANDOFF_TIMEOUT", 24*time.Hour),
		DedupWindow:         getEnvDuration("DEDUP_WINDOW", 60*time.Second),
		DedupMaxEntries:     getEnvInt("DEDUP_MAX_ENTRIES", 5000),

		KnowledgeBasePath: getEnv("KNOWLEDGE_BASE_PATH", "data/knowledge_base.json"),

		Port: getEnv("PORT", "8080"),
	}

	// Validate required configuration
	if cfg.WasapiAPIKey == "" {
		slog.Error("WASAPI_API_KEY not set")
	}
	if cfg.ClassifierAPIKey == "" {
		slog.Error("OPENAI_API_KEY not set")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		slog.Warn("Invalid integer in environment, using default", "key", key)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		slog.Warn("Invalid float in environment, using default", "key", key)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("Invalid duration in environment, using default", "key", key)
	}
	return defaultValue
}
