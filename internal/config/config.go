package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	DatabaseURL      string
	JWTSecret        string
	JWTIssuer        string
	AccessTTLSeconds int64
	AdminAPIKeyHash  string
	CorsOrigins      []string
	Port             string

	LogDir           string
	LogRetentionDays int
	LogLevel         string
	LogFormat        string

	DataDir            string
	AppleUser          string
	FitbitUsers        []string
	IngestWorkers      int
	UpsertBatchSize    int
	UpsertBatchRetries int

	RiskModel           string
	RiskModelsFile      string
	RiskMediumThreshold *float64
}

// Load reads the configuration and panics when DATABASE_URL is unset.
func Load() Config {
	cfg := LoadOffline()
	cfg.DatabaseURL = mustEnv("DATABASE_URL")
	return cfg
}

// LoadOffline reads the configuration without requiring a database, for
// runs that never touch storage.
func LoadOffline() Config {
	return Config{
		DatabaseURL:      envOr("DATABASE_URL", ""),
		JWTSecret:        envOr("JWT_SECRET", ""),
		JWTIssuer:        envOr("JWT_ISSUER", "wellness"),
		AccessTTLSeconds: int64(envOrInt("ACCESS_TTL_SECONDS", 14400)),
		AdminAPIKeyHash:  envOr("ADMIN_API_KEY_HASH", ""),
		CorsOrigins:      parseCSV(envOr("CORS_ORIGINS", "")),
		Port:             envOr("PORT", "8080"),

		LogDir:           envOr("LOG_DIR", "storage/logs"),
		LogRetentionDays: envOrInt("LOG_RETENTION_DAYS", 7),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        envOr("LOG_FORMAT", "json"),

		DataDir:            envOr("DATA_DIR", "data/raw"),
		AppleUser:          envOr("APPLE_USER", "kiki"),
		FitbitUsers:        parseCSV(envOr("FITBIT_USERS", "bella_a,bella_b")),
		IngestWorkers:      envOrInt("INGEST_WORKERS", 2),
		UpsertBatchSize:    envOrInt("UPSERT_BATCH_SIZE", 500),
		UpsertBatchRetries: envOrInt("UPSERT_BATCH_RETRIES", 2),

		RiskModel:           envOr("RISK_MODEL", "rule_based_v1"),
		RiskModelsFile:      envOr("RISK_MODELS_FILE", ""),
		RiskMediumThreshold: envFloatPtr("RISK_MEDIUM_THRESHOLD"),
	}
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		panic("missing env var: " + key)
	}
	return value
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloatPtr(key string) *float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		panic("invalid number in env var: " + key)
	}
	return &parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
