package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	AppStore AppStoreConfig
	Quota    QuotaConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LogLevel           string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JwtSecret   string
	TokenExpiry time.Duration
}

type AIConfig struct {
	LLMProvider   string // "openai", "gemini" or "ollama"
	OpenAIKey     string
	OpenAIBaseURL string
	GeminiKey     string
	OllamaBaseURL string
	ModelFree     string // default model for free tier when no ai_model_configs row exists
	ModelPaid     string
	Timeout       time.Duration
	ModelCacheTTL time.Duration
}

type AppStoreConfig struct {
	VerifyMode  string // "server_api" or "trusting"
	Environment string // "production" or "sandbox"
	IssuerID    string
	KeyID       string
	BundleID    string
	PrivateKey  string // PEM encoded .p8 key
	RootCAPath  string // optional Apple root CA for x5c chain checks
}

type QuotaConfig struct {
	// Timezone decides where "today" starts for daily limits.
	Timezone string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnv("OTEL_ENABLED", "false") == "true",
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JwtSecret:   getEnv("JWT_SECRET", ""),
			TokenExpiry: getEnvAsDuration("JWT_EXPIRY", 24*time.Hour),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "openai"),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			GeminiKey:     getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			ModelFree:     getEnv("LLM_MODEL_FREE", "gpt-4o-mini"),
			ModelPaid:     getEnv("LLM_MODEL_PAID", "gpt-4o"),
			Timeout:       getEnvAsDuration("AI_TIMEOUT", 30*time.Second),
			ModelCacheTTL: getEnvAsDuration("AI_MODEL_CACHE_TTL", time.Hour),
		},
		AppStore: AppStoreConfig{
			VerifyMode:  getEnv("APPSTORE_VERIFY_MODE", "server_api"),
			Environment: getEnv("APPSTORE_ENVIRONMENT", "production"),
			IssuerID:    getEnv("APPSTORE_ISSUER_ID", ""),
			KeyID:       getEnv("APPSTORE_KEY_ID", ""),
			BundleID:    getEnv("APPSTORE_BUNDLE_ID", ""),
			PrivateKey:  getEnv("APPSTORE_PRIVATE_KEY", ""),
			RootCAPath:  getEnv("APPSTORE_ROOT_CA_PATH", ""),
		},
		Quota: QuotaConfig{
			Timezone: getEnv("APP_TIMEZONE", "UTC"),
		},
	}
}

// Location returns the quota timezone, UTC when unset or unknown.
func (q QuotaConfig) Location() *time.Location {
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	// Bare integers are seconds.
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
