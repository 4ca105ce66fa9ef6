package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Keys      APIKeys
	Ai        AIConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	StreamLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	EventsEnabled      bool
}

type APIKeys struct {
	Anthropic   string
	HuggingFace string
}

type AIConfig struct {
	LLMProvider      string // "anthropic", "ollama" or "huggingface"
	LLMModel         string
	OllamaBaseURL    string
	AnthropicBaseURL string
	HuggingFaceURL   string
	Timeout          time.Duration
	UpstreamRPS      float64
	UpstreamBurst    int
}

type RateLimitConfig struct {
	Capacity int
	Window   time.Duration
}

type SessionConfig struct {
	TTL      time.Duration
	Debounce time.Duration
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			StreamLogFilePath:  getEnv("STREAM_LOG_FILE_PATH", "logs/stream.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", ""),
			EventsEnabled:      getEnvAsBool("EVENTS_ENABLED", false),
		},
		Keys: APIKeys{
			Anthropic:   getEnv("ANTHROPIC_API_KEY", ""),
			HuggingFace: getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:      getEnv("LLM_PROVIDER", "anthropic"),
			LLMModel:         getEnv("LLM_MODEL", "claude-sonnet-4-5"),
			OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", ""),
			HuggingFaceURL:   getEnv("HUGGINGFACE_BASE_URL", ""),
			Timeout:          getEnvAsDuration("LLM_TIMEOUT", 90*time.Second),
			UpstreamRPS:      getEnvAsFloat("UPSTREAM_RPS", 5),
			UpstreamBurst:    getEnvAsInt("UPSTREAM_BURST", 10),
		},
		RateLimit: RateLimitConfig{
			Capacity: getEnvAsInt("RATE_LIMIT_CAPACITY", 20),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		},
		Session: SessionConfig{
			TTL:      getEnvAsDuration("SESSION_TTL", time.Hour),
			Debounce: getEnvAsDuration("SESSION_DEBOUNCE", 300*time.Millisecond),
		},
	}
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

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
