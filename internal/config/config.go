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
	Database  DatabaseConfig
	Ai        AIConfig
	Retrieval RetrievalConfig
	Triage    TriageConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	GeminiAPIKey      string
	LLMProvider       string // "ollama", "openai"
	LLMModel          string // e.g. "llama3", "gpt-4o-mini"
	OpenAIAPIKey      string
	RequestTimeout    time.Duration
	MaxRetries        int
}

type RetrievalConfig struct {
	TopK           int
	Dimension      int
	CacheTTL       time.Duration
	CachePurge     time.Duration
	CorpusPath     string // JSON corpus file, used when DB is not configured
	EmbedCaseTopic string
}

type TriageConfig struct {
	RulesPath         string
	MinInterviewTurns int
	SessionTTL        time.Duration
	SessionPurge      time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			GeminiAPIKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
			RequestTimeout:    getEnvAsDuration("AI_REQUEST_TIMEOUT", 5*time.Second),
			MaxRetries:        getEnvAsInt("AI_MAX_RETRIES", 3),
		},
		Retrieval: RetrievalConfig{
			TopK:           getEnvAsInt("RETRIEVAL_TOP_K", 10),
			Dimension:      getEnvAsInt("RETRIEVAL_DIMENSION", 768),
			CacheTTL:       getEnvAsDuration("RETRIEVAL_CACHE_TTL", 2*time.Minute),
			CachePurge:     getEnvAsDuration("RETRIEVAL_CACHE_PURGE", 5*time.Minute),
			CorpusPath:     getEnv("REFERENCE_CORPUS_PATH", ""),
			EmbedCaseTopic: getEnv("EMBED_CASE_TOPIC_NAME", "EMBED_CASE_NOTE"),
		},
		Triage: TriageConfig{
			RulesPath:         getEnv("ESCALATION_RULES_PATH", "configs/escalation_rules.yaml"),
			MinInterviewTurns: getEnvAsInt("MIN_INTERVIEW_TURNS", 3),
			SessionTTL:        getEnvAsDuration("SESSION_IDLE_TTL", 1*time.Hour),
			SessionPurge:      getEnvAsDuration("SESSION_PURGE_INTERVAL", 10*time.Minute),
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
