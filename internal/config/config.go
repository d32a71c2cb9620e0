package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	ChatAPIKey string // shared key clients send in X-API-Key
	OpenAI     string
	Jina       string
}

type AIConfig struct {
	LLMProvider          string // "openai" or "ollama"
	LLMModel             string
	OpenAIBaseURL        string
	OllamaBaseURL        string
	EmbeddingProvider    string // "jina" or "ollama"
	OllamaEmbeddingModel string
	Temperature          float64
	MaxTokens            int
	TopK                 int
	SimilarityCutoff     float64
	HistoryCapacity      int
	CondenseTimeout      time.Duration
	GenerateTimeout      time.Duration
	SessionTTL           time.Duration
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
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			ChatAPIKey: getEnv("CHAT_API_KEY", ""),
			OpenAI:     getEnv("OPENAI_API_KEY", ""),
			Jina:       getEnv("JINA_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:          getEnv("LLM_PROVIDER", "openai"),
			LLMModel:             getEnv("LLM_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", ""),
			OllamaBaseURL:        getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingProvider:    getEnv("EMBEDDING_PROVIDER", "jina"),
			OllamaEmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			Temperature:          getEnvAsFloat("LLM_TEMPERATURE", 0.0),
			MaxTokens:            getEnvAsInt("LLM_MAX_TOKENS", 300),
			TopK:                 getEnvAsInt("RETRIEVAL_TOP_K", 5),
			SimilarityCutoff:     getEnvAsFloat("SIMILARITY_CUTOFF", 0.7),
			HistoryCapacity:      getEnvAsInt("HISTORY_CAPACITY", 10),
			CondenseTimeout:      getEnvAsDuration("CONDENSE_TIMEOUT", 30*time.Second),
			GenerateTimeout:      getEnvAsDuration("GENERATE_TIMEOUT", 60*time.Second),
			SessionTTL:           getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		},
	}
}

// Validate checks the settings the server cannot run without. A failure here
// is fatal at startup, never a per-request 500.
func (c *Config) Validate() error {
	if c.Keys.ChatAPIKey == "" {
		return fmt.Errorf("CHAT_API_KEY is required")
	}
	if c.Database.Connection == "" {
		return fmt.Errorf("DB_CONNECTION_STRING is required")
	}
	switch c.Ai.LLMProvider {
	case "openai":
		if c.Keys.OpenAI == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case "ollama":
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER: %s", c.Ai.LLMProvider)
	}
	switch c.Ai.EmbeddingProvider {
	case "jina":
		if c.Keys.Jina == "" {
			return fmt.Errorf("JINA_API_KEY is required when EMBEDDING_PROVIDER=jina")
		}
	case "ollama":
	default:
		return fmt.Errorf("unsupported EMBEDDING_PROVIDER: %s", c.Ai.EmbeddingProvider)
	}
	return nil
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
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
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
