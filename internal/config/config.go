package config

import (
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Pipeline PipelineConfig
	Keys     Topics
}

type AppConfig struct {
	Environment string
	LogFilePath string
	NatsURL     string
	RedisURL    string
}

type DatabaseConfig struct {
	Connection string `validate:"required"`
}

type AIConfig struct {
	EmbeddingProvider string `validate:"oneof=openai ollama"` // "openai" or "ollama"
	LLMProvider       string `validate:"oneof=openai ollama"`
	LLMModel          string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OllamaBaseURL     string
	OllamaModel       string
	OCRModel          string
	OCRMinConfidence  float64 `validate:"gte=0,lte=1"`
}

type PipelineConfig struct {
	ChunkSize      int     `validate:"gt=0"`
	ChunkOverlap   int     `validate:"gte=0"`
	RetrievalK     int     `validate:"gt=0"`
	MinScore       float64 `validate:"gte=-1,lte=1"` // 0 disables the floor, negative selects the default
	EmbedBatchSize int     `validate:"gt=0"`
	MaxInFlight    int     `validate:"gt=0"`
	RatePerSecond  float64 `validate:"gt=0"`
	AnswerCacheTTL int     // minutes, 0 uses the cache default
}

type Topics struct {
	ReindexTopic string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "logs/app.log"),
			NatsURL:     getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "openai"),
			LLMProvider:       getEnv("LLM_PROVIDER", "openai"),
			LLMModel:          getEnv("LLM_MODEL", "gpt-4o-mini"),
			OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			OCRModel:          getEnv("OCR_MODEL", "gpt-4o"),
			OCRMinConfidence:  getEnvAsFloat("OCR_MIN_CONFIDENCE", 0.60),
		},
		Pipeline: PipelineConfig{
			ChunkSize:      getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap:   getEnvAsInt("CHUNK_OVERLAP", 200),
			RetrievalK:     getEnvAsInt("RETRIEVAL_K", 5),
			MinScore:       getEnvAsFloat("RETRIEVAL_MIN_SCORE", 0.30),
			EmbedBatchSize: getEnvAsInt("EMBED_BATCH_SIZE", 64),
			MaxInFlight:    getEnvAsInt("PROVIDER_MAX_IN_FLIGHT", 4),
			RatePerSecond:  getEnvAsFloat("PROVIDER_RATE_PER_SECOND", 10),
			AnswerCacheTTL: getEnvAsInt("ANSWER_CACHE_TTL_MINUTES", 15),
		},
		Keys: Topics{
			ReindexTopic: getEnv("REINDEX_TOPIC_NAME", "REINDEX_DOCUMENT"),
		},
	}
}

// Validate rejects configurations that would otherwise fail deep inside the
// pipeline, e.g. overlap >= chunk size.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		return ErrChunkOverlapTooLarge
	}
	return nil
}

var ErrChunkOverlapTooLarge = &configError{"CHUNK_OVERLAP must be smaller than CHUNK_SIZE"}

type configError struct {
	msg string
}

func (e *configError) Error() string {
	return e.msg
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
