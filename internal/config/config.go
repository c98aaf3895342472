package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	LLMMaxTokens       int
	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingBatchSize int
	// EmbeddingRate caps embedding API calls in requests per second so
	// bulk ingestion does not trip external rate limits.
	EmbeddingRate float64

	DBPath       string
	DocumentsDir string

	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int

	// Retrieval knobs. SimilarityThreshold gates both the retriever and
	// the pre-generation guard.
	SimilarityThreshold float32
	VectorTopK          int
	MaxResults          int
	LexicalSearch       bool

	// RulesPath optionally points at a JSON file overriding the built-in
	// classifier and guard phrase tables.
	RulesPath string

	IngestConcurrency int

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a project-root .env (where go.mod lives).
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "gpt-4o"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-3-small"),
		DBPath:             getEnv("DB_PATH", "./data/sitedocs-ai.db"),
		DocumentsDir:       getEnv("DOCUMENTS_DIR", "./documents"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "site_documents"),
		RulesPath:          getEnv("RULES_PATH", ""),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	// QDRANT_VECTOR_SIZE must match the embedding model's output dimension.
	// If it changes, the Qdrant collection must be recreated.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	cfg.LLMMaxTokens, err = getEnvInt("LLM_MAX_TOKENS", 1024)
	if err != nil {
		return nil, err
	}
	cfg.EmbeddingBatchSize, err = getEnvInt("EMBEDDING_BATCH_SIZE", 64)
	if err != nil {
		return nil, err
	}
	cfg.VectorTopK, err = getEnvInt("VECTOR_TOP_K", 10)
	if err != nil {
		return nil, err
	}
	cfg.MaxResults, err = getEnvInt("MAX_RESULTS", 5)
	if err != nil {
		return nil, err
	}
	cfg.IngestConcurrency, err = getEnvInt("INGEST_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}

	embeddingRate, err := getEnvFloat("EMBEDDING_RATE", 2)
	if err != nil {
		return nil, err
	}
	if embeddingRate <= 0 {
		return nil, fmt.Errorf("EMBEDDING_RATE must be greater than 0")
	}
	cfg.EmbeddingRate = embeddingRate

	threshold, err := getEnvFloat("SIMILARITY_THRESHOLD", 0.7)
	if err != nil {
		return nil, err
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("SIMILARITY_THRESHOLD must be between 0 and 1")
	}
	cfg.SimilarityThreshold = float32(threshold)

	cfg.LexicalSearch = strings.EqualFold(getEnv("LEXICAL_SEARCH", "true"), "true")

	switch strings.ToLower(getEnv("LOG_LEVEL", "info")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "info":
		cfg.LogLevel = slog.LevelInfo
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}

	// Create data and documents directories if they don't exist.
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.DocumentsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create documents directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return parsed, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return parsed, nil
}
