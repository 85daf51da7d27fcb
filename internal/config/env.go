package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Port string

	PineconeAPIKey string
	IndexName      string
	EmbedModel     string
	EmbedDim       int

	GroqAPIKey   string
	GeminiAPIKey string
	GenModel     string
	LLMProvider  string // "groq" or "gemini"

	VectorBackend string // "pinecone" or "pgvector"
	DatabaseURL   string

	ChunkSize    int
	ChunkOverlap int
	VerifyStrict bool
}

// LoadConfig loads the environment variables and returns the config.
// Missing provider credentials are fatal here: the pipeline must never run
// without a valid index handle.
func LoadConfig(log *zap.Logger) *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8000"),
		PineconeAPIKey: getEnv("PINECONE_API_KEY", ""),
		IndexName:      getEnv("INDEX_NAME", "crammer"),
		EmbedModel:     getEnv("EMBED_MODEL", "llama-text-embed-v2"),
		EmbedDim:       getEnvInt(log, "EMBED_DIM", 1024),
		GroqAPIKey:     getEnv("GROQ_API_KEY", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GenModel:       getEnv("GEN_MODEL", "llama-3.1-8b-instant"),
		LLMProvider:    getEnv("LLM_PROVIDER", "groq"),
		VectorBackend:  getEnv("VECTOR_BACKEND", "pinecone"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ChunkSize:      getEnvInt(log, "CHUNK_SIZE", 1000),
		ChunkOverlap:   getEnvInt(log, "CHUNK_OVERLAP", 200),
		VerifyStrict:   getEnvBool(log, "VERIFY_STRICT", false),
	}

	if cfg.PineconeAPIKey == "" {
		log.Fatal("PINECONE_API_KEY not set; create a .env file with your API key")
	}
	if cfg.VectorBackend == "pgvector" && cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set but VECTOR_BACKEND=pgvector")
	}
	if cfg.LLMProvider == "groq" && cfg.GroqAPIKey == "" {
		log.Fatal("GROQ_API_KEY not set")
	}
	if cfg.LLMProvider == "gemini" && cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(log *zap.Logger, key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn("env var not an int, using default",
			zap.String("key", key), zap.String("value", v), zap.Int("default", def))
		return def
	}
	return n
}

func getEnvBool(log *zap.Logger, key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn("env var not a bool, using default",
			zap.String("key", key), zap.String("value", v), zap.Bool("default", def))
		return def
	}
	return b
}
