package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM provider identifiers.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	// HTTP server
	ServerPort string

	// Auth tokens admitted by the API and WebSocket handshake,
	// parsed from "token=userID" pairs.
	APITokens map[string]string

	// SurrealDB connection (document persistence)
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string
	PersistDocuments   bool

	// LLM generation
	LLMProvider     string
	LLMModel        string
	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// Pipeline deadlines
	LLMTimeout     time.Duration
	ExtractTimeout time.Duration

	// Upload handling
	UploadDir     string
	MaxUploadSize int64

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		ServerPort: getEnv("STUDYFORGE_PORT", "8585"),
		APITokens:  parseTokens(getEnv("STUDYFORGE_API_TOKENS", "")),

		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "studyforge"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "documents"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),
		PersistDocuments:   getEnv("STUDYFORGE_PERSIST_DOCUMENTS", "true") == "true",

		LLMProvider:     getEnv("STUDYFORGE_LLM_PROVIDER", ProviderOllama),
		LLMModel:        getEnv("STUDYFORGE_LLM_MODEL", "llama3.2"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),

		LLMTimeout:     getEnvDuration("STUDYFORGE_LLM_TIMEOUT", 120*time.Second),
		ExtractTimeout: getEnvDuration("STUDYFORGE_EXTRACT_TIMEOUT", 30*time.Second),

		UploadDir:     getEnv("STUDYFORGE_UPLOAD_DIR", os.TempDir()),
		MaxUploadSize: getEnvInt64("STUDYFORGE_MAX_UPLOAD_BYTES", 32<<20),

		LogFile:  getEnv("STUDYFORGE_LOG_FILE", "/tmp/studyforge.log"),
		LogLevel: parseLogLevel(getEnv("STUDYFORGE_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

// parseTokens parses "token=user,token2=user2" into a lookup map.
func parseTokens(s string) map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, user, ok := strings.Cut(pair, "=")
		if !ok || token == "" || user == "" {
			continue
		}
		tokens[token] = user
	}
	return tokens
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
