package bootstrap

import (
	"os"
	"strconv"
)

const defaultSystemPrompt = "You are Careloop, a friendly health companion. " +
	"You help the user keep track of their health records, medications, and " +
	"appointments. Answer from the user's own records when they are relevant, " +
	"say so when you do not know, and never invent medical facts. Keep spoken " +
	"answers short and conversational."

type Config struct {
	ServerAddr string
	LogLevel   string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QdrantHost   string
	QdrantPort   int
	QdrantAPIKey string

	GeminiAPIKey string
	LiveModel    string
	EmbedModel   string

	SystemPrompt string
	VoiceName    string

	// DefaultUserID scopes live-session tools in the single-user
	// deployment; the REST surface always takes an explicit owner.
	DefaultUserID string

	StaticDir string
	IndexHTML string
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       0,

		QdrantHost:   getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:   getEnvInt("QDRANT_PORT", 6334),
		QdrantAPIKey: getEnv("QDRANT_API_KEY", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		LiveModel:    getEnv("GEMINI_LIVE_MODEL", ""),
		EmbedModel:   getEnv("GEMINI_EMBED_MODEL", ""),

		SystemPrompt: getEnv("SYSTEM_PROMPT", defaultSystemPrompt),
		VoiceName:    getEnv("VOICE_NAME", "Aoede"),

		DefaultUserID: getEnv("DEFAULT_USER_ID", "local-user"),

		StaticDir: getEnv("STATIC_DIR", "./static"),
		IndexHTML: getEnv("INDEX_HTML", "./static/index.html"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
