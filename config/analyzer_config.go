package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// defaultBlockedSenders are sender domains/addresses excluded from
// extraction unless overridden via BLOCKED_SENDERS.
var defaultBlockedSenders = []string{
	"nytimes.com",
	"substack.com",
	"noreply@ucsd.edu",
	"bankofamerica.com",
}

type Config struct {
	Port        string
	Environment string

	// Database
	MongoDBURL  string
	MongoDBName string
	RedisURL    string

	// OpenAI
	OpenAIAPIKey  string
	LLMModel      string
	LLMMaxTokens  int
	LLMMaxRetries int
	LLMThrottle   time.Duration

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Service URLs
	BackendURL  string
	FrontendURL string

	// Fetching
	FetchMaxResults int
	BlockedSenders  []string

	// State file (legacy fallback view)
	StateFilePath string

	// CORS
	AllowedOrigins []string

	// Rate limiting (analyze route)
	AnalyzeRateLimit  int
	AnalyzeRateWindow time.Duration
}

func Load() (*Config, error) {
	backendURL := strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8000"), "/")

	return &Config{
		Port:        getEnv("PORT", "8000"),
		Environment: getEnv("ENV", "development"),

		// Database
		MongoDBURL:  getEnv("MONGODB_URL", getEnv("MONGO_URI", "")),
		MongoDBName: getEnv("MONGODB_DATABASE", "gmail_analyzer"),
		RedisURL:    getEnv("REDIS_URL", ""),

		// OpenAI
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		LLMModel:      getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:  getEnvInt("LLM_MAX_TOKENS", 2048),
		LLMMaxRetries: getEnvInt("LLM_MAX_RETRIES", 2),
		LLMThrottle:   time.Duration(getEnvInt("LLM_THROTTLE_MS", 1000)) * time.Millisecond,

		// OAuth - Google
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", backendURL+"/oauth2callback"),

		// Service URLs
		BackendURL:  backendURL,
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),

		// Fetching
		FetchMaxResults: getEnvInt("FETCH_MAX_RESULTS", 20),
		BlockedSenders:  getEnvSlice("BLOCKED_SENDERS", defaultBlockedSenders),

		// State file
		StateFilePath: getEnv("EMAIL_STATE_FILE", "email_state.json"),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8000"}),

		// Rate limiting
		AnalyzeRateLimit:  getEnvInt("ANALYZE_RATE_LIMIT", 10),
		AnalyzeRateWindow: time.Duration(getEnvInt("ANALYZE_RATE_WINDOW_SEC", 60)) * time.Second,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
