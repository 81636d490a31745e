package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	JWTSecret       string

	MaxUploadBytes int64
	MaxPages       int

	LLMProvider    string
	LLMModel       string
	LLMBaseURL     string
	LLMAPIKey      string
	LLMTimeout     time.Duration
	LLMTemperature float32
	LLMMaxTokens   int
	MaxPromptChars int
	RedactPII      bool

	ResultCacheSize int

	HistoryStore             string
	DatabaseURL              string
	SQLitePath               string
	HistoryDiscloseForbidden bool

	ArchiveStore  string
	LocalStoreDir string
	AWSRegion     string
	S3Bucket      string
	S3Prefix      string
	S3Endpoint    string
	SSEKMSKeyID   string

	RateLimitUploadsPerMin int
}

const (
	DefaultMaxUploadBytes = 10 << 20
	DefaultLLMTimeout     = 30 * time.Second
)

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Local env files are optional; existing environment variables win.
	for _, path := range []string{".env", "cmd/.env"} {
		_ = godotenv.Load(path)
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	provider := normalizeProvider(getEnv("LLM_PROVIDER", "openai"))

	historyStore := strings.ToLower(strings.TrimSpace(os.Getenv("HISTORY_STORE")))
	if historyStore == "" {
		historyStore = "memory"
		if dbURL != "" {
			historyStore = "postgres"
		}
	}
	if env == "production" && historyStore == "memory" {
		log.Printf("HISTORY_STORE=memory in production: history is lost on restart")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             env,
		JWTSecret:       os.Getenv("JWT_SECRET"),

		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
		MaxPages:       getEnvInt("MAX_PAGES", 0),

		LLMProvider:    provider,
		LLMModel:       getEnv("LLM_MODEL", defaultModel(provider)),
		LLMBaseURL:     getEnv("LLM_BASE_URL", ""),
		LLMAPIKey:      apiKeyFor(provider),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", DefaultLLMTimeout),
		LLMTemperature: float32(getEnvFloat("LLM_TEMPERATURE", 0.3)),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1500),
		MaxPromptChars: getEnvInt("MAX_PROMPT_CHARS", 0),
		RedactPII:      getEnvBool("REDACT_PII", false),

		ResultCacheSize: getEnvInt("RESULT_CACHE_SIZE", 0),

		HistoryStore:             historyStore,
		DatabaseURL:              dbURL,
		SQLitePath:               getEnv("SQLITE_PATH", "./data/history.db"),
		HistoryDiscloseForbidden: getEnvBool("HISTORY_DISCLOSE_FORBIDDEN", false),

		ArchiveStore:  strings.ToLower(getEnv("ARCHIVE_STORE", "none")),
		LocalStoreDir: getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:     getEnv("AWS_REGION", ""),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Prefix:      getEnv("S3_PREFIX", ""),
		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		SSEKMSKeyID:   getEnv("SSE_KMS_KEY_ID", ""),

		RateLimitUploadsPerMin: getEnvInt("RATE_LIMIT_UPLOADS_PER_MIN", 10),
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "groq":
		return "llama3-70b-8192"
	case "gemini":
		return "gemini-1.5-flash"
	default:
		return "gpt-4o-mini"
	}
}

func apiKeyFor(provider string) string {
	if key := strings.TrimSpace(os.Getenv("LLM_API_KEY")); key != "" {
		return key
	}
	switch provider {
	case "groq":
		return strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
	case "gemini":
		return strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	default:
		return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid size %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		log.Printf("config %s invalid float %q, using %v", key, raw, def)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config %s invalid bool %q, using %v", key, raw, def)
		return def
	}
	return val
}

// getEnvDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "groq":
		return "groq"
	case "gemini", "google":
		return "gemini"
	default:
		return "openai"
	}
}
