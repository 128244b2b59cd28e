// Package config resolves server configuration from flags and environment,
// with a .env file picked up for local development.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	// DataDir holds session snapshots and prefs when no database is set.
	DataDir string
	// ScenarioDir optionally adds local scenario packs on top of the
	// builtin set.
	ScenarioDir string
	// CacheSize bounds the session LRU in front of the store.
	CacheSize int
	// DatabaseURL switches session persistence to Postgres when set.
	DatabaseURL string

	Backend BackendConfig
	LLM     LLMConfig
	Archive ArchiveConfig
}

// BackendConfig points at the workflow backend used for generation. An
// empty URL disables the backend path and analyses run locally only.
type BackendConfig struct {
	URL          string
	Timeout      time.Duration
	PollInterval time.Duration
}

type LLMConfig struct {
	// Provider is "gemini" or "openrouter".
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:        *port,
		Env:         env,
		DataDir:     firstNonEmpty(strings.TrimSpace(os.Getenv("SCL_DATA_DIR")), "data"),
		ScenarioDir: strings.TrimSpace(os.Getenv("SCL_SCENARIO_DIR")),
		CacheSize:   envInt("SCL_CACHE_SIZE", 128),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Backend:     loadBackendConfig(),
		LLM:         loadLLMConfig(),
		Archive:     loadArchiveConfig(env),
	}, nil
}

func loadBackendConfig() BackendConfig {
	return BackendConfig{
		URL:          strings.TrimSpace(os.Getenv("SCL_BACKEND_URL")),
		Timeout:      envDuration("SCL_BACKEND_TIMEOUT_MS", 15*time.Second),
		PollInterval: envDuration("SCL_BACKEND_POLL_MS", 1500*time.Millisecond),
	}
}

func loadLLMConfig() LLMConfig {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))
	if provider == "" {
		provider = "gemini"
	}
	cfg := LLMConfig{
		Provider: provider,
		Model:    strings.TrimSpace(os.Getenv("LLM_MODEL")),
		BaseURL:  strings.TrimSpace(os.Getenv("OPENROUTER_BASE_URL")),
	}
	switch provider {
	case "openrouter":
		cfg.APIKey = strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
		if cfg.Model == "" {
			cfg.Model = "openai/gpt-4o-mini"
		}
	default:
		cfg.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		if cfg.Model == "" {
			cfg.Model = "gemini-2.0-flash"
		}
	}
	return cfg
}

func loadArchiveConfig(env string) ArchiveConfig {
	endpoint := resolveArchiveEndpoint(env)
	return ArchiveConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_BUCKET")), "scl-sessions"),
		UseSSL:    resolveArchiveUseSSL(env),
	}
}

func resolveArchiveEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("ARCHIVE_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("ARCHIVE_S3_ENDPOINT"))
}

func resolveArchiveUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("ARCHIVE_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
