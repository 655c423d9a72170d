package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderReplicate = "replicate"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
)

type Config struct {
	WebAddr            string
	CORSAllowedOrigins []string

	LogLevel string
	LogFile  string
	Debug    bool

	PreferIPv4      bool
	HTTPTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxConcurrent   int

	CatalogPath    string
	MaxPromptRunes int

	ImageProvider string

	ReplicateAPIToken     string
	ReplicateBaseURL      string
	ReplicateModel        string
	ReplicatePollInterval time.Duration

	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiAPIVersion string
	GeminiImageModel string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIImageModel string

	TelegramToken string
}

func Load() (Config, error) {
	cfg := Config{
		WebAddr:               getEnv("WEB_ADDR", ":8080"),
		CORSAllowedOrigins:    splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:              strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:               getEnv("LOG_FILE", ""),
		Debug:                 getEnvBool("DEBUG", false),
		PreferIPv4:            getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:           time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		RequestTimeout:        time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 240)) * time.Second,
		ShutdownTimeout:       time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 15)) * time.Second,
		MaxConcurrent:         getEnvInt("MAX_CONCURRENT", 4),
		CatalogPath:           getEnv("CATALOG_PATH", ""),
		MaxPromptRunes:        getEnvInt("MAX_PROMPT_RUNES", 2000),
		ImageProvider:         strings.ToLower(getEnv("IMAGE_PROVIDER", ProviderReplicate)),
		ReplicateBaseURL:      getEnv("REPLICATE_BASE_URL", "https://api.replicate.com"),
		ReplicateModel:        getEnv("REPLICATE_MODEL", "black-forest-labs/flux-schnell"),
		ReplicatePollInterval: time.Duration(getEnvInt("REPLICATE_POLL_INTERVAL_MS", 1000)) * time.Millisecond,
		GeminiBaseURL:         getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiAPIVersion:      getEnv("GEMINI_API_VERSION", "v1beta"),
		GeminiImageModel:      getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIImageModel:      getEnv("OPENAI_IMAGE_MODEL", "dall-e-3"),
	}

	cfg.ReplicateAPIToken = strings.TrimSpace(os.Getenv("REPLICATE_API_TOKEN"))
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	cfg.OpenAIAPIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))

	switch cfg.ImageProvider {
	case ProviderReplicate:
		if cfg.ReplicateAPIToken == "" {
			return Config{}, errors.New("REPLICATE_API_TOKEN is required")
		}
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return Config{}, errors.New("GEMINI_API_KEY is required")
		}
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return Config{}, errors.New("OPENAI_API_KEY is required")
		}
	default:
		return Config{}, fmt.Errorf("unknown IMAGE_PROVIDER %q", cfg.ImageProvider)
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.MaxPromptRunes < 0 {
		cfg.MaxPromptRunes = 0
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 240 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	if cfg.ReplicatePollInterval <= 0 {
		cfg.ReplicatePollInterval = time.Second
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
