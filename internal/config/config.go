package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lexveille/lexveille-backend/internal/platform/envutil"
)

// Config carries every runtime setting. It is built once in main and
// passed down explicitly; nothing reads the environment after Load.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Scraper   ScraperConfig
	LLM       LLMConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port           int
	Mode           string
	AllowedOrigins []string
}

type StorageConfig struct {
	CSVFile     string
	ContentDir  string
	ExportDir   string
	ExportJSONL bool
}

type ScraperConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
	// Delay between detail-page fetches within one day.
	DetailDelay time.Duration
	// Delay between successive days of a range scrape.
	DayDelay time.Duration
	// Base URL overrides, used by tests.
	EURLexBaseURL string
}

type LLMConfig struct {
	Enabled         bool
	Provider        string
	Model           string
	APIKey          string
	BaseURL         string
	Temperature     float64
	MaxTokens       int
	TimeoutSeconds  int
	MaxRetries      int
	ChunkSizeTokens int
	BatchSize       int

	AzureEndpoint   string
	AzureAPIVersion string
	AzureDeployment string
}

type SchedulerConfig struct {
	Enabled                bool
	EURLexLTime            string
	EURLexCTime            string
	AutoProcessAfterScrape bool
}

// Load builds the configuration from the environment. Call after godotenv
// has had a chance to populate it.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envutil.Int("PORT", 8000),
			Mode: envutil.String("APP_MODE", "dev"),
			AllowedOrigins: splitCSV(envutil.String("CORS_ALLOWED_ORIGINS",
				"http://localhost:3000,http://localhost:5173,http://localhost:5174,http://localhost:8080,"+
					"http://127.0.0.1:3000,http://127.0.0.1:5173,http://127.0.0.1:5174")),
		},
		Storage: StorageConfig{
			CSVFile:     envutil.String("CSV_FILE", "legal_documents.csv"),
			ContentDir:  envutil.String("CONTENT_DIR", "content_files"),
			ExportDir:   envutil.String("EXPORT_DIR", "."),
			ExportJSONL: envutil.Bool("EXPORT_JSONL", true),
		},
		Scraper: ScraperConfig{
			UserAgent:      envutil.String("SCRAPER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
			RequestTimeout: envutil.Duration("SCRAPER_TIMEOUT", 30*time.Second),
			DetailDelay:    envutil.Duration("SCRAPER_DETAIL_DELAY", time.Second),
			DayDelay:       envutil.Duration("SCRAPER_DAY_DELAY", 2*time.Second),
			EURLexBaseURL:  envutil.String("EURLEX_BASE_URL", "https://eur-lex.europa.eu"),
		},
		LLM: LLMConfig{
			Enabled:         envutil.Bool("LLM_ENABLED", true),
			Provider:        strings.ToLower(envutil.String("LLM_PROVIDER", "openai")),
			Model:           envutil.String("LLM_MODEL", ""),
			Temperature:     envutil.Float("LLM_TEMPERATURE", 0.0),
			MaxTokens:       envutil.Int("LLM_MAX_TOKENS", 4096),
			TimeoutSeconds:  envutil.Int("LLM_TIMEOUT_SECONDS", 180),
			MaxRetries:      envutil.Int("LLM_MAX_RETRIES", 3),
			ChunkSizeTokens: envutil.Int("LLM_CHUNK_SIZE_TOKENS", 10000),
			BatchSize:       envutil.Int("LLM_BATCH_SIZE", 10),
			AzureEndpoint:   envutil.String("AZURE_OPENAI_ENDPOINT", ""),
			AzureAPIVersion: envutil.String("AZURE_API_VERSION", "2024-02-15"),
			AzureDeployment: envutil.String("AZURE_OPENAI_DEPLOYMENT_NAME", "gpt-4o"),
		},
		Scheduler: SchedulerConfig{
			Enabled:                envutil.Bool("SCHEDULER_ENABLED", true),
			EURLexLTime:            envutil.String("EURLEX_L_TIME", "09:00"),
			EURLexCTime:            envutil.String("EURLEX_C_TIME", "09:30"),
			AutoProcessAfterScrape: envutil.Bool("AUTO_PROCESS_AFTER_SCRAPE", false),
		},
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModel(cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = apiKeyFromEnv(cfg.LLM.Provider)
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = defaultBaseURL(cfg.LLM.Provider)
	}

	if cfg.LLM.Enabled && cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("LLM enabled but no API key set for provider %q", cfg.LLM.Provider)
	}
	return cfg, nil
}

func defaultModel(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-sonnet-4-20250514"
	case "mistral":
		return "mistral-large-latest"
	case "azure_openai":
		return envutil.String("AZURE_OPENAI_DEPLOYMENT_NAME", "gpt-4o")
	default:
		return "gpt-4o-mini"
	}
}

func apiKeyFromEnv(provider string) string {
	switch provider {
	case "anthropic":
		return strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	case "mistral":
		return strings.TrimSpace(os.Getenv("MISTRAL_API_KEY"))
	case "azure_openai":
		return strings.TrimSpace(os.Getenv("AZURE_OPENAI_API_KEY"))
	default:
		return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
}

func defaultBaseURL(provider string) string {
	switch provider {
	case "anthropic":
		return "https://api.anthropic.com"
	case "mistral":
		return "https://api.mistral.ai"
	case "azure_openai":
		return ""
	default:
		return "https://api.openai.com"
	}
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
