// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	ProviderMistral = "mistral"
	ProviderGemini  = "gemini"
)

// ErrMissingAPIKey is returned when the selected generation provider has no credential.
var ErrMissingAPIKey = errors.New("missing API key for generation service")

// MistralConfig holds the hosted Mistral API settings.
type MistralConfig struct {
	APIKey     string
	BaseURL    string `validate:"required,url"`
	ChatModel  string `validate:"required"`
	EmbedModel string `validate:"required"`
}

// GeminiConfig holds the alternate generation provider settings.
type GeminiConfig struct {
	APIKey string
	Model  string `validate:"required"`
}

// LLMConfig selects the generation provider.
type LLMConfig struct {
	Provider       string `validate:"oneof=mistral gemini"`
	TimeoutSeconds int    `validate:"min=1"`
}

// Timeout returns the per-call generation timeout.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// GateConfig configures the retrieval gate.
type GateConfig struct {
	CommuneName              string  `validate:"required"`
	VocabularyFile           string
	ClassifierTimeoutSeconds int     `validate:"min=1"`
	Temperature              float64 `validate:"gte=0,lte=2"`
	MaxTokens                int     `validate:"min=1"`
}

// ClassifierTimeout bounds the model fallback call.
func (g GateConfig) ClassifierTimeout() time.Duration {
	return time.Duration(g.ClassifierTimeoutSeconds) * time.Second
}

// AnswerConfig configures the answer composer.
type AnswerConfig struct {
	TopK        int     `validate:"min=1,max=50"`
	Temperature float64 `validate:"gte=0,lte=2"`
	MaxTokens   int     `validate:"min=1"`
}

// FeedConfig configures the open-data extraction job.
type FeedConfig struct {
	BaseURL           string  `validate:"required,url"`
	Dataset           string  `validate:"required"`
	Year              string  `validate:"required"`
	PageSize          int     `validate:"min=1,max=10000"`
	RequestsPerSecond float64 `validate:"gt=0"`
}

// StorageConfig locates the event table and the vector index.
type StorageConfig struct {
	EventsCSV        string `validate:"required"`
	IndexDir         string `validate:"required"`
	EmbedBatchSize   int    `validate:"min=1"`
	EmbedConcurrency int    `validate:"min=1"`
}

// HistoryConfig configures the conversation history store.
type HistoryConfig struct {
	StoreURL    string
	Enabled     bool
	TTLMinutes  int `validate:"min=1"`
	MaxMessages int `validate:"min=2"`
}

// TTL returns the history expiry.
func (h HistoryConfig) TTL() time.Duration {
	return time.Duration(h.TTLMinutes) * time.Minute
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level      string
	LogDir     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// HTTPConfig configures the chat server.
type HTTPConfig struct {
	Host string
	Port int `validate:"min=1,max=65535"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// Config is the full application configuration.
type Config struct {
	Mistral MistralConfig
	Gemini  GeminiConfig
	LLM     LLMConfig
	Gate    GateConfig
	Answer  AnswerConfig
	Feed    FeedConfig
	Storage StorageConfig
	History HistoryConfig
	Logging LoggingConfig
	HTTP    HTTPConfig
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load()
	return buildConfig()
}

// Validate checks ranges and enums.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := validator.New().Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RequireCredentials fails when the selected provider cannot authenticate.
// Embeddings always go through Mistral, so its key is required either way.
func (c *Config) RequireCredentials() error {
	if c.Mistral.APIKey == "" {
		return fmt.Errorf("%w: set API_KEY or MISTRAL_API_KEY", ErrMissingAPIKey)
	}
	if c.LLM.Provider == ProviderGemini && c.Gemini.APIKey == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}
	return nil
}

// ChatModel returns the model identifier used for generation.
func (c *Config) ChatModel() string {
	if c.LLM.Provider == ProviderGemini {
		return c.Gemini.Model
	}
	return c.Mistral.ChatModel
}

// LogEnvStatus logs the effective configuration with secrets masked.
func LogEnvStatus(cfg *Config, logger *slog.Logger) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Debug(
		"env_status",
		"env_file", fileExists(".env"),
		"provider", cfg.LLM.Provider,
		"api_key", maskSecret(cfg.Mistral.APIKey),
		"chat_model", cfg.ChatModel(),
		"embed_model", cfg.Mistral.EmbedModel,
		"commune", cfg.Gate.CommuneName,
		"events_csv", cfg.Storage.EventsCSV,
		"index_dir", cfg.Storage.IndexDir,
		"history_store", cfg.History.StoreURL,
		"history_enabled", cfg.History.Enabled,
	)
}

func buildConfig() *Config {
	return &Config{
		Mistral: MistralConfig{
			APIKey:     getEnvFirst("", "API_KEY", "MISTRAL_API_KEY"),
			BaseURL:    getEnvString("MISTRAL_BASE_URL", "https://api.mistral.ai"),
			ChatModel:  getEnvString("CHAT_MODEL", "mistral-large-latest"),
			EmbedModel: getEnvString("EMBED_MODEL", "mistral-embed"),
		},
		Gemini: GeminiConfig{
			APIKey: getEnvString("GEMINI_API_KEY", ""),
			Model:  getEnvString("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		LLM: LLMConfig{
			Provider:       strings.ToLower(getEnvString("LLM_PROVIDER", ProviderMistral)),
			TimeoutSeconds: getEnvInt("LLM_TIMEOUT_SECONDS", 60),
		},
		Gate: GateConfig{
			CommuneName:              getEnvString("COMMUNE_NAME", "Montpellier"),
			VocabularyFile:           getEnvString("VOCABULARY_FILE", ""),
			ClassifierTimeoutSeconds: getEnvInt("CLASSIFIER_TIMEOUT_SECONDS", 15),
			Temperature:              getEnvFloat("CLASSIFIER_TEMPERATURE", 0.1),
			MaxTokens:                getEnvInt("CLASSIFIER_MAX_TOKENS", 50),
		},
		Answer: AnswerConfig{
			TopK:        getEnvInt("ANSWER_TOP_K", 3),
			Temperature: getEnvFloat("ANSWER_TEMPERATURE", 0.7),
			MaxTokens:   getEnvInt("ANSWER_MAX_TOKENS", 1000),
		},
		Feed: FeedConfig{
			BaseURL:           getEnvString("FEED_BASE_URL", "https://public.opendatasoft.com/api/records/1.0/search/"),
			Dataset:           getEnvString("FEED_DATASET", "evenements-publics-openagenda"),
			Year:              getEnvString("FEED_YEAR", "2025"),
			PageSize:          getEnvInt("FEED_PAGE_SIZE", 1000),
			RequestsPerSecond: getEnvFloat("FEED_REQUESTS_PER_SECOND", 2),
		},
		Storage: StorageConfig{
			EventsCSV:        getEnvString("EVENTS_CSV", "data/csv/events.csv"),
			IndexDir:         getEnvString("INDEX_DIR", "data/vector_index"),
			EmbedBatchSize:   getEnvInt("EMBED_BATCH_SIZE", 32),
			EmbedConcurrency: getEnvInt("EMBED_CONCURRENCY", 2),
		},
		History: HistoryConfig{
			StoreURL:    getEnvString("HISTORY_STORE_URL", "redis://localhost:6379"),
			Enabled:     getEnvBool("HISTORY_STORE_ENABLED", false),
			TTLMinutes:  getEnvInt("HISTORY_TTL_MINUTES", 1440),
			MaxMessages: getEnvInt("HISTORY_MAX_MESSAGES", 50),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			LogDir:     getEnvString("LOG_DIR", ""),
			MaxSizeMB:  getEnvInt("LOG_FILE_MAX_SIZE_MB", 10),
			MaxBackups: getEnvInt("LOG_FILE_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_FILE_MAX_AGE_DAYS", 7),
			Compress:   getEnvBool("LOG_FILE_COMPRESS", true),
		},
		HTTP: HTTPConfig{
			Host: getEnvString("HTTP_HOST", "127.0.0.1"),
			Port: getEnvInt("HTTP_PORT", 8501),
		},
	}
}
