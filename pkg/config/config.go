// Package config loads and validates process-wide configuration from the
// environment. Configuration is resolved once at startup and is read-only
// afterwards.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// ProviderConfig holds connection settings for one OpenAI-compatible endpoint.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	// Model is the default model id for this endpoint.
	Model string
	// ThinkingModel and InstructModel are the Qwen deployment's two model ids.
	// Empty for providers that expose a single model.
	ThinkingModel string
	InstructModel string
}

// LoopConfig holds agentic loop settings.
type LoopConfig struct {
	Strategy             ModelStrategy
	MaxIterations        int
	Temperature          *float32
	MaxTokens            *int
	ShowReasoning        bool // strategies emit reasoning events at all
	ShowReasoningTraces  bool // orchestrator forwards reasoning to SSE clients
	RequestTimeout       time.Duration
	TurnTimeout          time.Duration
	WorkingMessagesLimit int // soft bound before the window is re-applied
}

// ConversationConfig holds conversation persistence settings.
type ConversationConfig struct {
	StorageMode          StorageMode
	RollingWindowSize    int
	CompressionThreshold int // accepted but unused; summarisation is out of scope

	// RetentionDays is how long an untouched conversation survives before
	// the retention sweep soft-deletes it. Zero disables the sweep.
	RetentionDays   int
	CleanupInterval time.Duration
}

// QdrantConfig holds vector store connection settings.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// EmbeddingConfig holds embedding service settings.
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Config is the process-wide configuration. Built once at startup.
type Config struct {
	ListenAddr string

	Loop         LoopConfig
	Conversation ConversationConfig
	Qdrant       QdrantConfig
	Embedding    EmbeddingConfig
	Database     DatabaseConfig

	Qwen     ProviderConfig
	DeepSeek ProviderConfig

	Finalizer FinalizerMode
}

// Load builds the configuration from environment variables, applying
// defaults and validating enumerated values. Unknown enum values log a
// warning and fall back to their defaults rather than failing startup.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr: getEnvOrDefault("LISTEN_ADDR", ":8080"),
		Loop: LoopConfig{
			Strategy:             ModelStrategy(getEnvOrDefault("LOOP_MODEL_STRATEGY", string(ModelStrategyQwenThinking))),
			MaxIterations:        getEnvInt("LOOP_MAX_ITERATIONS", 10),
			ShowReasoning:        getEnvBool("LOOP_THINKING_SHOW_REASONING", true),
			ShowReasoningTraces:  getEnvBool("LOOP_STREAMING_SHOW_REASONING_TRACES", true),
			RequestTimeout:       getEnvDuration("LOOP_REQUEST_TIMEOUT", 120*time.Second),
			TurnTimeout:          getEnvDuration("LOOP_TURN_TIMEOUT", 10*time.Minute),
			WorkingMessagesLimit: getEnvInt("LOOP_WORKING_MESSAGES_LIMIT", 200),
		},
		Conversation: ConversationConfig{
			StorageMode:          StorageMode(getEnvOrDefault("CONVERSATION_STORAGE_MODE", string(StorageModeInMemory))),
			RollingWindowSize:    getEnvInt("CONVERSATION_ROLLING_WINDOW_SIZE", 20),
			CompressionThreshold: getEnvInt("CONVERSATION_COMPRESSION_THRESHOLD", 50),
			RetentionDays:        getEnvInt("CONVERSATION_RETENTION_DAYS", 90),
			CleanupInterval:      getEnvDuration("CONVERSATION_CLEANUP_INTERVAL", 6*time.Hour),
		},
		Qdrant: QdrantConfig{
			Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
			Port:       getEnvInt("QDRANT_PORT", 6334),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     getEnvBool("QDRANT_USE_TLS", false),
			Collection: getEnvOrDefault("QDRANT_COLLECTION", "knowledge_base"),
		},
		Embedding: EmbeddingConfig{
			BaseURL: getEnvOrDefault("EMBEDDING_BASE_URL", "http://localhost:8000/v1"),
			APIKey:  os.Getenv("EMBEDDING_API_KEY"),
			Model:   getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-v3"),
		},
		Database: DatabaseConfig{
			Host:            getEnvOrDefault("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnvOrDefault("DB_USER", "orchestrator"),
			Password:        os.Getenv("DB_PASSWORD"),
			Database:        getEnvOrDefault("DB_NAME", "orchestrator"),
			SSLMode:         getEnvOrDefault("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Qwen: ProviderConfig{
			BaseURL:       getEnvOrDefault("QWEN_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1"),
			APIKey:        os.Getenv("QWEN_API_KEY"),
			ThinkingModel: getEnvOrDefault("QWEN_THINKING_MODEL", "qwen3-32b"),
			InstructModel: getEnvOrDefault("QWEN_INSTRUCT_MODEL", "qwen2.5-32b-instruct"),
		},
		DeepSeek: ProviderConfig{
			BaseURL: getEnvOrDefault("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
			APIKey:  os.Getenv("DEEPSEEK_API_KEY"),
			Model:   getEnvOrDefault("DEEPSEEK_MODEL", "deepseek-chat"),
		},
		Finalizer: FinalizerMode(getEnvOrDefault("FINALIZER_MODE", string(FinalizerModeDirect))),
	}

	if temp := os.Getenv("LOOP_TEMPERATURE"); temp != "" {
		if v, err := strconv.ParseFloat(temp, 32); err == nil {
			t := float32(v)
			cfg.Loop.Temperature = &t
		} else {
			return nil, fmt.Errorf("invalid LOOP_TEMPERATURE %q: %w", temp, err)
		}
	}
	if max := os.Getenv("LOOP_MAX_TOKENS"); max != "" {
		if v, err := strconv.Atoi(max); err == nil {
			cfg.Loop.MaxTokens = &v
		} else {
			return nil, fmt.Errorf("invalid LOOP_MAX_TOKENS %q: %w", max, err)
		}
	}

	// Unknown enum values fall back to defaults with a warning; switching
	// strategies requires a restart either way.
	if !cfg.Loop.Strategy.IsValid() {
		slog.Warn("Unknown LOOP_MODEL_STRATEGY, falling back to default",
			"value", cfg.Loop.Strategy, "default", ModelStrategyQwenThinking)
		cfg.Loop.Strategy = ModelStrategyQwenThinking
	}
	if !cfg.Conversation.StorageMode.IsValid() {
		slog.Warn("Unknown CONVERSATION_STORAGE_MODE, falling back to in-memory",
			"value", cfg.Conversation.StorageMode)
		cfg.Conversation.StorageMode = StorageModeInMemory
	}
	if !cfg.Finalizer.IsValid() {
		slog.Warn("Unknown FINALIZER_MODE, falling back to direct",
			"value", cfg.Finalizer)
		cfg.Finalizer = FinalizerModeDirect
	}

	if cfg.Loop.MaxIterations < 1 {
		return nil, fmt.Errorf("LOOP_MAX_ITERATIONS must be >= 1, got %d", cfg.Loop.MaxIterations)
	}
	if cfg.Conversation.RollingWindowSize < 1 {
		return nil, fmt.Errorf("CONVERSATION_ROLLING_WINDOW_SIZE must be >= 1, got %d", cfg.Conversation.RollingWindowSize)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			return v
		}
		slog.Warn("Invalid integer environment value, using default",
			"key", key, "value", val, "default", defaultVal)
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			return v
		}
		slog.Warn("Invalid boolean environment value, using default",
			"key", key, "value", val, "default", defaultVal)
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if v, err := time.ParseDuration(val); err == nil {
			return v
		}
		slog.Warn("Invalid duration environment value, using default",
			"key", key, "value", val, "default", defaultVal)
	}
	return defaultVal
}
